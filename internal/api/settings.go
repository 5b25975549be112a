package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vpnhouse/console/internal/domain"
)

// GetSettings fetches the appliance settings document.
func (c *Client) GetSettings(ctx context.Context) (domain.Settings, error) {
	var out domain.Settings
	if err := c.do(ctx, http.MethodGet, pathSettings, nil, &out, callOpts{}); err != nil {
		return domain.Settings{}, err
	}
	return out, nil
}

// PatchSettings applies changed settings and returns the resulting document.
func (c *Client) PatchSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	body, err := json.Marshal(settings)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("api: marshal settings: %w", err)
	}
	var out domain.Settings
	if err := c.do(ctx, http.MethodPatch, pathSettings, body, &out, callOpts{}); err != nil {
		return domain.Settings{}, err
	}
	return out, nil
}
