package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vpnhouse/console/internal/domain"
)

// InitialSetup performs the one-time appliance bootstrap. No credentials
// exist yet, so the call goes out without an auth header.
func (c *Client) InitialSetup(ctx context.Context, setup domain.InitialSetup) error {
	body, err := json.Marshal(setup)
	if err != nil {
		return fmt.Errorf("api: marshal initial setup: %w", err)
	}
	return c.do(ctx, http.MethodPost, pathInitialSetup, body, nil, callOpts{auth: authNone})
}
