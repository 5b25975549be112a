package api

import (
	"context"
	"net/http"

	"github.com/vpnhouse/console/internal/domain"
)

// Trusted-key create and update carry the raw key text as the request body,
// not a JSON document. Only the listing endpoint speaks JSON.

// ListTrustedKeys fetches all trusted federation keys.
func (c *Client) ListTrustedKeys(ctx context.Context) ([]domain.TrustedKey, error) {
	var keys []domain.TrustedKey
	if err := c.do(ctx, http.MethodGet, pathTrusted, nil, &keys, callOpts{}); err != nil {
		return nil, err
	}
	return keys, nil
}

// AddTrustedKey registers key text under the given UUID.
func (c *Client) AddTrustedKey(ctx context.Context, id, key string) error {
	return c.do(ctx, http.MethodPost, pathTrusted+"/"+id, []byte(key), nil,
		callOpts{contentType: "text/plain"})
}

// UpdateTrustedKey replaces the key text stored under id.
func (c *Client) UpdateTrustedKey(ctx context.Context, id, key string) error {
	return c.do(ctx, http.MethodPut, pathTrusted+"/"+id, []byte(key), nil,
		callOpts{contentType: "text/plain"})
}

// DeleteTrustedKey removes the key stored under id.
func (c *Client) DeleteTrustedKey(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, pathTrusted+"/"+id, nil, nil, callOpts{})
}
