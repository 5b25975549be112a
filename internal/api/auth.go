package api

import (
	"context"
	"net/http"
)

type authResponse struct {
	AccessToken string `json:"access_token"`
}

// Login exchanges the admin password for an access token using Basic auth.
// It is the only call that must not carry a bearer header.
func (c *Client) Login(ctx context.Context, password string) (string, error) {
	var out authResponse
	err := c.do(ctx, http.MethodPost, pathAuth, nil, &out, callOpts{auth: authBasic, password: password})
	if err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

// Refresh trades the current (still valid) token for a fresh one.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	var out authResponse
	err := c.do(ctx, http.MethodGet, pathAuth, nil, &out, callOpts{auth: authBearer})
	if err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

// CheckSetup probes the auth endpoint to learn whether the appliance went
// through its one-time initial configuration. An HTTP 409 unwraps to
// [domain.ErrSetupRequired]; 401 just means "configured, not logged in"
// and is not an error here.
func (c *Client) CheckSetup(ctx context.Context) error {
	err := c.do(ctx, http.MethodGet, pathAuth, nil, nil, callOpts{auth: authNone})
	if err == nil {
		return nil
	}
	if apiErr := asStatus(err, http.StatusUnauthorized); apiErr {
		return nil
	}
	return err
}
