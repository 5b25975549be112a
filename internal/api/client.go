// Package api implements the typed client for the appliance admin REST API.
// It owns the bearer-token header, the 401 side effect, and the translation
// of structured rejection bodies into [domain.APIError] values.
package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vpnhouse/console/internal/domain"
)

// Admin endpoint paths, relative to the appliance base URL.
const (
	pathAuth            = "/api/tunnel/admin/auth"
	pathPeers           = "/api/tunnel/admin/peers"
	pathWireguardConfig = "/api/tunnel/admin/peers/wireguard-config"
	pathIPv4            = "/api/tunnel/admin/ipv4"
	pathTrusted         = "/api/tunnel/admin/trusted"
	pathSettings        = "/api/tunnel/admin/settings"
	pathStatus          = "/api/tunnel/admin/status"
	pathGlobalStats     = "/api/tunnel/admin/global-stats"
	pathInitialSetup    = "/api/tunnel/admin/initial-setup"
)

const defaultRequestTimeout = 30 * time.Second
const maxErrorBodyBytes = 4096

// TokenSource supplies the current access token. The session manager is the
// only implementation outside tests.
type TokenSource interface {
	Token() string
}

// Client talks to one appliance. All methods attach the bearer token unless
// the call explicitly uses Basic auth (login) or none (initial setup).
type Client struct {
	baseURL        string
	http           *http.Client
	log            *slog.Logger
	tokens         TokenSource
	onUnauthorized func()
}

// New creates a client for the appliance at baseURL.
func New(baseURL string, tokens TokenSource, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: defaultRequestTimeout},
		log:     logger,
		tokens:  tokens,
	}
}

// SetTimeout overrides the per-request timeout.
func (c *Client) SetTimeout(d time.Duration) {
	c.http.Timeout = d
}

// SetUnauthorizedHook registers the side effect run whenever a bearer call
// comes back 401. The session manager hooks its logout here.
func (c *Client) SetUnauthorizedHook(fn func()) {
	c.onUnauthorized = fn
}

type authMode int

const (
	authBearer authMode = iota
	authBasic
	authNone
)

type callOpts struct {
	auth        authMode
	password    string
	contentType string
}

// do issues one request and decodes a JSON response into out (when non-nil).
// Non-2xx responses become *domain.APIError values carrying the status and
// the parsed {error, field, details} body.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any, opts callOpts) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}

	switch opts.auth {
	case authBearer:
		req.Header.Set("Authorization", "Bearer "+c.tokens.Token())
	case authBasic:
		// The password travels as the Basic secret with an empty user,
		// matching the appliance's single-admin model.
		cred := base64.StdEncoding.EncodeToString([]byte(":" + opts.password))
		req.Header.Set("Authorization", "Basic "+cred)
	}
	if body != nil {
		ct := opts.contentType
		if ct == "" {
			ct = "application/json"
		}
		req.Header.Set("Content-Type", ct)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized && opts.auth == authBearer && c.onUnauthorized != nil {
		c.onUnauthorized()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.rejection(method, path, resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("api: decode %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// asStatus reports whether err is an APIError with the given HTTP status.
func asStatus(err error, status int) bool {
	var apiErr *domain.APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

func (c *Client) rejection(method, path string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	apiErr := &domain.APIError{Status: resp.StatusCode}
	if json.Unmarshal(raw, apiErr) != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	c.log.Debug("api request rejected",
		"method", method, "path", path,
		"status", resp.StatusCode, "error", apiErr.Message, "field", apiErr.Field)
	return apiErr
}
