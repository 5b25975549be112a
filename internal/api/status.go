package api

import (
	"context"
	"net/http"

	"github.com/vpnhouse/console/internal/domain"
)

// Status fetches the service status, including the restart_required flag
// the poller watches.
func (c *Client) Status(ctx context.Context) (domain.ServiceStatus, error) {
	var out domain.ServiceStatus
	if err := c.do(ctx, http.MethodGet, pathStatus, nil, &out, callOpts{}); err != nil {
		return domain.ServiceStatus{}, err
	}
	return out, nil
}

// GlobalStats fetches the dashboard traffic summary. Polled independently
// of Status at a slower cadence.
func (c *Client) GlobalStats(ctx context.Context) (domain.GlobalStats, error) {
	var out domain.GlobalStats
	if err := c.do(ctx, http.MethodGet, pathGlobalStats, nil, &out, callOpts{}); err != nil {
		return domain.GlobalStats{}, err
	}
	return out, nil
}
