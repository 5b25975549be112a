// Package settings is a thin request/response wrapper around the appliance
// settings document.
package settings

import (
	"context"
	"log/slog"

	"github.com/vpnhouse/console/internal/api"
	"github.com/vpnhouse/console/internal/domain"
	"github.com/vpnhouse/console/internal/notify"
	"github.com/vpnhouse/console/internal/store"
)

// Snapshot is nil until the first successful load.
type Snapshot = *domain.Settings

type Store struct {
	client  *api.Client
	notices *notify.Queue
	log     *slog.Logger
	state   *store.Store[Snapshot]
}

func NewStore(client *api.Client, notices *notify.Queue, logger *slog.Logger) *Store {
	return &Store{
		client:  client,
		notices: notices,
		log:     logger,
		state:   store.New[Snapshot](nil),
	}
}

func (s *Store) Snapshot() Snapshot {
	return s.state.Snapshot()
}

func (s *Store) Subscribe(fn func(Snapshot)) func() {
	return s.state.Subscribe(fn)
}

// Load fetches the settings document.
func (s *Store) Load(ctx context.Context) error {
	settings, err := s.client.GetSettings(ctx)
	if err != nil {
		s.notices.ServerError(err)
		return err
	}
	s.state.Update(func(Snapshot) Snapshot { return &settings })
	return nil
}

// Apply PATCHes changed settings and keeps the document the server answers
// with. Changing listen ports or the subnet typically flips the appliance
// into restart_required; the caller follows up with the status poller.
func (s *Store) Apply(ctx context.Context, changed domain.Settings) error {
	settings, err := s.client.PatchSettings(ctx, changed)
	if err != nil {
		s.notices.ServerError(err)
		return err
	}
	s.state.Update(func(Snapshot) Snapshot { return &settings })
	return nil
}
