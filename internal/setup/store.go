// Package setup wraps the one-time appliance bootstrap: probing whether
// initial configuration already happened and submitting it when not.
package setup

import (
	"context"
	"errors"
	"log/slog"

	"github.com/vpnhouse/console/internal/api"
	"github.com/vpnhouse/console/internal/domain"
	"github.com/vpnhouse/console/internal/notify"
	"github.com/vpnhouse/console/internal/session"
	"github.com/vpnhouse/console/internal/store"
)

// State reports whether the appliance has been configured.
type State struct {
	Configured bool
}

type Store struct {
	client  *api.Client
	session *session.Manager
	notices *notify.Queue
	log     *slog.Logger
	state   *store.Store[State]
}

func NewStore(client *api.Client, sess *session.Manager, notices *notify.Queue, logger *slog.Logger) *Store {
	return &Store{
		client:  client,
		session: sess,
		notices: notices,
		log:     logger,
		state:   store.New(State{}),
	}
}

func (s *Store) Snapshot() State {
	return s.state.Snapshot()
}

func (s *Store) Subscribe(fn func(State)) func() {
	return s.state.Subscribe(fn)
}

// Check probes the appliance. A configured appliance also gets its stored
// token evaluated so a returning admin lands straight in the console.
// Returns [domain.ErrSetupRequired] when initial setup is still pending.
func (s *Store) Check(ctx context.Context) error {
	err := s.client.CheckSetup(ctx)
	if errors.Is(err, domain.ErrSetupRequired) {
		s.state.Update(func(State) State { return State{} })
		return domain.ErrSetupRequired
	}
	// Any other failure is treated as "configured": the login screen is a
	// safer default than re-running setup against a live appliance.
	s.state.Update(func(State) State { return State{Configured: true} })
	s.session.CheckToken()
	return nil
}

// Apply submits the bootstrap payload. Success marks the appliance
// configured and re-evaluates the token state.
func (s *Store) Apply(ctx context.Context, setup domain.InitialSetup) error {
	if err := s.client.InitialSetup(ctx, setup); err != nil {
		s.notices.ServerError(err)
		return err
	}
	s.state.Update(func(State) State { return State{Configured: true} })
	s.session.CheckToken()
	return nil
}
