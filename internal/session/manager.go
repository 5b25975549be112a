// Package session manages the admin authentication lifecycle: login, token
// persistence, the self-re-arming silent refresh, and logout. It is the sole
// writer of the token keyring and the sole owner of the refresh timer.
package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/vpnhouse/console/internal/api"
	"github.com/vpnhouse/console/internal/domain"
	"github.com/vpnhouse/console/internal/notify"
	"github.com/vpnhouse/console/internal/store"
)

// State is the session snapshot exposed to views.
type State struct {
	Authenticated bool
}

// DefaultRefreshTimeout bounds the silent-refresh network call. The browser
// original had none, which could wedge a session until natural expiry; here
// a refresh that cannot complete in time degrades to logout.
const DefaultRefreshTimeout = 15 * time.Second

// Manager owns the session slice. Invariant: the refresh timer is armed iff
// the state is authenticated, and at most one timer is ever armed.
type Manager struct {
	client  *api.Client
	keyring *Keyring
	notices *notify.Queue
	clock   store.Clock
	log     *slog.Logger
	store   *store.Store[State]

	refreshTimeout time.Duration

	mu      sync.Mutex
	token   string
	refresh *store.Timer
}

// NewManager creates a session manager seeded from the keyring. Call
// AttachClient before any network operation.
func NewManager(keyring *Keyring, notices *notify.Queue, clock store.Clock, logger *slog.Logger) *Manager {
	return &Manager{
		keyring:        keyring,
		notices:        notices,
		clock:          clock,
		log:            logger,
		store:          store.New(State{}),
		refreshTimeout: DefaultRefreshTimeout,
		token:          keyring.Load(),
	}
}

// AttachClient wires the API client. The manager serves as its token source
// and hooks forced logout on any 401 response.
func (m *Manager) AttachClient(c *api.Client) {
	m.client = c
	c.SetUnauthorizedHook(m.Logout)
}

// SetRefreshTimeout overrides the refresh call deadline (tests).
func (m *Manager) SetRefreshTimeout(d time.Duration) {
	m.refreshTimeout = d
}

// Token implements [api.TokenSource].
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Snapshot returns the current session state.
func (m *Manager) Snapshot() State {
	return m.store.Snapshot()
}

// Subscribe registers a listener for session state changes.
func (m *Manager) Subscribe(fn func(State)) func() {
	return m.store.Subscribe(fn)
}

// Login authenticates with the admin password. Success stores the token,
// clears stale notifications, and arms the refresh timer. A 401 surfaces as
// the "incorrect password" notification; other failures go through the
// generic server-error path.
func (m *Manager) Login(ctx context.Context, password string) error {
	token, err := m.client.Login(ctx, password)
	if err != nil {
		var apiErr *domain.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			m.notices.Add(notify.KindError, notify.PrefixAuthError, notify.MsgIncorrectPassword)
		} else {
			m.notices.ServerError(err)
		}
		return err
	}
	m.setToken(token)
	m.notices.RemoveAll()
	return nil
}

// CheckToken evaluates the stored token on startup: a still-valid token
// authenticates the session and arms the refresh timer, anything else
// degrades to logout.
func (m *Manager) CheckToken() bool {
	m.mu.Lock()
	token := m.token
	m.mu.Unlock()
	if token == "" {
		m.store.Update(func(State) State { return State{} })
		return false
	}
	life := Lifetime(token, m.clock.Now())
	if life == 0 {
		m.Logout()
		return false
	}
	m.armRefresh(life)
	m.store.Update(func(State) State { return State{Authenticated: true} })
	return true
}

// Logout clears the persisted token, cancels any pending refresh, and
// transitions to anonymous. Safe to call repeatedly; also used as the 401
// hook and the refresh-failure fallback.
func (m *Manager) Logout() {
	m.mu.Lock()
	if m.refresh != nil {
		m.refresh.Stop()
		m.refresh = nil
	}
	m.token = ""
	m.mu.Unlock()

	if err := m.keyring.Clear(); err != nil {
		m.log.Warn("failed to clear token keyring", "err", err)
	}
	m.store.Update(func(State) State { return State{} })
}

// setToken persists the token, transitions to authenticated, and re-arms
// the refresh timer. Re-arming happens here, at the mutation site, so the
// "token set implies timer armed" chain is explicit rather than a watcher.
func (m *Manager) setToken(token string) {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()

	if err := m.keyring.Store(token); err != nil {
		m.log.Warn("failed to persist token", "err", err)
	}
	m.store.Update(func(State) State { return State{Authenticated: true} })

	if life := Lifetime(token, m.clock.Now()); life > 0 {
		m.armRefresh(life)
	} else {
		m.Logout()
	}
}

// armRefresh schedules the silent refresh, replacing any previous timer so
// two can never race.
func (m *Manager) armRefresh(after time.Duration) {
	m.mu.Lock()
	if m.refresh != nil {
		m.refresh.Stop()
	}
	m.refresh = store.After(after, m.refreshNow)
	m.mu.Unlock()
	m.log.Debug("refresh timer armed", "after", after)
}

func (m *Manager) refreshNow() {
	ctx, cancel := context.WithTimeout(context.Background(), m.refreshTimeout)
	defer cancel()

	token, err := m.client.Refresh(ctx)
	if err != nil {
		m.log.Warn("token refresh failed", "err", err)
		m.Logout()
		m.notices.Add(notify.KindError, notify.PrefixRefreshError, notify.MsgRefreshFailed)
		return
	}
	m.setToken(token)
}
