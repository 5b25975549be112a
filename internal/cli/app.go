// Package cli implements the vhadmin command tree and the composition root
// that wires the client, session, and stores together.
package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/vpnhouse/console/internal/api"
	"github.com/vpnhouse/console/internal/config"
	"github.com/vpnhouse/console/internal/dialog"
	"github.com/vpnhouse/console/internal/log"
	"github.com/vpnhouse/console/internal/notify"
	"github.com/vpnhouse/console/internal/peers"
	"github.com/vpnhouse/console/internal/session"
	"github.com/vpnhouse/console/internal/settings"
	"github.com/vpnhouse/console/internal/setup"
	"github.com/vpnhouse/console/internal/status"
	"github.com/vpnhouse/console/internal/store"
	"github.com/vpnhouse/console/internal/trustedkeys"
)

// App is the wired console: one client, one session, one of each store.
type App struct {
	Config  config.Config
	Log     *slog.Logger
	Client  *api.Client
	Session *session.Manager
	Setup   *setup.Store

	Peers    *peers.Store
	Trusted  *trustedkeys.Store
	Status   *status.Poller
	Settings *settings.Store
	Notices  *notify.Queue
	Dialogs  *dialog.Broker
}

// NewApp builds the object graph. The session manager is the client's token
// source and its 401 hook, so construction is two-phase: client first, then
// AttachClient closes the loop.
func NewApp(cfg config.Config, logWriter io.Writer) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logWriter == nil {
		logWriter = os.Stderr
	}
	logger := log.NewWithWriter(cfg.LogLevel, logWriter)
	clock := store.SystemClock{}

	notices := notify.NewQueue(clock, logger)
	dialogs := dialog.NewBroker()
	keyring := session.NewKeyring(cfg.TokenPath)
	manager := session.NewManager(keyring, notices, clock, logger)

	client := api.New(cfg.ServerURL, manager, logger)
	client.SetTimeout(cfg.RequestTimeout)
	manager.AttachClient(client)

	return &App{
		Config:   cfg,
		Log:      logger,
		Client:   client,
		Session:  manager,
		Setup:    setup.NewStore(client, manager, notices, logger),
		Peers:    peers.NewStore(client, notices, dialogs, clock, logger),
		Trusted:  trustedkeys.NewStore(client, notices, logger),
		Status:   status.NewPoller(client, notices, logger),
		Settings: settings.NewStore(client, notices, logger),
		Notices:  notices,
		Dialogs:  dialogs,
	}, nil
}
