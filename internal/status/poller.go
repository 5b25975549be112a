// Package status owns the service-status slice: the restart-in-progress
// poller with its bounded-wait policy, and the slower global-stats poll for
// the dashboard sidebar.
package status

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vpnhouse/console/internal/api"
	"github.com/vpnhouse/console/internal/domain"
	"github.com/vpnhouse/console/internal/notify"
	"github.com/vpnhouse/console/internal/store"
)

// Phase is the poller's state machine position.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePolling
	PhaseSettled
	PhaseTimedOut
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePolling:
		return "polling"
	case PhaseSettled:
		return "settled"
	case PhaseTimedOut:
		return "timedOut"
	}
	return "unknown"
}

// Defaults for the restart-detection cycle: poll twice a second, give up
// after ten. The console must never wait on a backend restart forever.
const (
	DefaultPollInterval  = 500 * time.Millisecond
	DefaultPollTimeout   = 10 * time.Second
	DefaultStatsInterval = 10 * time.Second
)

// Snapshot is the status slice: the latest service status, the poller
// phase, and the independently polled traffic summary.
type Snapshot struct {
	Status  domain.ServiceStatus
	Phase   Phase
	Stats   domain.GlobalStats
	Loading bool
}

// Poller drives the restart-detection cycle and the global-stats poll.
type Poller struct {
	client  *api.Client
	notices *notify.Queue
	log     *slog.Logger
	state   *store.Store[Snapshot]

	interval      time.Duration
	timeout       time.Duration
	statsInterval time.Duration

	mu     sync.Mutex
	ticker *store.Ticker
	giveUp *store.Timer
	stats  *store.Ticker
}

func NewPoller(client *api.Client, notices *notify.Queue, logger *slog.Logger) *Poller {
	return &Poller{
		client:        client,
		notices:       notices,
		log:           logger,
		state:         store.New(Snapshot{}),
		interval:      DefaultPollInterval,
		timeout:       DefaultPollTimeout,
		statsInterval: DefaultStatsInterval,
	}
}

// SetCycle overrides the poll interval and give-up timeout (tests).
func (p *Poller) SetCycle(interval, timeout time.Duration) {
	p.interval = interval
	p.timeout = timeout
}

// Snapshot returns the current status slice.
func (p *Poller) Snapshot() Snapshot {
	return p.state.Snapshot()
}

// Subscribe registers a listener for slice changes.
func (p *Poller) Subscribe(fn func(Snapshot)) func() {
	return p.state.Subscribe(fn)
}

// Fetch performs a single status request outside any polling cycle.
func (p *Poller) Fetch(ctx context.Context) error {
	status, err := p.client.Status(ctx)
	if err != nil {
		p.notices.ServerError(err)
		return err
	}
	p.state.Update(func(snap Snapshot) Snapshot {
		snap.Status = status
		snap.Loading = status.RestartRequired
		return snap
	})
	return nil
}

// Check starts a restart-detection cycle: a fixed-interval status poll plus
// a single give-up timer. The cycle ends when the service reports no
// restart required (settled) or when the timer fires first (timedOut). A
// Check while a cycle is already running is a no-op.
func (p *Poller) Check(ctx context.Context) {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		return
	}
	p.ticker = store.Every(p.interval, func() { p.pollOnce(ctx) })
	p.giveUp = store.After(p.timeout, func() { p.timedOut(ctx) })
	p.mu.Unlock()

	p.state.Update(func(snap Snapshot) Snapshot {
		snap.Phase = PhasePolling
		snap.Loading = true
		return snap
	})
	p.log.Debug("restart poll started", "interval", p.interval, "timeout", p.timeout)
}

func (p *Poller) pollOnce(ctx context.Context) {
	status, err := p.client.Status(ctx)
	if err != nil {
		p.notices.ServerError(err)
		return
	}
	p.state.Update(func(snap Snapshot) Snapshot {
		snap.Status = status
		return snap
	})
	if !status.RestartRequired {
		p.settle()
	}
}

// settle ends the cycle cleanly: both timers stopped, no notification.
func (p *Poller) settle() {
	if !p.stopCycle() {
		return
	}
	p.state.Update(func(snap Snapshot) Snapshot {
		snap.Phase = PhaseSettled
		snap.Loading = false
		return snap
	})
	p.log.Debug("restart poll settled")
}

// timedOut is the bounded-wait escape hatch: the interval is cancelled, an
// error is surfaced with a retry action, and the snapshot is forced back to
// a default not-restarting shape so the console unblocks even though the
// real state is unknown.
func (p *Poller) timedOut(ctx context.Context) {
	if !p.stopCycle() {
		return
	}
	p.notices.AddAction(notify.KindError, notify.PrefixTimeoutError, notify.MsgReloadTimedOut,
		&notify.Action{Label: "retry", Run: func() { p.Check(ctx) }})
	p.state.Update(func(snap Snapshot) Snapshot {
		snap.Status = domain.ServiceStatus{}
		snap.Phase = PhaseTimedOut
		snap.Loading = false
		return snap
	})
	p.log.Warn("restart poll timed out")
}

// stopCycle cancels both timers; false means no cycle was running (the
// other exit path won the race).
func (p *Poller) stopCycle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ticker == nil {
		return false
	}
	p.ticker.Stop()
	p.ticker = nil
	if p.giveUp != nil {
		p.giveUp.Stop()
		p.giveUp = nil
	}
	return true
}

// StartStats begins the independent global-stats poll for the sidebar.
func (p *Poller) StartStats(ctx context.Context) {
	p.mu.Lock()
	if p.stats != nil {
		p.mu.Unlock()
		return
	}
	p.stats = store.Every(p.statsInterval, func() { p.fetchStats(ctx) })
	p.mu.Unlock()
	p.fetchStats(ctx)
}

// StopStats halts the global-stats poll.
func (p *Poller) StopStats() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stats != nil {
		p.stats.Stop()
		p.stats = nil
	}
}

func (p *Poller) fetchStats(ctx context.Context) {
	stats, err := p.client.GlobalStats(ctx)
	if err != nil {
		// The sidebar poll is best effort; a failed sample is just skipped.
		p.log.Debug("global stats fetch failed", "err", err)
		return
	}
	p.state.Update(func(snap Snapshot) Snapshot {
		snap.Stats = stats
		return snap
	})
}
