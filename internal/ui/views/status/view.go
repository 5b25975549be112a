// Package status renders the service-status pane: poller phase, restart
// indicator, and the global traffic summary.
package status

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	statuspoll "github.com/vpnhouse/console/internal/status"
	"github.com/vpnhouse/console/internal/ui/theme"
)

// ChangedMsg signals a completed fetch.
type ChangedMsg struct{ Err error }

// tickMsg re-renders while the stats ticker runs in the background.
type tickMsg time.Time

type Model struct {
	poller *statuspoll.Poller
	width  int
	height int
}

func New(poller *statuspoll.Poller) Model {
	return Model{poller: poller}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchCmd(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) fetchCmd() tea.Cmd {
	return func() tea.Msg {
		return ChangedMsg{Err: m.poller.Fetch(context.Background())}
	}
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		return m, tick()

	case tea.KeyMsg:
		if msg.String() == "r" {
			return m, m.fetchCmd()
		}
	}
	return m, nil
}

func (m Model) View() string {
	snap := m.poller.Snapshot()
	var sb strings.Builder
	sb.WriteString(theme.Title.Render("Service status") + "\n\n")

	switch snap.Phase {
	case statuspoll.PhasePolling:
		sb.WriteString(theme.Warn.Render("⟳ service is restarting…") + "\n")
	case statuspoll.PhaseTimedOut:
		sb.WriteString(theme.Bad.Render("✗ restart was not confirmed") + "\n")
	default:
		if snap.Status.RestartRequired {
			sb.WriteString(theme.Warn.Render("! restart required to apply changes") + "\n")
		} else {
			sb.WriteString(theme.Good.Render("● service is running") + "\n")
		}
	}

	stats := snap.Stats
	if stats == (statuspoll.Snapshot{}.Stats) {
		stats = snap.Status.StatsGlobal
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%s%d active of %d\n",
		theme.Muted.Render("peers:     "), stats.PeersActive, stats.PeersTotal))
	sb.WriteString(fmt.Sprintf("%s↑ %s   ↓ %s\n",
		theme.Muted.Render("traffic:   "),
		humanize.Bytes(uint64(stats.TrafficUp)), humanize.Bytes(uint64(stats.TrafficDown))))
	sb.WriteString(fmt.Sprintf("%s↑ %s/s   ↓ %s/s\n",
		theme.Muted.Render("speed:     "),
		humanize.Bytes(uint64(stats.SpeedUp)), humanize.Bytes(uint64(stats.SpeedDown))))

	sb.WriteString("\n" + theme.Muted.Render("r:refresh"))
	return sb.String()
}
