// Package app holds the root Bubble Tea model: mode routing between setup,
// login, and the tabbed console, plus the toast bar and the confirmation
// overlay. All business state lives in the stores; this layer only routes
// input and renders snapshots.
package app

import (
	"context"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vpnhouse/console/internal/dialog"
	"github.com/vpnhouse/console/internal/domain"
	"github.com/vpnhouse/console/internal/notify"
	peerstore "github.com/vpnhouse/console/internal/peers"
	"github.com/vpnhouse/console/internal/session"
	settingsstore "github.com/vpnhouse/console/internal/settings"
	"github.com/vpnhouse/console/internal/setup"
	statuspoll "github.com/vpnhouse/console/internal/status"
	keystore "github.com/vpnhouse/console/internal/trustedkeys"
	"github.com/vpnhouse/console/internal/ui/components"
	"github.com/vpnhouse/console/internal/ui/theme"
	loginview "github.com/vpnhouse/console/internal/ui/views/login"
	peersview "github.com/vpnhouse/console/internal/ui/views/peers"
	settingsview "github.com/vpnhouse/console/internal/ui/views/settings"
	statusview "github.com/vpnhouse/console/internal/ui/views/status"
	trustedview "github.com/vpnhouse/console/internal/ui/views/trusted"
)

// Deps is everything the console needs, wired by the composition root.
type Deps struct {
	Session  *session.Manager
	Setup    *setup.Store
	Peers    *peerstore.Store
	Trusted  *keystore.Store
	Status   *statuspoll.Poller
	Settings *settingsstore.Store
	Notices  *notify.Queue
	Dialogs  *dialog.Broker
}

// ─── modes and tabs ─────────────────────────────────────────────────────────

type mode int

const (
	modeBoot mode = iota
	modeSetup
	modeLogin
	modeMain
)

type tabID int

const (
	tabPeers tabID = iota
	tabTrusted
	tabStatus
	tabSettings
	tabCount
)

var tabLabels = [tabCount]string{"Peers", "Trusted keys", "Status", "Settings"}

// ─── async messages ─────────────────────────────────────────────────────────

type bootMsg struct {
	configured    bool
	authenticated bool
	err           error
}

type loginDoneMsg struct{ err error }

type setupDoneMsg struct{ err error }

// ─── model ──────────────────────────────────────────────────────────────────

type Model struct {
	deps Deps

	mode      mode
	activeTab tabID

	loginView    loginview.Model
	peersView    peersview.Model
	trustedView  trustedview.Model
	statusView   statusview.Model
	settingsView settingsview.Model

	width  int
	height int
}

func NewModel(deps Deps) Model {
	return Model{
		deps:         deps,
		mode:         modeBoot,
		loginView:    loginview.New(false),
		peersView:    peersview.New(deps.Peers),
		trustedView:  trustedview.New(deps.Trusted),
		statusView:   statusview.New(deps.Status),
		settingsView: settingsview.New(deps.Settings),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.bootCmd(), m.loginView.Init())
}

func (m Model) bootCmd() tea.Cmd {
	deps := m.deps
	return func() tea.Msg {
		err := deps.Setup.Check(context.Background())
		return bootMsg{
			configured:    deps.Setup.Snapshot().Configured,
			authenticated: deps.Session.Snapshot().Authenticated,
			err:           err,
		}
	}
}

// enterMain initializes the tab views and starts the stats poll. Called on
// every transition into the console, including after re-login.
func (m *Model) enterMain() tea.Cmd {
	m.mode = modeMain
	m.activeTab = tabPeers
	m.deps.Status.StartStats(context.Background())
	return tea.Batch(
		m.peersView.Init(),
		m.trustedView.Init(),
		m.statusView.Init(),
		m.settingsView.Init(),
	)
}

func (m *Model) switchTab(next tabID) {
	if next == m.activeTab {
		return
	}
	m.activeTab = next
	// Route changes clear pending toasts, same as the page-level console.
	m.deps.Notices.RemoveAll()
}

// ─── update ─────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.propagateSize()
		return m, nil

	case bootMsg:
		switch {
		case !msg.configured:
			m.mode = modeSetup
			m.loginView = loginview.New(true)
			return m, m.loginView.Init()
		case msg.authenticated:
			return m, m.enterMain()
		default:
			m.mode = modeLogin
			m.loginView = loginview.New(false)
			return m, m.loginView.Init()
		}

	case loginview.SubmitMsg:
		password := msg.Password
		deps := m.deps
		if m.mode == modeSetup {
			return m, func() tea.Msg {
				return setupDoneMsg{err: deps.Setup.Apply(context.Background(), domain.InitialSetup{
					AdminPassword: password,
					SendStats:     true,
				})}
			}
		}
		return m, func() tea.Msg {
			return loginDoneMsg{err: deps.Session.Login(context.Background(), password)}
		}

	case setupDoneMsg:
		if msg.err != nil {
			m.loginView.SetBusy(false)
			return m, nil
		}
		if m.deps.Session.Snapshot().Authenticated {
			return m, m.enterMain()
		}
		m.mode = modeLogin
		m.loginView = loginview.New(false)
		return m, m.loginView.Init()

	case loginDoneMsg:
		if msg.err != nil {
			m.loginView.SetBusy(false)
			return m, nil
		}
		m.deps.Notices.RemoveAll()
		return m, m.enterMain()

	case settingsview.AppliedMsg:
		var cmd tea.Cmd
		m.settingsView, cmd = m.settingsView.Update(msg)
		if msg.NeedsRestart {
			m.deps.Status.Check(context.Background())
			m.switchTab(tabStatus)
		}
		return m, cmd

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}

	return m.routeToActive(msg)
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.deps.Status.StopStats()
		return m, tea.Quit
	}

	if m.mode != modeMain {
		var cmd tea.Cmd
		m.loginView, cmd = m.loginView.Update(msg)
		return m, cmd
	}

	// The confirmation overlay captures all input while open.
	if d := m.deps.Dialogs.Active(); d != nil {
		switch msg.String() {
		case "enter":
			m.confirmDialog(d)
		case "esc", "q":
			m.deps.Dialogs.Close()
		}
		return m, nil
	}

	if !m.subViewEditing() {
		switch msg.String() {
		case "q":
			m.deps.Status.StopStats()
			return m, tea.Quit
		case "tab":
			m.switchTab((m.activeTab + 1) % tabCount)
			return m, nil
		case "shift+tab":
			m.switchTab((m.activeTab + tabCount - 1) % tabCount)
			return m, nil
		case "1", "2", "3", "4":
			m.switchTab(tabID(msg.String()[0] - '1'))
			return m, nil
		case "x":
			m.deps.Notices.RemoveAll()
			return m, nil
		case "a":
			m.runNoticeAction()
			return m, nil
		case "ctrl+l":
			m.deps.Session.Logout()
			m.mode = modeLogin
			m.loginView = loginview.New(false)
			return m, m.loginView.Init()
		}
	}

	return m.routeToActive(msg)
}

// runNoticeAction runs and dismisses the newest notification carrying a
// follow-up action, like the restart poll's retry.
func (m Model) runNoticeAction() {
	notices := m.deps.Notices.Snapshot()
	for i := len(notices) - 1; i >= 0; i-- {
		if n := notices[i]; n.Action != nil {
			m.deps.Notices.Remove(n.ID)
			n.Action.Run()
			return
		}
	}
}

// confirmDialog runs the dialog action. A dialog without its own action is
// a config offer: its message is the rendered tunnel config, saved next to
// the binary the way the browser console triggers a download.
func (m Model) confirmDialog(d *dialog.Dialog) {
	if d.OnConfirm == nil && strings.HasPrefix(d.ConfirmLabel, "Save ") {
		name := strings.TrimPrefix(d.ConfirmLabel, "Save ")
		if err := os.WriteFile(name, []byte(d.Message), 0o600); err != nil {
			m.deps.Dialogs.Close()
			m.deps.Notices.Add(notify.KindError, "config", "Could not save "+name+": "+err.Error())
			return
		}
		m.deps.Dialogs.Close()
		m.deps.Notices.Add(notify.KindInfo, "config", name+" saved")
		return
	}
	m.deps.Dialogs.Confirm()
}

func (m Model) subViewEditing() bool {
	switch m.activeTab {
	case tabPeers:
		return m.peersView.Editing()
	case tabTrusted:
		return m.trustedView.Editing()
	case tabSettings:
		return m.settingsView.Editing()
	}
	return false
}

func (m Model) routeToActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.mode != modeMain {
		var cmd tea.Cmd
		m.loginView, cmd = m.loginView.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	switch m.activeTab {
	case tabPeers:
		m.peersView, cmd = m.peersView.Update(msg)
	case tabTrusted:
		m.trustedView, cmd = m.trustedView.Update(msg)
	case tabStatus:
		m.statusView, cmd = m.statusView.Update(msg)
	case tabSettings:
		m.settingsView, cmd = m.settingsView.Update(msg)
	}
	return m, cmd
}

func (m *Model) propagateSize() {
	sz := tea.WindowSizeMsg{Width: m.width, Height: m.height - 4}
	m.loginView, _ = m.loginView.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
	m.peersView, _ = m.peersView.Update(sz)
	m.trustedView, _ = m.trustedView.Update(sz)
	m.statusView, _ = m.statusView.Update(sz)
	m.settingsView, _ = m.settingsView.Update(sz)
}

// ─── view ───────────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.mode != modeMain {
		return m.loginView.View()
	}

	tabBar := m.renderTabBar()
	toasts := components.ToastBar(m.deps.Notices.Visible(3), m.width)

	contentH := m.height - lipgloss.Height(tabBar) - 1
	if toasts != "" {
		contentH -= lipgloss.Height(toasts)
	}
	if contentH < 1 {
		contentH = 1
	}

	var content string
	if d := m.deps.Dialogs.Active(); d != nil {
		content = components.Overlay(d, m.width, contentH)
	} else {
		content = lipgloss.NewStyle().Width(m.width).Height(contentH).Render(m.activeView())
	}

	parts := []string{tabBar, content}
	if toasts != "" {
		parts = append(parts, toasts)
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) activeView() string {
	switch m.activeTab {
	case tabPeers:
		return m.peersView.View()
	case tabTrusted:
		return m.trustedView.View()
	case tabStatus:
		return m.statusView.View()
	case tabSettings:
		return m.settingsView.View()
	}
	return ""
}

func (m Model) renderTabBar() string {
	parts := make([]string, tabCount)
	for i := tabID(0); i < tabCount; i++ {
		if i == m.activeTab {
			parts[i] = theme.Active.Render(" " + tabLabels[i] + " ")
		} else {
			parts[i] = theme.Muted.Render(" " + tabLabels[i] + " ")
		}
	}
	sep := theme.Muted.Render("│")
	bar := "vpnhouse  " + strings.Join(parts, sep) +
		theme.Muted.Render("   tab:switch  ctrl+l:sign out  q:quit")
	return lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar) + "\n"
}
