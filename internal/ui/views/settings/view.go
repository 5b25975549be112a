// Package settings renders the appliance settings form. Applying a change
// that needs a service restart bubbles AppliedMsg up so the root model can
// start the restart-detection poll.
package settings

import (
	"context"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vpnhouse/console/internal/domain"
	settingsstore "github.com/vpnhouse/console/internal/settings"
	"github.com/vpnhouse/console/internal/ui/theme"
)

// LoadedMsg signals the settings document arrived.
type LoadedMsg struct{ Err error }

// AppliedMsg signals a PATCH completed. NeedsRestart tells the root model
// to start polling for the service restart.
type AppliedMsg struct {
	Err          error
	NeedsRestart bool
}

const (
	fieldPort = iota
	fieldSubnet
	fieldDNS
	fieldCount
)

type Model struct {
	store *settingsstore.Store

	editing bool
	inputs  [fieldCount]textinput.Model
	focused int
	formErr string

	width  int
	height int
}

func New(store *settingsstore.Store) Model {
	m := Model{store: store}
	labels := [fieldCount]string{"listen port", "subnet (CIDR)", "dns (comma separated)"}
	for i := range m.inputs {
		ti := textinput.New()
		ti.Placeholder = labels[i]
		ti.CharLimit = 64
		m.inputs[i] = ti
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return m.loadCmd()
}

func (m Model) loadCmd() tea.Cmd {
	return func() tea.Msg {
		return LoadedMsg{Err: m.store.Load(context.Background())}
	}
}

func (m Model) Editing() bool {
	return m.editing
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if m.editing {
			return m.updateForm(msg)
		}
		switch msg.String() {
		case "r":
			return m, m.loadCmd()
		case "e":
			if current := m.store.Snapshot(); current != nil {
				m.openForm(*current)
			}
		}
	}
	return m, nil
}

func (m *Model) openForm(current domain.Settings) {
	m.editing = true
	m.focused = 0
	m.formErr = ""
	m.inputs[fieldPort].SetValue(strconv.Itoa(current.WireguardListenPort))
	m.inputs[fieldSubnet].SetValue(current.WireguardSubnet)
	m.inputs[fieldDNS].SetValue(strings.Join(current.DNS, ", "))
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	m.inputs[0].Focus()
}

func (m Model) updateForm(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editing = false
		return m, nil
	case "tab", "down":
		m.inputs[m.focused].Blur()
		m.focused = (m.focused + 1) % fieldCount
		m.inputs[m.focused].Focus()
		return m, nil
	case "shift+tab", "up":
		m.inputs[m.focused].Blur()
		m.focused = (m.focused + fieldCount - 1) % fieldCount
		m.inputs[m.focused].Focus()
		return m, nil
	case "enter":
		return m.submit()
	}
	var cmd tea.Cmd
	m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)
	return m, cmd
}

func (m Model) submit() (Model, tea.Cmd) {
	current := m.store.Snapshot()
	if current == nil {
		m.editing = false
		return m, nil
	}
	port, err := strconv.Atoi(strings.TrimSpace(m.inputs[fieldPort].Value()))
	if err != nil || port < 1 || port > 65535 {
		m.formErr = "listen port must be between 1 and 65535"
		return m, nil
	}
	changed := *current
	changed.WireguardListenPort = port
	changed.WireguardSubnet = strings.TrimSpace(m.inputs[fieldSubnet].Value())
	changed.DNS = splitList(m.inputs[fieldDNS].Value())

	needsRestart := changed.WireguardListenPort != current.WireguardListenPort ||
		changed.WireguardSubnet != current.WireguardSubnet

	m.editing = false
	store := m.store
	return m, func() tea.Msg {
		err := store.Apply(context.Background(), changed)
		return AppliedMsg{Err: err, NeedsRestart: err == nil && needsRestart}
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (m Model) View() string {
	if m.editing {
		var sb strings.Builder
		sb.WriteString(theme.Title.Render("Edit settings") + "\n\n")
		for _, in := range m.inputs {
			sb.WriteString(in.View() + "\n")
		}
		if m.formErr != "" {
			sb.WriteString(theme.Bad.Render(m.formErr) + "\n")
		}
		sb.WriteString("\n" + theme.Muted.Render("enter:apply  tab:next field  esc:cancel"))
		return theme.Pane.Width(m.width - 4).Render(sb.String())
	}

	current := m.store.Snapshot()
	var sb strings.Builder
	sb.WriteString(theme.Title.Render("Settings") + "\n\n")
	if current == nil {
		sb.WriteString(theme.Muted.Render("Loading…"))
		return sb.String()
	}
	row := func(label, value string) {
		sb.WriteString(theme.Muted.Render(label) + value + "\n")
	}
	row("listen port:  ", strconv.Itoa(current.WireguardListenPort))
	row("subnet:       ", current.WireguardSubnet)
	row("server ipv4:  ", current.WireguardServerIPv4)
	row("public key:   ", current.WireguardPublicKey)
	row("dns:          ", strings.Join(current.DNS, ", "))
	row("keepalive:    ", strconv.Itoa(current.WireguardKeepalive)+"s")
	sb.WriteString("\n" + theme.Muted.Render("e:edit  r:reload"))
	return sb.String()
}
