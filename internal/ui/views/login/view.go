// Package login renders the password prompt used both for sign-in and for
// the first-run setup screen.
package login

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vpnhouse/console/internal/ui/theme"
)

// SubmitMsg bubbles the entered password up to the root model.
type SubmitMsg struct {
	Password string
}

type Model struct {
	input   textinput.Model
	title   string
	hint    string
	busy    bool
	width   int
	height  int
}

// New builds the prompt. Setup mode only changes the copy, not the flow.
func New(setupMode bool) Model {
	ti := textinput.New()
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.Placeholder = "password"
	ti.CharLimit = 128
	ti.Focus()

	title := "Sign in"
	hint := "Enter the admin password"
	if setupMode {
		title = "Initial setup"
		hint = "Choose an admin password for this appliance"
	}
	return Model{input: ti, title: title, hint: hint}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// SetBusy blocks resubmission while a login request is in flight.
func (m *Model) SetBusy(busy bool) {
	m.busy = busy
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if msg.String() == "enter" && !m.busy {
			password := m.input.Value()
			if password == "" {
				return m, nil
			}
			m.busy = true
			return m, func() tea.Msg { return SubmitMsg{Password: password} }
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	status := theme.Muted.Render("enter: submit  ctrl+c: quit")
	if m.busy {
		status = theme.Warn.Render("signing in…")
	}
	body := theme.Title.Render(m.title) + "\n\n" +
		theme.Muted.Render(m.hint) + "\n\n" +
		m.input.View() + "\n\n" +
		status
	box := theme.PaneActive.Width(48).Render(body)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
