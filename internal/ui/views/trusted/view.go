// Package trusted renders the trusted-key list and the inline add/edit
// form. Key text is pasted as raw base64; the id defaults to a generated
// UUID but may be replaced before saving.
package trusted

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vpnhouse/console/internal/domain"
	keystore "github.com/vpnhouse/console/internal/trustedkeys"
	"github.com/vpnhouse/console/internal/ui/theme"
	"github.com/vpnhouse/console/internal/validate"
)

// ChangedMsg signals that a store call finished.
type ChangedMsg struct{ Err error }

type Model struct {
	store *keystore.Store

	cursor  int
	editing bool
	adding  bool
	editID  string // id under which the previous save attempt ran
	idInput textinput.Model
	keyText textarea.Model
	idFocus bool
	formErr domain.FieldErrors

	width  int
	height int
}

func New(store *keystore.Store) Model {
	id := textinput.New()
	id.Placeholder = "key id (UUID)"
	id.CharLimit = 36

	ta := textarea.New()
	ta.Placeholder = "paste the trusted key here"
	ta.SetHeight(4)

	return Model{store: store, idInput: id, keyText: ta}
}

func (m Model) Init() tea.Cmd {
	return m.loadCmd()
}

func (m Model) loadCmd() tea.Cmd {
	return func() tea.Msg {
		return ChangedMsg{Err: m.store.Load(context.Background())}
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
		m.keyText.SetWidth(m.width - 8)

	case ChangedMsg:
		n := len(m.store.Snapshot().Keys)
		if m.cursor >= n {
			m.cursor = n - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}

	case tea.KeyMsg:
		if m.editing {
			return m.updateForm(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

// ─── list mode ──────────────────────────────────────────────────────────────

func (m Model) updateList(msg tea.KeyMsg) (Model, tea.Cmd) {
	snap := m.store.Snapshot()
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(snap.Keys)-1 {
			m.cursor++
		}
	case "r":
		return m, m.loadCmd()
	case "n":
		m.store.Begin()
		if draft := m.store.Snapshot().Draft; draft != nil {
			m.openForm(*draft, true)
		}
	case "e":
		if entry, ok := m.selected(snap); ok {
			m.store.SetEditing(entry.Key.ID, true)
			// An unsaved entry resubmits as a create; Save evicts the failed
			// attempt under editID even when the user picks a new UUID.
			m.openForm(entry.Key, entry.NotSaved())
		}
	case "d", "delete":
		if entry, ok := m.selected(snap); ok {
			id, local := entry.Key.ID, entry.NotSaved()
			return m, func() tea.Msg {
				return ChangedMsg{Err: m.store.Delete(context.Background(), id, local)}
			}
		}
	}
	return m, nil
}

func (m Model) selected(snap keystore.Snapshot) (keystore.Entry, bool) {
	if m.cursor < 0 || m.cursor >= len(snap.Keys) {
		return keystore.Entry{}, false
	}
	return snap.Keys[m.cursor], true
}

// ─── form mode ──────────────────────────────────────────────────────────────

func (m *Model) openForm(key domain.TrustedKey, adding bool) {
	m.editing = true
	m.adding = adding
	m.editID = key.ID
	m.formErr = nil
	m.idInput.SetValue(key.ID)
	m.keyText.SetValue(key.Key)
	m.idFocus = false
	m.idInput.Blur()
	m.keyText.Focus()
}

func (m *Model) closeForm() {
	m.editing = false
	m.keyText.Blur()
	m.formErr = nil
}

func (m Model) updateForm(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if draft := m.store.Snapshot().Draft; m.adding && draft != nil && draft.ID == m.editID {
			m.store.CancelCreate()
		} else {
			m.store.SetEditing(m.editID, false)
		}
		m.closeForm()
		return m, nil

	case "tab":
		m.idFocus = !m.idFocus
		if m.idFocus {
			m.keyText.Blur()
			m.idInput.Focus()
		} else {
			m.idInput.Blur()
			m.keyText.Focus()
		}
		return m, nil

	case "ctrl+s", "enter":
		// Enter inserts a newline inside the textarea; save from the id
		// field or with ctrl+s from anywhere.
		if msg.String() == "enter" && !m.idFocus {
			break
		}
		return m.submit()
	}

	var cmd tea.Cmd
	if m.idFocus {
		m.idInput, cmd = m.idInput.Update(msg)
	} else {
		m.keyText, cmd = m.keyText.Update(msg)
	}
	return m, cmd
}

func (m Model) submit() (Model, tea.Cmd) {
	key := domain.TrustedKey{
		ID:  strings.TrimSpace(m.idInput.Value()),
		Key: strings.TrimSpace(m.keyText.Value()),
	}
	errs := domain.FieldErrors{}
	if msg := validate.Submit(validate.FieldKeyID, key.ID); msg != "" {
		errs["id"] = msg
	}
	if msg := validate.Submit(validate.FieldKeyText, key.Key); msg != "" {
		errs["key"] = msg
	}
	if len(errs) > 0 {
		m.formErr = errs
		return m, nil
	}

	m.closeForm()
	store, prevID, adding := m.store, m.editID, m.adding
	return m, func() tea.Msg {
		if adding {
			return ChangedMsg{Err: store.Save(context.Background(), key, prevID)}
		}
		return ChangedMsg{Err: store.Update(context.Background(), key)}
	}
}

// ─── view ───────────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.editing {
		return m.viewForm()
	}
	snap := m.store.Snapshot()
	var sb strings.Builder
	sb.WriteString(theme.Title.Render("Trusted keys") + "\n\n")
	if len(snap.Keys) == 0 {
		sb.WriteString(theme.Muted.Render("No trusted keys. Press n to add one.") + "\n")
	}
	for i, e := range snap.Keys {
		marker := "  "
		if i == m.cursor {
			marker = theme.Active.Render("> ")
		}
		state := theme.Good.Render("saved")
		if e.NotSaved() {
			state = theme.Bad.Render("not saved")
		}
		sb.WriteString(marker + e.Key.ID + "  " + state + "\n")
		for field, msg := range e.ServerErrors {
			sb.WriteString("    " + theme.Bad.Render(field+": "+msg) + "\n")
		}
	}
	sb.WriteString("\n" + theme.Muted.Render("n:new  e:edit  d:delete  r:reload  ↑/↓:select"))
	return sb.String()
}

func (m Model) viewForm() string {
	title := "Edit trusted key"
	if m.adding {
		title = "New trusted key"
	}
	var sb strings.Builder
	sb.WriteString(theme.Title.Render(title) + "\n\n")
	sb.WriteString(m.idInput.View() + "\n")
	if msg, ok := m.formErr["id"]; ok {
		sb.WriteString(theme.Bad.Render("  " + msg) + "\n")
	}
	sb.WriteString("\n" + m.keyText.View() + "\n")
	if msg, ok := m.formErr["key"]; ok {
		sb.WriteString(theme.Bad.Render("  " + msg) + "\n")
	}
	sb.WriteString("\n" + theme.Muted.Render("ctrl+s:save  tab:switch field  esc:cancel"))
	return theme.Pane.Width(m.width - 4).Render(sb.String())
}
