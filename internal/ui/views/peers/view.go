// Package peers renders the peer list and the inline create/edit form.
// All state lives in the peer store; the view pulls a fresh snapshot on
// every render and turns key presses into store calls.
package peers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vpnhouse/console/internal/domain"
	peerstore "github.com/vpnhouse/console/internal/peers"
	"github.com/vpnhouse/console/internal/ui/theme"
	"github.com/vpnhouse/console/internal/validate"
)

// ChangedMsg signals that a store call finished and the list may have moved.
type ChangedMsg struct{ Err error }

// form field order
const (
	fieldLabel = iota
	fieldIPv4
	fieldExpiryDate
	fieldExpiryTime
	fieldCount
)

type Model struct {
	store *peerstore.Store

	cursor  int
	editing bool
	editID  int64 // draft id when creating; peer id when editing
	inputs  [fieldCount]textinput.Model
	focused int
	formErr domain.FieldErrors

	width  int
	height int
}

func New(store *peerstore.Store) Model {
	m := Model{store: store}
	labels := [fieldCount]string{"label", "ipv4", "expires (YYYY-MM-DD)", "time (HH:MM)"}
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
		return ChangedMsg{Err: m.store.Load(context.Background())}
	}
}

// Editing reports whether the inline form is open, so the root model can
// yield single-letter bindings to free typing.
func (m Model) Editing() bool {
	return m.editing
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case ChangedMsg:
		m.clampCursor()

	case draftReadyMsg:
		if draft := m.store.Snapshot().Draft; draft != nil {
			m.openForm(*draft, draft.ID)
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
		if m.cursor < len(snap.Peers)-1 {
			m.cursor++
		}
	case "r":
		return m, m.loadCmd()
	case "n":
		return m, func() tea.Msg {
			if err := m.store.Begin(context.Background()); err != nil {
				return ChangedMsg{Err: err}
			}
			return draftReadyMsg{}
		}
	case "e":
		if entry, ok := m.selected(snap); ok {
			m.store.SetEditing(entry.Peer.ID, true)
			m.openForm(entry.Peer, entry.Peer.ID)
		}
	case "d", "delete":
		if entry, ok := m.selected(snap); ok {
			id := entry.Peer.ID
			return m, func() tea.Msg {
				return ChangedMsg{Err: m.store.Delete(context.Background(), id)}
			}
		}
	}
	return m, nil
}

func (m Model) selected(snap peerstore.Snapshot) (peerstore.Entry, bool) {
	if m.cursor < 0 || m.cursor >= len(snap.Peers) {
		return peerstore.Entry{}, false
	}
	return snap.Peers[m.cursor], true
}

func (m *Model) clampCursor() {
	n := len(m.store.Snapshot().Peers)
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// draftReadyMsg arrives once Begin allocated an address and keypair.
type draftReadyMsg struct{}

// ─── form mode ──────────────────────────────────────────────────────────────

func (m *Model) openForm(p domain.Peer, id int64) {
	m.editing = true
	m.editID = id
	m.focused = 0
	m.formErr = nil
	m.inputs[fieldLabel].SetValue(p.Label)
	m.inputs[fieldIPv4].SetValue(p.IPv4)
	if p.Expires != nil {
		m.inputs[fieldExpiryDate].SetValue(p.Expires.Format("2006-01-02"))
		m.inputs[fieldExpiryTime].SetValue(p.Expires.Format("15:04"))
	} else {
		m.inputs[fieldExpiryDate].SetValue("")
		m.inputs[fieldExpiryTime].SetValue("")
	}
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	m.inputs[0].Focus()
}

func (m *Model) closeForm() {
	m.editing = false
	m.formErr = nil
}

func (m Model) updateForm(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		snap := m.store.Snapshot()
		if snap.Draft != nil && snap.Draft.ID == m.editID {
			m.store.CancelCreate()
		} else {
			m.store.SetEditing(m.editID, false)
		}
		m.closeForm()
		return m, nil

	case "tab", "down":
		m.focusField((m.focused + 1) % fieldCount)
		return m, nil

	case "shift+tab", "up":
		m.focusField((m.focused + fieldCount - 1) % fieldCount)
		return m, nil

	case "enter":
		return m.submit()
	}

	// Per-field keystroke filter: reject runes the field can never accept.
	if msg.Type == tea.KeyRunes && m.focused == fieldIPv4 {
		for _, r := range msg.Runes {
			if !validate.AllowsRune(validate.FieldIPv4, r) {
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)
	return m, cmd
}

func (m *Model) focusField(i int) {
	m.inputs[m.focused].Blur()
	m.focused = i
	m.inputs[i].Focus()
}

func (m Model) submit() (Model, tea.Cmd) {
	snap := m.store.Snapshot()
	date := m.inputs[fieldExpiryDate].Value()
	clock := m.inputs[fieldExpiryTime].Value()

	creating := snap.Draft != nil && snap.Draft.ID == m.editID
	var peer domain.Peer
	if creating {
		peer = *snap.Draft
	} else if entry, ok := findEntry(snap, m.editID); ok {
		peer = entry.Peer
		// A rolled-back failed create resubmits as a create: its synthetic
		// id does not exist on the server, and Save evicts the speculative
		// entry before posting.
		creating = entry.State.Unsaved()
	} else {
		m.closeForm()
		return m, nil
	}
	peer.Label = m.inputs[fieldLabel].Value()
	peer.IPv4 = m.inputs[fieldIPv4].Value()
	peer.Expires = validate.CombineExpiry(date, clock, time.Local)

	if errs := peerstore.ValidateForm(peer, date, clock, time.Now()); len(errs) > 0 {
		m.formErr = errs
		return m, nil
	}

	m.closeForm()
	store := m.store
	if creating {
		return m, func() tea.Msg {
			return ChangedMsg{Err: store.Save(context.Background(), peer)}
		}
	}
	return m, func() tea.Msg {
		return ChangedMsg{Err: store.Update(context.Background(), peer)}
	}
}

func findEntry(snap peerstore.Snapshot, id int64) (peerstore.Entry, bool) {
	for _, e := range snap.Peers {
		if e.Peer.ID == id {
			return e, true
		}
	}
	return peerstore.Entry{}, false
}

// ─── view ───────────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.editing {
		return m.viewForm()
	}
	return m.viewList()
}

func (m Model) viewList() string {
	snap := m.store.Snapshot()
	var sb strings.Builder
	sb.WriteString(theme.Title.Render("Peers") + "\n\n")
	if len(snap.Peers) == 0 {
		sb.WriteString(theme.Muted.Render("No peers yet. Press n to add one.") + "\n")
	}
	for i, e := range snap.Peers {
		marker := "  "
		if i == m.cursor {
			marker = theme.Active.Render("> ")
		}
		label := e.Peer.Label
		if label == "" {
			label = e.Peer.IPv4
		}
		line := fmt.Sprintf("%-24s %-15s %s", label, e.Peer.IPv4, stateTag(e))
		sb.WriteString(marker + line + "\n")
		if len(e.ServerErrors) > 0 {
			for field, msg := range e.ServerErrors {
				sb.WriteString("    " + theme.Bad.Render(field+": "+msg) + "\n")
			}
		}
	}
	sb.WriteString("\n" + theme.Muted.Render("n:new  e:edit  d:delete  r:reload  ↑/↓:select"))
	return sb.String()
}

func stateTag(e peerstore.Entry) string {
	switch e.State {
	case domain.SaveStatePersisted:
		if e.Peer.Expires != nil {
			return theme.Muted.Render("expires " + e.Peer.Expires.Format("2006-01-02 15:04"))
		}
		return theme.Good.Render("saved")
	case domain.SaveStateFailed:
		return theme.Bad.Render("not saved")
	case domain.SaveStatePending:
		return theme.Warn.Render("saving…")
	default:
		return theme.Warn.Render("draft")
	}
}

func (m Model) viewForm() string {
	snap := m.store.Snapshot()
	creating := snap.Draft != nil && snap.Draft.ID == m.editID

	title := "Edit peer"
	if creating {
		title = "New peer"
	}
	var sb strings.Builder
	sb.WriteString(theme.Title.Render(title) + "\n\n")
	if creating {
		sb.WriteString(theme.Muted.Render("public key: ") + snap.Draft.PublicKey + "\n\n")
	}
	fieldKeys := [fieldCount]string{"label", "ipv4", "expires", "expires"}
	for i, in := range m.inputs {
		sb.WriteString(in.View() + "\n")
		if msg, ok := m.formErr[fieldKeys[i]]; ok && i != fieldExpiryTime {
			sb.WriteString(theme.Bad.Render("  " + msg) + "\n")
		}
	}
	sb.WriteString("\n" + theme.Muted.Render("enter:save  tab:next field  esc:cancel"))
	return theme.Pane.Width(m.width - 4).Render(sb.String())
}
