// Package dialog implements the single-confirmation broker. There is never
// a dialog stack: opening while one is visible silently replaces it.
package dialog

import "github.com/vpnhouse/console/internal/store"

// Dialog describes the active confirmation prompt. OnConfirm runs when the
// user accepts; Close does not invoke it.
type Dialog struct {
	Title        string
	Message      string
	ConfirmLabel string
	OnConfirm    func()
}

// Broker owns at most one open dialog.
type Broker struct {
	store *store.Store[*Dialog]
}

func NewBroker() *Broker {
	return &Broker{store: store.New[*Dialog](nil)}
}

// Open shows d, replacing any dialog already open.
func (b *Broker) Open(d Dialog) {
	b.store.Update(func(*Dialog) *Dialog { return &d })
}

// Close dismisses the active dialog, if any.
func (b *Broker) Close() {
	b.store.Update(func(*Dialog) *Dialog { return nil })
}

// Confirm runs the active dialog's OnConfirm and closes it.
func (b *Broker) Confirm() {
	d := b.store.Snapshot()
	b.Close()
	if d != nil && d.OnConfirm != nil {
		d.OnConfirm()
	}
}

// Active returns the open dialog or nil.
func (b *Broker) Active() *Dialog {
	return b.store.Snapshot()
}

// Subscribe registers a listener for open/close changes.
func (b *Broker) Subscribe(fn func(*Dialog)) func() {
	return b.store.Subscribe(fn)
}
