package dialog

import "testing"

func TestOpenReplacesActive(t *testing.T) {
	t.Parallel()

	b := NewBroker()
	b.Open(Dialog{Title: "first"})
	b.Open(Dialog{Title: "second"})

	d := b.Active()
	if d == nil || d.Title != "second" {
		t.Fatalf("expected the second dialog to replace the first, got %+v", d)
	}
}

func TestConfirmRunsActionAndCloses(t *testing.T) {
	t.Parallel()

	b := NewBroker()
	ran := false
	b.Open(Dialog{Title: "confirm me", OnConfirm: func() { ran = true }})
	b.Confirm()

	if !ran {
		t.Fatal("OnConfirm did not run")
	}
	if b.Active() != nil {
		t.Fatal("dialog must close after confirm")
	}
}

func TestCloseSkipsAction(t *testing.T) {
	t.Parallel()

	b := NewBroker()
	ran := false
	b.Open(Dialog{OnConfirm: func() { ran = true }})
	b.Close()

	if ran {
		t.Fatal("Close must not run OnConfirm")
	}
	if b.Active() != nil {
		t.Fatal("dialog must be closed")
	}
}

func TestConfirmWithoutDialog(t *testing.T) {
	t.Parallel()

	b := NewBroker()
	b.Confirm() // no-op
	b.Close()   // no-op
	if b.Active() != nil {
		t.Fatal("expected no active dialog")
	}
}
