package notify

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vpnhouse/console/internal/domain"
	"github.com/vpnhouse/console/internal/log"
)

// steppingClock returns a strictly increasing time so ids never collide even
// when two notifications are added within the same millisecond.
type steppingClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func newTestQueue() *Queue {
	return NewQueue(&steppingClock{t: time.Unix(1756500000, 0)}, log.Discard())
}

func TestAddAndRemove(t *testing.T) {
	t.Parallel()

	q := newTestQueue()
	id := q.Add(KindError, "serverError", "boom")
	if got := q.Snapshot(); len(got) != 1 || got[0].ID != id {
		t.Fatalf("unexpected queue %+v", got)
	}
	q.Remove(id)
	if got := q.Snapshot(); len(got) != 0 {
		t.Fatalf("expected empty queue, got %+v", got)
	}
	q.Remove(id) // removing twice is harmless
}

func TestAddActionCarriesFollowUp(t *testing.T) {
	t.Parallel()

	q := newTestQueue()
	var ran bool
	id := q.AddAction(KindError, "timeoutError", "gave up", &Action{
		Label: "retry",
		Run:   func() { ran = true },
	})

	got := q.Snapshot()
	if len(got) != 1 || got[0].Action == nil || got[0].Action.Label != "retry" {
		t.Fatalf("action not carried: %+v", got)
	}
	got[0].Action.Run()
	if !ran {
		t.Fatal("action callback did not run")
	}

	// Plain Add attaches nothing.
	q.Add(KindInfo, "service", "plain")
	if list := q.Snapshot(); list[len(list)-1].Action != nil {
		t.Fatalf("plain notification grew an action: %+v", list)
	}
	q.Remove(id)
}

func TestErrorsPersistInfoFades(t *testing.T) {
	t.Parallel()

	q := newTestQueue()
	q.SetInfoFade(15 * time.Millisecond)

	q.Add(KindError, "serverError", "stays")
	q.Add(KindInfo, "service", "fades")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(q.Snapshot()) == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	got := q.Snapshot()
	if len(got) != 1 || got[0].Message != "stays" {
		t.Fatalf("expected only the error to remain, got %+v", got)
	}
}

func TestExplicitRemoveCancelsFadeTimer(t *testing.T) {
	t.Parallel()

	q := newTestQueue()
	q.SetInfoFade(20 * time.Millisecond)

	id := q.Add(KindInfo, "service", "short lived")
	q.Remove(id)
	q.Add(KindInfo, "service", "kept")

	// If the first timer were still armed it could only remove its own id,
	// but a buggy shared timer would drop the second entry too.
	time.Sleep(5 * time.Millisecond)
	if got := q.Snapshot(); len(got) != 1 || got[0].Message != "kept" {
		t.Fatalf("unexpected queue %+v", got)
	}
}

func TestRemoveAll(t *testing.T) {
	t.Parallel()

	q := newTestQueue()
	q.Add(KindError, "a", "one")
	q.Add(KindWarning, "b", "two")
	q.Add(KindInfo, "c", "three")
	q.RemoveAll()
	if got := q.Snapshot(); len(got) != 0 {
		t.Fatalf("expected empty queue, got %+v", got)
	}
}

func TestVisibleReturnsMostRecent(t *testing.T) {
	t.Parallel()

	q := newTestQueue()
	q.Add(KindError, "a", "first")
	q.Add(KindError, "b", "second")
	q.Add(KindError, "c", "third")
	q.Add(KindError, "d", "fourth")

	got := q.Visible(3)
	if len(got) != 3 || got[0].Message != "second" || got[2].Message != "fourth" {
		t.Fatalf("Visible(3) = %+v", got)
	}
	if all := q.Visible(10); len(all) != 4 {
		t.Fatalf("Visible(10) = %+v", all)
	}
}

func TestServerError(t *testing.T) {
	t.Parallel()

	q := newTestQueue()
	q.ServerError(&domain.APIError{Status: 400, Message: "address already in use"})
	q.ServerError(errors.New("connection refused"))

	got := q.Snapshot()
	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %+v", got)
	}
	if got[0].Message != "address already in use" {
		t.Fatalf("structured message lost: %+v", got[0])
	}
	if got[1].Message != "connection refused" || got[1].Kind != KindError {
		t.Fatalf("plain errors must carry their text, got %+v", got[1])
	}
}
