// Package notify implements the transient notification queue. Every store's
// failure handler funnels through [Queue.ServerError]; views render the most
// recent few entries and the whole queue is dropped on navigation.
package notify

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vpnhouse/console/internal/domain"
	"github.com/vpnhouse/console/internal/store"
)

// Kind classifies a notification. Only info notifications auto-dismiss.
type Kind string

const (
	KindError   Kind = "error"
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
)

// DefaultInfoFade is how long an info notification stays before its own
// timer removes it.
const DefaultInfoFade = 5 * time.Second

// Action is an optional follow-up a notification offers, like retrying the
// operation that raised it. Running it is the view's job.
type Action struct {
	Label string
	Run   func()
}

// Notification is one queue entry. The id is its prefix plus the creation
// timestamp, which keeps related messages greppable in logs.
type Notification struct {
	ID      string
	Kind    Kind
	Message string
	Action  *Action
}

// Queue is an append-only ordered notification list. It retains everything
// until explicit removal; limiting what is shown is the view's job via
// [Queue.Visible].
type Queue struct {
	store *store.Store[[]Notification]
	clock store.Clock
	log   *slog.Logger
	fade  time.Duration

	mu     sync.Mutex
	timers map[string]*store.Timer
}

// NewQueue creates an empty queue.
func NewQueue(clock store.Clock, logger *slog.Logger) *Queue {
	return &Queue{
		store:  store.New([]Notification(nil)),
		clock:  clock,
		log:    logger,
		fade:   DefaultInfoFade,
		timers: make(map[string]*store.Timer),
	}
}

// SetInfoFade overrides the info auto-dismiss duration (tests use a short one).
func (q *Queue) SetInfoFade(d time.Duration) {
	q.fade = d
}

// Add appends a notification and returns its id. Info notifications arm an
// auto-dismiss timer; error and warning ones stay until removed.
func (q *Queue) Add(kind Kind, prefix, message string) string {
	return q.AddAction(kind, prefix, message, nil)
}

// AddAction is Add with an attached follow-up action.
func (q *Queue) AddAction(kind Kind, prefix, message string, action *Action) string {
	id := fmt.Sprintf("%s-%d", prefix, q.clock.Now().UnixMilli())
	n := Notification{ID: id, Kind: kind, Message: message, Action: action}

	q.store.Update(func(list []Notification) []Notification {
		next := make([]Notification, len(list), len(list)+1)
		copy(next, list)
		return append(next, n)
	})
	q.log.Debug("notification added", "id", id, "kind", string(kind))

	if kind == KindInfo {
		t := store.After(q.fade, func() { q.Remove(id) })
		q.mu.Lock()
		q.timers[id] = t
		q.mu.Unlock()
	}
	return id
}

// Remove deletes the notification with the given id and cancels its timer.
func (q *Queue) Remove(id string) {
	q.mu.Lock()
	if t, ok := q.timers[id]; ok {
		t.Stop()
		delete(q.timers, id)
	}
	q.mu.Unlock()

	q.store.Update(func(list []Notification) []Notification {
		next := make([]Notification, 0, len(list))
		for _, n := range list {
			if n.ID != id {
				next = append(next, n)
			}
		}
		return next
	})
}

// RemoveAll empties the queue. Called on every view change so stale messages
// never carry over to another page.
func (q *Queue) RemoveAll() {
	q.mu.Lock()
	for id, t := range q.timers {
		t.Stop()
		delete(q.timers, id)
	}
	q.mu.Unlock()

	q.store.Update(func([]Notification) []Notification { return nil })
}

// Snapshot returns the full queue, oldest first.
func (q *Queue) Snapshot() []Notification {
	return q.store.Snapshot()
}

// Visible returns the most recent n notifications, oldest of those first.
func (q *Queue) Visible(n int) []Notification {
	list := q.store.Snapshot()
	if len(list) <= n {
		return list
	}
	return list[len(list)-n:]
}

// Subscribe registers a listener for queue changes.
func (q *Queue) Subscribe(fn func([]Notification)) func() {
	return q.store.Subscribe(fn)
}

// ServerError is the single normalization point for failed API calls: it
// extracts the structured message and enqueues an error notification.
func (q *Queue) ServerError(err error) {
	apiErr := domain.AsAPIError(err)
	msg := apiErr.Message
	if msg == "" {
		msg = "Server error"
	}
	q.Add(KindError, "serverError", msg)
}
