// Package trustedkeys implements the trusted-key lifecycle store. It
// mirrors the peer store with UUID string ids and raw-text payloads, plus
// one extra wrinkle: a failed save may be retried under a different id, so
// eviction of the earlier speculative entry is keyed by the id the save was
// attempted under, not the current one.
package trustedkeys

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/vpnhouse/console/internal/api"
	"github.com/vpnhouse/console/internal/domain"
	"github.com/vpnhouse/console/internal/notify"
	"github.com/vpnhouse/console/internal/store"
)

// Entry is one trusted key with its lifecycle tag. An entry whose state is
// not persisted exists only in the console; that distinction disambiguates
// deletes when a confirmed key and a failed draft transiently share an id.
type Entry struct {
	Key          domain.TrustedKey
	State        domain.SaveState
	Editing      bool
	ServerErrors domain.FieldErrors
}

// NotSaved reports whether the entry exists only on the client.
func (e Entry) NotSaved() bool {
	return e.State.Unsaved()
}

// Snapshot is the trusted-key slice.
type Snapshot struct {
	Keys  []Entry
	Draft *domain.TrustedKey
}

// Store owns the trusted-key slice.
type Store struct {
	client  *api.Client
	notices *notify.Queue
	log     *slog.Logger
	state   *store.Store[Snapshot]
}

func NewStore(client *api.Client, notices *notify.Queue, logger *slog.Logger) *Store {
	return &Store{
		client:  client,
		notices: notices,
		log:     logger,
		state:   store.New(Snapshot{}),
	}
}

// Snapshot returns the current slice.
func (s *Store) Snapshot() Snapshot {
	return s.state.Snapshot()
}

// Subscribe registers a listener for slice changes.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	return s.state.Subscribe(fn)
}

// Load fetches all trusted keys and replaces the list. On failure the
// previous list stays and the error becomes a notification.
func (s *Store) Load(ctx context.Context) error {
	keys, err := s.client.ListTrustedKeys(ctx)
	if err != nil {
		s.notices.ServerError(err)
		return err
	}
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, Entry{Key: k, State: domain.SaveStatePersisted})
	}
	s.state.Update(func(snap Snapshot) Snapshot {
		snap.Keys = entries
		return snap
	})
	return nil
}

// Begin opens a draft prefilled with a generated UUID; the user may replace
// it. No-op while a draft is already open.
func (s *Store) Begin() {
	s.state.Update(func(snap Snapshot) Snapshot {
		if snap.Draft == nil {
			snap.Draft = &domain.TrustedKey{ID: uuid.NewString()}
		}
		return snap
	})
}

// CancelCreate discards the open draft.
func (s *Store) CancelCreate() {
	s.state.Update(func(snap Snapshot) Snapshot {
		snap.Draft = nil
		return snap
	})
}

// Save posts the key text under its id. prevID names the id of an earlier
// failed attempt of this same draft; that speculative entry is evicted
// before resubmission so a retry under a new UUID leaves no residue behind.
// On rejection the draft is re-inserted unsaved with the per-field error.
func (s *Store) Save(ctx context.Context, key domain.TrustedKey, prevID string) error {
	s.state.Update(func(snap Snapshot) Snapshot {
		snap.Draft = nil
		if prevID != "" {
			snap.Keys = removeUnsaved(snap.Keys, prevID)
		}
		return snap
	})

	if err := s.client.AddTrustedKey(ctx, key.ID, key.Key); err != nil {
		apiErr := domain.AsAPIError(err)
		entry := Entry{
			Key:          key,
			State:        domain.SaveStateFailed,
			ServerErrors: fieldErrors(apiErr),
		}
		s.state.Update(func(snap Snapshot) Snapshot {
			snap.Keys = append([]Entry{entry}, snap.Keys...)
			return snap
		})
		s.log.Debug("trusted key save rejected", "id", key.ID, "error", apiErr.Message)
		return err
	}

	entry := Entry{Key: key, State: domain.SaveStatePersisted}
	s.state.Update(func(snap Snapshot) Snapshot {
		snap.Keys = append([]Entry{entry}, snap.Keys...)
		return snap
	})
	return nil
}

// Update replaces the key text stored under id. On rejection the previous
// values come back with the error attached and edit mode stays engaged.
func (s *Store) Update(ctx context.Context, key domain.TrustedKey) error {
	previous, ok := s.find(key.ID)
	if !ok {
		return domain.ErrNotFound
	}

	if err := s.client.UpdateTrustedKey(ctx, key.ID, key.Key); err != nil {
		apiErr := domain.AsAPIError(err)
		s.replace(key.ID, Entry{
			Key:          previous.Key,
			State:        previous.State,
			Editing:      true,
			ServerErrors: fieldErrors(apiErr),
		})
		return err
	}
	s.replace(key.ID, Entry{Key: key, State: domain.SaveStatePersisted})
	return nil
}

// Delete removes a key. With notSavedOnly set, only an unsaved entry under
// that id is dropped, locally and silently; otherwise the server delete
// runs first and success is announced with an info notification.
func (s *Store) Delete(ctx context.Context, id string, notSavedOnly bool) error {
	if notSavedOnly {
		s.state.Update(func(snap Snapshot) Snapshot {
			snap.Keys = removeUnsaved(snap.Keys, id)
			return snap
		})
		return nil
	}

	if err := s.client.DeleteTrustedKey(ctx, id); err != nil {
		s.notices.ServerError(err)
		return err
	}
	s.state.Update(func(snap Snapshot) Snapshot {
		list := make([]Entry, 0, len(snap.Keys))
		for _, e := range snap.Keys {
			if e.Key.ID != id {
				list = append(list, e)
			}
		}
		snap.Keys = list
		return snap
	})
	s.notices.Add(notify.KindInfo, "trustedKeyDeleteInfo", "Trusted key with UUID "+id+" was removed")
	return nil
}

// SetEditing toggles the edit-mode flag.
func (s *Store) SetEditing(id string, editing bool) {
	s.state.Update(func(snap Snapshot) Snapshot {
		list := make([]Entry, len(snap.Keys))
		copy(list, snap.Keys)
		for i := range list {
			if list[i].Key.ID == id {
				list[i].Editing = editing
			}
		}
		snap.Keys = list
		return snap
	})
}

func (s *Store) find(id string) (Entry, bool) {
	for _, e := range s.state.Snapshot().Keys {
		if e.Key.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

func (s *Store) replace(id string, entry Entry) {
	s.state.Update(func(snap Snapshot) Snapshot {
		list := make([]Entry, len(snap.Keys))
		copy(list, snap.Keys)
		for i := range list {
			if list[i].Key.ID == id {
				list[i] = entry
			}
		}
		snap.Keys = list
		return snap
	})
}

// removeUnsaved drops entries under id that were never persisted, leaving
// confirmed records alone.
func removeUnsaved(list []Entry, id string) []Entry {
	out := make([]Entry, 0, len(list))
	for _, e := range list {
		if e.Key.ID == id && e.NotSaved() {
			continue
		}
		out = append(out, e)
	}
	return out
}

func fieldErrors(apiErr *domain.APIError) domain.FieldErrors {
	field := apiErr.Field
	if field == "" {
		field = "common"
	}
	return domain.FieldErrors{field: apiErr.FieldText()}
}
