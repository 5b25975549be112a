// Package peers implements the peer lifecycle store: listing, drafting with
// a client-generated keypair, optimistic save with rollback, in-place edit,
// and delete. Every entry carries an explicit lifecycle tag; the id alone
// never encodes whether a peer is persisted.
package peers

import (
	"context"
	"log/slog"

	"github.com/vpnhouse/console/internal/api"
	"github.com/vpnhouse/console/internal/dialog"
	"github.com/vpnhouse/console/internal/domain"
	"github.com/vpnhouse/console/internal/notify"
	"github.com/vpnhouse/console/internal/store"
	"github.com/vpnhouse/console/internal/wgkeys"
)

// Entry is one peer as the console sees it: server data (or user input),
// lifecycle tag, edit-mode flag, and any per-field server rejections.
type Entry struct {
	Peer         domain.Peer
	State        domain.SaveState
	Editing      bool
	ServerErrors domain.FieldErrors
}

// Snapshot is the peer slice: the ordered list plus at most one open draft.
type Snapshot struct {
	Peers []Entry
	Draft *domain.Peer
}

// Store owns the peer slice. Failures surface through the notification
// queue or as per-field errors on the affected entry; the list itself stays
// last-known-good on read errors.
type Store struct {
	client  *api.Client
	notices *notify.Queue
	dialogs *dialog.Broker
	clock   store.Clock
	log     *slog.Logger
	state   *store.Store[Snapshot]

	// generate is swappable in tests to pin the keypair.
	generate func() (wgkeys.Pair, error)
}

func NewStore(client *api.Client, notices *notify.Queue, dialogs *dialog.Broker, clock store.Clock, logger *slog.Logger) *Store {
	return &Store{
		client:   client,
		notices:  notices,
		dialogs:  dialogs,
		clock:    clock,
		log:      logger,
		state:    store.New(Snapshot{}),
		generate: wgkeys.Generate,
	}
}

// Snapshot returns the current peer slice.
func (s *Store) Snapshot() Snapshot {
	return s.state.Snapshot()
}

// Subscribe registers a listener for slice changes.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	return s.state.Subscribe(fn)
}

// Load fetches all peers and replaces the list, most recently updated
// first. On failure the previous list is kept and the error is surfaced as
// a notification.
func (s *Store) Load(ctx context.Context) error {
	list, err := s.client.ListPeers(ctx)
	if err != nil {
		s.notices.ServerError(err)
		return err
	}
	SortByUpdated(list)
	entries := make([]Entry, 0, len(list))
	for _, p := range list {
		entries = append(entries, Entry{Peer: p, State: domain.SaveStatePersisted})
	}
	s.state.Update(func(snap Snapshot) Snapshot {
		snap.Peers = entries
		return snap
	})
	return nil
}

// Begin opens a new draft: allocates a free address from the server and
// generates a fresh keypair locally. While a draft is already open this is
// a no-op, so a double click can never produce two drafts.
func (s *Store) Begin(ctx context.Context) error {
	if s.state.Snapshot().Draft != nil {
		return nil
	}
	ipv4, err := s.client.AllocateIPv4(ctx)
	if err != nil {
		s.notices.ServerError(err)
		return err
	}
	pair, err := s.generate()
	if err != nil {
		s.log.Error("keypair generation failed", "err", err)
		return err
	}
	draft := domain.Peer{
		IPv4:       ipv4,
		PublicKey:  pair.Public,
		PrivateKey: pair.Private,
	}
	s.state.Update(func(snap Snapshot) Snapshot {
		if snap.Draft == nil {
			snap.Draft = &draft
		}
		return snap
	})
	return nil
}

// CancelCreate discards the open draft, if any.
func (s *Store) CancelCreate() {
	s.state.Update(func(snap Snapshot) Snapshot {
		snap.Draft = nil
		return snap
	})
}

// Save posts the draft. Only the public key travels; on success the
// returned record is re-joined with the client-held private key, inserted
// at the head of the list, and the tunnel config material is fetched to
// offer a download. On rejection the draft is re-inserted with a synthetic
// negative id and the per-field server error so the form can be shown
// again with the user's input intact.
func (s *Store) Save(ctx context.Context, draft domain.Peer) error {
	// Evict any earlier failed attempt for this draft before resubmitting,
	// and close the draft slot either way.
	s.state.Update(func(snap Snapshot) Snapshot {
		snap.Draft = nil
		if draft.ID != 0 {
			snap.Peers = removeUnsaved(snap.Peers, draft.ID)
		}
		return snap
	})

	created, err := s.client.CreatePeer(ctx, draft)
	if err != nil {
		apiErr := domain.AsAPIError(err)
		rolledBack := draft
		if rolledBack.ID == 0 {
			rolledBack.ID = -s.clock.Now().UnixMilli()
		}
		entry := Entry{
			Peer:         rolledBack,
			State:        domain.SaveStateFailed,
			ServerErrors: fieldErrors(apiErr),
		}
		s.state.Update(func(snap Snapshot) Snapshot {
			snap.Peers = append([]Entry{entry}, snap.Peers...)
			return snap
		})
		s.log.Debug("peer save rejected", "field", apiErr.Field, "error", apiErr.Message)
		return err
	}

	created.PrivateKey = draft.PrivateKey
	entry := Entry{Peer: created, State: domain.SaveStatePersisted}
	s.state.Update(func(snap Snapshot) Snapshot {
		snap.Peers = append([]Entry{entry}, snap.Peers...)
		return snap
	})
	s.offerConfig(ctx, created)
	return nil
}

// offerConfig fetches the wireguard client-config material and opens the
// download dialog with the rendered file. Runs right after a successful
// save, from the mutation site.
func (s *Store) offerConfig(ctx context.Context, peer domain.Peer) {
	info, err := s.client.WireguardInfo(ctx)
	if err != nil {
		s.notices.ServerError(err)
		return
	}
	cfg := wgkeys.RenderConfig(peer.PrivateKey, peer.IPv4, info)
	title := peer.Label
	if title == "" {
		title = peer.IPv4
	}
	s.dialogs.Open(dialog.Dialog{
		Title:        title + " configuration",
		Message:      cfg,
		ConfirmLabel: "Save " + wgkeys.ConfigFileName,
	})
}

// Update PUTs the changed fields of a persisted peer. The private key never
// leaves the store. On rejection the previous values are restored with the
// per-field error attached and edit mode stays engaged, so nothing the user
// typed is silently committed.
func (s *Store) Update(ctx context.Context, changed domain.Peer) error {
	previous, ok := s.find(changed.ID)
	if !ok {
		return domain.ErrNotFound
	}

	updated, err := s.client.UpdatePeer(ctx, changed)
	if err != nil {
		apiErr := domain.AsAPIError(err)
		s.replace(changed.ID, Entry{
			Peer:         previous.Peer,
			State:        previous.State,
			Editing:      true,
			ServerErrors: fieldErrors(apiErr),
		})
		return err
	}

	updated.PrivateKey = previous.Peer.PrivateKey
	s.replace(changed.ID, Entry{Peer: updated, State: domain.SaveStatePersisted})
	return nil
}

// Delete removes a peer. An unpersisted entry is dropped locally with zero
// network calls; a persisted one is deleted on the server first, and the
// list is left untouched when that fails.
func (s *Store) Delete(ctx context.Context, id int64) error {
	entry, ok := s.find(id)
	if !ok {
		return nil
	}
	if entry.State.Unsaved() {
		s.remove(id)
		return nil
	}

	if err := s.client.DeletePeer(ctx, id); err != nil {
		s.notices.ServerError(err)
		return err
	}
	s.remove(id)
	label := entry.Peer.Label
	s.notices.Add(notify.KindInfo, "peerDeleteInfo", "Peer "+label+" was removed")
	return nil
}

// SetEditing toggles the edit-mode flag. Pure UI state, no network effect.
func (s *Store) SetEditing(id int64, editing bool) {
	s.state.Update(func(snap Snapshot) Snapshot {
		list := make([]Entry, len(snap.Peers))
		copy(list, snap.Peers)
		for i := range list {
			if list[i].Peer.ID == id {
				list[i].Editing = editing
			}
		}
		snap.Peers = list
		return snap
	})
}

func (s *Store) find(id int64) (Entry, bool) {
	for _, e := range s.state.Snapshot().Peers {
		if e.Peer.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

func (s *Store) replace(id int64, entry Entry) {
	s.state.Update(func(snap Snapshot) Snapshot {
		list := make([]Entry, len(snap.Peers))
		copy(list, snap.Peers)
		for i := range list {
			if list[i].Peer.ID == id {
				list[i] = entry
			}
		}
		snap.Peers = list
		return snap
	})
}

func (s *Store) remove(id int64) {
	s.state.Update(func(snap Snapshot) Snapshot {
		list := make([]Entry, 0, len(snap.Peers))
		for _, e := range snap.Peers {
			if e.Peer.ID != id {
				list = append(list, e)
			}
		}
		snap.Peers = list
		return snap
	})
}

// removeUnsaved drops the entry with the given id only when it is not
// persisted, protecting real records from speculative eviction.
func removeUnsaved(list []Entry, id int64) []Entry {
	out := make([]Entry, 0, len(list))
	for _, e := range list {
		if e.Peer.ID == id && e.State.Unsaved() {
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
