package peers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vpnhouse/console/internal/api"
	"github.com/vpnhouse/console/internal/dialog"
	"github.com/vpnhouse/console/internal/domain"
	"github.com/vpnhouse/console/internal/log"
	"github.com/vpnhouse/console/internal/notify"
	"github.com/vpnhouse/console/internal/wgkeys"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

// newTestStore wires a peer store against the given handler and counts every
// request that reaches the server.
func newTestStore(t *testing.T, handler http.Handler) (*Store, *notify.Queue, *dialog.Broker, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	clock := fixedClock{t: testNow}
	notices := notify.NewQueue(clock, log.Discard())
	dialogs := dialog.NewBroker()
	client := api.New(srv.URL, staticToken("tok"), log.Discard())
	s := NewStore(client, notices, dialogs, clock, log.Discard())
	s.generate = func() (wgkeys.Pair, error) {
		return wgkeys.Pair{Private: "UFJJVkFURQ==", Public: "UFVCTElD"}, nil
	}
	return s, notices, dialogs, &calls
}

type staticToken string

func (s staticToken) Token() string { return string(s) }

func writeRecord(w http.ResponseWriter, id int64, label, ipv4, pub string) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id": id,
		"peer": map[string]any{
			"type":           "wireguard",
			"info_wireguard": map[string]string{"public_key": pub},
			"label":          label,
			"ipv4":           ipv4,
			"created":        testNow,
			"updated":        testNow,
		},
	})
}

func TestLoadMarksEverythingPersisted(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tunnel/admin/peers", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id":1,"peer":{"type":"wireguard","info_wireguard":{"public_key":"AA=="},"ipv4":"10.0.0.2"}},
			{"id":2,"peer":{"type":"wireguard","info_wireguard":{"public_key":"BB=="},"ipv4":"10.0.0.3"}}
		]`))
	})

	s, _, _, _ := newTestStore(t, mux)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Peers) != 2 {
		t.Fatalf("expected 2 peers, got %+v", snap.Peers)
	}
	for _, e := range snap.Peers {
		if e.State != domain.SaveStatePersisted {
			t.Fatalf("loaded entry not persisted: %+v", e)
		}
	}
	// Load is idempotent: a second call replaces, never accumulates.
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if got := len(s.Snapshot().Peers); got != 2 {
		t.Fatalf("second Load produced %d entries", got)
	}
}

func TestLoadFailureKeepsPreviousList(t *testing.T) {
	t.Parallel()

	var fail atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tunnel/admin/peers", func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"backend down"}`))
			return
		}
		_, _ = w.Write([]byte(`[{"id":1,"peer":{"type":"wireguard","info_wireguard":{"public_key":"AA=="},"ipv4":"10.0.0.2"}}]`))
	})

	s, notices, _, _ := newTestStore(t, mux)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	fail.Store(true)
	if err := s.Load(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	if got := len(s.Snapshot().Peers); got != 1 {
		t.Fatalf("failed load must keep the old list, got %d entries", got)
	}
	if len(notices.Snapshot()) == 0 {
		t.Fatal("expected a server-error notification")
	}
}

func TestSavePreservesPrivateKey(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tunnel/admin/ipv4", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ip_address":"10.0.0.7"}`))
	})
	mux.HandleFunc("POST /api/tunnel/admin/peers", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, leaked := body["private_key"]; leaked {
			t.Error("private key crossed the wire")
		}
		writeRecord(w, 42, "laptop", "10.0.0.7", "UFVCTElD")
	})
	mux.HandleFunc("GET /api/tunnel/admin/peers/wireguard-config", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(domain.WireguardInfo{
			DNS: []string{"1.1.1.1"}, ServerPublicKey: "SRV", AllowedIPs: []string{"0.0.0.0/0"},
			ServerIPv4: "203.0.113.9", ServerPort: "51820", Keepalive: 25,
		})
	})

	s, _, dialogs, _ := newTestStore(t, mux)
	if err := s.Begin(context.Background()); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	draft := *s.Snapshot().Draft
	draft.Label = "laptop"
	if err := s.Save(context.Background(), draft); err != nil {
		t.Fatalf("Save: %v", err)
	}

	snap := s.Snapshot()
	if snap.Draft != nil {
		t.Fatal("draft must close after save")
	}
	if len(snap.Peers) != 1 {
		t.Fatalf("expected exactly one entry, got %d", len(snap.Peers))
	}
	got := snap.Peers[0]
	if got.State != domain.SaveStatePersisted || got.Peer.ID != 42 {
		t.Fatalf("unexpected entry %+v", got)
	}
	if got.Peer.PrivateKey != "UFJJVkFURQ==" {
		t.Fatal("private key was not re-joined with the server record")
	}

	d := dialogs.Active()
	if d == nil {
		t.Fatal("expected the config download dialog")
	}
	if !strings.Contains(d.Message, "PrivateKey = UFJJVkFURQ==") {
		t.Fatalf("dialog does not carry the rendered config:\n%s", d.Message)
	}
}

func TestBeginWhileDraftOpenIsNoop(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tunnel/admin/ipv4", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ip_address":"10.0.0.7"}`))
	})

	s, _, _, calls := newTestStore(t, mux)
	if err := s.Begin(context.Background()); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	before := calls.Load()
	if err := s.Begin(context.Background()); err != nil {
		t.Fatalf("second Begin: %v", err)
	}
	if calls.Load() != before {
		t.Fatal("second Begin must not hit the server")
	}
}

func TestFailedSaveRollsBackWithNegativeID(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tunnel/admin/ipv4", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ip_address":"10.0.0.7"}`))
	})
	mux.HandleFunc("POST /api/tunnel/admin/peers", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"address already in use","field":"ipv4"}`))
	})

	s, _, _, _ := newTestStore(t, mux)
	if err := s.Begin(context.Background()); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	draft := *s.Snapshot().Draft
	if err := s.Save(context.Background(), draft); err == nil {
		t.Fatal("expected save rejection")
	}

	snap := s.Snapshot()
	if snap.Draft != nil {
		t.Fatal("draft slot must close even on failure")
	}
	if len(snap.Peers) != 1 {
		t.Fatalf("expected exactly one rolled-back entry, got %d", len(snap.Peers))
	}
	e := snap.Peers[0]
	if e.State != domain.SaveStateFailed {
		t.Fatalf("entry state %v, want failed", e.State)
	}
	if e.Peer.ID >= 0 {
		t.Fatalf("rolled-back entry id %d, want strictly negative", e.Peer.ID)
	}
	if msg, ok := e.ServerErrors["ipv4"]; !ok || !strings.Contains(msg, "address already in use") {
		t.Fatalf("missing per-field error, got %+v", e.ServerErrors)
	}
	if e.Peer.PrivateKey == "" {
		t.Fatal("rolled-back draft must keep its private key for retry")
	}
}

func TestRetryAfterFailureLeavesNoResidue(t *testing.T) {
	t.Parallel()

	var accept atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tunnel/admin/ipv4", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ip_address":"10.0.0.7"}`))
	})
	mux.HandleFunc("POST /api/tunnel/admin/peers", func(w http.ResponseWriter, r *http.Request) {
		if !accept.Load() {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"address already in use","field":"ipv4"}`))
			return
		}
		writeRecord(w, 42, "", "10.0.0.8", "UFVCTElD")
	})
	mux.HandleFunc("GET /api/tunnel/admin/peers/wireguard-config", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(domain.WireguardInfo{})
	})

	s, _, _, _ := newTestStore(t, mux)
	_ = s.Begin(context.Background())
	draft := *s.Snapshot().Draft
	_ = s.Save(context.Background(), draft)

	// Retry with the rolled-back entry, fixed up by the user.
	rolledBack := s.Snapshot().Peers[0].Peer
	rolledBack.IPv4 = "10.0.0.8"
	accept.Store(true)
	if err := s.Save(context.Background(), rolledBack); err != nil {
		t.Fatalf("retry Save: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Peers) != 1 {
		t.Fatalf("retry left residue: %+v", snap.Peers)
	}
	if snap.Peers[0].State != domain.SaveStatePersisted || snap.Peers[0].Peer.ID != 42 {
		t.Fatalf("unexpected entry after retry: %+v", snap.Peers[0])
	}
}

func TestDeleteUnsavedEntryMakesNoNetworkCall(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tunnel/admin/ipv4", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ip_address":"10.0.0.7"}`))
	})
	mux.HandleFunc("POST /api/tunnel/admin/peers", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"nope"}`))
	})

	s, _, _, calls := newTestStore(t, mux)
	_ = s.Begin(context.Background())
	_ = s.Save(context.Background(), *s.Snapshot().Draft)

	failed := s.Snapshot().Peers[0]
	before := calls.Load()
	if err := s.Delete(context.Background(), failed.Peer.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if calls.Load() != before {
		t.Fatal("deleting an unsaved entry must not hit the server")
	}
	if got := len(s.Snapshot().Peers); got != 0 {
		t.Fatalf("entry not removed, %d left", got)
	}
}

func TestDeletePersistedNotifies(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tunnel/admin/peers", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":5,"peer":{"type":"wireguard","info_wireguard":{"public_key":"AA=="},"label":"laptop","ipv4":"10.0.0.2"}}]`))
	})
	mux.HandleFunc("DELETE /api/tunnel/admin/peers/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	s, notices, _, _ := newTestStore(t, mux)
	_ = s.Load(context.Background())
	if err := s.Delete(context.Background(), 5); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := len(s.Snapshot().Peers); got != 0 {
		t.Fatalf("peer not removed, %d left", got)
	}
	queued := notices.Snapshot()
	if len(queued) != 1 || queued[0].Message != "Peer laptop was removed" {
		t.Fatalf("expected removal notification, got %+v", queued)
	}
}

func TestDeleteFailureKeepsEntry(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tunnel/admin/peers", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":5,"peer":{"type":"wireguard","info_wireguard":{"public_key":"AA=="},"ipv4":"10.0.0.2"}}]`))
	})
	mux.HandleFunc("DELETE /api/tunnel/admin/peers/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"storage failure"}`))
	})

	s, notices, _, _ := newTestStore(t, mux)
	_ = s.Load(context.Background())
	if err := s.Delete(context.Background(), 5); err == nil {
		t.Fatal("expected delete error")
	}
	if got := len(s.Snapshot().Peers); got != 1 {
		t.Fatalf("failed delete must keep the entry, %d left", got)
	}
	if len(notices.Snapshot()) == 0 {
		t.Fatal("expected a server-error notification")
	}
}

func TestUpdateFailureRestoresPreviousValues(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tunnel/admin/peers", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":5,"peer":{"type":"wireguard","info_wireguard":{"public_key":"AA=="},"label":"before","ipv4":"10.0.0.2"}}]`))
	})
	mux.HandleFunc("PUT /api/tunnel/admin/peers/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid address","field":"ipv4","details":"out of subnet"}`))
	})

	s, _, _, _ := newTestStore(t, mux)
	_ = s.Load(context.Background())

	changed := s.Snapshot().Peers[0].Peer
	changed.Label = "after"
	changed.IPv4 = "192.168.0.9"
	if err := s.Update(context.Background(), changed); err == nil {
		t.Fatal("expected update rejection")
	}

	e := s.Snapshot().Peers[0]
	if e.Peer.Label != "before" || e.Peer.IPv4 != "10.0.0.2" {
		t.Fatalf("previous values not restored: %+v", e.Peer)
	}
	if !e.Editing {
		t.Fatal("edit mode must stay engaged after a rejected update")
	}
	if msg := e.ServerErrors["ipv4"]; !strings.Contains(msg, "invalid address") || !strings.Contains(msg, "out of subnet") {
		t.Fatalf("per-field error missing details: %+v", e.ServerErrors)
	}
}

func TestUpdateSuccessKeepsPrivateKey(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tunnel/admin/ipv4", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ip_address":"10.0.0.7"}`))
	})
	mux.HandleFunc("POST /api/tunnel/admin/peers", func(w http.ResponseWriter, r *http.Request) {
		writeRecord(w, 9, "old", "10.0.0.7", "UFVCTElD")
	})
	mux.HandleFunc("GET /api/tunnel/admin/peers/wireguard-config", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(domain.WireguardInfo{})
	})
	mux.HandleFunc("PUT /api/tunnel/admin/peers/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"type":"wireguard","info_wireguard":{"public_key":"UFVCTElD"},"label":"new","ipv4":"10.0.0.7"}`))
	})

	s, _, _, _ := newTestStore(t, mux)
	_ = s.Begin(context.Background())
	_ = s.Save(context.Background(), *s.Snapshot().Draft)

	changed := s.Snapshot().Peers[0].Peer
	changed.Label = "new"
	if err := s.Update(context.Background(), changed); err != nil {
		t.Fatalf("Update: %v", err)
	}
	e := s.Snapshot().Peers[0]
	if e.Peer.Label != "new" {
		t.Fatalf("label not updated: %+v", e.Peer)
	}
	if e.Peer.PrivateKey != "UFJJVkFURQ==" {
		t.Fatal("private key lost across update")
	}
}
