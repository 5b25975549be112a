// Package devserver implements an in-process appliance simulator speaking
// the admin REST contract. It backs local development and the integration
// tests; it is not the real tunnel backend.
package devserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vpnhouse/console/internal/domain"
)

// Store persists the simulator state in SQLite so a dev appliance survives
// restarts the way the real one does.
type Store struct {
	db *sql.DB
}

// OpenStore creates or opens the simulator database at path. Use
// ":memory:" for throwaway instances in tests.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("devserver: open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("devserver: enable wal: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS peers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			label TEXT NOT NULL DEFAULT '',
			public_key TEXT NOT NULL,
			ipv4 TEXT NOT NULL,
			expires INTEGER,
			user_id TEXT NOT NULL DEFAULT '',
			installation_id TEXT NOT NULL DEFAULT '',
			session_id TEXT NOT NULL DEFAULT '',
			created INTEGER NOT NULL,
			updated INTEGER NOT NULL
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS peers_public_key ON peers(public_key);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS peers_ipv4 ON peers(ipv4);`,
		`CREATE TABLE IF NOT EXISTS trusted_keys (
			id TEXT PRIMARY KEY,
			key TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS kv (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("devserver: migrate: %w", err)
		}
	}
	return nil
}

func nullableUnix(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func unixPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

// InsertPeer stores a new peer and returns it with id and timestamps set.
func (s *Store) InsertPeer(p domain.Peer, now time.Time) (domain.Peer, error) {
	res, err := s.db.Exec(
		`INSERT INTO peers (label, public_key, ipv4, expires, user_id, installation_id, session_id, created, updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Label, p.PublicKey, p.IPv4, nullableUnix(p.Expires),
		p.UserID, p.InstallationID, p.SessionID, now.Unix(), now.Unix(),
	)
	if err != nil {
		return domain.Peer{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Peer{}, err
	}
	p.ID = id
	created := now.UTC()
	p.Created = &created
	p.Updated = &created
	return p, nil
}

// UpdatePeer rewrites the mutable fields of an existing peer.
func (s *Store) UpdatePeer(p domain.Peer, now time.Time) (domain.Peer, error) {
	res, err := s.db.Exec(
		`UPDATE peers SET label = ?, public_key = ?, ipv4 = ?, expires = ?,
		 user_id = ?, installation_id = ?, session_id = ?, updated = ?
		 WHERE id = ?`,
		p.Label, p.PublicKey, p.IPv4, nullableUnix(p.Expires),
		p.UserID, p.InstallationID, p.SessionID, now.Unix(), p.ID,
	)
	if err != nil {
		return domain.Peer{}, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.Peer{}, domain.ErrNotFound
	}
	return s.GetPeer(p.ID)
}

// GetPeer loads one peer by id.
func (s *Store) GetPeer(id int64) (domain.Peer, error) {
	row := s.db.QueryRow(
		`SELECT id, label, public_key, ipv4, expires, user_id, installation_id, session_id, created, updated
		 FROM peers WHERE id = ?`, id)
	return scanPeer(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPeer(row rowScanner) (domain.Peer, error) {
	var p domain.Peer
	var expires sql.NullInt64
	var created, updated int64
	err := row.Scan(&p.ID, &p.Label, &p.PublicKey, &p.IPv4, &expires,
		&p.UserID, &p.InstallationID, &p.SessionID, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Peer{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Peer{}, err
	}
	p.Expires = unixPtr(expires)
	c := time.Unix(created, 0).UTC()
	u := time.Unix(updated, 0).UTC()
	p.Created = &c
	p.Updated = &u
	return p, nil
}

// ListPeers returns every peer in insertion order.
func (s *Store) ListPeers() ([]domain.Peer, error) {
	rows, err := s.db.Query(
		`SELECT id, label, public_key, ipv4, expires, user_id, installation_id, session_id, created, updated
		 FROM peers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var peers []domain.Peer
	for rows.Next() {
		p, err := scanPeer(rows)
		if err != nil {
			return nil, err
		}
		peers = append(peers, p)
	}
	return peers, rows.Err()
}

// DeletePeer removes a peer by id.
func (s *Store) DeletePeer(id int64) error {
	res, err := s.db.Exec(`DELETE FROM peers WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// PeerCount returns the number of registered peers.
func (s *Store) PeerCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM peers`).Scan(&n)
	return n, err
}

// HasPeerIPv4 reports whether an address is already claimed.
func (s *Store) HasPeerIPv4(ipv4 string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM peers WHERE ipv4 = ?`, ipv4).Scan(&n)
	return n > 0, err
}

// UpsertTrustedKey stores key text under id, replacing any previous value.
func (s *Store) UpsertTrustedKey(id, key string) error {
	_, err := s.db.Exec(
		`INSERT INTO trusted_keys (id, key) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET key = excluded.key`, id, key)
	return err
}

// HasTrustedKey reports whether a key exists under id.
func (s *Store) HasTrustedKey(id string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM trusted_keys WHERE id = ?`, id).Scan(&n)
	return n > 0, err
}

// ListTrustedKeys returns all trusted keys ordered by id.
func (s *Store) ListTrustedKeys() ([]domain.TrustedKey, error) {
	rows, err := s.db.Query(`SELECT id, key FROM trusted_keys ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var keys []domain.TrustedKey
	for rows.Next() {
		var k domain.TrustedKey
		if err := rows.Scan(&k.ID, &k.Key); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// DeleteTrustedKey removes the key under id.
func (s *Store) DeleteTrustedKey(id string) error {
	res, err := s.db.Exec(`DELETE FROM trusted_keys WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetValue reads a kv entry; ok is false when absent.
func (s *Store) GetValue(name string) (string, bool, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE name = ?`, name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// SetValue writes a kv entry.
func (s *Store) SetValue(name, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (name, value) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value`, name, value)
	return err
}

// LoadSettings reads the settings document, or ok=false before setup.
func (s *Store) LoadSettings() (domain.Settings, bool, error) {
	raw, ok, err := s.GetValue("settings")
	if err != nil || !ok {
		return domain.Settings{}, ok, err
	}
	var settings domain.Settings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return domain.Settings{}, false, fmt.Errorf("devserver: decode settings: %w", err)
	}
	return settings, true, nil
}

// SaveSettings writes the settings document.
func (s *Store) SaveSettings(settings domain.Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("devserver: encode settings: %w", err)
	}
	return s.SetValue("settings", string(raw))
}
