package devserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/vpnhouse/console/internal/domain"
	"github.com/vpnhouse/console/internal/validate"
	"github.com/vpnhouse/console/internal/wgkeys"
)

// Wire shapes mirror the appliance contract: peers nest the wireguard info
// and the connection identifiers.
type wireInfo struct {
	PublicKey string `json:"public_key"`
}

type wireIdentifiers struct {
	UserID         string `json:"user_id,omitempty"`
	InstallationID string `json:"installation_id,omitempty"`
	SessionID      string `json:"session_id,omitempty"`
}

type wirePeer struct {
	Type          string           `json:"type"`
	InfoWireguard wireInfo         `json:"info_wireguard"`
	Identifiers   *wireIdentifiers `json:"identifiers,omitempty"`
	Label         string           `json:"label,omitempty"`
	IPv4          string           `json:"ipv4,omitempty"`
	Expires       *time.Time       `json:"expires,omitempty"`
	Created       *time.Time       `json:"created,omitempty"`
	Updated       *time.Time       `json:"updated,omitempty"`
}

type wireRecord struct {
	ID   int64    `json:"id"`
	Peer wirePeer `json:"peer"`
}

func toWire(p domain.Peer) wireRecord {
	rec := wireRecord{
		ID: p.ID,
		Peer: wirePeer{
			Type:          "wireguard",
			InfoWireguard: wireInfo{PublicKey: p.PublicKey},
			Label:         p.Label,
			IPv4:          p.IPv4,
			Expires:       p.Expires,
			Created:       p.Created,
			Updated:       p.Updated,
		},
	}
	if p.UserID != "" || p.InstallationID != "" || p.SessionID != "" {
		rec.Peer.Identifiers = &wireIdentifiers{
			UserID:         p.UserID,
			InstallationID: p.InstallationID,
			SessionID:      p.SessionID,
		}
	}
	return rec
}

func fromWire(rec wireRecord) domain.Peer {
	p := domain.Peer{
		ID:        rec.ID,
		Label:     rec.Peer.Label,
		PublicKey: rec.Peer.InfoWireguard.PublicKey,
		IPv4:      rec.Peer.IPv4,
		Expires:   rec.Peer.Expires,
	}
	if ids := rec.Peer.Identifiers; ids != nil {
		p.UserID = ids.UserID
		p.InstallationID = ids.InstallationID
		p.SessionID = ids.SessionID
	}
	return p
}

// ─── bootstrap and auth ─────────────────────────────────────────────────────

func (s *Server) configure(password, subnet string, sendStats bool, domainCfg *domain.DomainConfig) error {
	if err := s.store.SetValue("admin_password", hashPassword(password)); err != nil {
		return err
	}
	pair, err := wgkeys.Generate()
	if err != nil {
		return err
	}
	prefix, err := netip.ParsePrefix(subnet)
	if err != nil {
		return fmt.Errorf("devserver: parse subnet: %w", err)
	}
	settings := domain.Settings{
		ConnectionTimeout:   30,
		DNS:                 []string{"1.1.1.1", "8.8.8.8"},
		PingInterval:        60,
		WireguardKeepalive:  25,
		WireguardListenPort: 51820,
		WireguardPublicKey:  pair.Public,
		WireguardServerIPv4: prefix.Addr().Next().String(),
		WireguardServerPort: 51820,
		WireguardSubnet:     subnet,
		SendStats:           sendStats,
		Domain:              domainCfg,
	}
	return s.store.SaveSettings(settings)
}

func (s *Server) handleInitialSetup(w http.ResponseWriter, r *http.Request) {
	if s.configured() {
		s.reject(w, http.StatusConflict, "appliance is already configured", "", "")
		return
	}
	var setup domain.InitialSetup
	if err := json.NewDecoder(r.Body).Decode(&setup); err != nil {
		s.reject(w, http.StatusBadRequest, "malformed request body", "", err.Error())
		return
	}
	if setup.AdminPassword == "" {
		s.reject(w, http.StatusBadRequest, "admin password is required", "admin_password", "")
		return
	}
	subnet := setup.ServerIPMask
	if subnet == "" {
		subnet = "10.123.0.0/24"
	}
	if _, err := netip.ParsePrefix(subnet); err != nil {
		s.reject(w, http.StatusBadRequest, "invalid subnet", "server_ip_mask", err.Error())
		return
	}
	if err := s.configure(setup.AdminPassword, subnet, setup.SendStats, setup.Domain); err != nil {
		s.reject(w, http.StatusInternalServerError, "setup failed", "", err.Error())
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.configured() {
		s.reject(w, http.StatusConflict, "initial setup required", "", "")
		return
	}
	password, ok := basicPassword(r)
	if !ok || !s.checkPassword(password) {
		s.reject(w, http.StatusUnauthorized, "invalid password", "", "")
		return
	}
	token, err := s.issueToken(time.Now())
	if err != nil {
		s.reject(w, http.StatusInternalServerError, "token issuance failed", "", err.Error())
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"access_token": token})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !s.configured() {
		s.reject(w, http.StatusConflict, "initial setup required", "", "")
		return
	}
	if !s.validBearer(r) {
		s.reject(w, http.StatusUnauthorized, "authentication required", "", "")
		return
	}
	token, err := s.issueToken(time.Now())
	if err != nil {
		s.reject(w, http.StatusInternalServerError, "token issuance failed", "", err.Error())
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"access_token": token})
}

// ─── peers ──────────────────────────────────────────────────────────────────

func (s *Server) handleListPeers(w http.ResponseWriter, _ *http.Request) {
	peers, err := s.store.ListPeers()
	if err != nil {
		s.reject(w, http.StatusInternalServerError, "storage failure", "", err.Error())
		return
	}
	records := make([]wireRecord, 0, len(peers))
	for _, p := range peers {
		records = append(records, toWire(p))
	}
	s.respond(w, http.StatusOK, records)
}

// validatePeer reproduces the appliance's write-side checks so the console's
// rollback paths see realistic {error, field, details} rejections.
func (s *Server) validatePeer(p domain.Peer, isCreate bool) *rejection {
	if msg := validate.Submit(validate.FieldPublicKey, p.PublicKey); msg != "" {
		return &rejection{Error: "invalid public key", Field: "public_key", Details: msg}
	}
	if p.IPv4 == "" {
		return &rejection{Error: "address is required", Field: "ipv4"}
	}
	if msg := validate.Submit(validate.FieldIPv4, p.IPv4); msg != "" {
		return &rejection{Error: "invalid address", Field: "ipv4", Details: msg}
	}
	if msg := validate.Submit(validate.FieldSessionID, p.SessionID); msg != "" {
		return &rejection{Error: "invalid session id", Field: "session_id", Details: msg}
	}
	if msg := validate.Submit(validate.FieldInstallationID, p.InstallationID); msg != "" {
		return &rejection{Error: "invalid installation id", Field: "installation_id", Details: msg}
	}
	if isCreate {
		taken, err := s.store.HasPeerIPv4(p.IPv4)
		if err == nil && taken {
			return &rejection{Error: "address already in use", Field: "ipv4"}
		}
	}
	return nil
}

func (s *Server) handleCreatePeer(w http.ResponseWriter, r *http.Request) {
	var rec wireRecord
	if err := json.NewDecoder(r.Body).Decode(&rec.Peer); err != nil {
		s.reject(w, http.StatusBadRequest, "malformed request body", "", err.Error())
		return
	}
	peer := fromWire(rec)
	if rej := s.validatePeer(peer, true); rej != nil {
		s.respond(w, http.StatusBadRequest, rej)
		return
	}
	saved, err := s.store.InsertPeer(peer, time.Now())
	if err != nil {
		s.reject(w, http.StatusBadRequest, "peer rejected", "public_key", err.Error())
		return
	}
	s.respond(w, http.StatusOK, toWire(saved))
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func (s *Server) handleUpdatePeer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.reject(w, http.StatusBadRequest, "invalid peer id", "", err.Error())
		return
	}
	var body wirePeer
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.reject(w, http.StatusBadRequest, "malformed request body", "", err.Error())
		return
	}
	peer := fromWire(wireRecord{ID: id, Peer: body})
	if rej := s.validatePeer(peer, false); rej != nil {
		s.respond(w, http.StatusBadRequest, rej)
		return
	}
	updated, err := s.store.UpdatePeer(peer, time.Now())
	if err == domain.ErrNotFound {
		s.reject(w, http.StatusNotFound, "peer not found", "", "")
		return
	}
	if err != nil {
		s.reject(w, http.StatusInternalServerError, "storage failure", "", err.Error())
		return
	}
	s.respond(w, http.StatusOK, toWire(updated).Peer)
}

func (s *Server) handleDeletePeer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.reject(w, http.StatusBadRequest, "invalid peer id", "", err.Error())
		return
	}
	switch err := s.store.DeletePeer(id); err {
	case nil:
		s.respond(w, http.StatusNoContent, nil)
	case domain.ErrNotFound:
		s.reject(w, http.StatusNotFound, "peer not found", "", "")
	default:
		s.reject(w, http.StatusInternalServerError, "storage failure", "", err.Error())
	}
}

func (s *Server) handleWireguardConfig(w http.ResponseWriter, _ *http.Request) {
	settings, ok, err := s.store.LoadSettings()
	if err != nil || !ok {
		s.reject(w, http.StatusInternalServerError, "settings unavailable", "", "")
		return
	}
	s.respond(w, http.StatusOK, domain.WireguardInfo{
		DNS:             settings.DNS,
		ServerPublicKey: settings.WireguardPublicKey,
		AllowedIPs:      []string{"0.0.0.0/0"},
		ServerIPv4:      settings.WireguardServerIPv4,
		ServerPort:      strconv.Itoa(settings.WireguardServerPort),
		Keepalive:       settings.WireguardKeepalive,
	})
}

func (s *Server) handleAllocateIPv4(w http.ResponseWriter, _ *http.Request) {
	settings, ok, err := s.store.LoadSettings()
	if err != nil || !ok {
		s.reject(w, http.StatusInternalServerError, "settings unavailable", "", "")
		return
	}
	prefix, err := netip.ParsePrefix(settings.WireguardSubnet)
	if err != nil {
		s.reject(w, http.StatusInternalServerError, "invalid configured subnet", "", err.Error())
		return
	}
	// Walk the range from .2 upward; .1 belongs to the server itself.
	addr := prefix.Addr().Next().Next()
	for prefix.Contains(addr) {
		taken, err := s.store.HasPeerIPv4(addr.String())
		if err != nil {
			s.reject(w, http.StatusInternalServerError, "storage failure", "", err.Error())
			return
		}
		if !taken {
			s.respond(w, http.StatusOK, map[string]string{"ip_address": addr.String()})
			return
		}
		addr = addr.Next()
	}
	s.reject(w, http.StatusConflict, "address pool exhausted", "", "")
}

// ─── trusted keys ───────────────────────────────────────────────────────────

func (s *Server) handleListTrusted(w http.ResponseWriter, _ *http.Request) {
	keys, err := s.store.ListTrustedKeys()
	if err != nil {
		s.reject(w, http.StatusInternalServerError, "storage failure", "", err.Error())
		return
	}
	if keys == nil {
		keys = []domain.TrustedKey{}
	}
	s.respond(w, http.StatusOK, keys)
}

func (s *Server) readTrusted(w http.ResponseWriter, r *http.Request) (id, key string, ok bool) {
	id = r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		s.reject(w, http.StatusBadRequest, "invalid key id", "id", "must be a UUID")
		return "", "", false
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 64*1024))
	if err != nil {
		s.reject(w, http.StatusBadRequest, "unreadable body", "key", err.Error())
		return "", "", false
	}
	key = string(raw)
	if key == "" {
		s.reject(w, http.StatusBadRequest, "key text is required", "key", "")
		return "", "", false
	}
	return id, key, true
}

func (s *Server) handleAddTrusted(w http.ResponseWriter, r *http.Request) {
	id, key, ok := s.readTrusted(w, r)
	if !ok {
		return
	}
	exists, err := s.store.HasTrustedKey(id)
	if err != nil {
		s.reject(w, http.StatusInternalServerError, "storage failure", "", err.Error())
		return
	}
	if exists {
		s.reject(w, http.StatusBadRequest, "key id already exists", "id", "")
		return
	}
	if err := s.store.UpsertTrustedKey(id, key); err != nil {
		s.reject(w, http.StatusInternalServerError, "storage failure", "", err.Error())
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}

func (s *Server) handleUpdateTrusted(w http.ResponseWriter, r *http.Request) {
	id, key, ok := s.readTrusted(w, r)
	if !ok {
		return
	}
	exists, err := s.store.HasTrustedKey(id)
	if err != nil {
		s.reject(w, http.StatusInternalServerError, "storage failure", "", err.Error())
		return
	}
	if !exists {
		s.reject(w, http.StatusNotFound, "key not found", "", "")
		return
	}
	if err := s.store.UpsertTrustedKey(id, key); err != nil {
		s.reject(w, http.StatusInternalServerError, "storage failure", "", err.Error())
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeleteTrusted(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch err := s.store.DeleteTrustedKey(id); err {
	case nil:
		s.respond(w, http.StatusNoContent, nil)
	case domain.ErrNotFound:
		s.reject(w, http.StatusNotFound, "key not found", "", "")
	default:
		s.reject(w, http.StatusInternalServerError, "storage failure", "", err.Error())
	}
}

// ─── settings, status, stats ────────────────────────────────────────────────

func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	settings, ok, err := s.store.LoadSettings()
	if err != nil || !ok {
		s.reject(w, http.StatusInternalServerError, "settings unavailable", "", "")
		return
	}
	s.respond(w, http.StatusOK, settings)
}

func (s *Server) handlePatchSettings(w http.ResponseWriter, r *http.Request) {
	current, ok, err := s.store.LoadSettings()
	if err != nil || !ok {
		s.reject(w, http.StatusInternalServerError, "settings unavailable", "", "")
		return
	}
	patched := current
	if err := json.NewDecoder(r.Body).Decode(&patched); err != nil {
		s.reject(w, http.StatusBadRequest, "malformed request body", "", err.Error())
		return
	}
	if patched.WireguardSubnet != "" {
		if _, err := netip.ParsePrefix(patched.WireguardSubnet); err != nil {
			s.reject(w, http.StatusBadRequest, "invalid subnet", "wireguard_subnet", err.Error())
			return
		}
	}
	patched.AdminPassword = ""
	if err := s.store.SaveSettings(patched); err != nil {
		s.reject(w, http.StatusInternalServerError, "storage failure", "", err.Error())
		return
	}
	// Port and subnet changes take a service restart to apply.
	if patched.WireguardListenPort != current.WireguardListenPort ||
		patched.WireguardSubnet != current.WireguardSubnet {
		s.mu.Lock()
		s.restartUntil = time.Now().Add(s.delay)
		s.mu.Unlock()
	}
	s.respond(w, http.StatusOK, patched)
}

func (s *Server) globalStats() domain.GlobalStats {
	count, _ := s.store.PeerCount()
	s.mu.Lock()
	s.trafficUp += int64(count) * 1024
	s.trafficDown += int64(count) * 4096
	up, down := s.trafficUp, s.trafficDown
	s.mu.Unlock()
	return domain.GlobalStats{
		PeersTotal:  count,
		PeersActive: count,
		TrafficUp:   up,
		TrafficDown: down,
		SpeedUp:     int64(count) * 128,
		SpeedDown:   int64(count) * 512,
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	restarting := time.Now().Before(s.restartUntil)
	s.mu.Unlock()
	s.respond(w, http.StatusOK, domain.ServiceStatus{
		RestartRequired: restarting,
		StatsGlobal:     s.globalStats(),
	})
}

func (s *Server) handleGlobalStats(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, s.globalStats())
}
