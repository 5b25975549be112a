package devserver

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Options tunes the simulator.
type Options struct {
	// TokenTTL is the lifetime of issued access tokens.
	TokenTTL time.Duration
	// RestartDelay is how long the simulated service reports
	// restart_required after a settings change that needs one.
	RestartDelay time.Duration
	// AdminPassword pre-configures the appliance, skipping initial setup.
	AdminPassword string
}

const defaultTokenTTL = 2 * time.Minute
const defaultRestartDelay = 2 * time.Second

// Server simulates one appliance. Handler returns its REST surface.
type Server struct {
	store  *Store
	log    *slog.Logger
	secret []byte
	ttl    time.Duration
	delay  time.Duration
	mux    *http.ServeMux

	mu           sync.Mutex
	restartUntil time.Time
	trafficUp    int64
	trafficDown  int64
}

// New creates a simulator over the given store.
func New(store *Store, logger *slog.Logger, opts Options) (*Server, error) {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = defaultTokenTTL
	}
	if opts.RestartDelay <= 0 {
		opts.RestartDelay = defaultRestartDelay
	}
	secret := make([]byte, 32)
	copy(secret, []byte("vpnhouse-devserver-signing-key"))

	s := &Server{
		store:  store,
		log:    logger,
		secret: secret,
		ttl:    opts.TokenTTL,
		delay:  opts.RestartDelay,
		mux:    http.NewServeMux(),
	}
	if opts.AdminPassword != "" {
		if err := s.configure(opts.AdminPassword, "10.123.0.0/24", true, nil); err != nil {
			return nil, err
		}
	}
	s.routes()
	return s, nil
}

// Handler returns the simulator's HTTP surface.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/tunnel/admin/auth", s.handleLogin)
	s.mux.HandleFunc("GET /api/tunnel/admin/auth", s.handleRefresh)
	s.mux.HandleFunc("POST /api/tunnel/admin/initial-setup", s.handleInitialSetup)

	s.mux.HandleFunc("GET /api/tunnel/admin/peers", s.authed(s.handleListPeers))
	s.mux.HandleFunc("POST /api/tunnel/admin/peers", s.authed(s.handleCreatePeer))
	s.mux.HandleFunc("PUT /api/tunnel/admin/peers/{id}", s.authed(s.handleUpdatePeer))
	s.mux.HandleFunc("DELETE /api/tunnel/admin/peers/{id}", s.authed(s.handleDeletePeer))
	s.mux.HandleFunc("GET /api/tunnel/admin/peers/wireguard-config", s.authed(s.handleWireguardConfig))
	s.mux.HandleFunc("GET /api/tunnel/admin/ipv4", s.authed(s.handleAllocateIPv4))

	s.mux.HandleFunc("GET /api/tunnel/admin/trusted", s.authed(s.handleListTrusted))
	s.mux.HandleFunc("POST /api/tunnel/admin/trusted/{id}", s.authed(s.handleAddTrusted))
	s.mux.HandleFunc("PUT /api/tunnel/admin/trusted/{id}", s.authed(s.handleUpdateTrusted))
	s.mux.HandleFunc("DELETE /api/tunnel/admin/trusted/{id}", s.authed(s.handleDeleteTrusted))

	s.mux.HandleFunc("GET /api/tunnel/admin/settings", s.authed(s.handleGetSettings))
	s.mux.HandleFunc("PATCH /api/tunnel/admin/settings", s.authed(s.handlePatchSettings))
	s.mux.HandleFunc("GET /api/tunnel/admin/status", s.authed(s.handleStatus))
	s.mux.HandleFunc("GET /api/tunnel/admin/global-stats", s.authed(s.handleGlobalStats))
}

// ─── auth plumbing ──────────────────────────────────────────────────────────

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func (s *Server) configured() bool {
	_, ok, err := s.store.GetValue("admin_password")
	return err == nil && ok
}

func (s *Server) checkPassword(password string) bool {
	stored, ok, err := s.store.GetValue("admin_password")
	if err != nil || !ok {
		return false
	}
	given := hashPassword(password)
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

func (s *Server) issueToken(now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) validBearer(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return false
	}
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{},
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return err == nil && parsed.Valid
}

func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.validBearer(r) {
			s.reject(w, http.StatusUnauthorized, "authentication required", "", "")
			return
		}
		next(w, r)
	}
}

func basicPassword(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	cred, ok := strings.CutPrefix(header, "Basic ")
	if !ok {
		return "", false
	}
	raw, err := base64.StdEncoding.DecodeString(cred)
	if err != nil {
		return "", false
	}
	// Single-admin model: empty user, password after the colon.
	_, password, ok := strings.Cut(string(raw), ":")
	return password, ok
}

// ─── response helpers ───────────────────────────────────────────────────────

func (s *Server) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			s.log.Warn("devserver: encode response", "err", err)
		}
	}
}

type rejection struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

func (s *Server) reject(w http.ResponseWriter, status int, message, field, details string) {
	s.respond(w, status, rejection{Error: message, Field: field, Details: details})
}
