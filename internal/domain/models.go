// Package domain defines the models shared by the console stores and the
// admin API client, plus the error contract of the appliance endpoints.
package domain

import "time"

// Peer is the flattened client-side view of a wireguard peer. The wire
// format nests the public key and connection identifiers; the API client
// folds them into this shape so stores and views deal with one struct.
//
// PrivateKey is generated on the client and never sent to the server, which
// is why it carries no JSON tag that could leak it into a payload.
type Peer struct {
	ID             int64      `json:"id"`
	Label          string     `json:"label,omitempty"`
	PublicKey      string     `json:"public_key,omitempty"`
	PrivateKey     string     `json:"-"`
	IPv4           string     `json:"ipv4,omitempty"`
	Expires        *time.Time `json:"expires,omitempty"`
	UserID         string     `json:"user_id,omitempty"`
	InstallationID string     `json:"installation_id,omitempty"`
	SessionID      string     `json:"session_id,omitempty"`
	Created        *time.Time `json:"created,omitempty"`
	Updated        *time.Time `json:"updated,omitempty"`
}

// Persisted reports whether the server has acknowledged this peer.
func (p Peer) Persisted() bool {
	return p.Created != nil
}

// TrustedKey is a federation key trusted by the appliance. The id is a UUID
// chosen by either side; the key payload travels as raw text, not JSON.
type TrustedKey struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// DomainConfig describes the optional domain / SSL frontend configuration.
type DomainConfig struct {
	Mode       string `json:"mode" yaml:"mode"`
	DomainName string `json:"domain_name" yaml:"domain_name"`
	IssueSSL   bool   `json:"issue_ssl,omitempty" yaml:"issue_ssl,omitempty"`
	Schema     string `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// Settings mirrors the appliance settings document served by GET /settings
// and accepted (partially) by PATCH /settings.
type Settings struct {
	ConnectionTimeout   int           `json:"connection_timeout"`
	DNS                 []string      `json:"dns"`
	PingInterval        int           `json:"ping_interval"`
	WireguardKeepalive  int           `json:"wireguard_keepalive"`
	WireguardListenPort int           `json:"wireguard_listen_port"`
	WireguardPublicKey  string        `json:"wireguard_public_key"`
	WireguardServerIPv4 string        `json:"wireguard_server_ipv4"`
	WireguardServerPort int           `json:"wireguard_server_port"`
	WireguardSubnet     string        `json:"wireguard_subnet"`
	SendStats           bool          `json:"send_stats"`
	AdminPassword       string        `json:"admin_password,omitempty"`
	Domain              *DomainConfig `json:"domain,omitempty"`
}

// GlobalStats is the per-service traffic summary shown in the sidebar.
type GlobalStats struct {
	PeersTotal  int   `json:"peers_total"`
	PeersActive int   `json:"peers_active"`
	TrafficUp   int64 `json:"traffic_up"`
	TrafficDown int64 `json:"traffic_down"`
	SpeedUp     int64 `json:"speed_up"`
	SpeedDown   int64 `json:"speed_down"`
}

// ServiceStatus is the polled GET /status document.
type ServiceStatus struct {
	RestartRequired bool        `json:"restart_required"`
	StatsGlobal     GlobalStats `json:"stats_global"`
}

// WireguardInfo is the client-config material returned by the
// wireguard-config endpoint. Combined with the locally held private key it
// renders a downloadable tunnel configuration.
type WireguardInfo struct {
	DNS             []string `json:"dns"`
	ServerPublicKey string   `json:"server_public_key"`
	AllowedIPs      []string `json:"allowed_ips"`
	ServerIPv4      string   `json:"server_ipv4"`
	ServerPort      string   `json:"server_port"`
	Keepalive       int      `json:"keepalive"`
}

// InitialSetup is the one-time bootstrap payload.
type InitialSetup struct {
	AdminPassword string        `json:"admin_password"`
	ServerIPMask  string        `json:"server_ip_mask"`
	SendStats     bool          `json:"send_stats"`
	Domain        *DomainConfig `json:"domain,omitempty"`
}
