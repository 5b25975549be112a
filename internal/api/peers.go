package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vpnhouse/console/internal/domain"
)

// Wire shapes for the peers endpoints. The server nests the wireguard info
// and the connection identifiers; see [domain.Peer] for the flattened form
// the rest of the console works with.
type wireWireguardInfo struct {
	PublicKey string `json:"public_key"`
}

type wireIdentifiers struct {
	UserID         string `json:"user_id,omitempty"`
	InstallationID string `json:"installation_id,omitempty"`
	SessionID      string `json:"session_id,omitempty"`
}

type wirePeer struct {
	Type          string             `json:"type"`
	InfoWireguard wireWireguardInfo  `json:"info_wireguard"`
	Identifiers   *wireIdentifiers   `json:"identifiers,omitempty"`
	Label         string             `json:"label,omitempty"`
	IPv4          string             `json:"ipv4,omitempty"`
	Expires       *time.Time         `json:"expires,omitempty"`
	Created       *time.Time         `json:"created,omitempty"`
	Updated       *time.Time         `json:"updated,omitempty"`
}

type wirePeerRecord struct {
	ID   int64    `json:"id"`
	Peer wirePeer `json:"peer"`
}

func (r wirePeerRecord) flatten() domain.Peer {
	p := domain.Peer{
		ID:        r.ID,
		Label:     r.Peer.Label,
		PublicKey: r.Peer.InfoWireguard.PublicKey,
		IPv4:      r.Peer.IPv4,
		Expires:   r.Peer.Expires,
		Created:   r.Peer.Created,
		Updated:   r.Peer.Updated,
	}
	if ids := r.Peer.Identifiers; ids != nil {
		p.UserID = ids.UserID
		p.InstallationID = ids.InstallationID
		p.SessionID = ids.SessionID
	}
	return p
}

// ListPeers fetches every registered peer.
func (c *Client) ListPeers(ctx context.Context) ([]domain.Peer, error) {
	var records []wirePeerRecord
	if err := c.do(ctx, http.MethodGet, pathPeers, nil, &records, callOpts{}); err != nil {
		return nil, err
	}
	peers := make([]domain.Peer, 0, len(records))
	for _, r := range records {
		peers = append(peers, r.flatten())
	}
	return peers, nil
}

// AllocateIPv4 asks the server for a free address from the configured range,
// used to seed a new peer draft.
func (c *Client) AllocateIPv4(ctx context.Context) (string, error) {
	var out struct {
		IPAddress string `json:"ip_address"`
	}
	if err := c.do(ctx, http.MethodGet, pathIPv4, nil, &out, callOpts{}); err != nil {
		return "", err
	}
	return out.IPAddress, nil
}

// CreatePeer registers a draft. Only the public half of the keypair goes
// over the wire; the caller re-attaches the private key to the returned
// record because the server never sees it, let alone echoes it.
func (c *Client) CreatePeer(ctx context.Context, peer domain.Peer) (domain.Peer, error) {
	body, err := json.Marshal(wirePeer{
		Type:          "wireguard",
		InfoWireguard: wireWireguardInfo{PublicKey: peer.PublicKey},
		Label:         peer.Label,
		IPv4:          peer.IPv4,
		Expires:       peer.Expires,
	})
	if err != nil {
		return domain.Peer{}, fmt.Errorf("api: marshal peer: %w", err)
	}
	var record wirePeerRecord
	if err := c.do(ctx, http.MethodPost, pathPeers, body, &record, callOpts{}); err != nil {
		return domain.Peer{}, err
	}
	return record.flatten(), nil
}

// UpdatePeer PUTs the changed fields. The private key is absent from the
// wire shape entirely so it cannot leak on update either.
func (c *Client) UpdatePeer(ctx context.Context, peer domain.Peer) (domain.Peer, error) {
	body, err := json.Marshal(wirePeer{
		Type:          "wireguard",
		InfoWireguard: wireWireguardInfo{PublicKey: peer.PublicKey},
		Identifiers: &wireIdentifiers{
			UserID:         peer.UserID,
			InstallationID: peer.InstallationID,
			SessionID:      peer.SessionID,
		},
		Label:   peer.Label,
		IPv4:    peer.IPv4,
		Expires: peer.Expires,
	})
	if err != nil {
		return domain.Peer{}, fmt.Errorf("api: marshal peer: %w", err)
	}
	var updated wirePeer
	path := fmt.Sprintf("%s/%d", pathPeers, peer.ID)
	if err := c.do(ctx, http.MethodPut, path, body, &updated, callOpts{}); err != nil {
		return domain.Peer{}, err
	}
	return wirePeerRecord{ID: peer.ID, Peer: updated}.flatten(), nil
}

// DeletePeer removes a persisted peer.
func (c *Client) DeletePeer(ctx context.Context, id int64) error {
	path := fmt.Sprintf("%s/%d", pathPeers, id)
	return c.do(ctx, http.MethodDelete, path, nil, nil, callOpts{})
}

// WireguardInfo fetches the client-config material (DNS, allowed IPs,
// server endpoint) used to render a downloadable tunnel configuration.
func (c *Client) WireguardInfo(ctx context.Context) (domain.WireguardInfo, error) {
	var out domain.WireguardInfo
	if err := c.do(ctx, http.MethodGet, pathWireguardConfig, nil, &out, callOpts{}); err != nil {
		return domain.WireguardInfo{}, err
	}
	return out, nil
}
