// Package wgkeys generates wireguard keypairs on the client and renders the
// downloadable tunnel configuration. Private keys are created here and stay
// on this side of the API: only the public half is ever sent to the server.
package wgkeys

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/curve25519"

	"github.com/vpnhouse/console/internal/domain"
)

// ConfigFileName is the suggested name for a rendered tunnel config.
const ConfigFileName = "vpnhouse.conf"

// ConfigMIMEType is the content type used when offering the file.
const ConfigMIMEType = "text/plain"

// Pair holds a base64-encoded curve25519 keypair.
type Pair struct {
	Private string
	Public  string
}

// Generate creates a fresh wireguard keypair. The private scalar is clamped
// per the curve25519 convention before the public key is derived.
func Generate() (Pair, error) {
	priv := make([]byte, curve25519.ScalarSize)
	if _, err := rand.Read(priv); err != nil {
		return Pair{}, fmt.Errorf("wgkeys: read random: %w", err)
	}
	priv[0] &= 248
	priv[31] &= 127
	priv[31] |= 64

	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return Pair{}, fmt.Errorf("wgkeys: derive public key: %w", err)
	}
	return Pair{
		Private: base64.StdEncoding.EncodeToString(priv),
		Public:  base64.StdEncoding.EncodeToString(pub),
	}, nil
}

// RenderConfig combines the client-held private key and address with the
// server-provided connection material into a wg-quick configuration.
func RenderConfig(privateKey, ipv4 string, info domain.WireguardInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[Interface]\n")
	fmt.Fprintf(&b, "PrivateKey = %s\n", privateKey)
	fmt.Fprintf(&b, "Address = %s\n", ipv4)
	fmt.Fprintf(&b, "DNS = %s\n", strings.Join(info.DNS, ", "))
	fmt.Fprintf(&b, "\n[Peer]\n")
	fmt.Fprintf(&b, "PublicKey = %s\n", info.ServerPublicKey)
	fmt.Fprintf(&b, "AllowedIPs = %s\n", strings.Join(info.AllowedIPs, ", "))
	fmt.Fprintf(&b, "Endpoint = %s:%s\n", info.ServerIPv4, info.ServerPort)
	fmt.Fprintf(&b, "PersistentKeepalive = %d\n", info.Keepalive)
	return b.String()
}
