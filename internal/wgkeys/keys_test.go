package wgkeys

import (
	"encoding/base64"
	"strings"
	"testing"

	"golang.org/x/crypto/curve25519"

	"github.com/vpnhouse/console/internal/domain"
)

func TestGenerateProducesValidPair(t *testing.T) {
	t.Parallel()

	pair, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	priv, err := base64.StdEncoding.DecodeString(pair.Private)
	if err != nil {
		t.Fatalf("private key is not base64: %v", err)
	}
	pub, err := base64.StdEncoding.DecodeString(pair.Public)
	if err != nil {
		t.Fatalf("public key is not base64: %v", err)
	}
	if len(priv) != curve25519.ScalarSize || len(pub) != curve25519.PointSize {
		t.Fatalf("key sizes %d/%d, want 32/32", len(priv), len(pub))
	}

	// Clamping invariants.
	if priv[0]&7 != 0 {
		t.Error("low bits of the scalar not cleared")
	}
	if priv[31]&128 != 0 || priv[31]&64 == 0 {
		t.Error("high bits of the scalar not clamped")
	}

	// The public half must be derived from the private half.
	derived, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if base64.StdEncoding.EncodeToString(derived) != pair.Public {
		t.Error("public key does not match the private scalar")
	}
}

func TestGenerateIsNotDeterministic(t *testing.T) {
	t.Parallel()

	a, _ := Generate()
	b, _ := Generate()
	if a.Private == b.Private {
		t.Fatal("two generated keypairs are identical")
	}
}

func TestRenderConfig(t *testing.T) {
	t.Parallel()

	cfg := RenderConfig("PRIV", "10.123.0.5", domain.WireguardInfo{
		DNS:             []string{"1.1.1.1", "8.8.8.8"},
		ServerPublicKey: "SRVPUB",
		AllowedIPs:      []string{"0.0.0.0/0"},
		ServerIPv4:      "203.0.113.9",
		ServerPort:      "51820",
		Keepalive:       25,
	})

	for _, want := range []string{
		"[Interface]",
		"PrivateKey = PRIV",
		"Address = 10.123.0.5",
		"DNS = 1.1.1.1, 8.8.8.8",
		"[Peer]",
		"PublicKey = SRVPUB",
		"AllowedIPs = 0.0.0.0/0",
		"Endpoint = 203.0.113.9:51820",
		"PersistentKeepalive = 25",
	} {
		if !strings.Contains(cfg, want) {
			t.Errorf("rendered config missing %q:\n%s", want, cfg)
		}
	}
}
