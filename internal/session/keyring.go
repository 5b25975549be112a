package session

import (
	"os"
	"path/filepath"
	"strings"
)

// Keyring persists the access token, the console's only piece of durable
// client state. Every write goes through the session manager; nothing else
// touches the file.
type Keyring struct {
	path string
}

func NewKeyring(path string) *Keyring {
	return &Keyring{path: path}
}

// Load returns the stored token, or empty when none exists.
func (k *Keyring) Load() string {
	raw, err := os.ReadFile(k.path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

// Store writes the token with owner-only permissions.
func (k *Keyring) Store(token string) error {
	if err := os.MkdirAll(filepath.Dir(k.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(k.path, []byte(token+"\n"), 0o600)
}

// Clear removes the stored token. A missing file is not an error.
func (k *Keyring) Clear() error {
	err := os.Remove(k.path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
