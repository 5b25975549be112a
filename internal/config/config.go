// Package config loads the console configuration: defaults, then an
// optional YAML file, then environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// ServerURL is the appliance base URL, e.g. https://vpn.example.com.
	ServerURL string `yaml:"server_url"`
	// LogLevel is one of debug|info|warn|error.
	LogLevel string `yaml:"log_level"`
	// RequestTimeout bounds every admin API call.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// TokenPath is the keyring file holding the access token.
	TokenPath string `yaml:"token_path"`
}

const defaultRequestTimeout = 30 * time.Second
const defaultLogLevel = "info"

func configDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "vhadmin")
}

// DefaultPath is where Load looks when no --config flag is given.
func DefaultPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultTokenPath is the keyring location used unless overridden.
func DefaultTokenPath() string {
	return filepath.Join(configDir(), "token")
}

// Load builds the effective configuration. A missing file at the default
// path is fine; a missing file at an explicit path is an error.
func Load(path string, explicit bool) (Config, error) {
	cfg := Config{
		LogLevel:       defaultLogLevel,
		RequestTimeout: defaultRequestTimeout,
		TokenPath:      DefaultTokenPath(),
	}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// defaults only
	default:
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if v := strings.TrimSpace(os.Getenv("VHADMIN_SERVER_URL")); v != "" {
		cfg.ServerURL = v
	}
	if v := strings.TrimSpace(os.Getenv("VHADMIN_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("VHADMIN_TOKEN_PATH")); v != "" {
		cfg.TokenPath = v
	}

	cfg.ServerURL = strings.TrimSuffix(strings.TrimSpace(cfg.ServerURL), "/")
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	return cfg, nil
}

// Validate checks the fields every network command needs.
func (c Config) Validate() error {
	if c.ServerURL == "" {
		return errors.New("config: server_url is required (flag --server, env VHADMIN_SERVER_URL, or config file)")
	}
	if !strings.HasPrefix(c.ServerURL, "http://") && !strings.HasPrefix(c.ServerURL, "https://") {
		return fmt.Errorf("config: server_url must start with http:// or https://, got %q", c.ServerURL)
	}
	return nil
}
