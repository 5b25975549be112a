package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// Env overrides are process-global, so none of these tests run in parallel.

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("VHADMIN_SERVER_URL", "")
	t.Setenv("VHADMIN_LOG_LEVEL", "")
	t.Setenv("VHADMIN_TOKEN_PATH", "")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "info" || cfg.RequestTimeout != 30*time.Second {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.TokenPath == "" {
		t.Fatal("token path must default to the config dir")
	}
	if cfg.ServerURL != "" {
		t.Fatalf("server url must stay empty by default, got %q", cfg.ServerURL)
	}
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), true)
	if err == nil {
		t.Fatal("explicit missing file must be an error")
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := "server_url: https://vpn.example.com/\nlog_level: debug\nrequest_timeout: 5s\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerURL != "https://vpn.example.com" {
		t.Fatalf("trailing slash not trimmed: %q", cfg.ServerURL)
	}
	if cfg.LogLevel != "debug" || cfg.RequestTimeout != 5*time.Second {
		t.Fatalf("file values not applied: %+v", cfg)
	}

	// Environment wins over the file.
	t.Setenv("VHADMIN_SERVER_URL", "http://10.0.0.1:8080")
	t.Setenv("VHADMIN_LOG_LEVEL", "warn")
	cfg, err = Load(path, true)
	if err != nil {
		t.Fatalf("Load with env: %v", err)
	}
	if cfg.ServerURL != "http://10.0.0.1:8080" || cfg.LogLevel != "warn" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server_url: [broken"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path, true); err == nil || !strings.Contains(err.Error(), "parse") {
		t.Fatalf("err = %v, want parse error", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		url  string
		ok   bool
	}{
		{"https", "https://vpn.example.com", true},
		{"http", "http://127.0.0.1:8082", true},
		{"empty", "", false},
		{"no scheme", "vpn.example.com", false},
		{"wrong scheme", "ftp://vpn.example.com", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Config{ServerURL: tc.url}.Validate()
			if tc.ok && err != nil {
				t.Fatalf("Validate(%q): %v", tc.url, err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("Validate(%q) accepted", tc.url)
			}
		})
	}
}
