// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// validConfig returns a Default() adjusted to pass Validate().
func validConfig() *Config {
	cfg := Default()
	cfg.Remote.URL = "https://remote.example.com"
	cfg.Security.JWTSecret = "0123456789abcdef0123456789abcdef"
	return cfg
}

func TestDefaultValues(t *testing.T) {
	cfg := Default()

	if cfg.Capture.Interval != 5*time.Minute {
		t.Errorf("capture interval: expected 5m, got %s", cfg.Capture.Interval)
	}
	if cfg.Capture.FastestInterval != 2*time.Minute {
		t.Errorf("fastest interval: expected 2m, got %s", cfg.Capture.FastestInterval)
	}
	if cfg.Capture.MaxWait != 10*time.Minute {
		t.Errorf("max wait: expected 10m, got %s", cfg.Capture.MaxWait)
	}
	if cfg.Sync.Interval != 15*time.Minute {
		t.Errorf("sync interval: expected 15m, got %s", cfg.Sync.Interval)
	}
	if cfg.Sync.BackoffInitial != time.Minute {
		t.Errorf("backoff initial: expected 1m, got %s", cfg.Sync.BackoffInitial)
	}
	if cfg.Sync.MaxAttempts != 3 {
		t.Errorf("max attempts: expected 3, got %d", cfg.Sync.MaxAttempts)
	}
	if cfg.Sync.PruneAfter != 7*24*time.Hour {
		t.Errorf("prune after: expected 168h, got %s", cfg.Sync.PruneAfter)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"empty db path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"zero capture interval", func(c *Config) { c.Capture.Interval = 0 }, "capture.interval"},
		{"fastest above interval", func(c *Config) { c.Capture.FastestInterval = 6 * time.Minute }, "fastest_interval"},
		{"max wait below interval", func(c *Config) { c.Capture.MaxWait = time.Minute }, "max_wait"},
		{"zero sync interval", func(c *Config) { c.Sync.Interval = 0 }, "sync.interval"},
		{"ceiling below initial", func(c *Config) { c.Sync.BackoffCeiling = time.Second }, "backoff_ceiling"},
		{"zero attempts", func(c *Config) { c.Sync.MaxAttempts = 0 }, "max_attempts"},
		{"battery threshold high", func(c *Config) { c.Sync.LowBatteryThreshold = 101 }, "low_battery_threshold"},
		{"missing remote url", func(c *Config) { c.Remote.URL = "" }, "remote.url"},
		{"missing jwt secret", func(c *Config) { c.Security.JWTSecret = "" }, "jwt_secret"},
		{"short jwt secret", func(c *Config) { c.Security.JWTSecret = "short" }, "32 characters"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"bad provider", func(c *Config) { c.Provider.Kind = "gps" }, "provider.kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"WAYMARK_CAPTURE_FASTEST_INTERVAL", "capture.fastest_interval"},
		{"WAYMARK_SYNC_LOW_BATTERY_THRESHOLD", "sync.low_battery_threshold"},
		{"WAYMARK_REMOTE_URL", "remote.url"},
		{"WAYMARK_SECURITY_JWT_SECRET", "security.jwt_secret"},
	}
	for _, tt := range tests {
		if got := envTransform(tt.in); got != tt.want {
			t.Errorf("envTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	yaml := `
database:
  path: ` + filepath.Join(dir, "wm.duckdb") + `
remote:
  url: https://file.example.com
security:
  jwt_secret: 0123456789abcdef0123456789abcdef
sync:
  interval: 20m
`
	if err := os.WriteFile(configPath, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, configPath)
	t.Setenv("WAYMARK_REMOTE_URL", "https://env.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// ENV overrides file.
	if cfg.Remote.URL != "https://env.example.com" {
		t.Errorf("remote url: expected env value, got %q", cfg.Remote.URL)
	}
	// File overrides defaults.
	if cfg.Sync.Interval != 20*time.Minute {
		t.Errorf("sync interval: expected 20m from file, got %s", cfg.Sync.Interval)
	}
	// Defaults survive where unset.
	if cfg.Capture.Interval != 5*time.Minute {
		t.Errorf("capture interval: expected default 5m, got %s", cfg.Capture.Interval)
	}
}

func TestCredentialEncryptorRoundTrip(t *testing.T) {
	enc, err := NewCredentialEncryptor("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("NewCredentialEncryptor: %v", err)
	}

	ciphertext, err := enc.Encrypt("remote-api-key")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if ciphertext == "remote-api-key" {
		t.Fatal("ciphertext equals plaintext")
	}

	plaintext, err := enc.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if plaintext != "remote-api-key" {
		t.Errorf("round trip: expected %q, got %q", "remote-api-key", plaintext)
	}

	// Two encryptions of the same plaintext differ (random nonce).
	other, err := enc.Encrypt("remote-api-key")
	if err != nil {
		t.Fatal(err)
	}
	if other == ciphertext {
		t.Error("nonce reuse: two encryptions produced identical ciphertext")
	}
}

func TestCredentialEncryptorErrors(t *testing.T) {
	if _, err := NewCredentialEncryptor(""); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("expected ErrEmptySecret, got %v", err)
	}

	enc, err := NewCredentialEncryptor("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := enc.Encrypt(""); !errors.Is(err, ErrEmptyPlaintext) {
		t.Errorf("expected ErrEmptyPlaintext, got %v", err)
	}
	if _, err := enc.Decrypt(""); !errors.Is(err, ErrEmptyCiphertext) {
		t.Errorf("expected ErrEmptyCiphertext, got %v", err)
	}
	if _, err := enc.Decrypt("AAAA"); !errors.Is(err, ErrCiphertextTooShort) {
		t.Errorf("expected ErrCiphertextTooShort, got %v", err)
	}
	if _, err := enc.Decrypt("not-base64!!!"); !errors.Is(err, ErrInvalidCiphertext) {
		t.Errorf("expected ErrInvalidCiphertext, got %v", err)
	}

	// Tampered ciphertext fails authentication.
	ciphertext, err := enc.Encrypt("secret")
	if err != nil {
		t.Fatal(err)
	}
	raw := []byte(ciphertext)
	if raw[len(raw)-5] == 'A' {
		raw[len(raw)-5] = 'B'
	} else {
		raw[len(raw)-5] = 'A'
	}
	if _, err := enc.Decrypt(string(raw)); err == nil {
		t.Error("tampered ciphertext decrypted without error")
	}

	// A different secret cannot decrypt.
	other, err := NewCredentialEncryptor("fedcba9876543210fedcba9876543210")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Decrypt(ciphertext); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestRemoteAPIKeyDecryption(t *testing.T) {
	cfg := validConfig()
	cfg.Remote.APIKey = "plain-key"

	key, err := cfg.RemoteAPIKey()
	if err != nil {
		t.Fatal(err)
	}
	if key != "plain-key" {
		t.Errorf("expected plain key, got %q", key)
	}

	enc, err := NewCredentialEncryptor(cfg.Security.JWTSecret)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Remote.APIKeyEncrypted, err = enc.Encrypt("encrypted-key")
	if err != nil {
		t.Fatal(err)
	}

	key, err = cfg.RemoteAPIKey()
	if err != nil {
		t.Fatal(err)
	}
	if key != "encrypted-key" {
		t.Errorf("encrypted form should win: expected %q, got %q", "encrypted-key", key)
	}
}
