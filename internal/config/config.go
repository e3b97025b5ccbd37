// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

// Package config provides configuration management for Waymark.
//
// Configuration is loaded in layers: built-in defaults, then an optional
// YAML file, then environment variables. See koanf.go for the loader.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Waymark agent.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	State    StateConfig    `koanf:"state"`
	Capture  CaptureConfig  `koanf:"capture"`
	Sync     SyncConfig     `koanf:"sync"`
	Remote   RemoteConfig   `koanf:"remote"`
	Provider ProviderConfig `koanf:"provider"`
	Battery  BatteryConfig  `koanf:"battery"`
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// DatabaseConfig configures the DuckDB sample store.
type DatabaseConfig struct {
	// Path is the DuckDB database file. ":memory:" is accepted for tests.
	Path string `koanf:"path"`
	// MaxMemory caps DuckDB memory usage, e.g. "512MB".
	MaxMemory string `koanf:"max_memory"`
	// Threads is the DuckDB thread count. 0 means runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// StateConfig configures the badger key-value store holding tracking
// preferences, scheduler state, and identity sessions.
type StateConfig struct {
	Path string `koanf:"path"`
	// InMemory runs badger without disk persistence. Tests only.
	InMemory bool `koanf:"in_memory"`
}

// CaptureConfig configures the location capture loop.
type CaptureConfig struct {
	// Interval is the target cadence for location fixes.
	Interval time.Duration `koanf:"interval"`
	// FastestInterval is the minimum spacing between accepted fixes;
	// fixes arriving faster are dropped.
	FastestInterval time.Duration `koanf:"fastest_interval"`
	// MaxWait is the longest the provider may coalesce fixes before
	// delivering them.
	MaxWait time.Duration `koanf:"max_wait"`
}

// SyncConfig configures the sync scheduler and pruning policy.
type SyncConfig struct {
	// Interval is the periodic sync cadence.
	Interval time.Duration `koanf:"interval"`
	// BackoffInitial is the first retry delay after a failed run.
	BackoffInitial time.Duration `koanf:"backoff_initial"`
	// BackoffCeiling bounds the exponential retry delay.
	BackoffCeiling time.Duration `koanf:"backoff_ceiling"`
	// MaxAttempts is how many times one cycle retries before giving up
	// until the next scheduled cycle.
	MaxAttempts int `koanf:"max_attempts"`
	// PruneAfter is the age past which synced samples are deleted
	// following a successful sync.
	PruneAfter time.Duration `koanf:"prune_after"`
	// LowBatteryThreshold is the battery percent below which periodic
	// sync is deferred.
	LowBatteryThreshold int `koanf:"low_battery_threshold"`
}

// RemoteConfig configures the remote document store client.
type RemoteConfig struct {
	URL    string `koanf:"url"`
	APIKey string `koanf:"api_key"`
	// APIKeyEncrypted holds the API key encrypted at rest with the
	// credential encryptor; it takes precedence over APIKey when set.
	APIKeyEncrypted     string        `koanf:"api_key_encrypted"`
	Timeout             time.Duration `koanf:"timeout"`
	LocationsCollection string        `koanf:"locations_collection"`
	UsersCollection     string        `koanf:"users_collection"`
}

// ProviderConfig selects and tunes the location provider.
type ProviderConfig struct {
	// Kind is the provider implementation: "simulated" or "external".
	Kind string `koanf:"kind"`
	// Seed fixes the simulated provider's random walk for reproducibility.
	// 0 means a time-based seed.
	Seed int64 `koanf:"seed"`
	// StartLatitude and StartLongitude anchor the simulated walk.
	StartLatitude  float64 `koanf:"start_latitude"`
	StartLongitude float64 `koanf:"start_longitude"`
}

// BatteryConfig configures the battery monitor.
type BatteryConfig struct {
	// SysfsPath is the power-supply directory on Linux.
	SysfsPath string `koanf:"sysfs_path"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
	// RateLimitReqs requests per RateLimitWindow per client IP.
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// SecurityConfig configures identity sessions.
type SecurityConfig struct {
	// JWTSecret signs session tokens and derives the credential
	// encryption key. Required.
	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`
}

// LoggingConfig configures the logging package.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks configuration invariants that the loader cannot express.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Capture.Interval <= 0 {
		return fmt.Errorf("capture.interval must be positive, got %s", c.Capture.Interval)
	}
	if c.Capture.FastestInterval <= 0 || c.Capture.FastestInterval > c.Capture.Interval {
		return fmt.Errorf("capture.fastest_interval must be in (0, capture.interval], got %s", c.Capture.FastestInterval)
	}
	if c.Capture.MaxWait < c.Capture.Interval {
		return fmt.Errorf("capture.max_wait must be >= capture.interval, got %s", c.Capture.MaxWait)
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("sync.interval must be positive, got %s", c.Sync.Interval)
	}
	if c.Sync.BackoffInitial <= 0 {
		return fmt.Errorf("sync.backoff_initial must be positive, got %s", c.Sync.BackoffInitial)
	}
	if c.Sync.BackoffCeiling < c.Sync.BackoffInitial {
		return fmt.Errorf("sync.backoff_ceiling must be >= sync.backoff_initial")
	}
	if c.Sync.MaxAttempts < 1 {
		return fmt.Errorf("sync.max_attempts must be at least 1, got %d", c.Sync.MaxAttempts)
	}
	if c.Sync.LowBatteryThreshold < 0 || c.Sync.LowBatteryThreshold > 100 {
		return fmt.Errorf("sync.low_battery_threshold must be 0-100, got %d", c.Sync.LowBatteryThreshold)
	}
	if c.Remote.URL == "" {
		return fmt.Errorf("remote.url must not be empty")
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret must not be empty")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("security.jwt_secret must be at least 32 characters, got %d", len(c.Security.JWTSecret))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	switch c.Provider.Kind {
	case "simulated", "external":
	default:
		return fmt.Errorf("provider.kind must be \"simulated\" or \"external\", got %q", c.Provider.Kind)
	}
	return nil
}

// RemoteAPIKey resolves the remote API key, decrypting the at-rest form
// when present.
func (c *Config) RemoteAPIKey() (string, error) {
	if c.Remote.APIKeyEncrypted == "" {
		return c.Remote.APIKey, nil
	}
	enc, err := NewCredentialEncryptor(c.Security.JWTSecret)
	if err != nil {
		return "", fmt.Errorf("credential encryptor: %w", err)
	}
	key, err := enc.Decrypt(c.Remote.APIKeyEncrypted)
	if err != nil {
		return "", fmt.Errorf("decrypt remote api key: %w", err)
	}
	return key, nil
}
