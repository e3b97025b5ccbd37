// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/waymark/config.yaml",
	"/etc/waymark/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "WAYMARK_CONFIG"

// envPrefix namespaces Waymark environment variables.
const envPrefix = "WAYMARK_"

// Default returns a Config with all built-in defaults. These are applied
// first, then overridden by config file and environment variables.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:      "/data/waymark.duckdb",
			MaxMemory: "512MB",
			Threads:   0, // 0 = runtime.NumCPU()
		},
		State: StateConfig{
			Path:     "/data/state",
			InMemory: false,
		},
		Capture: CaptureConfig{
			Interval:        5 * time.Minute,
			FastestInterval: 2 * time.Minute,
			MaxWait:         10 * time.Minute,
		},
		Sync: SyncConfig{
			Interval:            15 * time.Minute,
			BackoffInitial:      time.Minute,
			BackoffCeiling:      time.Hour,
			MaxAttempts:         3,
			PruneAfter:          7 * 24 * time.Hour,
			LowBatteryThreshold: 15,
		},
		Remote: RemoteConfig{
			URL:                 "",
			APIKey:              "",
			Timeout:             30 * time.Second,
			LocationsCollection: "locations",
			UsersCollection:     "users",
		},
		Provider: ProviderConfig{
			Kind:           "simulated",
			Seed:           0,
			StartLatitude:  40.4093,
			StartLongitude: 49.8671,
		},
		Battery: BatteryConfig{
			SysfsPath: "/sys/class/power_supply",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8457,
			Timeout:         30 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Security: SecurityConfig{
			JWTSecret:      "",
			SessionTimeout: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration from layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file (if one exists)
//  3. Environment variables: override any setting
//
// Precedence is ENV > file > defaults. Environment variable names map to
// koanf paths by stripping the WAYMARK_ prefix and splitting the section
// off the first underscore: WAYMARK_CAPTURE_FASTEST_INTERVAL becomes
// capture.fastest_interval.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// envTransform maps an environment variable name to a koanf path.
// All config sections are single words, so the first underscore after the
// prefix separates section from key.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
		return ""
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
