// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

// Package battery reports the device battery level so captured samples
// can carry it and the scheduler can defer sync on a low battery.
package battery

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aytachuseynli/waymark/internal/logging"
	"github.com/aytachuseynli/waymark/internal/models"
)

// DefaultSysfsPath is the standard Linux power-supply class directory.
const DefaultSysfsPath = "/sys/class/power_supply"

// Monitor reports the current battery charge.
type Monitor interface {
	// LevelPercent returns 0-100, or models.BatteryLevelUnknown when the
	// level cannot be determined.
	LevelPercent() int
}

// SysfsMonitor reads the battery level from the Linux sysfs power-supply
// class. It rediscovers the battery directory on every read; supplies can
// appear and disappear at runtime.
type SysfsMonitor struct {
	path string
}

// NewSysfsMonitor creates a monitor rooted at path, or DefaultSysfsPath
// when path is empty.
func NewSysfsMonitor(path string) *SysfsMonitor {
	if path == "" {
		path = DefaultSysfsPath
	}
	return &SysfsMonitor{path: path}
}

// LevelPercent scans the power-supply directory for a battery-type supply
// and returns its capacity.
func (m *SysfsMonitor) LevelPercent() int {
	entries, err := os.ReadDir(m.path)
	if err != nil {
		logging.Debug().Err(err).Str("path", m.path).Msg("Cannot read power-supply directory")
		return models.BatteryLevelUnknown
	}

	for _, entry := range entries {
		supply := filepath.Join(m.path, entry.Name())

		kind, err := os.ReadFile(filepath.Join(supply, "type"))
		if err != nil || !strings.EqualFold(strings.TrimSpace(string(kind)), "Battery") {
			continue
		}

		raw, err := os.ReadFile(filepath.Join(supply, "capacity"))
		if err != nil {
			continue
		}
		level, err := strconv.Atoi(strings.TrimSpace(string(raw)))
		if err != nil || level < 0 || level > 100 {
			continue
		}
		return level
	}

	return models.BatteryLevelUnknown
}

// StaticMonitor always reports a fixed level. Used in tests and on hosts
// without a sysfs battery.
type StaticMonitor struct {
	Level int
}

// NewStaticMonitor creates a monitor pinned to level.
func NewStaticMonitor(level int) *StaticMonitor {
	return &StaticMonitor{Level: level}
}

// LevelPercent returns the fixed level.
func (m *StaticMonitor) LevelPercent() int {
	return m.Level
}
