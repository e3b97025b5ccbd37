// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

package battery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aytachuseynli/waymark/internal/models"
)

func writeSupply(t *testing.T, root, name, kind, capacity string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "type"), []byte(kind+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if capacity != "" {
		if err := os.WriteFile(filepath.Join(dir, "capacity"), []byte(capacity+"\n"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSysfsMonitorReadsBatteryCapacity(t *testing.T) {
	root := t.TempDir()
	writeSupply(t, root, "AC", "Mains", "")
	writeSupply(t, root, "BAT0", "Battery", "73")

	m := NewSysfsMonitor(root)
	if got := m.LevelPercent(); got != 73 {
		t.Errorf("got %d, want 73", got)
	}
}

func TestSysfsMonitorUnknownCases(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, root string)
	}{
		{"missing directory", func(t *testing.T, root string) {
			if err := os.RemoveAll(root); err != nil {
				t.Fatal(err)
			}
		}},
		{"no battery supply", func(t *testing.T, root string) {
			writeSupply(t, root, "AC", "Mains", "")
		}},
		{"garbage capacity", func(t *testing.T, root string) {
			writeSupply(t, root, "BAT0", "Battery", "not-a-number")
		}},
		{"out of range capacity", func(t *testing.T, root string) {
			writeSupply(t, root, "BAT0", "Battery", "250")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			tt.setup(t, root)
			m := NewSysfsMonitor(root)
			if got := m.LevelPercent(); got != models.BatteryLevelUnknown {
				t.Errorf("got %d, want unknown sentinel", got)
			}
		})
	}
}

func TestStaticMonitor(t *testing.T) {
	if got := NewStaticMonitor(42).LevelPercent(); got != 42 {
		t.Errorf("got %d, want 42", got)
	}
}
