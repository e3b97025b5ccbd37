// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

package scheduler

import (
	"time"

	"github.com/aytachuseynli/waymark/internal/models"
)

// Backoff returns the delay before retry number attempt (1-based),
// doubling from initial and capped at ceiling.
func Backoff(initial, ceiling time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= ceiling {
			return ceiling
		}
	}
	if delay > ceiling {
		return ceiling
	}
	return delay
}

// ConstraintsMet is the periodic sync gate: network must be reachable and
// the battery must not be critically low. An unknown battery level never
// blocks sync.
func ConstraintsMet(networkAvailable bool, batteryLevel, lowThreshold int) bool {
	if !networkAvailable {
		return false
	}
	if batteryLevel == models.BatteryLevelUnknown {
		return true
	}
	return batteryLevel >= lowThreshold
}
