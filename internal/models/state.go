// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

package models

// SchedulerState is the sync scheduler's persisted position. It survives
// restarts so a pending retry window is honored instead of reset.
type SchedulerState struct {
	// NextRunAt is the next eligible run time in epoch milliseconds.
	// Zero means run at the next tick.
	NextRunAt int64 `json:"next_run_at"`
	// Attempt counts failed runs inside the current cycle.
	Attempt int `json:"attempt"`
}
