// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

package models

// OutcomeKind classifies the result of a single sync engine run.
type OutcomeKind string

const (
	// OutcomeNoWork means there were zero unsynced samples.
	OutcomeNoWork OutcomeKind = "no_work"

	// OutcomeSuccess means the remote batch committed and local rows were
	// marked synced.
	OutcomeSuccess OutcomeKind = "success"

	// OutcomeFailure means the remote commit failed; no local state changed.
	OutcomeFailure OutcomeKind = "failure"
)

// SyncOutcome is the transient result of one sync engine run. It is never
// persisted; the scheduler consumes it and observers see it on the event bus.
type SyncOutcome struct {
	Kind OutcomeKind `json:"kind"`
	// Count is the number of samples committed remotely and marked synced.
	// Zero unless Kind is OutcomeSuccess.
	Count int `json:"count"`
	// Reason is a human-readable failure description. Empty unless Kind is
	// OutcomeFailure.
	Reason string `json:"reason,omitempty"`
}

// NoWork returns the outcome for an empty unsynced set.
func NoWork() SyncOutcome {
	return SyncOutcome{Kind: OutcomeNoWork}
}

// Success returns the outcome for a committed batch of count samples.
func Success(count int) SyncOutcome {
	return SyncOutcome{Kind: OutcomeSuccess, Count: count}
}

// Failure returns the outcome for a failed remote commit.
func Failure(reason string) SyncOutcome {
	return SyncOutcome{Kind: OutcomeFailure, Reason: reason}
}

// OK reports whether the run left no work behind (success or nothing to do).
func (o SyncOutcome) OK() bool {
	return o.Kind != OutcomeFailure
}
