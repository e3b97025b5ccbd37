// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/aytachuseynli/waymark/internal/scheduler"
)

// SyncStatus is the payload of the sync status endpoint.
type SyncStatus struct {
	Scheduled       bool   `json:"scheduled"`
	UnsyncedSamples int64  `json:"unsynced_samples"`
	NextRunAt       string `json:"next_run_at,omitempty"`
	Attempt         int    `json:"attempt"`
}

// SyncStatusHandler reports the sync backlog and the persisted
// schedule.
func (h *Handler) SyncStatusHandler(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	unsynced, err := h.store.UnsyncedCount(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	status := SyncStatus{
		Scheduled:       h.sync.IsScheduled(),
		UnsyncedSamples: unsynced,
	}

	if h.state != nil {
		st, err := h.state.SchedulerState()
		if err == nil && st.NextRunAt > 0 {
			status.NextRunAt = time.UnixMilli(st.NextRunAt).UTC().Format(time.RFC3339)
			status.Attempt = st.Attempt
		}
	}

	rw.Success(status)
}

// SyncRun triggers an immediate sync run and returns its outcome. A run
// already in flight yields 409; no network yields 503.
func (h *Handler) SyncRun(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	outcome, err := h.sync.TriggerNow(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, scheduler.ErrSyncInProgress):
			rw.Conflict("A sync run is already in progress")
		case errors.Is(err, scheduler.ErrNetworkUnavailable):
			rw.ServiceUnavailable("Network unavailable")
		default:
			rw.InternalError("Sync trigger failed")
		}
		return
	}

	rw.Success(outcome)
}
