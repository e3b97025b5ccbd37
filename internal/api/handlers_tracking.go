// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

package api

import (
	"errors"
	"net/http"

	"github.com/aytachuseynli/waymark/internal/models"
	"github.com/aytachuseynli/waymark/internal/tracking"
)

// TrackingStatus is the payload of the tracking status endpoint.
type TrackingStatus struct {
	Running    bool                   `json:"running"`
	UserID     string                 `json:"user_id,omitempty"`
	LastSample *models.LocationSample `json:"last_sample,omitempty"`
}

// TrackingStatusHandler reports whether a tracking session is running
// and the most recently captured sample.
func (h *Handler) TrackingStatusHandler(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	status := TrackingStatus{
		Running:    h.capture.IsRunning(),
		LastSample: h.capture.LastSample(),
	}
	if status.Running {
		status.UserID = h.identity.CurrentUserID()
	}

	rw.Success(status)
}

// TrackingStart starts a tracking session for the signed-in user.
func (h *Handler) TrackingStart(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if err := h.tracking.Start(r.Context()); err != nil {
		if errors.Is(err, tracking.ErrNotSignedIn) {
			rw.Unauthorized("No signed-in user")
			return
		}
		rw.InternalError("Cannot start tracking: " + err.Error())
		return
	}

	rw.Success(map[string]bool{"running": true})
}

// TrackingStop stops the running tracking session. Stopping when
// already stopped is a no-op.
func (h *Handler) TrackingStop(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	h.tracking.Stop()

	rw.Success(map[string]bool{"running": false})
}
