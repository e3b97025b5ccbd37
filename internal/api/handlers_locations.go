// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

package api

import (
	"net/http"
	"strconv"
)

const (
	defaultLocationLimit = 100
	maxLocationLimit     = 1000
)

// Locations returns the authenticated user's samples, newest first.
// The limit query parameter caps the result; it defaults to 100 and is
// clamped to 1000.
func (h *Handler) Locations(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID := UserIDFromContext(r.Context())

	limit := defaultLocationLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			rw.BadRequest("limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if limit > maxLocationLimit {
		limit = maxLocationLimit
	}

	samples, err := h.store.ListRecent(r.Context(), userID, limit)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.SuccessWithMeta(samples, &APIMeta{Count: len(samples)})
}

// LocationsLast returns the authenticated user's most recent sample, or
// 404 when none exists yet.
func (h *Handler) LocationsLast(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID := UserIDFromContext(r.Context())

	sample, err := h.store.LastForUser(r.Context(), userID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if sample == nil {
		rw.NotFound("No samples recorded yet")
		return
	}

	rw.Success(sample)
}
