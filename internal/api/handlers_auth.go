// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/aytachuseynli/waymark/internal/logging"
)

// maxLoginBodySize bounds the login request body.
const maxLoginBodySize = 4 * 1024

type loginRequest struct {
	UserID string `json:"user_id"`
}

type loginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// Login signs a user in and returns a bearer token. The session is
// persisted so it survives restarts.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req loginRequest
	body := io.LimitReader(r.Body, maxLoginBodySize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		rw.BadRequest("Invalid request body")
		return
	}

	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		rw.BadRequest("user_id must not be empty")
		return
	}

	token, err := h.identity.SignIn(r.Context(), req.UserID)
	if err != nil {
		logging.Error().Err(err).Msg("Sign-in failed")
		rw.InternalError("Sign-in failed")
		return
	}

	rw.Success(loginResponse{Token: token, UserID: req.UserID})
}

// Logout ends the session. Tracking stops, preferences are cleared, and
// captured samples stay on the device.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if err := h.tracking.SignOut(); err != nil {
		logging.Error().Err(err).Msg("Sign-out failed")
		rw.InternalError("Sign-out failed")
		return
	}

	rw.NoContent()
}

// DeleteAccount removes the user's remote data first and only then
// purges local samples and the session. A remote failure leaves the
// device untouched so deletion can be retried.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if err := h.tracking.DeleteAccount(r.Context()); err != nil {
		rw.RemoteError(err)
		return
	}

	rw.NoContent()
}
