// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

package api

import (
	"net/http"

	"github.com/aytachuseynli/waymark/internal/logging"
	ws "github.com/aytachuseynli/waymark/internal/websocket"
)

// WebSocket upgrades the connection and registers the client with the
// hub. The client then receives captured samples, sync outcomes, and
// tracking state changes as they happen.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		logging.Warn().Msg("Websocket connection rejected: hub not initialized")
		NewResponseWriter(w, r).ServiceUnavailable("Websocket service unavailable")
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("Websocket upgrade error")
		return
	}

	client := ws.NewClient(h.hub, conn)
	h.hub.Register <- client
	client.Start()
}
