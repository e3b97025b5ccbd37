// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

package api

import (
	"net/http"
	"time"
)

// HealthStatus is the payload of the full health endpoint.
type HealthStatus struct {
	Status            string `json:"status"`
	Version           string `json:"version"`
	DatabaseConnected bool   `json:"database_connected"`
	TrackingRunning   bool   `json:"tracking_running"`
	SyncScheduled     bool   `json:"sync_scheduled"`
	UnsyncedSamples   int64  `json:"unsynced_samples"`
	WebsocketClients  int    `json:"websocket_clients"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// Health reports overall system health including store connectivity and
// the live tracking and sync state.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	dbConnected := h.store != nil && h.store.Ping(r.Context()) == nil

	status := "healthy"
	if !dbConnected {
		status = "degraded"
	}

	var unsynced int64
	if dbConnected {
		if n, err := h.store.UnsyncedCount(r.Context()); err == nil {
			unsynced = n
		}
	}

	var clients int
	if h.hub != nil {
		clients = h.hub.ClientCount()
	}

	rw.Success(HealthStatus{
		Status:            status,
		Version:           "1.0.0",
		DatabaseConnected: dbConnected,
		TrackingRunning:   h.capture != nil && h.capture.IsRunning(),
		SyncScheduled:     h.sync != nil && h.sync.IsScheduled(),
		UnsyncedSamples:   unsynced,
		WebsocketClients:  clients,
		UptimeSeconds:     time.Since(h.startTime).Seconds(),
	})
}

// HealthLive is the liveness probe. It returns 200 whenever the process
// is alive, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady is the readiness probe. It returns 200 only when the
// sample store answers a ping.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.store == nil || h.store.Ping(r.Context()) != nil {
		rw.ServiceUnavailable("Sample store not ready")
		return
	}

	rw.Success(map[string]interface{}{"ready": true})
}
