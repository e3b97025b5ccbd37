// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aytachuseynli/waymark/internal/auth"
	"github.com/aytachuseynli/waymark/internal/config"
	"github.com/aytachuseynli/waymark/internal/logging"
	"github.com/aytachuseynli/waymark/internal/models"
	ws "github.com/aytachuseynli/waymark/internal/websocket"
)

// SampleReader is the read side of the sample store used by the API.
type SampleReader interface {
	Ping(ctx context.Context) error
	ListRecent(ctx context.Context, userID string, limit int) ([]*models.LocationSample, error)
	LastForUser(ctx context.Context, userID string) (*models.LocationSample, error)
	UnsyncedCount(ctx context.Context) (int64, error)
}

// TrackingController drives tracking sessions and account lifecycle.
type TrackingController interface {
	Start(ctx context.Context) error
	Stop()
	SignOut() error
	DeleteAccount(ctx context.Context) error
}

// SyncController exposes manual sync and schedule introspection.
type SyncController interface {
	TriggerNow(ctx context.Context) (models.SyncOutcome, error)
	IsScheduled() bool
}

// CaptureStatus reports the live state of the capture loop.
type CaptureStatus interface {
	IsRunning() bool
	LastSample() *models.LocationSample
}

// Identity issues and reports on sessions.
type Identity interface {
	SignIn(ctx context.Context, userID string) (string, error)
	CurrentUserID() string
}

// SchedulerStateReader reads the persisted sync schedule.
type SchedulerStateReader interface {
	SchedulerState() (models.SchedulerState, error)
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files by concern:
//   - handlers_health.go: liveness, readiness, and full health
//   - handlers_locations.go: sample queries
//   - handlers_sync.go: sync status and manual trigger
//   - handlers_tracking.go: tracking session control
//   - handlers_auth.go: login, logout, account deletion
//   - handlers_websocket.go: websocket upgrade
type Handler struct {
	cfg       *config.Config
	store     SampleReader
	tracking  TrackingController
	sync      SyncController
	capture   CaptureStatus
	identity  Identity
	jwt       *auth.JWTManager
	state     SchedulerStateReader
	hub       *ws.Hub
	startTime time.Time
}

// NewHandler creates the API handler with all required dependencies.
func NewHandler(
	cfg *config.Config,
	store SampleReader,
	tracking TrackingController,
	sync SyncController,
	capture CaptureStatus,
	identity Identity,
	jwt *auth.JWTManager,
	state SchedulerStateReader,
	hub *ws.Hub,
) *Handler {
	return &Handler{
		cfg:       cfg,
		store:     store,
		tracking:  tracking,
		sync:      sync,
		capture:   capture,
		identity:  identity,
		jwt:       jwt,
		state:     state,
		hub:       hub,
		startTime: time.Now(),
	}
}

// getUpgrader creates a websocket upgrader with origin checking and a
// handshake timeout against slow clients.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebsocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebsocketOrigin validates websocket connection origins. Requests
// without an Origin header come from non-browser clients (the mobile
// app) and are allowed; browser origins must match the CORS allowlist.
func (h *Handler) checkWebsocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if h.cfg == nil {
		return true
	}

	for _, allowed := range h.cfg.Server.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Warn().Str("origin", origin).Msg("Websocket connection rejected from unauthorized origin")
	return false
}
