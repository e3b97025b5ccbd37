// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

// Package main is the entry point for the Waymark daemon.
//
// Waymark is a local-first location capture and sync pipeline. Samples
// are written to an embedded DuckDB store first and shipped to the
// remote backend opportunistically, so the device keeps full history
// even when the network is gone for days.
//
// # Application Architecture
//
// The daemon initializes components in the following order:
//
//  1. Configuration: load settings from environment variables and config files (Koanf v2)
//  2. Local store: DuckDB sample store plus a Badger preference store
//  3. Identity: JWT manager and persistent session state
//  4. Capture: location provider, battery monitor and the capture loop
//  5. Sync: remote client (circuit-breaker wrapped), sync engine and scheduler
//  6. WebSocket hub: real-time updates to connected clients
//  7. HTTP API: chi router with auth, rate limiting and Prometheus metrics
//  8. Supervisor tree: suture-managed service lifecycle
//
// The capture loop and sync scheduler are deliberately not supervised;
// their lifecycle follows the tracking session and is driven by the
// tracking controller (auto-resume at boot, start/stop via the API).
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aytachuseynli/waymark/internal/api"
	"github.com/aytachuseynli/waymark/internal/auth"
	"github.com/aytachuseynli/waymark/internal/battery"
	"github.com/aytachuseynli/waymark/internal/capture"
	"github.com/aytachuseynli/waymark/internal/config"
	"github.com/aytachuseynli/waymark/internal/events"
	"github.com/aytachuseynli/waymark/internal/location"
	"github.com/aytachuseynli/waymark/internal/logging"
	"github.com/aytachuseynli/waymark/internal/prefs"
	"github.com/aytachuseynli/waymark/internal/remote"
	"github.com/aytachuseynli/waymark/internal/scheduler"
	"github.com/aytachuseynli/waymark/internal/store"
	"github.com/aytachuseynli/waymark/internal/supervisor"
	"github.com/aytachuseynli/waymark/internal/syncer"
	"github.com/aytachuseynli/waymark/internal/tracking"
	ws "github.com/aytachuseynli/waymark/internal/websocket"
)

func main() {
	// === CONFIGURATION ===

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("log_level", cfg.Logging.Level).
		Str("database", cfg.Database.Path).
		Msg("Starting Waymark")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === EVENT BUS ===

	bus := events.NewBus()

	// === LOCAL STORAGE ===

	db, err := store.New(&cfg.Database, bus)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open sample store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close sample store")
		}
	}()

	prefsStore, err := prefs.Open(&cfg.State)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open preference store")
	}
	defer func() {
		if err := prefsStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close preference store")
		}
	}()

	// === IDENTITY ===

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}

	identity, err := auth.NewManager(jwtManager, prefsStore.DB())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize identity manager")
	}

	// === CAPTURE ===

	provider, err := location.New(&cfg.Provider)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize location provider")
	}

	batteryMon := battery.NewSysfsMonitor(cfg.Battery.SysfsPath)

	loop := capture.New(cfg.Capture, provider, db, identity, batteryMon, bus)

	// === SYNC ===

	apiKey, err := cfg.RemoteAPIKey()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to decrypt remote API key")
	}

	remoteStore := remote.NewBreakerStore(remote.NewHTTPStore(&cfg.Remote, apiKey))

	engine := syncer.New(db, remoteStore)

	network, err := scheduler.NewTCPChecker(cfg.Remote.URL)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize network checker")
	}

	sched := scheduler.New(cfg.Sync, engine, db, prefsStore, batteryMon, network, bus)

	// === TRACKING CONTROLLER ===

	controller := tracking.New(loop, sched, identity, db, prefsStore, remoteStore, cfg.Remote)

	// === WEBSOCKET HUB ===

	hub := ws.NewHub()
	busSubscriber := ws.NewBusSubscriber(hub, bus)

	// === HTTP API ===

	handler := api.NewHandler(cfg, db, controller, sched, loop, identity, jwtManager, prefsStore, hub)
	router := api.NewRouter(handler, api.NewMiddleware(cfg.Server))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	// === SUPERVISOR TREE ===

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddMessagingService(hub)
	tree.AddMessagingService(busSubscriber)
	tree.AddAPIService(supervisor.NewHTTPServerService(server, 10*time.Second))

	// Resume tracking if the previous session left it on.
	if err := controller.AutoResume(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to resume tracking from saved preferences")
	}

	// === START ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().
		Str("addr", server.Addr).
		Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Halt the session-driven components without touching the saved
	// preferences, so tracking resumes on the next boot.
	loop.Stop()
	sched.Cancel()

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Waymark stopped gracefully")
}
