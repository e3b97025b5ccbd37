// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aytachuseynli/waymark/internal/middleware"
)

// Router wires handlers and middleware into the chi route tree.
type Router struct {
	handler *Handler
	mw      *Middleware
}

// NewRouter creates a router from a handler and middleware factories.
func NewRouter(handler *Handler, mw *Middleware) *Router {
	return &Router{
		handler: handler,
		mw:      mw,
	}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.mw.CORS())

	// Health probes get a permissive limit so monitoring can poll.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.mw.RateLimitHealth())
		r.Use(SecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/", router.handler.Health)
	})

	// Login is public; the strict limiter slows credential guessing.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(SecurityHeaders())
		r.With(router.mw.RateLimitLogin()).Post("/login", router.handler.Login)

		// Session teardown requires a valid token.
		r.Group(func(r chi.Router) {
			r.Use(router.mw.RateLimit())
			r.Use(router.handler.Authenticate)
			r.Post("/logout", router.handler.Logout)
			r.Delete("/account", router.handler.DeleteAccount)
		})
	})

	// Data and control endpoints require authentication.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.mw.RateLimit())
		r.Use(SecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(router.handler.Authenticate)

		r.With(chiMiddleware(middleware.Compression)).Get("/locations", router.handler.Locations)
		r.Get("/locations/last", router.handler.LocationsLast)

		r.Get("/tracking", router.handler.TrackingStatusHandler)
		r.Post("/tracking/start", router.handler.TrackingStart)
		r.Post("/tracking/stop", router.handler.TrackingStop)

		r.Get("/sync", router.handler.SyncStatusHandler)
		r.With(router.mw.RateLimitSync()).Post("/sync/run", router.handler.SyncRun)

		r.Get("/ws", router.handler.WebSocket)
	})

	// Prometheus scrape endpoint.
	r.Handle("/metrics", promhttp.Handler())

	return r
}
