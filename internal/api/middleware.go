// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/aytachuseynli/waymark/internal/config"
)

// chiMiddleware adapts http.HandlerFunc middleware to chi's
// func(http.Handler) http.Handler shape.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// RateLimitConfig defines rate limit parameters for one endpoint group.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// Endpoint-specific limits. The default comes from server config; these
// cover groups whose traffic profile differs from the default.
var (
	// rateLimitLogin is strict to slow down credential guessing.
	rateLimitLogin = RateLimitConfig{Requests: 5, Window: 5 * time.Minute}

	// rateLimitSync caps manual sync triggers; each run hits the remote
	// store.
	rateLimitSync = RateLimitConfig{Requests: 10, Window: time.Minute}

	// rateLimitHealth is permissive so monitoring can probe frequently.
	rateLimitHealth = RateLimitConfig{Requests: 1000, Window: time.Minute}
)

// Middleware builds the chi middleware chain from server configuration.
type Middleware struct {
	cfg  config.ServerConfig
	cors func(http.Handler) http.Handler
}

// NewMiddleware creates middleware factories for the router.
func NewMiddleware(cfg config.ServerConfig) *Middleware {
	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	})

	return &Middleware{
		cfg:  cfg,
		cors: corsHandler,
	}
}

// CORS returns the configured CORS middleware. It must be global so
// OPTIONS preflight requests are handled on every route.
func (m *Middleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit returns the default per-IP rate limiter from server config.
func (m *Middleware) RateLimit() func(http.Handler) http.Handler {
	if m.cfg.RateLimitReqs <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	window := m.cfg.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}
	return httprate.LimitByIP(m.cfg.RateLimitReqs, window)
}

// RateLimitCustom returns a per-IP rate limiter with the given
// parameters. Disabled along with the default limiter.
func (m *Middleware) RateLimitCustom(rl RateLimitConfig) func(http.Handler) http.Handler {
	if m.cfg.RateLimitReqs <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	return httprate.LimitByIP(rl.Requests, rl.Window)
}

// RateLimitLogin returns the strict limiter for the login endpoint.
func (m *Middleware) RateLimitLogin() func(http.Handler) http.Handler {
	return m.RateLimitCustom(rateLimitLogin)
}

// RateLimitSync returns the limiter for manual sync triggers.
func (m *Middleware) RateLimitSync() func(http.Handler) http.Handler {
	return m.RateLimitCustom(rateLimitSync)
}

// RateLimitHealth returns the permissive limiter for health probes.
func (m *Middleware) RateLimitHealth() func(http.Handler) http.Handler {
	return m.RateLimitCustom(rateLimitHealth)
}

// SecurityHeaders adds standard security headers to API responses.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}
