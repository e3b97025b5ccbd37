// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/aytachuseynli/waymark/internal/logging"
)

type authContextKey string

const authUserKey authContextKey = "auth_user_id"

// UserIDFromContext returns the authenticated user ID, or empty when
// the request was not authenticated.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(authUserKey).(string); ok {
		return id
	}
	return ""
}

// Authenticate validates the bearer token on every request and stores
// the token's user ID in the request context. Requests without a valid
// token are rejected with 401.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			NewResponseWriter(w, r).Unauthorized("Missing bearer token")
			return
		}

		claims, err := h.jwt.ValidateToken(token)
		if err != nil {
			logging.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected invalid token")
			NewResponseWriter(w, r).Unauthorized("Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), authUserKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
