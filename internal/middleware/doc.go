// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

// Package middleware provides HTTP middleware shared by the API layer:
// request ID propagation, Prometheus instrumentation, and gzip
// compression. All middleware operates on http.HandlerFunc so it can be
// composed directly or adapted into chi's middleware chain.
package middleware
