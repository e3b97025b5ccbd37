// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

// Package metrics provides Prometheus instrumentation for Waymark:
// capture throughput, store query performance, sync outcomes, remote
// circuit breaker state, and websocket connections.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Capture metrics
	SamplesCaptured = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "waymark_samples_captured_total",
			Help: "Total number of location samples persisted by the capture loop",
		},
	)

	FixesDiscarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waymark_fixes_discarded_total",
			Help: "Total number of location fixes discarded before persisting",
		},
		[]string{"reason"}, // "no_user", "rate_limited", "store_error"
	)

	// Store metrics
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "waymark_store_query_duration_seconds",
			Help:    "Duration of sample store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StoreQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waymark_store_query_errors_total",
			Help: "Total number of sample store operation errors",
		},
		[]string{"operation"},
	)

	UnsyncedBacklog = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "waymark_unsynced_samples",
			Help: "Current number of samples not yet confirmed durable remotely",
		},
	)

	SamplesPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "waymark_samples_pruned_total",
			Help: "Total number of synced samples deleted by retention pruning",
		},
	)

	// Sync metrics
	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waymark_sync_runs_total",
			Help: "Total number of sync engine runs by outcome",
		},
		[]string{"outcome", "trigger"}, // outcome: no_work|success|failure; trigger: periodic|manual
	)

	SyncBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "waymark_sync_batch_size",
			Help:    "Number of samples per committed sync batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "waymark_sync_duration_seconds",
			Help:    "Duration of sync engine runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Remote circuit breaker metrics
	CircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "waymark_remote_circuit_breaker_state",
			Help: "Remote store circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	RemoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waymark_remote_requests_total",
			Help: "Total number of remote store requests by result",
		},
		[]string{"operation", "result"}, // result: success|failure|rejected
	)

	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "waymark_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Websocket metrics
	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "waymark_websocket_clients",
			Help: "Current number of connected websocket clients",
		},
	)
)

// ObserveStoreQuery records the duration of a store operation and counts
// an error when err is non-nil.
func ObserveStoreQuery(operation string, start time.Time, err error) {
	StoreQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		StoreQueryErrors.WithLabelValues(operation).Inc()
	}
}
