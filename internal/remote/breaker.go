// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

package remote

import (
	"context"
	"errors"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/aytachuseynli/waymark/internal/logging"
	"github.com/aytachuseynli/waymark/internal/metrics"
)

// BreakerStore wraps a Store with a circuit breaker so a dead remote
// fails fast instead of burning a timeout per sync attempt. The breaker
// uses real time for its recovery window; tests exercise the wrapped
// store directly.
type BreakerStore struct {
	inner Store
	cb    *gobreaker.CircuitBreaker[any]
}

// NewBreakerStore wraps inner. The circuit opens after five consecutive
// failures and probes again after the breaker timeout.
func NewBreakerStore(inner Store) *BreakerStore {
	metrics.CircuitBreakerState.Set(0) // closed

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "remote-store",
		MaxRequests: 1,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.Set(stateToFloat(to))
		},
	})

	return &BreakerStore{inner: inner, cb: cb}
}

func (b *BreakerStore) execute(operation string, fn func() error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.RemoteRequests.WithLabelValues(operation, "rejected").Inc()
		logging.Warn().Str("operation", operation).Msg("Remote request rejected by open circuit")
	}
	return err
}

// CommitBatch implements Store.
func (b *BreakerStore) CommitBatch(ctx context.Context, docs []Document) error {
	return b.execute("commit_batch", func() error {
		return b.inner.CommitBatch(ctx, docs)
	})
}

// DeleteWhere implements Store.
func (b *BreakerStore) DeleteWhere(ctx context.Context, collection, field, value string) error {
	return b.execute("delete_where", func() error {
		return b.inner.DeleteWhere(ctx, collection, field, value)
	})
}

// DeleteDocument implements Store.
func (b *BreakerStore) DeleteDocument(ctx context.Context, collection, id string) error {
	return b.execute("delete_document", func() error {
		return b.inner.DeleteDocument(ctx, collection, id)
	})
}

// Ping implements Store.
func (b *BreakerStore) Ping(ctx context.Context) error {
	return b.execute("ping", func() error {
		return b.inner.Ping(ctx)
	})
}

func stateToString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
