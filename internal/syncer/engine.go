// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

// Package syncer moves unsynced samples to the remote store. One Run is
// one attempt: list, upload, mark. Retry policy lives in the scheduler,
// never here.
package syncer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aytachuseynli/waymark/internal/logging"
	"github.com/aytachuseynli/waymark/internal/metrics"
	"github.com/aytachuseynli/waymark/internal/models"
	"github.com/aytachuseynli/waymark/internal/remote"
)

// SampleSource is the slice of the sample store the engine needs.
type SampleSource interface {
	ListUnsynced(ctx context.Context) ([]*models.LocationSample, error)
	MarkSynced(ctx context.Context, ids []int64) error
}

// Engine uploads the unsynced backlog in a single atomic batch.
type Engine struct {
	store  SampleSource
	remote remote.Store
}

// New creates a sync engine.
func New(store SampleSource, remoteStore remote.Store) *Engine {
	return &Engine{store: store, remote: remoteStore}
}

// Run performs one sync attempt. Local state changes only after the
// remote commit succeeded, so a failure leaves the unsynced set intact
// and the next attempt re-uploads the same samples; the remote dedups on
// deviceLocalId.
func (e *Engine) Run(ctx context.Context) models.SyncOutcome {
	start := time.Now()

	samples, err := e.store.ListUnsynced(ctx)
	if err != nil {
		return e.finish(start, models.Failure("list unsynced samples: "+err.Error()))
	}
	if len(samples) == 0 {
		return e.finish(start, models.NoWork())
	}

	docs := make([]remote.Document, 0, len(samples))
	ids := make([]int64, 0, len(samples))
	for _, s := range samples {
		docs = append(docs, remote.Document{
			ID:            uuid.New().String(),
			UserID:        s.UserID,
			Latitude:      s.Latitude,
			Longitude:     s.Longitude,
			Accuracy:      s.Accuracy,
			CapturedAt:    s.CapturedAt,
			BatteryLevel:  s.BatteryLevel,
			DeviceLocalID: s.ID,
		})
		ids = append(ids, s.ID)
	}

	metrics.SyncBatchSize.Observe(float64(len(docs)))

	if err := e.remote.CommitBatch(ctx, docs); err != nil {
		logging.Warn().Err(err).Int("batch_size", len(docs)).Msg("Remote commit failed")
		return e.finish(start, models.Failure("commit batch: "+err.Error()))
	}

	if err := e.store.MarkSynced(ctx, ids); err != nil {
		// The remote has the batch; the rows stay unsynced locally and
		// will be re-uploaded, deduplicated by deviceLocalId.
		logging.Error().Err(err).Msg("Failed to mark samples synced after commit")
		return e.finish(start, models.Failure("mark synced: "+err.Error()))
	}

	logging.Info().Int("count", len(ids)).Msg("Sync batch committed")
	return e.finish(start, models.Success(len(ids)))
}

func (e *Engine) finish(start time.Time, outcome models.SyncOutcome) models.SyncOutcome {
	metrics.SyncDuration.Observe(time.Since(start).Seconds())
	return outcome
}
