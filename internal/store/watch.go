// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

package store

import (
	"context"
	"errors"

	"github.com/aytachuseynli/waymark/internal/events"
	"github.com/aytachuseynli/waymark/internal/logging"
	"github.com/aytachuseynli/waymark/internal/models"
)

// ErrNoBus is returned by the Watch methods when the store was opened
// without an event bus.
var ErrNoBus = errors.New("store: watch requires an event bus")

// WatchByUser returns a live view of a user's samples, newest first. The
// channel carries an initial snapshot and then a fresh one after every
// write touching that user, until ctx is canceled.
func (db *DB) WatchByUser(ctx context.Context, userID string) (<-chan []*models.LocationSample, error) {
	return db.watchSamples(ctx, userID, func(snapCtx context.Context) ([]*models.LocationSample, error) {
		return db.ListByUser(snapCtx, userID)
	})
}

// WatchRecent is WatchByUser truncated to the newest limit samples.
func (db *DB) WatchRecent(ctx context.Context, userID string, limit int) (<-chan []*models.LocationSample, error) {
	return db.watchSamples(ctx, userID, func(snapCtx context.Context) ([]*models.LocationSample, error) {
		return db.ListRecent(snapCtx, userID, limit)
	})
}

// WatchUnsyncedCount returns a live view of the unsynced backlog size.
func (db *DB) WatchUnsyncedCount(ctx context.Context) (<-chan int64, error) {
	if db.bus == nil {
		return nil, ErrNoBus
	}

	msgs, err := db.bus.Subscribe(ctx, events.TopicSamplesChanged)
	if err != nil {
		return nil, err
	}

	out := make(chan int64, 1)
	go func() {
		defer close(out)

		send := func() {
			count, err := db.UnsyncedCount(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logging.Warn().Err(err).Msg("Live unsynced count query failed")
				}
				return
			}
			select {
			case out <- count:
			case <-ctx.Done():
			}
		}

		send()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev events.SamplesChanged
				if err := events.Decode(msg, &ev); err != nil {
					continue
				}
				send()
			}
		}
	}()

	return out, nil
}

// watchSamples drives a sample live view: snapshot on subscribe, then a
// new snapshot whenever a write relevant to userID commits.
func (db *DB) watchSamples(ctx context.Context, userID string, snapshot func(context.Context) ([]*models.LocationSample, error)) (<-chan []*models.LocationSample, error) {
	if db.bus == nil {
		return nil, ErrNoBus
	}

	msgs, err := db.bus.Subscribe(ctx, events.TopicSamplesChanged)
	if err != nil {
		return nil, err
	}

	out := make(chan []*models.LocationSample, 1)
	go func() {
		defer close(out)

		send := func() {
			samples, err := snapshot(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logging.Warn().Err(err).Str("user_id", userID).Msg("Live sample query failed")
				}
				return
			}
			select {
			case out <- samples:
			case <-ctx.Done():
			}
		}

		send()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev events.SamplesChanged
				if err := events.Decode(msg, &ev); err != nil {
					continue
				}
				// Events with an empty user id affect all views.
				if ev.UserID != "" && ev.UserID != userID {
					continue
				}
				send()
			}
		}
	}()

	return out, nil
}
