// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aytachuseynli/waymark/internal/metrics"
	"github.com/aytachuseynli/waymark/internal/models"
)

const sampleColumns = "id, user_id, latitude, longitude, accuracy, captured_at, battery_level, synced"

// Insert stores a new sample and returns its assigned id. The synced flag
// is always false on insert regardless of what the caller set.
func (db *DB) Insert(ctx context.Context, sample *models.LocationSample) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	query := `INSERT INTO location_samples
		(user_id, latitude, longitude, accuracy, captured_at, battery_level, synced)
		VALUES (?, ?, ?, ?, ?, ?, FALSE)
		RETURNING id`

	var id int64
	err := db.conn.QueryRowContext(ctx, query,
		sample.UserID, sample.Latitude, sample.Longitude,
		sample.Accuracy, sample.CapturedAt, sample.BatteryLevel,
	).Scan(&id)
	metrics.ObserveStoreQuery("insert", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to insert sample: %w", err)
	}

	sample.ID = id
	sample.Synced = false

	db.refreshBacklogGauge(ctx)
	db.publishChange("insert", sample.UserID)
	return id, nil
}

// ListByUser returns all samples for a user, newest first.
func (db *DB) ListByUser(ctx context.Context, userID string) ([]*models.LocationSample, error) {
	query := fmt.Sprintf(`SELECT %s FROM location_samples
		WHERE user_id = ?
		ORDER BY captured_at DESC`, sampleColumns)
	return db.querySamples(ctx, "list_by_user", query, userID)
}

// ListRecent returns the newest limit samples for a user, newest first.
func (db *DB) ListRecent(ctx context.Context, userID string, limit int) ([]*models.LocationSample, error) {
	if limit <= 0 {
		return []*models.LocationSample{}, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM location_samples
		WHERE user_id = ?
		ORDER BY captured_at DESC
		LIMIT ?`, sampleColumns)
	return db.querySamples(ctx, "list_recent", query, userID, limit)
}

// LastForUser returns the newest sample for a user, or nil when none exists.
func (db *DB) LastForUser(ctx context.Context, userID string) (*models.LocationSample, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	query := fmt.Sprintf(`SELECT %s FROM location_samples
		WHERE user_id = ?
		ORDER BY captured_at DESC
		LIMIT 1`, sampleColumns)

	sample := &models.LocationSample{}
	err := db.conn.QueryRowContext(ctx, query, userID).Scan(
		&sample.ID, &sample.UserID, &sample.Latitude, &sample.Longitude,
		&sample.Accuracy, &sample.CapturedAt, &sample.BatteryLevel, &sample.Synced,
	)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.ObserveStoreQuery("last_for_user", start, nil)
		return nil, nil
	}
	metrics.ObserveStoreQuery("last_for_user", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get last sample: %w", err)
	}
	return sample, nil
}

// ListUnsynced returns all unsynced samples oldest first, so the sync
// engine uploads in chronological order.
func (db *DB) ListUnsynced(ctx context.Context) ([]*models.LocationSample, error) {
	query := fmt.Sprintf(`SELECT %s FROM location_samples
		WHERE synced = FALSE
		ORDER BY captured_at ASC`, sampleColumns)
	return db.querySamples(ctx, "list_unsynced", query)
}

// UnsyncedCount returns the number of samples not yet synced.
func (db *DB) UnsyncedCount(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	var count int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM location_samples WHERE synced = FALSE`,
	).Scan(&count)
	metrics.ObserveStoreQuery("unsynced_count", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to count unsynced samples: %w", err)
	}

	metrics.UnsyncedBacklog.Set(float64(count))
	return count, nil
}

// MarkSynced flips the synced flag for the given ids. Already-synced and
// unknown ids are ignored, so the call is idempotent.
func (db *DB) MarkSynced(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	placeholders, args := buildInClause(ids)
	query := fmt.Sprintf(`UPDATE location_samples SET synced = TRUE
		WHERE id IN (%s) AND synced = FALSE`, placeholders)

	start := time.Now()
	_, err := db.conn.ExecContext(ctx, query, args...)
	metrics.ObserveStoreQuery("mark_synced", start, err)
	if err != nil {
		return fmt.Errorf("failed to mark samples synced: %w", err)
	}

	db.refreshBacklogGauge(ctx)
	db.publishChange("mark_synced", "")
	return nil
}

// DeleteOlderSyncedThan prunes synced samples captured before cutoffMillis
// and returns how many were removed. Unsynced samples are never pruned.
func (db *DB) DeleteOlderSyncedThan(ctx context.Context, cutoffMillis int64) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM location_samples WHERE synced = TRUE AND captured_at < ?`,
		cutoffMillis,
	)
	metrics.ObserveStoreQuery("prune", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to prune synced samples: %w", err)
	}

	pruned, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read pruned row count: %w", err)
	}

	if pruned > 0 {
		metrics.SamplesPruned.Add(float64(pruned))
		db.publishChange("prune", "")
	}
	return pruned, nil
}

// DeleteAllForUser removes every sample belonging to a user.
func (db *DB) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM location_samples WHERE user_id = ?`, userID)
	metrics.ObserveStoreQuery("delete_for_user", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to delete samples for user: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read deleted row count: %w", err)
	}

	db.refreshBacklogGauge(ctx)
	db.publishChange("delete", userID)
	return deleted, nil
}

// DeleteAll removes every sample in the store.
func (db *DB) DeleteAll(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `DELETE FROM location_samples`)
	metrics.ObserveStoreQuery("delete_all", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete all samples: %w", err)
	}

	metrics.UnsyncedBacklog.Set(0)
	db.publishChange("delete", "")
	return nil
}

// querySamples runs a query returning sample rows and scans them.
func (db *DB) querySamples(ctx context.Context, operation, query string, args ...any) ([]*models.LocationSample, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.ObserveStoreQuery(operation, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	samples := []*models.LocationSample{}
	for rows.Next() {
		sample := &models.LocationSample{}
		if err := rows.Scan(
			&sample.ID, &sample.UserID, &sample.Latitude, &sample.Longitude,
			&sample.Accuracy, &sample.CapturedAt, &sample.BatteryLevel, &sample.Synced,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating samples: %w", err)
	}

	return samples, nil
}

// refreshBacklogGauge updates the unsynced backlog metric. Best effort;
// the next UnsyncedCount call corrects any miss.
func (db *DB) refreshBacklogGauge(ctx context.Context) {
	var count int64
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM location_samples WHERE synced = FALSE`,
	).Scan(&count); err == nil {
		metrics.UnsyncedBacklog.Set(float64(count))
	}
}

// buildInClause builds a parameterized IN clause for the given ids.
func buildInClause(ids []int64) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return strings.Join(placeholders, ", "), args
}
