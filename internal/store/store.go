// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

// Package store is the durable local sample store. Every location fix the
// capture loop accepts lands here first; the sync engine drains it later.
// The store never touches the network.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/aytachuseynli/waymark/internal/config"
	"github.com/aytachuseynli/waymark/internal/events"
	"github.com/aytachuseynli/waymark/internal/logging"
)

// defaultQueryTimeout bounds queries that arrive without a deadline.
const defaultQueryTimeout = 30 * time.Second

// DB wraps the DuckDB connection holding location samples.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
	bus  *events.Bus
}

// New opens (or creates) the sample database and initializes the schema.
// The bus may be nil; change events are then dropped.
func New(cfg *config.DatabaseConfig, bus *events.Bus) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	// Ensure the parent directory exists so DuckDB can create the file.
	if cfg.Path != ":memory:" {
		dbDir := filepath.Dir(cfg.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "512MB"
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, numThreads, maxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{
		conn: conn,
		cfg:  cfg,
		bus:  bus,
	}

	db.configureConnectionPool()

	if err := db.createSchema(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Info().
		Str("component", "store").
		Str("path", cfg.Path).
		Int("threads", numThreads).
		Msg("Sample store opened")

	return db, nil
}

// configureConnectionPool sets connection pool parameters. DuckDB is an
// embedded engine; a small pool keeps memory bounded.
func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
}

// createSchema creates the sequence, table, and indexes if absent.
// Re-running against an existing database is a no-op.
func (db *DB) createSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultQueryTimeout)
	defer cancel()

	queries := []string{
		`CREATE SEQUENCE IF NOT EXISTS location_samples_id_seq`,

		`CREATE TABLE IF NOT EXISTS location_samples (
			id BIGINT PRIMARY KEY DEFAULT nextval('location_samples_id_seq'),
			user_id TEXT NOT NULL,
			latitude DOUBLE NOT NULL,
			longitude DOUBLE NOT NULL,
			accuracy DOUBLE NOT NULL,
			captured_at BIGINT NOT NULL,
			battery_level INTEGER NOT NULL DEFAULT -1,
			synced BOOLEAN NOT NULL DEFAULT FALSE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_samples_user_captured
			ON location_samples (user_id, captured_at DESC)`,

		`CREATE INDEX IF NOT EXISTS idx_samples_unsynced
			ON location_samples (synced, captured_at)`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

// Ping checks whether the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// Close checkpoints the WAL and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultQueryTimeout)
	defer cancel()
	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
	}

	return db.conn.Close()
}

// ensureContext attaches the default timeout to contexts without a deadline.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

// publishChange emits a samples.changed event after a committed write.
func (db *DB) publishChange(op, userID string) {
	if db.bus == nil {
		return
	}
	if err := db.bus.Publish(events.TopicSamplesChanged, events.SamplesChanged{
		Op:     op,
		UserID: userID,
	}); err != nil {
		logging.Warn().Err(err).Str("op", op).Msg("Failed to publish samples.changed event")
	}
}

func closeQuietly(conn *sql.DB) {
	if err := conn.Close(); err != nil {
		logging.Debug().Err(err).Msg("Error closing database connection")
	}
}
