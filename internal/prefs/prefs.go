// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

// Package prefs is the small durable key-value state beside the sample
// store: tracking preferences, scheduler position, identity sessions. It
// is the first thing consulted on boot to decide whether tracking should
// auto-resume.
package prefs

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/aytachuseynli/waymark/internal/config"
	"github.com/aytachuseynli/waymark/internal/logging"
	"github.com/aytachuseynli/waymark/internal/models"
)

// Key prefixes for BadgerDB storage.
const (
	trackingPrefsKey  = "prefs:tracking"
	schedulerStateKey = "scheduler:state"
)

// Store wraps the BadgerDB instance holding application state.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the state store at the configured path.
func Open(cfg *config.StateConfig) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("component", "prefs").
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Msg("State store opened")

	return &Store{db: db}, nil
}

// DB exposes the underlying BadgerDB so other packages sharing the state
// store (identity sessions) can use it without opening a second instance.
func (s *Store) DB() *badger.DB {
	return s.db
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// TrackingPreferences returns the persisted tracking preferences. A store
// that has never been written returns the zero value: tracking disabled,
// no active user.
func (s *Store) TrackingPreferences() (models.TrackingPreferences, error) {
	var p models.TrackingPreferences
	err := s.get(trackingPrefsKey, &p)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return models.TrackingPreferences{}, nil
	}
	if err != nil {
		return models.TrackingPreferences{}, fmt.Errorf("get tracking preferences: %w", err)
	}
	return p, nil
}

// SetTrackingPreferences persists the tracking preferences.
func (s *Store) SetTrackingPreferences(p models.TrackingPreferences) error {
	if err := s.set(trackingPrefsKey, p); err != nil {
		return fmt.Errorf("set tracking preferences: %w", err)
	}
	return nil
}

// ClearTrackingPreferences resets preferences to the zero value. Local
// samples are untouched; that is the sample store's concern.
func (s *Store) ClearTrackingPreferences() error {
	if err := s.delete(trackingPrefsKey); err != nil {
		return fmt.Errorf("clear tracking preferences: %w", err)
	}
	return nil
}

// SchedulerState returns the persisted scheduler position, zero when the
// scheduler has never run.
func (s *Store) SchedulerState() (models.SchedulerState, error) {
	var st models.SchedulerState
	err := s.get(schedulerStateKey, &st)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return models.SchedulerState{}, nil
	}
	if err != nil {
		return models.SchedulerState{}, fmt.Errorf("get scheduler state: %w", err)
	}
	return st, nil
}

// SetSchedulerState persists the scheduler position.
func (s *Store) SetSchedulerState(st models.SchedulerState) error {
	if err := s.set(schedulerStateKey, st); err != nil {
		return fmt.Errorf("set scheduler state: %w", err)
	}
	return nil
}

// ClearSchedulerState removes the persisted scheduler position.
func (s *Store) ClearSchedulerState() error {
	if err := s.delete(schedulerStateKey); err != nil {
		return fmt.Errorf("clear scheduler state: %w", err)
	}
	return nil
}

func (s *Store) get(key string, out any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
}

func (s *Store) set(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (s *Store) delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}
