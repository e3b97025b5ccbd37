// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

// Package tracking orchestrates the one logical tracking session: the
// capture loop and the sync schedule move together, preferences record
// the desired state, and boot-time auto-resume replays it.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aytachuseynli/waymark/internal/config"
	"github.com/aytachuseynli/waymark/internal/logging"
	"github.com/aytachuseynli/waymark/internal/models"
)

// ErrNotSignedIn is returned by Start when no user is signed in.
var ErrNotSignedIn = errors.New("cannot start tracking: no signed-in user")

// CaptureController is the capture loop surface the controller drives.
type CaptureController interface {
	Start() error
	Stop()
	IsRunning() bool
}

// SyncScheduler is the scheduler surface the controller drives.
type SyncScheduler interface {
	Schedule()
	Cancel()
}

// IdentityManager is the identity surface the controller needs.
type IdentityManager interface {
	CurrentUserID() string
	SignOut() error
	DeleteAccount(ctx context.Context) error
}

// SampleStore is the local store slice used for account removal.
type SampleStore interface {
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)
}

// PrefsStore persists the desired tracking state.
type PrefsStore interface {
	TrackingPreferences() (models.TrackingPreferences, error)
	SetTrackingPreferences(p models.TrackingPreferences) error
	ClearTrackingPreferences() error
}

// RemoteStore is the remote slice used for account removal.
type RemoteStore interface {
	DeleteWhere(ctx context.Context, collection, field, value string) error
	DeleteDocument(ctx context.Context, collection, id string) error
}

// Controller owns the tracking session lifecycle.
type Controller struct {
	capture   CaptureController
	scheduler SyncScheduler
	identity  IdentityManager
	store     SampleStore
	prefs     PrefsStore
	remote    RemoteStore
	remoteCfg config.RemoteConfig

	mu sync.Mutex
}

// New creates a tracking controller.
func New(capture CaptureController, scheduler SyncScheduler, identity IdentityManager, store SampleStore, prefsStore PrefsStore, remoteStore RemoteStore, remoteCfg config.RemoteConfig) *Controller {
	return &Controller{
		capture:   capture,
		scheduler: scheduler,
		identity:  identity,
		store:     store,
		prefs:     prefsStore,
		remote:    remoteStore,
		remoteCfg: remoteCfg,
	}
}

// Start begins a tracking session for the signed-in user: capture loop,
// sync schedule, and persisted preferences. A provider that cannot
// deliver fixes fails the whole start, leaving nothing running.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	userID := c.identity.CurrentUserID()
	if userID == "" {
		return ErrNotSignedIn
	}

	if err := c.capture.Start(); err != nil {
		return fmt.Errorf("cannot start tracking: %w", err)
	}
	c.scheduler.Schedule()

	err := c.prefs.SetTrackingPreferences(models.TrackingPreferences{
		TrackingEnabled: true,
		ActiveUserID:    userID,
	})
	if err != nil {
		// Tracking runs this session but will not auto-resume after a
		// restart.
		logging.Warn().Err(err).Msg("Failed to persist tracking preferences")
	}

	logging.Info().Str("user_id", userID).Msg("Tracking started")
	return nil
}

// Stop ends the tracking session. The capture loop and sync schedule
// stop; an in-flight sync run completes on its own. Idempotent.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Controller) stopLocked() {
	wasRunning := c.capture.IsRunning()

	c.capture.Stop()
	c.scheduler.Cancel()

	p, err := c.prefs.TrackingPreferences()
	if err != nil {
		p = models.TrackingPreferences{}
	}
	p.TrackingEnabled = false
	if err := c.prefs.SetTrackingPreferences(p); err != nil {
		logging.Warn().Err(err).Msg("Failed to persist tracking preferences")
	}

	if wasRunning {
		logging.Info().Msg("Tracking stopped")
	}
}

// SignOut stops tracking, clears preferences, and drops the session.
// Local samples stay; they sync next time their owner signs in.
func (c *Controller) SignOut() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	if err := c.prefs.ClearTrackingPreferences(); err != nil {
		return fmt.Errorf("clear tracking preferences: %w", err)
	}
	if err := c.identity.SignOut(); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// DeleteAccount removes the user's data remote-first: the remote
// location documents and account go first, and only after both succeed
// does any local state change. A mid-sequence failure therefore leaves
// the device fully functional and retryable.
func (c *Controller) DeleteAccount(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	userID := c.identity.CurrentUserID()
	if userID == "" {
		return ErrNotSignedIn
	}

	if err := c.remote.DeleteWhere(ctx, c.remoteCfg.LocationsCollection, "userId", userID); err != nil {
		return fmt.Errorf("delete remote locations: %w", err)
	}
	if err := c.remote.DeleteDocument(ctx, c.remoteCfg.UsersCollection, userID); err != nil {
		return fmt.Errorf("delete remote account: %w", err)
	}

	c.stopLocked()

	if _, err := c.store.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("purge local samples: %w", err)
	}
	if err := c.prefs.ClearTrackingPreferences(); err != nil {
		return fmt.Errorf("clear tracking preferences: %w", err)
	}
	if err := c.identity.DeleteAccount(ctx); err != nil {
		return fmt.Errorf("remove local session: %w", err)
	}

	logging.Info().Str("user_id", userID).Msg("Account deleted")
	return nil
}

// AutoResume restarts tracking on boot when preferences say it was
// enabled for the still-signed-in user.
func (c *Controller) AutoResume(ctx context.Context) error {
	p, err := c.prefs.TrackingPreferences()
	if err != nil {
		return fmt.Errorf("load tracking preferences: %w", err)
	}
	if !p.TrackingEnabled || p.ActiveUserID == "" {
		return nil
	}
	if c.identity.CurrentUserID() != p.ActiveUserID {
		logging.Warn().
			Str("prefs_user", p.ActiveUserID).
			Msg("Tracking preferences reference a different user, not resuming")
		return nil
	}

	logging.Info().Str("user_id", p.ActiveUserID).Msg("Auto-resuming tracking")
	return c.Start(ctx)
}
