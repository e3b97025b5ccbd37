// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

// Package scheduler decides when the sync engine runs. It owns the
// periodic cadence, the per-cycle retry backoff, the constraint gate, and
// the single-flight guard shared with manual triggers. The next eligible
// run time is persisted so a restart resumes the cadence instead of
// resetting it.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aytachuseynli/waymark/internal/battery"
	"github.com/aytachuseynli/waymark/internal/config"
	"github.com/aytachuseynli/waymark/internal/events"
	"github.com/aytachuseynli/waymark/internal/logging"
	"github.com/aytachuseynli/waymark/internal/metrics"
	"github.com/aytachuseynli/waymark/internal/models"
)

var (
	// ErrSyncInProgress is returned by TriggerNow when another run is
	// already active.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrNetworkUnavailable is returned by TriggerNow when the remote is
	// unreachable.
	ErrNetworkUnavailable = errors.New("network unavailable")
)

// Runner is the sync engine boundary.
type Runner interface {
	Run(ctx context.Context) models.SyncOutcome
}

// Pruner is the store slice used for post-success pruning.
type Pruner interface {
	DeleteOlderSyncedThan(ctx context.Context, cutoffMillis int64) (int64, error)
}

// StateStore persists the scheduler position across restarts.
type StateStore interface {
	SchedulerState() (models.SchedulerState, error)
	SetSchedulerState(models.SchedulerState) error
	ClearSchedulerState() error
}

// Scheduler drives periodic and manual sync runs.
type Scheduler struct {
	engine  Runner
	pruner  Pruner
	state   StateStore
	battery battery.Monitor
	network NetworkChecker
	bus     *events.Bus
	cfg     config.SyncConfig
	now     func() time.Time

	mu        sync.Mutex
	scheduled bool
	stopChan  chan struct{}
	wg        sync.WaitGroup

	// attempt is touched only by the loop goroutine.
	attempt int

	// runGate serializes engine runs across the periodic and manual paths.
	runGate chan struct{}
}

// New creates a scheduler. Nothing runs until Schedule or TriggerNow.
func New(cfg config.SyncConfig, engine Runner, pruner Pruner, state StateStore, batteryMon battery.Monitor, network NetworkChecker, bus *events.Bus) *Scheduler {
	return &Scheduler{
		engine:  engine,
		pruner:  pruner,
		state:   state,
		battery: batteryMon,
		network: network,
		bus:     bus,
		cfg:     cfg,
		now:     time.Now,
		runGate: make(chan struct{}, 1),
	}
}

// Schedule starts the periodic loop. An existing registration is kept
// as-is: calling Schedule again neither resets the cadence nor the
// persisted next run time.
func (s *Scheduler) Schedule() {
	s.mu.Lock()
	if s.scheduled {
		s.mu.Unlock()
		logging.Debug().Msg("Sync schedule already registered, keeping it")
		return
	}
	s.scheduled = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	logging.Info().Dur("interval", s.cfg.Interval).Msg("Sync schedule registered")

	s.wg.Add(1)
	go s.loop()
}

// Cancel stops the periodic loop and clears the persisted position.
// Safe to call when not scheduled.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	if !s.scheduled {
		s.mu.Unlock()
		return
	}
	s.scheduled = false
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()
	s.attempt = 0

	if err := s.state.ClearSchedulerState(); err != nil {
		logging.Warn().Err(err).Msg("Failed to clear scheduler state")
	}
	logging.Info().Msg("Sync schedule canceled")
}

// IsScheduled reports whether the periodic loop is active.
func (s *Scheduler) IsScheduled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduled
}

// Serve runs the schedule under a supervisor until ctx ends.
func (s *Scheduler) Serve(ctx context.Context) error {
	s.Schedule()
	<-ctx.Done()
	s.Cancel()
	return ctx.Err()
}

// TriggerNow runs one sync immediately. It is gated on network
// reachability only and serialized against the periodic path; a run
// already in flight yields ErrSyncInProgress.
func (s *Scheduler) TriggerNow(ctx context.Context) (models.SyncOutcome, error) {
	if !s.network.Available(ctx) {
		return models.SyncOutcome{}, ErrNetworkUnavailable
	}
	return s.runOnce(ctx, "manual")
}

// loop sleeps until the next eligible run time, runs, and reschedules.
func (s *Scheduler) loop() {
	defer s.wg.Done()

	for {
		next := s.nextRunTime()
		delay := next.Sub(s.now())
		if delay < 0 {
			delay = 0
		}

		timer := time.NewTimer(delay)
		select {
		case <-s.stopChan:
			timer.Stop()
			return
		case <-timer.C:
		}

		s.tick()
	}
}

// tick is one periodic firing: gate on constraints, run, compute the
// next eligible time.
func (s *Scheduler) tick() {
	ctx := context.Background()

	if !ConstraintsMet(s.network.Available(ctx), s.battery.LevelPercent(), s.cfg.LowBatteryThreshold) {
		logging.Info().
			Int("battery", s.battery.LevelPercent()).
			Msg("Sync deferred, constraints not met")
		s.persistNext(s.now().Add(s.cfg.BackoffInitial), s.attempt)
		return
	}

	outcome, err := s.runOnce(ctx, "periodic")
	if err != nil {
		// A manual run holds the gate; check back shortly.
		s.persistNext(s.now().Add(s.cfg.BackoffInitial), s.attempt)
		return
	}

	if outcome.Kind == models.OutcomeFailure {
		s.attempt++
		if s.attempt >= s.cfg.MaxAttempts {
			logging.Warn().
				Int("attempts", s.attempt).
				Str("reason", outcome.Reason).
				Msg("Sync cycle exhausted retries, waiting for next cycle")
			s.attempt = 0
			s.persistNext(s.now().Add(s.cfg.Interval), 0)
			return
		}
		delay := Backoff(s.cfg.BackoffInitial, s.cfg.BackoffCeiling, s.attempt)
		logging.Info().
			Int("attempt", s.attempt).
			Dur("backoff", delay).
			Msg("Sync failed, retrying with backoff")
		s.persistNext(s.now().Add(delay), s.attempt)
		return
	}

	s.attempt = 0
	s.persistNext(s.now().Add(s.cfg.Interval), 0)
}

// runOnce executes the engine behind the single-flight gate, prunes on
// success, and broadcasts the outcome.
func (s *Scheduler) runOnce(ctx context.Context, trigger string) (models.SyncOutcome, error) {
	select {
	case s.runGate <- struct{}{}:
	default:
		return models.SyncOutcome{}, ErrSyncInProgress
	}
	defer func() { <-s.runGate }()

	outcome := s.engine.Run(ctx)
	metrics.SyncRuns.WithLabelValues(string(outcome.Kind), trigger).Inc()

	if outcome.Kind == models.OutcomeSuccess && s.pruner != nil {
		cutoff := s.now().Add(-s.cfg.PruneAfter).UnixMilli()
		pruned, err := s.pruner.DeleteOlderSyncedThan(ctx, cutoff)
		if err != nil {
			logging.Warn().Err(err).Msg("Post-sync prune failed")
		} else if pruned > 0 {
			logging.Info().Int64("pruned", pruned).Msg("Pruned old synced samples")
		}
	}

	if s.bus != nil {
		if err := s.bus.Publish(events.TopicSyncCompleted, events.SyncCompleted{
			Outcome:    outcome,
			Trigger:    trigger,
			FinishedAt: s.now().UnixMilli(),
		}); err != nil {
			logging.Warn().Err(err).Msg("Failed to publish sync outcome")
		}
	}

	return outcome, nil
}

// nextRunTime restores the persisted position, or starts a fresh cycle
// one interval out.
func (s *Scheduler) nextRunTime() time.Time {
	st, err := s.state.SchedulerState()
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to load scheduler state")
		return s.now().Add(s.cfg.Interval)
	}
	if st.NextRunAt > 0 {
		s.attempt = st.Attempt
		return time.UnixMilli(st.NextRunAt)
	}

	next := s.now().Add(s.cfg.Interval)
	s.persistNext(next, 0)
	return next
}

func (s *Scheduler) persistNext(next time.Time, attempt int) {
	err := s.state.SetSchedulerState(models.SchedulerState{
		NextRunAt: next.UnixMilli(),
		Attempt:   attempt,
	})
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to persist scheduler state")
	}
}
