// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

// Package capture turns raw location fixes into persisted samples. The
// loop is the only writer of new samples: it attributes each fix to the
// signed-in user, enriches it with the battery level, and inserts it into
// the local store. Nothing here touches the network.
package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/aytachuseynli/waymark/internal/battery"
	"github.com/aytachuseynli/waymark/internal/config"
	"github.com/aytachuseynli/waymark/internal/events"
	"github.com/aytachuseynli/waymark/internal/location"
	"github.com/aytachuseynli/waymark/internal/logging"
	"github.com/aytachuseynli/waymark/internal/metrics"
	"github.com/aytachuseynli/waymark/internal/models"
)

// SampleSink is the store slice the loop writes to.
type SampleSink interface {
	Insert(ctx context.Context, sample *models.LocationSample) (int64, error)
}

// IdentitySource answers who the active user is.
type IdentitySource interface {
	CurrentUserID() string
}

// Loop is the background capture task.
type Loop struct {
	provider location.Provider
	sink     SampleSink
	identity IdentitySource
	battery  battery.Monitor
	bus      *events.Bus
	cfg      config.CaptureConfig
	now      func() time.Time

	mu      sync.Mutex
	running bool
	sub     location.Subscription
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	limiter *rate.Limiter
	last    *models.LocationSample
}

// New creates a capture loop. Nothing runs until Start.
func New(cfg config.CaptureConfig, provider location.Provider, sink SampleSink, identity IdentitySource, batteryMon battery.Monitor, bus *events.Bus) *Loop {
	return &Loop{
		provider: provider,
		sink:     sink,
		identity: identity,
		battery:  batteryMon,
		bus:      bus,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Start subscribes to the provider and begins persisting fixes. Calling
// Start on a running loop is a no-op. A provider that cannot deliver
// fixes (no permission, no hardware) surfaces here as an error and the
// loop stays stopped.
func (l *Loop) Start() error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := l.provider.Subscribe(ctx, location.Request{
		Interval: l.cfg.Interval,
		MaxWait:  l.cfg.MaxWait,
	})
	if err != nil {
		cancel()
		l.mu.Unlock()
		return fmt.Errorf("subscribe to location provider: %w", err)
	}

	l.running = true
	l.sub = sub
	l.cancel = cancel
	// Allow the first fix immediately, then one per FastestInterval.
	l.limiter = rate.NewLimiter(rate.Every(l.cfg.FastestInterval), 1)
	l.mu.Unlock()

	logging.Info().
		Dur("interval", l.cfg.Interval).
		Dur("fastest_interval", l.cfg.FastestInterval).
		Msg("Capture loop started")

	l.publishState(true)

	l.wg.Add(1)
	go l.run(ctx, sub)
	return nil
}

// Stop unsubscribes and waits for the consumer to drain. After Stop
// returns, no further sample is written. Safe to call when stopped.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	sub := l.sub
	cancel := l.cancel
	l.sub = nil
	l.cancel = nil
	l.mu.Unlock()

	// Cancel guarantees no delivery after it returns.
	sub.Cancel()
	cancel()
	l.wg.Wait()

	l.publishState(false)
	logging.Info().Msg("Capture loop stopped")
}

// IsRunning reports whether the loop is capturing.
func (l *Loop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// LastSample returns the most recently persisted sample, nil before the
// first one.
func (l *Loop) LastSample() *models.LocationSample {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

// Serve runs the loop under a supervisor until ctx ends.
func (l *Loop) Serve(ctx context.Context) error {
	if err := l.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	l.Stop()
	return ctx.Err()
}

func (l *Loop) run(ctx context.Context, sub location.Subscription) {
	defer l.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case fix, ok := <-sub.Fixes():
			if !ok {
				return
			}
			l.handleFix(ctx, fix)
		}
	}
}

// handleFix applies the attribution and rate gates, then persists.
func (l *Loop) handleFix(ctx context.Context, fix models.Fix) {
	userID := l.identity.CurrentUserID()
	if userID == "" {
		// Expected during sign-out windows; the fix has no owner.
		metrics.FixesDiscarded.WithLabelValues("no_user").Inc()
		logging.Debug().Msg("Discarding fix, no signed-in user")
		return
	}

	if !l.limiterAllow() {
		metrics.FixesDiscarded.WithLabelValues("rate_limited").Inc()
		logging.Debug().Msg("Discarding fix, faster than fastest interval")
		return
	}

	sample := &models.LocationSample{
		UserID:       userID,
		Latitude:     fix.Latitude,
		Longitude:    fix.Longitude,
		Accuracy:     fix.Accuracy,
		CapturedAt:   l.now().UnixMilli(),
		BatteryLevel: l.battery.LevelPercent(),
	}

	if _, err := l.sink.Insert(ctx, sample); err != nil {
		// This fix is lost; the next one supersedes it.
		metrics.FixesDiscarded.WithLabelValues("store_error").Inc()
		logging.Warn().Err(err).Msg("Failed to persist sample")
		return
	}

	metrics.SamplesCaptured.Inc()

	l.mu.Lock()
	l.last = sample
	l.mu.Unlock()

	if l.bus != nil {
		if err := l.bus.Publish(events.TopicSampleCaptured, events.SampleCaptured{Sample: *sample}); err != nil {
			logging.Warn().Err(err).Msg("Failed to publish captured sample")
		}
	}
}

func (l *Loop) limiterAllow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.limiter == nil {
		return true
	}
	return l.limiter.Allow()
}

func (l *Loop) publishState(running bool) {
	if l.bus == nil {
		return
	}
	userID := ""
	if running {
		userID = l.identity.CurrentUserID()
	}
	if err := l.bus.Publish(events.TopicTrackingState, events.TrackingState{
		Running: running,
		UserID:  userID,
	}); err != nil {
		logging.Warn().Err(err).Msg("Failed to publish tracking state")
	}
}
