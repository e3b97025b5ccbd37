// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

package location

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/aytachuseynli/waymark/internal/config"
	"github.com/aytachuseynli/waymark/internal/logging"
	"github.com/aytachuseynli/waymark/internal/models"
)

// walkStepDegrees is the maximum per-tick drift of the random walk,
// roughly 50 meters of latitude.
const walkStepDegrees = 0.0005

// SimulatedProvider emits a ticker-driven random walk around a starting
// coordinate. Deterministic when seeded.
type SimulatedProvider struct {
	startLat float64
	startLon float64
	seed     int64
}

// NewSimulatedProvider creates a simulated provider anchored at the
// configured coordinates.
func NewSimulatedProvider(cfg *config.ProviderConfig) *SimulatedProvider {
	return &SimulatedProvider{
		startLat: cfg.StartLatitude,
		startLon: cfg.StartLongitude,
		seed:     cfg.Seed,
	}
}

// Subscribe starts a fix stream at the requested cadence.
func (p *SimulatedProvider) Subscribe(ctx context.Context, req Request) (Subscription, error) {
	if req.Interval <= 0 {
		return nil, fmt.Errorf("fix interval must be positive, got %s", req.Interval)
	}

	seed := p.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	sub := &simSubscription{
		fixes: make(chan models.Fix),
		stop:  make(chan struct{}),
	}

	sub.wg.Add(1)
	go sub.run(ctx, req, p.startLat, p.startLon, rand.New(rand.NewSource(seed)))

	logging.Debug().
		Str("component", "location").
		Dur("interval", req.Interval).
		Int64("seed", seed).
		Msg("Simulated fix stream started")

	return sub, nil
}

type simSubscription struct {
	fixes chan models.Fix
	stop  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
}

func (s *simSubscription) Fixes() <-chan models.Fix {
	return s.fixes
}

// Cancel stops the stream and waits for the delivery goroutine to exit,
// so no fix can arrive after it returns.
func (s *simSubscription) Cancel() {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
}

func (s *simSubscription) run(ctx context.Context, req Request, lat, lon float64, rng *rand.Rand) {
	defer s.wg.Done()
	defer close(s.fixes)

	ticker := time.NewTicker(req.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			lat += (rng.Float64()*2 - 1) * walkStepDegrees
			lon += (rng.Float64()*2 - 1) * walkStepDegrees
			fix := models.Fix{
				Latitude:  lat,
				Longitude: lon,
				Accuracy:  5 + rng.Float64()*20,
				Time:      time.Now(),
			}
			select {
			case s.fixes <- fix:
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}
