// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

// Package location abstracts the source of position fixes. The capture
// loop only sees the Provider interface; device integrations implement it
// out of tree, and the built-in simulated provider serves development and
// standalone deployments.
package location

import (
	"context"
	"fmt"
	"time"

	"github.com/aytachuseynli/waymark/internal/config"
	"github.com/aytachuseynli/waymark/internal/models"
)

// Request describes the desired fix cadence.
type Request struct {
	// Interval is the target spacing between fixes.
	Interval time.Duration
	// MaxWait bounds how long the provider may coalesce fixes before
	// delivering them. Zero means deliver immediately.
	MaxWait time.Duration
}

// Subscription is a live stream of fixes.
type Subscription interface {
	// Fixes returns the delivery channel. It is closed after Cancel
	// returns or the subscribe context ends.
	Fixes() <-chan models.Fix
	// Cancel stops delivery. After Cancel returns, no further fix is
	// delivered on the channel.
	Cancel()
}

// Provider produces location fixes on demand. Subscribe returns an error
// when fixes cannot be obtained at all, for example when the platform
// denied location access; callers surface that as a failed tracking start.
type Provider interface {
	Subscribe(ctx context.Context, req Request) (Subscription, error)
}

// New builds the provider selected by configuration.
func New(cfg *config.ProviderConfig) (Provider, error) {
	switch cfg.Kind {
	case "simulated":
		return NewSimulatedProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown location provider kind %q", cfg.Kind)
	}
}
