// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

package websocket

import (
	"context"

	"github.com/aytachuseynli/waymark/internal/events"
	"github.com/aytachuseynli/waymark/internal/logging"
)

// BusSubscriber forwards internal bus events to connected websocket
// clients so observers see captures, sync outcomes, and tracking state
// changes in real time.
type BusSubscriber struct {
	hub *Hub
	bus *events.Bus
}

// NewBusSubscriber creates a subscriber bridging the bus to the hub.
func NewBusSubscriber(hub *Hub, bus *events.Bus) *BusSubscriber {
	return &BusSubscriber{hub: hub, bus: bus}
}

// Serve consumes bus topics until the context is cancelled. It
// implements suture.Service.
func (s *BusSubscriber) Serve(ctx context.Context) error {
	captured, err := s.bus.Subscribe(ctx, events.TopicSampleCaptured)
	if err != nil {
		return err
	}
	completed, err := s.bus.Subscribe(ctx, events.TopicSyncCompleted)
	if err != nil {
		return err
	}
	tracking, err := s.bus.Subscribe(ctx, events.TopicTrackingState)
	if err != nil {
		return err
	}

	logging.Info().Msg("Websocket bus subscriber started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-captured:
			if !ok {
				return ctx.Err()
			}
			var ev events.SampleCaptured
			if err := events.Decode(msg, &ev); err != nil {
				logging.Warn().Err(err).Msg("Failed to decode sample captured event")
				continue
			}
			s.hub.Broadcast(MessageTypeSampleCaptured, ev.Sample)

		case msg, ok := <-completed:
			if !ok {
				return ctx.Err()
			}
			var ev events.SyncCompleted
			if err := events.Decode(msg, &ev); err != nil {
				logging.Warn().Err(err).Msg("Failed to decode sync completed event")
				continue
			}
			s.hub.Broadcast(MessageTypeSyncCompleted, ev)

		case msg, ok := <-tracking:
			if !ok {
				return ctx.Err()
			}
			var ev events.TrackingState
			if err := events.Decode(msg, &ev); err != nil {
				logging.Warn().Err(err).Msg("Failed to decode tracking state event")
				continue
			}
			s.hub.Broadcast(MessageTypeTrackingState, ev)
		}
	}
}

// String identifies the service in supervisor logs.
func (s *BusSubscriber) String() string {
	return "websocket-bus-subscriber"
}
