// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

// Package events provides the in-process event bus connecting the store,
// capture loop, syncer, and websocket hub.
//
// The bus is a Watermill gochannel Pub/Sub: every topic fans out to all
// subscribers, delivery is in-order per publisher, and subscriptions end
// with their context. Payloads are JSON-encoded event structs from this
// package.
package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/aytachuseynli/waymark/internal/logging"
	"github.com/aytachuseynli/waymark/internal/models"
)

// Topics carried by the bus.
const (
	// TopicSamplesChanged fires after any mutation of the sample table.
	// Live store views re-query on it.
	TopicSamplesChanged = "samples.changed"

	// TopicSampleCaptured fires after the capture loop persists a fix.
	TopicSampleCaptured = "sample.captured"

	// TopicSyncCompleted fires after every sync engine run.
	TopicSyncCompleted = "sync.completed"

	// TopicTrackingState fires on tracking session start/stop.
	TopicTrackingState = "tracking.state"
)

// SamplesChanged describes a mutation of the sample table.
type SamplesChanged struct {
	// Op is the mutating operation: insert, mark_synced, delete.
	Op string `json:"op"`
	// UserID is the affected user, empty for table-wide operations.
	UserID string `json:"user_id,omitempty"`
}

// SampleCaptured carries a freshly persisted sample.
type SampleCaptured struct {
	Sample models.LocationSample `json:"sample"`
}

// SyncCompleted carries the outcome of a sync engine run.
type SyncCompleted struct {
	Outcome models.SyncOutcome `json:"outcome"`
	// Trigger is "periodic" or "manual".
	Trigger string `json:"trigger"`
	// FinishedAt is epoch milliseconds.
	FinishedAt int64 `json:"finished_at"`
}

// TrackingState describes a tracking session transition.
type TrackingState struct {
	Running bool   `json:"running"`
	UserID  string `json:"user_id,omitempty"`
}

// Bus wraps a gochannel Pub/Sub with JSON payload encoding.
type Bus struct {
	pubsub *gochannel.GoChannel
}

// NewBus creates the in-process event bus.
func NewBus() *Bus {
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewSlogLogger(logging.NewSlogLogger()),
	)
	return &Bus{pubsub: pubsub}
}

// Publish JSON-encodes payload and publishes it on topic.
// Publishing never blocks on slow subscribers beyond the channel buffer.
func (b *Bus) Publish(topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe returns a channel of raw messages for topic. The subscription
// ends when ctx is canceled. Callers must Ack every message.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	ch, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return ch, nil
}

// Close shuts the bus down and terminates all subscriptions.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// Decode unmarshals a bus message payload into out and acks the message.
func Decode(msg *message.Message, out any) error {
	defer msg.Ack()
	if err := json.Unmarshal(msg.Payload, out); err != nil {
		return fmt.Errorf("decode event payload: %w", err)
	}
	return nil
}
