// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/aytachuseynli/waymark/internal/events"
	"github.com/aytachuseynli/waymark/internal/models"
)

// setupBridge wires a served hub, a bus, and a running subscriber, and
// returns one registered client to observe broadcasts on.
func setupBridge(t *testing.T) (*events.Bus, *Client) {
	t.Helper()

	hub := setupHub(t)
	bus := events.NewBus()
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	sub := NewBusSubscriber(hub, bus)
	go func() {
		defer close(done)
		_ = sub.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Let the subscriptions attach before publishing.
	time.Sleep(20 * time.Millisecond)

	client := createTestClient(hub)
	registerClient(t, hub, client)
	return bus, client
}

// receiveMessage waits for the next frame of the wanted type, skipping
// unrelated ones.
func receiveMessage(t *testing.T, client *Client, wantType string) Message {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-client.send:
			if msg.Type == wantType {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q message", wantType)
		}
	}
}

func TestBusSubscriberForwardsSampleCaptured(t *testing.T) {
	bus, client := setupBridge(t)

	if err := bus.Publish(events.TopicSampleCaptured, events.SampleCaptured{Sample: testSample()}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	msg := receiveMessage(t, client, MessageTypeSampleCaptured)
	if msg.Data == nil {
		t.Fatal("expected sample payload, got nil")
	}
}

func TestBusSubscriberForwardsSyncCompleted(t *testing.T) {
	bus, client := setupBridge(t)

	ev := events.SyncCompleted{
		Outcome:    models.Success(12),
		Trigger:    "manual",
		FinishedAt: 1700000005000,
	}
	if err := bus.Publish(events.TopicSyncCompleted, ev); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	msg := receiveMessage(t, client, MessageTypeSyncCompleted)
	got, ok := msg.Data.(events.SyncCompleted)
	if !ok {
		t.Fatalf("expected events.SyncCompleted payload, got %T", msg.Data)
	}
	if got.Outcome.Count != 12 || got.Trigger != "manual" {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestBusSubscriberForwardsTrackingState(t *testing.T) {
	bus, client := setupBridge(t)

	if err := bus.Publish(events.TopicTrackingState, events.TrackingState{Running: true, UserID: "user-1"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	msg := receiveMessage(t, client, MessageTypeTrackingState)
	got, ok := msg.Data.(events.TrackingState)
	if !ok {
		t.Fatalf("expected events.TrackingState payload, got %T", msg.Data)
	}
	if !got.Running || got.UserID != "user-1" {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestBusSubscriberStopsOnCancel(t *testing.T) {
	hub := setupHub(t)
	bus := events.NewBus()
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- NewBusSubscriber(hub, bus).Serve(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop after cancellation")
	}
}
