// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

// Package remote is the client side of the server-side document store the
// sync engine uploads to. The engine only sees the Store interface; the
// HTTP implementation and its circuit breaker live behind it.
package remote

import (
	"context"
)

// Document is one location sample as the remote store receives it. ID is
// a fresh UUID per upload; DeviceLocalID is the device-side row id the
// endpoint uses to deduplicate re-uploads.
type Document struct {
	ID            string  `json:"id"`
	UserID        string  `json:"userId"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Accuracy      float64 `json:"accuracy"`
	CapturedAt    int64   `json:"capturedAt"`
	BatteryLevel  int     `json:"batteryLevel"`
	DeviceLocalID int64   `json:"deviceLocalId"`
}

// Store is the remote document store boundary. Implementations must be
// atomic per call: a returned error means nothing was persisted.
type Store interface {
	// CommitBatch uploads the documents in one atomic write.
	CommitBatch(ctx context.Context, docs []Document) error
	// DeleteWhere removes every document in collection whose field equals
	// value.
	DeleteWhere(ctx context.Context, collection, field, value string) error
	// DeleteDocument removes a single document by id.
	DeleteDocument(ctx context.Context, collection, id string) error
	// Ping checks remote reachability.
	Ping(ctx context.Context) error
}
