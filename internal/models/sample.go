// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

// Package models defines the data types shared across Waymark components.
package models

import "time"

// BatteryLevelUnknown is the sentinel stored when the battery subsystem
// cannot report a level.
const BatteryLevelUnknown = -1

// LocationSample is one captured location fix plus device metadata.
//
// A sample is immutable after insert except for the Synced flag, which
// transitions false to true exactly once and never reverts. IDs are assigned
// by the store and never reused while a row referencing them exists.
type LocationSample struct {
	ID        int64   `json:"id"`
	UserID    string  `json:"user_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	// Accuracy is the provider-reported radius in meters, never negative.
	Accuracy float64 `json:"accuracy"`
	// CapturedAt is epoch milliseconds set by the capture loop at write
	// time, not by the sensor.
	CapturedAt int64 `json:"captured_at"`
	// BatteryLevel is 0-100, or BatteryLevelUnknown when unreadable.
	BatteryLevel int  `json:"battery_level"`
	Synced       bool `json:"synced"`
}

// CapturedTime returns the capture timestamp as a time.Time.
func (s *LocationSample) CapturedTime() time.Time {
	return time.UnixMilli(s.CapturedAt)
}

// TrackingPreferences is the single mutable per-device record gating the
// capture loop and sync scheduler. Cleared to defaults on sign-out and
// account deletion.
type TrackingPreferences struct {
	TrackingEnabled bool   `json:"tracking_enabled"`
	ActiveUserID    string `json:"active_user_id"`
}

// Fix is a raw location reading delivered by a location provider.
type Fix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Time      time.Time `json:"time"`
}
