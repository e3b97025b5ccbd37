// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/aytachuseynli/waymark/internal/config"
	"github.com/aytachuseynli/waymark/internal/prefs"
)

const testSecret = "test-secret-at-least-32-characters!!"

func setupManager(t *testing.T) (*Manager, *prefs.Store) {
	t.Helper()

	state, err := prefs.Open(&config.StateConfig{InMemory: true})
	if err != nil {
		t.Fatalf("open state store: %v", err)
	}
	t.Cleanup(func() { state.Close() })

	jwtManager, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:      testSecret,
		SessionTimeout: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}

	m, err := NewManager(jwtManager, state.DB())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m, state
}

func TestFreshManagerIsSignedOut(t *testing.T) {
	m, _ := setupManager(t)
	if got := m.CurrentUserID(); got != "" {
		t.Errorf("fresh manager has user %q", got)
	}
}

func TestSignInSignOut(t *testing.T) {
	m, _ := setupManager(t)

	token, err := m.SignIn(context.Background(), "u1")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}
	if got := m.CurrentUserID(); got != "u1" {
		t.Errorf("got user %q, want u1", got)
	}

	if err := m.SignOut(); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if got := m.CurrentUserID(); got != "" {
		t.Errorf("still signed in as %q", got)
	}

	// Signing out twice is harmless.
	if err := m.SignOut(); err != nil {
		t.Errorf("second SignOut: %v", err)
	}
}

func TestSignInRejectsEmptyUser(t *testing.T) {
	m, _ := setupManager(t)
	if _, err := m.SignIn(context.Background(), ""); err == nil {
		t.Error("expected error for empty user id")
	}
}

func TestSessionSurvivesRestart(t *testing.T) {
	m, state := setupManager(t)

	if _, err := m.SignIn(context.Background(), "u1"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	jwtManager, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:      testSecret,
		SessionTimeout: time.Hour,
	})
	if err != nil {
		t.Fatal(err)
	}
	restarted, err := NewManager(jwtManager, state.DB())
	if err != nil {
		t.Fatalf("NewManager after restart: %v", err)
	}
	if got := restarted.CurrentUserID(); got != "u1" {
		t.Errorf("restored user %q, want u1", got)
	}
}

func TestExpiredSessionDiscardedOnLoad(t *testing.T) {
	state, err := prefs.Open(&config.StateConfig{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { state.Close() })

	shortLived, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:      testSecret,
		SessionTimeout: time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewManager(shortLived, state.DB())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.SignIn(context.Background(), "u1"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	restarted, err := NewManager(shortLived, state.DB())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if got := restarted.CurrentUserID(); got != "" {
		t.Errorf("expired session restored as %q", got)
	}
}

func TestSubscribeDeliversStateChanges(t *testing.T) {
	m, _ := setupManager(t)

	states, cancel := m.Subscribe()
	defer cancel()

	// Primed with the current (signed out) state.
	select {
	case s := <-states:
		if s.SignedIn {
			t.Errorf("initial state signed in: %+v", s)
		}
	case <-time.After(time.Second):
		t.Fatal("no initial state")
	}

	if _, err := m.SignIn(context.Background(), "u1"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	select {
	case s := <-states:
		if !s.SignedIn || s.UserID != "u1" {
			t.Errorf("got %+v, want signed in as u1", s)
		}
	case <-time.After(time.Second):
		t.Fatal("no sign-in state")
	}

	if err := m.SignOut(); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	select {
	case s := <-states:
		if s.SignedIn {
			t.Errorf("got %+v after sign-out", s)
		}
	case <-time.After(time.Second):
		t.Fatal("no sign-out state")
	}
}

func TestSlowSubscriberSeesLatestState(t *testing.T) {
	m, _ := setupManager(t)

	states, cancel := m.Subscribe()
	defer cancel()
	// Do not drain: the initial snapshot still occupies the buffer.

	if _, err := m.SignIn(context.Background(), "u1"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	// The stale snapshot was replaced by the sign-in state.
	select {
	case s := <-states:
		if !s.SignedIn || s.UserID != "u1" {
			t.Errorf("got %+v, want latest state", s)
		}
	case <-time.After(time.Second):
		t.Fatal("no state delivered")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	jwtManager, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:      testSecret,
		SessionTimeout: time.Hour,
	})
	if err != nil {
		t.Fatal(err)
	}

	token, err := jwtManager.GenerateToken("u1")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := jwtManager.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != "u1" || claims.Subject != "u1" {
		t.Errorf("claims %+v, want user u1", claims)
	}

	if _, err := jwtManager.ValidateToken(token + "tampered"); err == nil {
		t.Error("tampered token accepted")
	}
}
