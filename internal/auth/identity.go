// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

// Package auth provides the local identity: who is signed in right now.
// Sessions are JWTs persisted in the state store so identity survives a
// restart without talking to any server.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/aytachuseynli/waymark/internal/logging"
)

// sessionKey is the BadgerDB key holding the current session token.
const sessionKey = "identity:session"

// State is a point-in-time identity snapshot delivered to subscribers.
type State struct {
	SignedIn bool   `json:"signed_in"`
	UserID   string `json:"user_id"`
}

// Identity answers who the active user is and signals changes. Consumers
// that attribute data to a user (the capture loop, the tracking
// controller) depend on this interface only.
type Identity interface {
	// CurrentUserID returns the signed-in user id, empty when signed out.
	CurrentUserID() string
	// SignOut drops the local session. Local data is untouched.
	SignOut() error
	// DeleteAccount drops the local session as part of account removal.
	// Remote-side deletion is the tracking controller's job.
	DeleteAccount(ctx context.Context) error
	// Subscribe returns a channel of identity snapshots, primed with the
	// current state. The cancel function releases the subscription.
	Subscribe() (<-chan State, func())
}

// Manager is the badger-backed Identity implementation.
type Manager struct {
	jwt *JWTManager
	db  *badger.DB

	mu          sync.RWMutex
	userID      string
	subscribers map[int]chan State
	nextSubID   int
}

// NewManager loads any persisted session and validates it. An expired or
// tampered token is discarded; the manager starts signed out.
func NewManager(jwtManager *JWTManager, db *badger.DB) (*Manager, error) {
	m := &Manager{
		jwt:         jwtManager,
		db:          db,
		subscribers: make(map[int]chan State),
	}

	token, err := m.loadToken()
	if err != nil {
		return nil, err
	}
	if token != "" {
		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			logging.Warn().Err(err).Msg("Discarding invalid persisted session")
			if err := m.deleteToken(); err != nil {
				return nil, err
			}
		} else {
			m.userID = claims.UserID
			logging.Info().Str("user_id", claims.UserID).Msg("Session restored")
		}
	}

	return m, nil
}

// SignIn issues a session for the user and persists it. Any previous
// session is replaced.
func (m *Manager) SignIn(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user id must not be empty")
	}

	token, err := m.jwt.GenerateToken(userID)
	if err != nil {
		return "", err
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(sessionKey), []byte(token))
	})
	if err != nil {
		return "", fmt.Errorf("persist session: %w", err)
	}

	m.mu.Lock()
	m.userID = userID
	m.mu.Unlock()
	m.notify(State{SignedIn: true, UserID: userID})

	logging.Info().Str("user_id", userID).Msg("Signed in")
	return token, nil
}

// CurrentUserID returns the active user id, empty when signed out.
func (m *Manager) CurrentUserID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userID
}

// SignOut removes the persisted session and flips the state. Safe to call
// when already signed out.
func (m *Manager) SignOut() error {
	if err := m.deleteToken(); err != nil {
		return err
	}

	m.mu.Lock()
	wasSignedIn := m.userID != ""
	m.userID = ""
	m.mu.Unlock()

	if wasSignedIn {
		m.notify(State{})
		logging.Info().Msg("Signed out")
	}
	return nil
}

// DeleteAccount removes the local session. The caller handles remote-side
// account deletion first.
func (m *Manager) DeleteAccount(ctx context.Context) error {
	return m.SignOut()
}

// Subscribe registers an identity observer. The channel is buffered and
// primed with the current state; slow observers miss intermediate states
// but always converge on the latest.
func (m *Manager) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = ch
	current := State{SignedIn: m.userID != "", UserID: m.userID}
	m.mu.Unlock()

	ch <- current

	cancel := func() {
		m.mu.Lock()
		if _, ok := m.subscribers[id]; ok {
			delete(m.subscribers, id)
			close(ch)
		}
		m.mu.Unlock()
	}
	return ch, cancel
}

// notify delivers a state snapshot to every subscriber, replacing any
// undelivered older snapshot.
func (m *Manager) notify(s State) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ch := range m.subscribers {
		select {
		case ch <- s:
		default:
			// Drop the stale snapshot, then deliver the fresh one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

func (m *Manager) loadToken() (string, error) {
	var token string
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			token = string(val)
			return nil
		})
	})
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	return token, nil
}

func (m *Manager) deleteToken() error {
	err := m.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(sessionKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
