// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/aytachuseynli/waymark/internal/auth"
	"github.com/aytachuseynli/waymark/internal/config"
	"github.com/aytachuseynli/waymark/internal/logging"
	"github.com/aytachuseynli/waymark/internal/models"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "disabled",
		Format: "console",
		Output: io.Discard,
	})
}

const testJWTSecret = "0123456789abcdef0123456789abcdef"

// fakeStore implements SampleReader in memory.
type fakeStore struct {
	samples  []*models.LocationSample
	unsynced int64
	pingErr  error
	listErr  error
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) ListRecent(_ context.Context, userID string, limit int) ([]*models.LocationSample, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.LocationSample
	for _, s := range f.samples {
		if s.UserID == userID {
			out = append(out, s)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) LastForUser(_ context.Context, userID string) (*models.LocationSample, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	for _, s := range f.samples {
		if s.UserID == userID {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) UnsyncedCount(context.Context) (int64, error) {
	return f.unsynced, nil
}

// fakeTracking implements TrackingController.
type fakeTracking struct {
	startErr  error
	deleteErr error
	started   bool
	stopped   bool
	signedOut bool
	deleted   bool
}

func (f *fakeTracking) Start(context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	return nil
}

func (f *fakeTracking) Stop() { f.stopped = true }

func (f *fakeTracking) SignOut() error {
	f.signedOut = true
	return nil
}

func (f *fakeTracking) DeleteAccount(context.Context) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = true
	return nil
}

// fakeSync implements SyncController.
type fakeSync struct {
	outcome    models.SyncOutcome
	triggerErr error
	scheduled  bool
	triggered  bool
}

func (f *fakeSync) TriggerNow(context.Context) (models.SyncOutcome, error) {
	if f.triggerErr != nil {
		return models.SyncOutcome{}, f.triggerErr
	}
	f.triggered = true
	return f.outcome, nil
}

func (f *fakeSync) IsScheduled() bool { return f.scheduled }

// fakeCapture implements CaptureStatus.
type fakeCapture struct {
	running bool
	last    *models.LocationSample
}

func (f *fakeCapture) IsRunning() bool                    { return f.running }
func (f *fakeCapture) LastSample() *models.LocationSample { return f.last }

// fakeIdentity implements Identity.
type fakeIdentity struct {
	jwt    *auth.JWTManager
	userID string
}

func (f *fakeIdentity) SignIn(_ context.Context, userID string) (string, error) {
	f.userID = userID
	return f.jwt.GenerateToken(userID)
}

func (f *fakeIdentity) CurrentUserID() string { return f.userID }

// fakeState implements SchedulerStateReader.
type fakeState struct {
	state models.SchedulerState
}

func (f *fakeState) SchedulerState() (models.SchedulerState, error) {
	return f.state, nil
}

// testEnv bundles the fakes behind one router instance.
type testEnv struct {
	server   *httptest.Server
	store    *fakeStore
	tracking *fakeTracking
	sync     *fakeSync
	capture  *fakeCapture
	identity *fakeIdentity
	state    *fakeState
	token    string
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			RateLimitReqs:   1000,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Security: config.SecurityConfig{
			JWTSecret:      testJWTSecret,
			SessionTimeout: time.Hour,
		},
	}

	jwt, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatalf("NewJWTManager failed: %v", err)
	}

	env := &testEnv{
		store:    &fakeStore{},
		tracking: &fakeTracking{},
		sync:     &fakeSync{},
		capture:  &fakeCapture{},
		identity: &fakeIdentity{jwt: jwt, userID: "user-1"},
		state:    &fakeState{},
	}

	handler := NewHandler(cfg, env.store, env.tracking, env.sync, env.capture, env.identity, jwt, env.state, nil)
	router := NewRouter(handler, NewMiddleware(cfg.Server))

	env.server = httptest.NewServer(router.Setup())
	t.Cleanup(env.server.Close)

	token, err := jwt.GenerateToken("user-1")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	env.token = token
	return env
}

// doRequest performs a request against the test server, attaching the
// bearer token unless token is empty.
func (env *testEnv) doRequest(t *testing.T, method, path, token, body string) (*http.Response, APIResponse) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, env.server.URL+path, reader)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := env.server.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	var parsed APIResponse
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil && err != io.EOF {
			t.Fatalf("decode response failed: %v", err)
		}
	}
	return resp, parsed
}

func sampleForUser(id int64, userID string) *models.LocationSample {
	return &models.LocationSample{
		ID:           id,
		UserID:       userID,
		Latitude:     40.4093,
		Longitude:    49.8671,
		Accuracy:     8,
		CapturedAt:   1700000000000 + id,
		BatteryLevel: 55,
	}
}
