// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

package tracking

import (
	"context"
	"errors"
	"testing"

	"github.com/aytachuseynli/waymark/internal/config"
	"github.com/aytachuseynli/waymark/internal/models"
)

type fakeCapture struct {
	running  bool
	startErr error
	starts   int
	stops    int
}

func (f *fakeCapture) Start() error {
	f.starts++
	if f.startErr != nil {
		return f.startErr
	}
	f.running = true
	return nil
}
func (f *fakeCapture) Stop()           { f.stops++; f.running = false }
func (f *fakeCapture) IsRunning() bool { return f.running }

type fakeScheduler struct {
	scheduled bool
	cancels   int
}

func (f *fakeScheduler) Schedule() { f.scheduled = true }
func (f *fakeScheduler) Cancel()   { f.cancels++; f.scheduled = false }

type fakeIdentity struct {
	userID   string
	signOuts int
	deletes  int
}

func (f *fakeIdentity) CurrentUserID() string { return f.userID }
func (f *fakeIdentity) SignOut() error        { f.signOuts++; f.userID = ""; return nil }
func (f *fakeIdentity) DeleteAccount(ctx context.Context) error {
	f.deletes++
	f.userID = ""
	return nil
}

type fakeStore struct {
	deletedUsers []string
}

func (f *fakeStore) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	f.deletedUsers = append(f.deletedUsers, userID)
	return 3, nil
}

type fakePrefs struct {
	p      models.TrackingPreferences
	clears int
}

func (f *fakePrefs) TrackingPreferences() (models.TrackingPreferences, error) { return f.p, nil }
func (f *fakePrefs) SetTrackingPreferences(p models.TrackingPreferences) error {
	f.p = p
	return nil
}
func (f *fakePrefs) ClearTrackingPreferences() error {
	f.clears++
	f.p = models.TrackingPreferences{}
	return nil
}

type remoteCall struct {
	op, collection, field, value string
}

type fakeRemote struct {
	calls       []remoteCall
	deleteWhere error
	deleteDoc   error
}

func (f *fakeRemote) DeleteWhere(ctx context.Context, collection, field, value string) error {
	if f.deleteWhere != nil {
		return f.deleteWhere
	}
	f.calls = append(f.calls, remoteCall{"delete_where", collection, field, value})
	return nil
}
func (f *fakeRemote) DeleteDocument(ctx context.Context, collection, id string) error {
	if f.deleteDoc != nil {
		return f.deleteDoc
	}
	f.calls = append(f.calls, remoteCall{"delete_document", collection, "", id})
	return nil
}

func remoteCfg() config.RemoteConfig {
	return config.RemoteConfig{
		LocationsCollection: "locations",
		UsersCollection:     "users",
	}
}

func newController(userID string) (*Controller, *fakeCapture, *fakeScheduler, *fakeIdentity, *fakeStore, *fakePrefs, *fakeRemote) {
	capture := &fakeCapture{}
	sched := &fakeScheduler{}
	identity := &fakeIdentity{userID: userID}
	store := &fakeStore{}
	prefsStore := &fakePrefs{}
	rem := &fakeRemote{}
	c := New(capture, sched, identity, store, prefsStore, rem, remoteCfg())
	return c, capture, sched, identity, store, prefsStore, rem
}

func TestStartRunsEverythingAndPersists(t *testing.T) {
	c, capture, sched, _, _, prefsStore, _ := newController("u1")

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !capture.running || !sched.scheduled {
		t.Error("capture or scheduler not started")
	}
	if !prefsStore.p.TrackingEnabled || prefsStore.p.ActiveUserID != "u1" {
		t.Errorf("prefs %+v", prefsStore.p)
	}
}

func TestStartRequiresUser(t *testing.T) {
	c, capture, _, _, _, _, _ := newController("")

	if err := c.Start(context.Background()); !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("got %v, want ErrNotSignedIn", err)
	}
	if capture.starts != 0 {
		t.Error("capture started without a user")
	}
}

func TestStartSurfacesProviderFailure(t *testing.T) {
	c, capture, sched, _, _, prefsStore, _ := newController("u1")
	capture.startErr = errors.New("location permission denied")

	err := c.Start(context.Background())
	if err == nil {
		t.Fatal("expected start failure")
	}
	if sched.scheduled {
		t.Error("scheduler started despite capture failure")
	}
	if prefsStore.p.TrackingEnabled {
		t.Error("prefs enabled despite failed start")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	c, capture, sched, _, _, prefsStore, _ := newController("u1")

	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	c.Stop()
	c.Stop()

	if capture.running || sched.scheduled {
		t.Error("still running after Stop")
	}
	if prefsStore.p.TrackingEnabled {
		t.Error("prefs still enabled")
	}
	// The user association survives a plain stop.
	if prefsStore.p.ActiveUserID != "u1" {
		t.Errorf("user cleared on stop: %+v", prefsStore.p)
	}
}

func TestSignOutClearsPrefsKeepsSamples(t *testing.T) {
	c, _, _, identity, store, prefsStore, _ := newController("u1")

	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := c.SignOut(); err != nil {
		t.Fatalf("SignOut: %v", err)
	}

	if identity.signOuts != 1 {
		t.Error("identity not signed out")
	}
	if prefsStore.clears != 1 {
		t.Error("prefs not cleared")
	}
	if len(store.deletedUsers) != 0 {
		t.Error("local samples deleted on sign-out")
	}
}

func TestDeleteAccountRemoteFirst(t *testing.T) {
	c, capture, _, identity, store, prefsStore, rem := newController("u1")

	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteAccount(context.Background()); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}

	if len(rem.calls) != 2 {
		t.Fatalf("remote calls %d, want 2", len(rem.calls))
	}
	if rem.calls[0] != (remoteCall{"delete_where", "locations", "userId", "u1"}) {
		t.Errorf("first remote call %+v", rem.calls[0])
	}
	if rem.calls[1] != (remoteCall{"delete_document", "users", "", "u1"}) {
		t.Errorf("second remote call %+v", rem.calls[1])
	}

	if capture.running {
		t.Error("capture still running")
	}
	if len(store.deletedUsers) != 1 || store.deletedUsers[0] != "u1" {
		t.Errorf("local purge %v", store.deletedUsers)
	}
	if prefsStore.clears != 1 {
		t.Error("prefs not cleared")
	}
	if identity.deletes != 1 {
		t.Error("local session not removed")
	}
}

func TestDeleteAccountRemoteFailureLeavesDeviceIntact(t *testing.T) {
	c, capture, _, identity, store, prefsStore, rem := newController("u1")
	rem.deleteWhere = errors.New("503 service unavailable")

	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteAccount(context.Background()); err == nil {
		t.Fatal("expected remote failure to propagate")
	}

	if !capture.running {
		t.Error("capture stopped despite remote failure")
	}
	if len(store.deletedUsers) != 0 {
		t.Error("local samples purged despite remote failure")
	}
	if prefsStore.clears != 0 {
		t.Error("prefs cleared despite remote failure")
	}
	if identity.userID != "u1" {
		t.Error("session dropped despite remote failure")
	}
}

func TestAutoResume(t *testing.T) {
	c, capture, _, _, _, prefsStore, _ := newController("u1")
	prefsStore.p = models.TrackingPreferences{TrackingEnabled: true, ActiveUserID: "u1"}

	if err := c.AutoResume(context.Background()); err != nil {
		t.Fatalf("AutoResume: %v", err)
	}
	if !capture.running {
		t.Error("tracking not resumed")
	}
}

func TestAutoResumeSkipsWhenDisabledOrMismatched(t *testing.T) {
	c, capture, _, _, _, prefsStore, _ := newController("u1")

	// Disabled: nothing happens.
	if err := c.AutoResume(context.Background()); err != nil {
		t.Fatal(err)
	}
	if capture.starts != 0 {
		t.Error("resumed while disabled")
	}

	// Enabled for somebody else: skipped.
	prefsStore.p = models.TrackingPreferences{TrackingEnabled: true, ActiveUserID: "other"}
	if err := c.AutoResume(context.Background()); err != nil {
		t.Fatal(err)
	}
	if capture.starts != 0 {
		t.Error("resumed for mismatched user")
	}
}
