package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"briefcast/internal/logging"
	"briefcast/internal/services"
	"briefcast/internal/testsupport"
)

type fakeContext struct {
	state      []byte
	stateErr   error
	closeCount int
}

func (f *fakeContext) StorageState(ctx context.Context) ([]byte, error) {
	if f.stateErr != nil {
		return nil, f.stateErr
	}
	return f.state, nil
}

func (f *fakeContext) Close() error {
	f.closeCount++
	return nil
}

type fakeBrowser struct {
	next    *fakeContext
	openErr error
	opened  int
}

func (f *fakeBrowser) Open(ctx context.Context, origin string) (AutomationContext, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opened++
	return f.next, nil
}

func newTestController(t *testing.T, browser Browser) *Controller {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return NewController(cfg, browser, logging.NewNop())
}

func TestStartConfirmWritesBlobAndClosesBrowser(t *testing.T) {
	fc := &fakeContext{state: []byte(`{"cookies":[]}`)}
	ctrl := newTestController(t, &fakeBrowser{next: fc})
	ctx := context.Background()

	started, err := ctrl.Start(ctx, "user-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if started.Handle == "" || !started.NeedsConfirmation {
		t.Fatalf("unexpected start result: %+v", started)
	}

	status := ctrl.Status()
	if !status.Active || status.UserID != "user-1" {
		t.Fatalf("unexpected status: %+v", status)
	}

	path, err := ctrl.Confirm(ctx, "user-1", started.Handle)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if path != started.CredentialsPath {
		t.Fatalf("path mismatch: %q vs %q", path, started.CredentialsPath)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}
	if string(data) != `{"cookies":[]}` {
		t.Fatalf("unexpected blob %s", data)
	}
	if fc.closeCount == 0 {
		t.Fatal("browser must be closed after confirm")
	}
	if ctrl.Status().Active {
		t.Fatal("no capture should remain active")
	}
}

func TestSecondStartIsConflict(t *testing.T) {
	ctrl := newTestController(t, &fakeBrowser{next: &fakeContext{state: []byte(`{}`)}})
	ctx := context.Background()

	if _, err := ctrl.Start(ctx, "user-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, err := ctrl.Start(ctx, "user-2")
	if !errors.Is(err, services.ErrCaptureConflict) {
		t.Fatalf("expected ErrCaptureConflict, got %v", err)
	}
}

func TestConfirmWithoutCaptureOrWrongHandle(t *testing.T) {
	ctrl := newTestController(t, &fakeBrowser{next: &fakeContext{state: []byte(`{}`)}})
	ctx := context.Background()

	if _, err := ctrl.Confirm(ctx, "user-1", "nope"); !errors.Is(err, services.ErrNoActiveSession) {
		t.Fatalf("confirm without capture: got %v", err)
	}

	started, err := ctrl.Start(ctx, "user-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := ctrl.Confirm(ctx, "user-1", "wrong-handle"); !errors.Is(err, services.ErrNoActiveSession) {
		t.Fatalf("wrong handle: got %v", err)
	}
	if _, err := ctrl.Confirm(ctx, "other-user", started.Handle); !errors.Is(err, services.ErrNoActiveSession) {
		t.Fatalf("wrong user: got %v", err)
	}
	// The real capture is still live and can be confirmed.
	if _, err := ctrl.Confirm(ctx, "user-1", started.Handle); err != nil {
		t.Fatalf("valid confirm after mismatches: %v", err)
	}
}

func TestConfirmFailureStillClosesBrowser(t *testing.T) {
	fc := &fakeContext{stateErr: errors.New("browser gone")}
	ctrl := newTestController(t, &fakeBrowser{next: fc})
	ctx := context.Background()

	started, err := ctrl.Start(ctx, "user-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := ctrl.Confirm(ctx, "user-1", started.Handle); err == nil {
		t.Fatal("expected confirm failure")
	}
	if fc.closeCount == 0 {
		t.Fatal("browser must be closed on failed confirm")
	}
	if ctrl.Status().Active {
		t.Fatal("failed confirm should clear the active capture")
	}
	// A new capture can start immediately.
	if _, err := ctrl.Start(ctx, "user-1"); err != nil {
		t.Fatalf("restart after failure: %v", err)
	}
}

func TestCancelClosesWithoutPersisting(t *testing.T) {
	fc := &fakeContext{state: []byte(`{}`)}
	ctrl := newTestController(t, &fakeBrowser{next: fc})
	ctx := context.Background()

	started, err := ctrl.Start(ctx, "user-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := ctrl.Cancel("user-1", started.Handle); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if fc.closeCount == 0 {
		t.Fatal("cancel must close the browser")
	}
	if _, err := os.Stat(started.CredentialsPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("cancel must not write a credentials file")
	}
}

func TestLocalPathFlattensUserID(t *testing.T) {
	got := LocalPath("/tmp/creds", "../evil/user")
	if filepath.Dir(got) != "/tmp/creds" {
		t.Fatalf("user id escaped the credentials dir: %q", got)
	}
}
