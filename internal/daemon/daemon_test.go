package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"briefcast/internal/jobs"
	"briefcast/internal/testsupport"
)

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	status, err := d.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || status.APIAddr == "" {
		t.Fatalf("status = %+v", status)
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", status.APIAddr))
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}
	var health struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode healthz: %v", err)
	}
	if health.Status != "ok" {
		t.Fatalf("healthz body = %+v", health)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("second Start should fail while running")
	}

	d.Stop()
	status, err = d.Status(ctx)
	if err != nil {
		t.Fatalf("Status after stop: %v", err)
	}
	if status.Running {
		t.Fatal("daemon should report stopped")
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New first: %v", err)
	}
	defer first.Close()

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start first: %v", err)
	}
	defer first.Stop()

	second, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New second: %v", err)
	}
	defer second.Close()
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("second instance should fail to acquire the lock")
	}
}

func TestStartFailsOrphanedJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	seed := testsupport.MustOpenJobs(t, cfg)
	job, err := seed.Create(ctx, "test-user", time.Now().UTC())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if claimed, err := seed.MarkStarted(ctx, job); err != nil || !claimed {
		t.Fatalf("MarkStarted: claimed=%v err=%v", claimed, err)
	}

	d, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	got, err := seed.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != jobs.StatusFailed {
		t.Fatalf("status = %q, want %q", got.Status, jobs.StatusFailed)
	}
	if got.ErrorMessage != jobs.DaemonStopReason {
		t.Fatalf("error message = %q", got.ErrorMessage)
	}
}
