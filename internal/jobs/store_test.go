package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"briefcast/internal/jobs"
	"briefcast/internal/services"
	"briefcast/internal/testsupport"
)

func TestCreateAssignsIDAndScheduledState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJobs(t, cfg)

	ctx := context.Background()
	job, err := store.Create(ctx, "user-1", time.Now().UTC())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected job ID to be assigned")
	}
	if job.Status != jobs.StatusScheduled {
		t.Fatalf("expected scheduled status, got %s", job.Status)
	}
	if job.StartedAt != nil || job.CompletedAt != nil {
		t.Fatalf("expected no start/completion timestamps, got %#v", job)
	}
}

func TestCreateRejectsSecondActiveJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJobs(t, cfg)

	ctx := context.Background()
	first := testsupport.NewJob(t, store, "user-1")

	if _, err := store.Create(ctx, "user-1", time.Now().UTC()); !errors.Is(err, services.ErrJobAlreadyRunning) {
		t.Fatalf("expected ErrJobAlreadyRunning, got %v", err)
	}

	// A different user is unaffected.
	if _, err := store.Create(ctx, "user-2", time.Now().UTC()); err != nil {
		t.Fatalf("other user should be allowed: %v", err)
	}

	// Once the first job is terminal, the user may create another.
	first.SetFailed("boom")
	if err := store.Update(ctx, first); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if _, err := store.Create(ctx, "user-1", time.Now().UTC()); err != nil {
		t.Fatalf("expected create after terminal, got %v", err)
	}
}

func TestMarkStartedClaimsAtomically(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJobs(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "user-1")

	claimed, err := store.MarkStarted(ctx, job)
	if err != nil || !claimed {
		t.Fatalf("expected claim to succeed, claimed=%v err=%v", claimed, err)
	}
	if job.Status != jobs.StatusFetching || job.StartedAt == nil {
		t.Fatalf("claim should set fetching + started_at, got %#v", job)
	}
	if job.StartedAt.Before(job.ScheduledAt) {
		t.Fatalf("started_at %v before scheduled_at %v", job.StartedAt, job.ScheduledAt)
	}

	// A second claim of the same record is a no-op.
	again, err := store.MarkStarted(ctx, job)
	if err != nil {
		t.Fatalf("second claim errored: %v", err)
	}
	if again {
		t.Fatal("expected second claim to be rejected")
	}
}

func TestUpdateNormalizesTerminalBookkeeping(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJobs(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "user-1")
	if _, err := store.MarkStarted(ctx, job); err != nil {
		t.Fatalf("MarkStarted failed: %v", err)
	}

	job.Status = jobs.StatusFailed
	job.ErrorMessage = "replay failed"
	job.CompletedAt = nil
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	stored, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.CompletedAt == nil {
		t.Fatal("terminal job must carry completed_at")
	}
	if stored.StartedAt == nil || stored.CompletedAt.Before(*stored.StartedAt) {
		t.Fatalf("completed_at %v precedes started_at %v", stored.CompletedAt, stored.StartedAt)
	}
}

func TestNotebookIDIsWriteOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJobs(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "user-1")
	if _, err := store.MarkStarted(ctx, job); err != nil {
		t.Fatalf("MarkStarted failed: %v", err)
	}

	job.Status = jobs.StatusGenerating
	job.NotebookID = "nb-original"
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	job.NotebookID = "nb-overwrite"
	job.SetComplete()
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	stored, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.NotebookID != "nb-original" {
		t.Fatalf("notebook id must be immutable once set, got %q", stored.NotebookID)
	}
}

func TestListForUserOrdersByScheduledDesc(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJobs(t, cfg)

	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)
	var lastID string
	for i := 0; i < 3; i++ {
		job, err := store.Create(ctx, "user-1", base.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		job.SetFailed("done")
		if err := store.Update(ctx, job); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		lastID = job.ID
	}

	listed, err := store.ListForUser(ctx, "user-1", 0)
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(listed))
	}
	if listed[0].ID != lastID {
		t.Fatalf("expected newest scheduled first, got %s", listed[0].ID)
	}

	limited, err := store.ListForUser(ctx, "user-1", 2)
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected limit respected, got %d", len(limited))
	}
}

func TestFailOrphans(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJobs(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "user-1")
	if _, err := store.MarkStarted(ctx, job); err != nil {
		t.Fatalf("MarkStarted failed: %v", err)
	}

	count, err := store.FailOrphans(ctx, jobs.DaemonStopReason)
	if err != nil {
		t.Fatalf("FailOrphans failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 orphan failed, got %d", count)
	}

	stored, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Status != jobs.StatusFailed || stored.ErrorMessage != jobs.DaemonStopReason {
		t.Fatalf("unexpected orphan state: %#v", stored)
	}
	if stored.CompletedAt == nil {
		t.Fatal("orphaned job must be terminal with completed_at")
	}
}

func TestNextScheduledReturnsOldest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJobs(t, cfg)

	ctx := context.Background()
	older, err := store.Create(ctx, "user-1", time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.Create(ctx, "user-2", time.Now().UTC()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	next, err := store.NextScheduled(ctx)
	if err != nil {
		t.Fatalf("NextScheduled failed: %v", err)
	}
	if next == nil || next.ID != older.ID {
		t.Fatalf("expected oldest scheduled job, got %#v", next)
	}
}

func TestSourcesUsedRoundTrip(t *testing.T) {
	job := &jobs.Job{}
	used := jobs.SourcesUsed{RSSFeeds: 1, TotalItems: 4}
	if err := job.SetSourcesUsed(used); err != nil {
		t.Fatalf("SetSourcesUsed failed: %v", err)
	}
	if got := job.SourcesUsed(); got != used {
		t.Fatalf("SourcesUsed = %#v, want %#v", got, used)
	}
}

func TestHealthCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJobs(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "user-1")
	job.SetFailed("x")
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	testsupport.NewJob(t, store, "user-1")

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 2 || health.Failed != 1 || health.Scheduled != 1 {
		t.Fatalf("unexpected health summary: %#v", health)
	}
}
