package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"briefcast/internal/jobs"
	"briefcast/internal/logging"
	"briefcast/internal/notifications"
	"briefcast/internal/services"
	"briefcast/internal/sources"
	"briefcast/internal/testsupport"
)

type fakeClient struct {
	mu           sync.Mutex
	notebookID   string
	createErr    error
	audioErr     error
	createCalls  int
	audioCalls   int
	createdTitle string
	createdItems int
}

func (f *fakeClient) CreateNotebook(ctx context.Context, session []byte, title string, items []sources.Item) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.createdTitle = title
	f.createdItems = len(items)
	if f.createErr != nil {
		return "", f.createErr
	}
	if f.notebookID == "" {
		f.notebookID = "nb-test"
	}
	return f.notebookID, nil
}

func (f *fakeClient) GenerateAudio(ctx context.Context, session []byte, notebookID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audioCalls++
	return f.audioErr
}

type recordingNotifier struct {
	mu        sync.Mutex
	completed []string
	failed    []string
}

var _ notifications.Service = (*recordingNotifier)(nil)

func (r *recordingNotifier) NotifyJobCompleted(ctx context.Context, userID, notebookID string, totalItems int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, userID)
	return nil
}

func (r *recordingNotifier) NotifyJobFailed(ctx context.Context, userID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, reason)
	return nil
}

func (r *recordingNotifier) NotifyCredentialRevoked(ctx context.Context, userID string) error {
	return nil
}

func (r *recordingNotifier) NotifyError(ctx context.Context, err error, contextLabel string) error {
	return nil
}

func (r *recordingNotifier) TestNotification(ctx context.Context) error { return nil }

type fixture struct {
	manager  *Manager
	jobs     *jobs.Store
	client   *fakeClient
	notifier *recordingNotifier
	userID   string
}

func newFixture(t *testing.T, collectors []sources.Collector, client *fakeClient, connected bool) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	jobStore := testsupport.MustOpenJobs(t, cfg)
	credStore := testsupport.MustOpenCredentials(t, cfg)
	sourceStore := testsupport.MustOpenSources(t, cfg)
	ctx := context.Background()

	if err := sourceStore.AddFeed(ctx, "test-user", "Feed", "https://example.com/rss"); err != nil {
		t.Fatalf("AddFeed: %v", err)
	}
	if err := sourceStore.AddTopic(ctx, "test-user", "climate"); err != nil {
		t.Fatalf("AddTopic: %v", err)
	}
	if connected {
		if err := credStore.Put(ctx, "test-user", []byte(`{"cookies":[]}`)); err != nil {
			t.Fatalf("Put credential: %v", err)
		}
	}

	notifier := &recordingNotifier{}
	manager := NewManagerWithOptions(cfg, jobStore, credStore, sourceStore,
		collectors, client, notifier, logging.NewNop())
	return &fixture{
		manager:  manager,
		jobs:     jobStore,
		client:   client,
		notifier: notifier,
		userID:   "test-user",
	}
}

func okCollectors() []sources.Collector {
	return []sources.Collector{
		&stubCollector{kind: sources.KindRSS, items: []sources.Item{
			{Kind: sources.KindRSS, Title: "rss-1", Content: "text"},
			{Kind: sources.KindRSS, Title: "rss-2", Content: "text"},
		}, sourcesOK: 1},
		&stubCollector{kind: sources.KindTopic, items: []sources.Item{
			{Kind: sources.KindTopic, Title: "topic-1", Content: "summary"},
		}, sourcesOK: 1},
	}
}

type stubCollector struct {
	kind      sources.Kind
	items     []sources.Item
	sourcesOK int
	err       error
}

func (s *stubCollector) Kind() sources.Kind { return s.kind }

func (s *stubCollector) Collect(ctx context.Context, snap sources.Snapshot) ([]sources.Item, int, error) {
	return s.items, s.sourcesOK, s.err
}

func TestProcessRunsJobToCompletion(t *testing.T) {
	client := &fakeClient{notebookID: "nb-99"}
	fx := newFixture(t, okCollectors(), client, true)
	ctx := context.Background()

	job := testsupport.NewJob(t, fx.jobs, fx.userID)
	if err := fx.manager.process(ctx, job); err != nil {
		t.Fatalf("process: %v", err)
	}

	stored, err := fx.jobs.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != jobs.StatusComplete {
		t.Fatalf("expected complete, got %s (%s)", stored.Status, stored.ErrorMessage)
	}
	if stored.NotebookID != "nb-99" {
		t.Fatalf("unexpected notebook id %q", stored.NotebookID)
	}
	used := stored.SourcesUsed()
	if used.RSSFeeds != 1 || used.NewsTopics != 1 || used.TotalItems != 3 {
		t.Fatalf("unexpected sources_used %+v", used)
	}
	if stored.CompletedAt == nil || stored.StartedAt == nil {
		t.Fatal("expected started_at and completed_at set")
	}
	if client.createdItems != 3 {
		t.Fatalf("client should receive all items, got %d", client.createdItems)
	}
	if len(fx.notifier.completed) != 1 {
		t.Fatalf("expected one completion notification, got %d", len(fx.notifier.completed))
	}
}

func TestProcessFailsWhenNotConnected(t *testing.T) {
	client := &fakeClient{}
	fx := newFixture(t, okCollectors(), client, false)
	ctx := context.Background()

	job := testsupport.NewJob(t, fx.jobs, fx.userID)
	if err := fx.manager.process(ctx, job); err != nil {
		t.Fatalf("process: %v", err)
	}

	stored, _ := fx.jobs.GetByID(ctx, job.ID)
	if stored.Status != jobs.StatusFailed {
		t.Fatalf("expected failed, got %s", stored.Status)
	}
	if stored.ErrorMessage == "" || stored.NotebookID != "" {
		t.Fatalf("unexpected record: %+v", stored)
	}
	if client.createCalls != 0 {
		t.Fatal("no replay should happen without a session")
	}
	if len(fx.notifier.failed) != 1 {
		t.Fatalf("expected one failure notification, got %d", len(fx.notifier.failed))
	}
}

func TestProcessFailsOnEmptyCollection(t *testing.T) {
	collectors := []sources.Collector{
		&stubCollector{kind: sources.KindRSS, err: errors.New("all feeds down")},
	}
	fx := newFixture(t, collectors, &fakeClient{}, true)
	ctx := context.Background()

	job := testsupport.NewJob(t, fx.jobs, fx.userID)
	if err := fx.manager.process(ctx, job); err != nil {
		t.Fatalf("process: %v", err)
	}

	stored, _ := fx.jobs.GetByID(ctx, job.ID)
	if stored.Status != jobs.StatusFailed {
		t.Fatalf("expected failed, got %s", stored.Status)
	}
}

func TestProcessPersistsNotebookIDOnAudioFailure(t *testing.T) {
	client := &fakeClient{notebookID: "nb-1", audioErr: services.Wrap(services.ErrReplay, "notebook", "generate-audio", "timed out", nil)}
	fx := newFixture(t, okCollectors(), client, true)
	ctx := context.Background()

	job := testsupport.NewJob(t, fx.jobs, fx.userID)
	if err := fx.manager.process(ctx, job); err != nil {
		t.Fatalf("process: %v", err)
	}

	stored, _ := fx.jobs.GetByID(ctx, job.ID)
	if stored.Status != jobs.StatusFailed {
		t.Fatalf("expected failed, got %s", stored.Status)
	}
	if stored.NotebookID != "nb-1" {
		t.Fatalf("notebook id must survive the failure, got %q", stored.NotebookID)
	}
}

func TestProcessSkipsAlreadyClaimedJob(t *testing.T) {
	client := &fakeClient{}
	fx := newFixture(t, okCollectors(), client, true)
	ctx := context.Background()

	job := testsupport.NewJob(t, fx.jobs, fx.userID)
	if ok, err := fx.jobs.MarkStarted(ctx, job); err != nil || !ok {
		t.Fatalf("pre-claim: ok=%v err=%v", ok, err)
	}

	copyJob, _ := fx.jobs.GetByID(ctx, job.ID)
	copyJob.Status = jobs.StatusScheduled // stale view of an already claimed job
	if err := fx.manager.process(ctx, copyJob); err != nil {
		t.Fatalf("process: %v", err)
	}
	if client.createCalls != 0 {
		t.Fatal("stale claim must not run the job")
	}
}

func TestManagerStartStopProcessesScheduledJob(t *testing.T) {
	client := &fakeClient{notebookID: "nb-loop"}
	fx := newFixture(t, okCollectors(), client, true)
	ctx := context.Background()

	job := testsupport.NewJob(t, fx.jobs, fx.userID)
	if err := fx.manager.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer fx.manager.Stop()

	deadline := time.After(5 * time.Second)
	for {
		stored, err := fx.jobs.GetByID(ctx, job.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if stored.Status.Terminal() {
			if stored.Status != jobs.StatusComplete {
				t.Fatalf("expected complete, got %s (%s)", stored.Status, stored.ErrorMessage)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("job never reached a terminal state, status %s", stored.Status)
		case <-time.After(20 * time.Millisecond):
		}
	}

	fx.manager.Stop()
	if fx.manager.Running() {
		t.Fatal("manager should not be running after Stop")
	}
}

func TestBuildTitleUsesSnapshotTopics(t *testing.T) {
	client := &fakeClient{}
	fx := newFixture(t, okCollectors(), client, true)
	ctx := context.Background()

	job := testsupport.NewJob(t, fx.jobs, fx.userID)
	if err := fx.manager.process(ctx, job); err != nil {
		t.Fatalf("process: %v", err)
	}
	if client.createdTitle == "" {
		t.Fatal("expected a notebook title")
	}
	if want := "Daily Brief - Topics Climate - "; client.createdTitle[:len(want)] != want {
		t.Fatalf("unexpected title %q", client.createdTitle)
	}
}
