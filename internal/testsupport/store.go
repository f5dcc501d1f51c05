package testsupport

import (
	"context"
	"testing"
	"time"

	"briefcast/internal/config"
	"briefcast/internal/credentials"
	"briefcast/internal/jobs"
	"briefcast/internal/sources"
)

// MustOpenJobs opens a jobs.Store for tests and registers cleanup.
func MustOpenJobs(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenCredentials opens a credentials.Store for tests and registers cleanup.
func MustOpenCredentials(t testing.TB, cfg *config.Config) *credentials.Store {
	t.Helper()

	store, err := credentials.Open(cfg)
	if err != nil {
		t.Fatalf("credentials.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenSources opens a sources.Store for tests and registers cleanup.
func MustOpenSources(t testing.TB, cfg *config.Config) *sources.Store {
	t.Helper()

	store, err := sources.Open(cfg)
	if err != nil {
		t.Fatalf("sources.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob creates a scheduled job for tests using the provided store.
func NewJob(t testing.TB, store *jobs.Store, userID string) *jobs.Job {
	t.Helper()

	job, err := store.Create(context.Background(), userID, time.Now().UTC())
	if err != nil {
		t.Fatalf("jobs.Create: %v", err)
	}
	return job
}
