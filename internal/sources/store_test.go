package sources

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"briefcast/internal/services"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "sources.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSnapshotReturnsOnlyEnabledSourcesForUser(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.AddNewsletter(ctx, "user-1", "Platformer", "https://www.platformer.news"); err != nil {
		t.Fatalf("AddNewsletter: %v", err)
	}
	if err := store.AddFeed(ctx, "user-1", "Hacker News", "https://news.ycombinator.com/rss"); err != nil {
		t.Fatalf("AddFeed: %v", err)
	}
	if err := store.AddTopic(ctx, "user-1", "artificial intelligence"); err != nil {
		t.Fatalf("AddTopic: %v", err)
	}
	if err := store.AddFeed(ctx, "user-2", "Other", "https://example.com/rss"); err != nil {
		t.Fatalf("AddFeed other user: %v", err)
	}

	snap, err := store.Snapshot(ctx, "user-1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Newsletters) != 1 || len(snap.Feeds) != 1 || len(snap.Topics) != 1 {
		t.Fatalf("unexpected snapshot sizes: %d/%d/%d",
			len(snap.Newsletters), len(snap.Feeds), len(snap.Topics))
	}
	if snap.Feeds[0].Name != "Hacker News" {
		t.Fatalf("unexpected feed name %q", snap.Feeds[0].Name)
	}
	if snap.Empty() {
		t.Fatal("snapshot should not be empty")
	}

	other, err := store.Snapshot(ctx, "user-3")
	if err != nil {
		t.Fatalf("Snapshot empty user: %v", err)
	}
	if !other.Empty() {
		t.Fatal("expected empty snapshot for unconfigured user")
	}
}

func TestAddFeedIsIdempotentOnURL(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.AddFeed(ctx, "user-1", "Old Name", "https://example.com/rss"); err != nil {
		t.Fatalf("AddFeed: %v", err)
	}
	if err := store.AddFeed(ctx, "user-1", "New Name", "https://example.com/rss"); err != nil {
		t.Fatalf("AddFeed again: %v", err)
	}

	snap, err := store.Snapshot(ctx, "user-1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Feeds) != 1 {
		t.Fatalf("expected one feed, got %d", len(snap.Feeds))
	}
	if snap.Feeds[0].Name != "New Name" {
		t.Fatalf("expected name updated, got %q", snap.Feeds[0].Name)
	}
}

func TestAddValidation(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.AddFeed(ctx, "", "name", "https://example.com"); !errors.Is(err, services.ErrValidation) {
		t.Errorf("missing user: got %v", err)
	}
	if err := store.AddFeed(ctx, "user-1", "name", ""); !errors.Is(err, services.ErrValidation) {
		t.Errorf("missing url: got %v", err)
	}
	if err := store.AddTopic(ctx, "user-1", "  "); !errors.Is(err, services.ErrValidation) {
		t.Errorf("blank topic: got %v", err)
	}
}

func TestPreferenceRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	err := store.SetPreference(ctx, Preference{
		UserID:         "user-1",
		DailyEnabled:   true,
		GenerationTime: "07:30",
		Timezone:       "America/New_York",
	})
	if err != nil {
		t.Fatalf("SetPreference: %v", err)
	}

	pref, err := store.GetPreference(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetPreference: %v", err)
	}
	if !pref.DailyEnabled || pref.GenerationTime != "07:30" || pref.Timezone != "America/New_York" {
		t.Fatalf("unexpected preference: %+v", pref)
	}

	missing, err := store.GetPreference(ctx, "nobody")
	if err != nil {
		t.Fatalf("GetPreference missing: %v", err)
	}
	if missing.DailyEnabled {
		t.Fatal("missing preference should default to disabled")
	}
}

func TestSetPreferenceRejectsBadInput(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	err := store.SetPreference(ctx, Preference{UserID: "user-1", GenerationTime: "7:99"})
	if !errors.Is(err, services.ErrValidation) {
		t.Errorf("bad time: got %v", err)
	}
	err = store.SetPreference(ctx, Preference{UserID: "user-1", Timezone: "Mars/Olympus"})
	if !errors.Is(err, services.ErrValidation) {
		t.Errorf("bad timezone: got %v", err)
	}
}

func TestListDailyEnabled(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for user, enabled := range map[string]bool{"a-user": true, "b-user": false, "c-user": true} {
		err := store.SetPreference(ctx, Preference{UserID: user, DailyEnabled: enabled})
		if err != nil {
			t.Fatalf("SetPreference %s: %v", user, err)
		}
	}

	prefs, err := store.ListDailyEnabled(ctx)
	if err != nil {
		t.Fatalf("ListDailyEnabled: %v", err)
	}
	if len(prefs) != 2 {
		t.Fatalf("expected 2 enabled preferences, got %d", len(prefs))
	}
	if prefs[0].UserID != "a-user" || prefs[1].UserID != "c-user" {
		t.Fatalf("unexpected order: %s, %s", prefs[0].UserID, prefs[1].UserID)
	}
}

func TestMarkScheduledClaimsDateOnce(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.SetPreference(ctx, Preference{UserID: "user-1", DailyEnabled: true}); err != nil {
		t.Fatalf("SetPreference: %v", err)
	}

	claimed, err := store.MarkScheduled(ctx, "user-1", "2026-09-01")
	if err != nil || !claimed {
		t.Fatalf("first claim: claimed=%v err=%v", claimed, err)
	}
	claimed, err = store.MarkScheduled(ctx, "user-1", "2026-09-01")
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if claimed {
		t.Fatal("same date should not be claimable twice")
	}
	claimed, err = store.MarkScheduled(ctx, "user-1", "2026-09-02")
	if err != nil || !claimed {
		t.Fatalf("next day claim: claimed=%v err=%v", claimed, err)
	}
}
