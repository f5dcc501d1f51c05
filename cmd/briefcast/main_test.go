package main

import (
	"strings"
	"testing"
	"time"

	"briefcast/internal/api"
)

func TestRootCommandWiring(t *testing.T) {
	root := newRootCommand()
	want := []string{"connect", "upload", "disconnect", "generate", "generations", "status", "agent", "config"}
	for _, name := range want {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestFormatSources(t *testing.T) {
	if got := formatSources(nil); got != "" {
		t.Fatalf("nil sources = %q", got)
	}
	got := formatSources(&api.SourcesUsed{SubstackPosts: 1, RSSFeeds: 2, TotalItems: 9})
	if !strings.Contains(got, "1 substack") || !strings.Contains(got, "2 rss") || !strings.Contains(got, "9 items") {
		t.Fatalf("formatted sources = %q", got)
	}
	if strings.Contains(got, "topics") {
		t.Fatalf("zero kinds should be omitted: %q", got)
	}
}

func TestPrintJobDetail(t *testing.T) {
	completed := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	job := api.Job{
		ID:          "job-1",
		Status:      "complete",
		ScheduledAt: completed.Add(-time.Hour),
		CompletedAt: &completed,
		NotebookID:  "nb-9",
		SourcesUsed: &api.SourcesUsed{RSSFeeds: 3, TotalItems: 12},
	}
	var sb strings.Builder
	printJobDetail(&sb, job)
	out := sb.String()
	for _, want := range []string{"job-1", "complete", "nb-9", "3 rss", "12 items"} {
		if !strings.Contains(out, want) {
			t.Errorf("detail output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable(
		[]string{"ID", "Status"},
		[][]string{{"job-1"}},
		[]columnAlignment{alignLeft, alignLeft},
	)
	if !strings.Contains(out, "job-1") {
		t.Fatalf("table output missing row: %s", out)
	}
}
