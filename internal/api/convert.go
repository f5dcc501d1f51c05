package api

import (
	"strings"

	"briefcast/internal/jobs"
)

// FromJob converts a stored job into its wire form.
func FromJob(job *jobs.Job) Job {
	out := Job{
		ID:           job.ID,
		UserID:       job.UserID,
		Status:       string(job.Status),
		ScheduledAt:  job.ScheduledAt,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
		NotebookID:   job.NotebookID,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
	}
	if strings.TrimSpace(job.SourcesUsedJSON) != "" {
		used := job.SourcesUsed()
		out.SourcesUsed = &SourcesUsed{
			SubstackPosts: used.SubstackPosts,
			RSSFeeds:      used.RSSFeeds,
			NewsTopics:    used.NewsTopics,
			TotalItems:    used.TotalItems,
		}
	}
	return out
}

// FromJobs converts a job list, preserving order.
func FromJobs(list []*jobs.Job) []Job {
	out := make([]Job, 0, len(list))
	for _, job := range list {
		out = append(out, FromJob(job))
	}
	return out
}
