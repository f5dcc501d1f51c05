package api

import (
	"encoding/json"
	"time"
)

// SourcesUsed mirrors the per-kind collection counts recorded on a job.
type SourcesUsed struct {
	SubstackPosts int `json:"substack_posts"`
	RSSFeeds      int `json:"rss_feeds"`
	NewsTopics    int `json:"news_topics"`
	TotalItems    int `json:"total_items"`
}

// Job is the wire representation of a generation job. Credential material
// never appears here.
type Job struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	Status       string       `json:"status"`
	ScheduledAt  time.Time    `json:"scheduled_at"`
	StartedAt    *time.Time   `json:"started_at,omitempty"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
	NotebookID   string       `json:"notebook_id,omitempty"`
	SourcesUsed  *SourcesUsed `json:"sources_used,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// JobListResponse wraps GET /generations.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// GenerateResponse wraps POST /generate.
type GenerateResponse struct {
	Job Job `json:"job"`
}

// CredentialStatus wraps GET /auth/notebooklm/status. Credentials carries
// metadata only; the stored session blob is never returned.
type CredentialStatus struct {
	Authenticated bool            `json:"authenticated"`
	Credentials   *CredentialInfo `json:"credentials,omitempty"`
}

// CredentialInfo is the metadata block inside CredentialStatus.
type CredentialInfo struct {
	UserID          string    `json:"user_id"`
	AuthenticatedAt time.Time `json:"authenticated_at"`
}

// UploadCredentialsRequest is the capture-host hand-off payload.
type UploadCredentialsRequest struct {
	UserID      string          `json:"user_id"`
	Credentials json.RawMessage `json:"credentials"`
}

// UploadCredentialsResponse acknowledges a stored credential blob.
type UploadCredentialsResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	Authenticated bool   `json:"authenticated"`
}

// RevokeResponse acknowledges credential removal.
type RevokeResponse struct {
	Revoked bool `json:"revoked"`
}

// CronResponse reports a scheduling pass triggered over HTTP.
type CronResponse struct {
	JobsCreated int `json:"jobs_created"`
}

// HealthResponse wraps GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
