package jobs

import (
	"encoding/json"
	"strings"
	"time"
)

// Status represents the lifecycle of a generation job.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusFetching   Status = "fetching"
	StatusGenerating Status = "generating"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

// DaemonStopReason is the error message set on jobs failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped before the job finished"

var allStatuses = []Status{
	StatusScheduled,
	StatusFetching,
	StatusGenerating,
	StatusComplete,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Terminal reports whether a status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// Active reports whether a status occupies the user's single job slot.
func (s Status) Active() bool {
	return !s.Terminal() && s != ""
}

// SourcesUsed records actual collection counts per source kind. A kind counts
// the number of configured sources that produced at least one item; TotalItems
// counts the aggregated content items handed to the notebook.
type SourcesUsed struct {
	SubstackPosts int `json:"substack_posts"`
	RSSFeeds      int `json:"rss_feeds"`
	NewsTopics    int `json:"news_topics"`
	TotalItems    int `json:"total_items"`
}

// Job is one end-to-end generation attempt persisted in SQLite. Terminal
// records are retained as immutable history.
type Job struct {
	ID              string
	UserID          string
	Status          Status
	ScheduledAt     time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
	NotebookID      string
	SourcesUsedJSON string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SourcesUsed decodes the persisted counts, returning zeros when unset.
func (j *Job) SourcesUsed() SourcesUsed {
	var used SourcesUsed
	if strings.TrimSpace(j.SourcesUsedJSON) == "" {
		return used
	}
	_ = json.Unmarshal([]byte(j.SourcesUsedJSON), &used)
	return used
}

// SetSourcesUsed encodes counts onto the record.
func (j *Job) SetSourcesUsed(used SourcesUsed) error {
	encoded, err := json.Marshal(used)
	if err != nil {
		return err
	}
	j.SourcesUsedJSON = string(encoded)
	return nil
}

// SetFailed marks the job as terminally failed with the given message.
func (j *Job) SetFailed(message string) {
	now := time.Now().UTC()
	j.Status = StatusFailed
	j.ErrorMessage = message
	j.CompletedAt = &now
}

// SetComplete marks the job as terminally successful.
func (j *Job) SetComplete() {
	now := time.Now().UTC()
	j.Status = StatusComplete
	j.ErrorMessage = ""
	j.CompletedAt = &now
}

// HealthSummary describes aggregated job counts per key lifecycle state.
type HealthSummary struct {
	Total      int
	Scheduled  int
	Processing int
	Complete   int
	Failed     int
}
