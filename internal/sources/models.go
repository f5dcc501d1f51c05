package sources

import "time"

// Kind identifies a content source family.
type Kind string

const (
	KindSubstack Kind = "substack"
	KindRSS      Kind = "rss"
	KindTopic    Kind = "topic"
)

// MergeOrder is the deterministic order collected items are concatenated in.
var MergeOrder = []Kind{KindSubstack, KindRSS, KindTopic}

// Item is a single piece of collected content, normalized to markdown.
type Item struct {
	Kind      Kind
	Source    string
	Title     string
	URL       string
	Content   string
	Published time.Time
}

// Feed is a configured RSS/Atom feed.
type Feed struct {
	ID        int64
	UserID    string
	Name      string
	URL       string
	Enabled   bool
	CreatedAt time.Time
}

// Newsletter is a configured Substack publication.
type Newsletter struct {
	ID        int64
	UserID    string
	Name      string
	URL       string
	Enabled   bool
	CreatedAt time.Time
}

// Topic is a configured news topic to summarize.
type Topic struct {
	ID        int64
	UserID    string
	Topic     string
	Enabled   bool
	CreatedAt time.Time
}

// Snapshot is the source configuration for one user, read once at job start
// so a job sees a consistent view even if sources change mid-run.
type Snapshot struct {
	UserID      string
	Newsletters []Newsletter
	Feeds       []Feed
	Topics      []Topic
}

// Empty reports whether the snapshot has no enabled sources of any kind.
func (s Snapshot) Empty() bool {
	return len(s.Newsletters) == 0 && len(s.Feeds) == 0 && len(s.Topics) == 0
}

// Preference holds a user's daily generation schedule.
type Preference struct {
	UserID            string
	DailyEnabled      bool
	GenerationTime    string // "HH:MM" wall clock in Timezone
	Timezone          string // IANA name
	LastScheduledDate string // "YYYY-MM-DD" in Timezone, once-a-day guard
	UpdatedAt         time.Time
}
