package sources

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"briefcast/internal/config"
	"briefcast/internal/services"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS rss_sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    name TEXT NOT NULL,
    url TEXT NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL,
    UNIQUE (user_id, url)
);

CREATE TABLE IF NOT EXISTS substack_sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    name TEXT NOT NULL,
    url TEXT NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL,
    UNIQUE (user_id, url)
);

CREATE TABLE IF NOT EXISTS news_topics (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    topic TEXT NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL,
    UNIQUE (user_id, topic)
);

CREATE TABLE IF NOT EXISTS user_preferences (
    user_id TEXT PRIMARY KEY,
    daily_enabled INTEGER NOT NULL DEFAULT 0,
    generation_time TEXT NOT NULL DEFAULT '06:00',
    timezone TEXT NOT NULL DEFAULT 'UTC',
    last_scheduled_date TEXT NOT NULL DEFAULT '',
    updated_at TEXT NOT NULL
);`

// Store persists per-user source configuration and daily preferences.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the sources database under the data dir.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.DataDir, "sources.db"))
}

// OpenPath opens a sources store at an explicit database path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout = 5000"} {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// AddFeed registers an RSS/Atom feed for a user. Re-adding the same URL
// updates the name and re-enables it.
func (s *Store) AddFeed(ctx context.Context, userID, name, url string) error {
	return s.addLinkSource(ctx, "rss_sources", userID, name, url)
}

// AddNewsletter registers a Substack publication for a user.
func (s *Store) AddNewsletter(ctx context.Context, userID, name, url string) error {
	return s.addLinkSource(ctx, "substack_sources", userID, name, url)
}

func (s *Store) addLinkSource(ctx context.Context, table, userID, name, url string) error {
	userID = strings.TrimSpace(userID)
	name = strings.TrimSpace(name)
	url = strings.TrimSpace(url)
	if userID == "" || url == "" {
		return services.Wrap(services.ErrValidation, "sources", "add", "user id and url required", nil)
	}
	if name == "" {
		name = url
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	query := fmt.Sprintf(`INSERT INTO %s (user_id, name, url, enabled, created_at)
        VALUES (?, ?, ?, 1, ?)
        ON CONFLICT(user_id, url) DO UPDATE SET name = excluded.name, enabled = 1`, table)
	if _, err := s.db.ExecContext(ctx, query, userID, name, url, now); err != nil {
		return fmt.Errorf("add source: %w", err)
	}
	return nil
}

// AddTopic registers a news topic for a user.
func (s *Store) AddTopic(ctx context.Context, userID, topic string) error {
	userID = strings.TrimSpace(userID)
	topic = strings.TrimSpace(topic)
	if userID == "" || topic == "" {
		return services.Wrap(services.ErrValidation, "sources", "add-topic", "user id and topic required", nil)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO news_topics (user_id, topic, enabled, created_at)
         VALUES (?, ?, 1, ?)
         ON CONFLICT(user_id, topic) DO UPDATE SET enabled = 1`,
		userID, topic, now)
	if err != nil {
		return fmt.Errorf("add topic: %w", err)
	}
	return nil
}

// Snapshot reads the enabled sources for a user as one consistent view.
func (s *Store) Snapshot(ctx context.Context, userID string) (Snapshot, error) {
	snap := Snapshot{UserID: userID}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, url, enabled, created_at FROM substack_sources
         WHERE user_id = ? AND enabled = 1 ORDER BY id`, userID)
	if err != nil {
		return snap, fmt.Errorf("query newsletters: %w", err)
	}
	for rows.Next() {
		var n Newsletter
		if err := scanLinkSource(rows, &n.ID, &n.UserID, &n.Name, &n.URL, &n.Enabled, &n.CreatedAt); err != nil {
			rows.Close()
			return snap, err
		}
		snap.Newsletters = append(snap.Newsletters, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("iterate newsletters: %w", err)
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT id, user_id, name, url, enabled, created_at FROM rss_sources
         WHERE user_id = ? AND enabled = 1 ORDER BY id`, userID)
	if err != nil {
		return snap, fmt.Errorf("query feeds: %w", err)
	}
	for rows.Next() {
		var f Feed
		if err := scanLinkSource(rows, &f.ID, &f.UserID, &f.Name, &f.URL, &f.Enabled, &f.CreatedAt); err != nil {
			rows.Close()
			return snap, err
		}
		snap.Feeds = append(snap.Feeds, f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("iterate feeds: %w", err)
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT id, user_id, topic, enabled, created_at FROM news_topics
         WHERE user_id = ? AND enabled = 1 ORDER BY id`, userID)
	if err != nil {
		return snap, fmt.Errorf("query topics: %w", err)
	}
	for rows.Next() {
		var (
			t          Topic
			enabledInt int64
			createdRaw string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Topic, &enabledInt, &createdRaw); err != nil {
			rows.Close()
			return snap, fmt.Errorf("scan topic: %w", err)
		}
		t.Enabled = enabledInt != 0
		t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdRaw)
		snap.Topics = append(snap.Topics, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("iterate topics: %w", err)
	}

	return snap, nil
}

func scanLinkSource(rows *sql.Rows, id *int64, userID, name, url *string, enabled *bool, createdAt *time.Time) error {
	var (
		enabledInt int64
		createdRaw string
	)
	if err := rows.Scan(id, userID, name, url, &enabledInt, &createdRaw); err != nil {
		return fmt.Errorf("scan source: %w", err)
	}
	*enabled = enabledInt != 0
	*createdAt, _ = time.Parse(time.RFC3339Nano, createdRaw)
	return nil
}

// SetPreference stores a user's daily generation preference.
func (s *Store) SetPreference(ctx context.Context, pref Preference) error {
	if strings.TrimSpace(pref.UserID) == "" {
		return services.Wrap(services.ErrValidation, "sources", "set-preference", "user id required", nil)
	}
	if pref.GenerationTime == "" {
		pref.GenerationTime = "06:00"
	}
	if _, err := time.Parse("15:04", pref.GenerationTime); err != nil {
		return services.Wrap(services.ErrValidation, "sources", "set-preference",
			fmt.Sprintf("generation time %q is not HH:MM", pref.GenerationTime), nil)
	}
	if pref.Timezone == "" {
		pref.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(pref.Timezone); err != nil {
		return services.Wrap(services.ErrValidation, "sources", "set-preference",
			fmt.Sprintf("unknown timezone %q", pref.Timezone), nil)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_preferences (user_id, daily_enabled, generation_time, timezone, last_scheduled_date, updated_at)
         VALUES (?, ?, ?, ?, '', ?)
         ON CONFLICT(user_id) DO UPDATE SET
             daily_enabled = excluded.daily_enabled,
             generation_time = excluded.generation_time,
             timezone = excluded.timezone,
             updated_at = excluded.updated_at`,
		pref.UserID, boolToInt(pref.DailyEnabled), pref.GenerationTime, pref.Timezone, now)
	if err != nil {
		return fmt.Errorf("set preference: %w", err)
	}
	return nil
}

// GetPreference returns the stored preference for a user, or a disabled
// default when none exists.
func (s *Store) GetPreference(ctx context.Context, userID string) (Preference, error) {
	pref := Preference{UserID: userID, GenerationTime: "06:00", Timezone: "UTC"}
	var (
		enabledInt int64
		updatedRaw string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT daily_enabled, generation_time, timezone, last_scheduled_date, updated_at
         FROM user_preferences WHERE user_id = ?`, userID,
	).Scan(&enabledInt, &pref.GenerationTime, &pref.Timezone, &pref.LastScheduledDate, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return pref, nil
	}
	if err != nil {
		return pref, fmt.Errorf("get preference: %w", err)
	}
	pref.DailyEnabled = enabledInt != 0
	pref.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedRaw)
	return pref, nil
}

// ListDailyEnabled returns all preferences with daily generation switched on.
func (s *Store) ListDailyEnabled(ctx context.Context) ([]Preference, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, daily_enabled, generation_time, timezone, last_scheduled_date, updated_at
         FROM user_preferences WHERE daily_enabled = 1 ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	defer rows.Close()

	var prefs []Preference
	for rows.Next() {
		var (
			pref       Preference
			enabledInt int64
			updatedRaw string
		)
		if err := rows.Scan(&pref.UserID, &enabledInt, &pref.GenerationTime, &pref.Timezone,
			&pref.LastScheduledDate, &updatedRaw); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		pref.DailyEnabled = enabledInt != 0
		pref.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedRaw)
		prefs = append(prefs, pref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate preferences: %w", err)
	}
	return prefs, nil
}

// MarkScheduled claims the daily slot for a user on the given local date.
// It returns false when the date was already claimed, so concurrent
// scheduler passes create at most one job per user per day.
func (s *Store) MarkScheduled(ctx context.Context, userID, localDate string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE user_preferences SET last_scheduled_date = ?
         WHERE user_id = ? AND last_scheduled_date <> ?`,
		localDate, userID, localDate)
	if err != nil {
		return false, fmt.Errorf("mark scheduled: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
