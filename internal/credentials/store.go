package credentials

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"briefcast/internal/config"
	"briefcast/internal/services"
)

// Status describes a stored session without exposing its payload.
type Status struct {
	Authenticated bool
	UserID        string
	CapturedAt    time.Time
}

// Store persists captured browser sessions, one per user. The payload is an
// opaque blob from the store's perspective; it is written by the upload path
// and read only by the orchestrator's replay path. No API surface ever
// returns it.
type Store struct {
	db   *sql.DB
	path string
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notebook_credentials (
    user_id TEXT PRIMARY KEY,
    payload BLOB NOT NULL,
    captured_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

// Open initializes or connects to the credential database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.DataDir, "credentials.db"))
}

// OpenPath opens a credential store at an explicit database path.
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

// Put stores or replaces the session blob for a user. The upsert is atomic
// and last-write-wins, so re-uploading the same blob is idempotent.
func (s *Store) Put(ctx context.Context, userID string, payload []byte) error {
	if userID == "" {
		return services.Wrap(services.ErrValidation, "credentials", "put", "user id required", nil)
	}
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return services.Wrap(services.ErrValidation, "credentials", "put", "payload must be a JSON session blob", nil)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notebook_credentials (user_id, payload, captured_at, updated_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(user_id) DO UPDATE SET
             payload = excluded.payload,
             captured_at = excluded.captured_at,
             updated_at = excluded.updated_at`,
		userID, payload, now, now,
	)
	if err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	return nil
}

// Get returns the raw session blob for the orchestrator's replay path.
// Callers outside the generation flow must use Status instead.
func (s *Store) Get(ctx context.Context, userID string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM notebook_credentials WHERE user_id = ?`, userID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotConnected, "credentials", "get",
			"no stored session for user", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("read credential: %w", err)
	}
	return payload, nil
}

// StatusFor reports whether a usable session exists and when it was captured.
func (s *Store) StatusFor(ctx context.Context, userID string) (Status, error) {
	var capturedRaw string
	err := s.db.QueryRowContext(ctx,
		`SELECT captured_at FROM notebook_credentials WHERE user_id = ?`, userID,
	).Scan(&capturedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return Status{Authenticated: false, UserID: userID}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("credential status: %w", err)
	}
	capturedAt, err := time.Parse(time.RFC3339Nano, capturedRaw)
	if err != nil {
		return Status{}, fmt.Errorf("parse captured_at: %w", err)
	}
	return Status{Authenticated: true, UserID: userID, CapturedAt: capturedAt}, nil
}

// Delete revokes the stored session. Deleting an absent credential is not an
// error; revoke is idempotent.
func (s *Store) Delete(ctx context.Context, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM notebook_credentials WHERE user_id = ?`, userID)
	if err != nil {
		return false, fmt.Errorf("delete credential: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}
