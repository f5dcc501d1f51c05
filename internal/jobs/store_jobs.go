package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"briefcast/internal/services"
)

// Create inserts a new job in the scheduled state. At most one non-terminal
// job may exist per user; a second request fails with ErrJobAlreadyRunning
// instead of queueing silently.
func (s *Store) Create(ctx context.Context, userID string, scheduledAt time.Time) (*Job, error) {
	if userID == "" {
		return nil, services.Wrap(services.ErrValidation, "jobs", "create", "user id required", nil)
	}
	ctx = ensureContext(ctx)

	var id string
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var active int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM generation_jobs WHERE user_id = ? AND status NOT IN (?, ?)`,
			userID, StatusComplete, StatusFailed,
		).Scan(&active)
		if err != nil {
			return fmt.Errorf("count active jobs: %w", err)
		}
		if active > 0 {
			return services.Wrap(services.ErrJobAlreadyRunning, "jobs", "create",
				"a generation is already in progress for this user", nil)
		}

		now := time.Now().UTC()
		id = uuid.NewString()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO generation_jobs (
                id, user_id, status, scheduled_at, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?)`,
			id,
			userID,
			StatusScheduled,
			scheduledAt.UTC().Format(time.RFC3339Nano),
			now.Format(time.RFC3339Nano),
			now.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert job: %w", err)
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+jobColumns+` FROM generation_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// GetForUser fetches a job by identifier, scoped to its owner.
func (s *Store) GetForUser(ctx context.Context, userID, id string) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+jobColumns+` FROM generation_jobs WHERE id = ? AND user_id = ?`, id, userID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job for user: %w", err)
	}
	return job, nil
}

// ListForUser returns the user's jobs ordered by scheduled_at descending.
// A limit of 0 or less returns all records.
func (s *Store) ListForUser(ctx context.Context, userID string, limit int) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM generation_jobs WHERE user_id = ? ORDER BY scheduled_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// ActiveForUser returns the user's current non-terminal job, if any.
func (s *Store) ActiveForUser(ctx context.Context, userID string) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+jobColumns+` FROM generation_jobs
         WHERE user_id = ? AND status NOT IN (?, ?)
         ORDER BY scheduled_at LIMIT 1`,
		userID, StatusComplete, StatusFailed)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active job for user: %w", err)
	}
	return job, nil
}

// NextScheduled returns the oldest job still in the scheduled state.
func (s *Store) NextScheduled(ctx context.Context) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+jobColumns+` FROM generation_jobs WHERE status = ? ORDER BY scheduled_at LIMIT 1`,
		StatusScheduled)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next scheduled job: %w", err)
	}
	return job, nil
}

// MarkStarted atomically claims a scheduled job for processing, transitioning
// it to fetching and stamping started_at. Returns false when the job was
// already claimed or is no longer scheduled.
func (s *Store) MarkStarted(ctx context.Context, job *Job) (bool, error) {
	if job == nil {
		return false, errors.New("job is nil")
	}
	now := time.Now().UTC()
	if now.Before(job.ScheduledAt) {
		now = job.ScheduledAt
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE generation_jobs
         SET status = ?, started_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusFetching,
		now.Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano),
		job.ID,
		StatusScheduled,
	)
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}
	job.Status = StatusFetching
	job.StartedAt = &now
	return true, nil
}

// Update persists changes to an existing job. Terminal-state bookkeeping is
// normalized here: completed_at is present iff the status is terminal, and a
// stored notebook id is never overwritten.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if job.Status.Terminal() && job.CompletedAt == nil {
		now := time.Now().UTC()
		job.CompletedAt = &now
	}
	if !job.Status.Terminal() {
		job.CompletedAt = nil
	}
	job.UpdatedAt = time.Now().UTC()

	err := retryOnBusy(ensureContext(ctx), func() error {
		_, err := s.db.ExecContext(ctx,
			`UPDATE generation_jobs
             SET status = ?, started_at = ?, completed_at = ?,
                 notebook_id = CASE
                     WHEN notebook_id IS NULL OR notebook_id = '' THEN ?
                     ELSE notebook_id
                 END,
                 sources_used_json = ?, error_message = ?, updated_at = ?
             WHERE id = ?`,
			job.Status,
			nullableTime(job.StartedAt),
			nullableTime(job.CompletedAt),
			nullableString(job.NotebookID),
			nullableString(job.SourcesUsedJSON),
			nullableString(job.ErrorMessage),
			job.UpdatedAt.Format(time.RFC3339Nano),
			job.ID,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// FailOrphans terminally fails jobs left mid-flight (fetching or generating)
// by a previous daemon run. Failed jobs are never auto-retried; the next
// scheduled or user-triggered job picks up naturally.
func (s *Store) FailOrphans(ctx context.Context, reason string) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ctx,
		`UPDATE generation_jobs
         SET status = ?, error_message = ?, completed_at = ?, updated_at = ?
         WHERE status IN (?, ?)`,
		StatusFailed, reason, now, now,
		StatusFetching, StatusGenerating,
	)
	if err != nil {
		return 0, fmt.Errorf("fail orphaned jobs: %w", err)
	}
	return res.RowsAffected()
}

// Health returns aggregate counts across all users.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT status, COUNT(1) FROM generation_jobs GROUP BY status`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("job health: %w", err)
	}
	defer rows.Close()

	var summary HealthSummary
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return HealthSummary{}, err
		}
		summary.Total += count
		switch status {
		case StatusScheduled:
			summary.Scheduled += count
		case StatusFetching, StatusGenerating:
			summary.Processing += count
		case StatusComplete:
			summary.Complete += count
		case StatusFailed:
			summary.Failed += count
		}
	}
	return summary, rows.Err()
}
