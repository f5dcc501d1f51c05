package jobs

import (
	"database/sql"
	"errors"
	"time"
)

const jobColumns = "id, user_id, status, scheduled_at, started_at, completed_at, notebook_id, sources_used_json, error_message, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           string
		userID       string
		statusStr    string
		scheduledRaw string
		startedRaw   sql.NullString
		completedRaw sql.NullString
		notebookID   sql.NullString
		sourcesUsed  sql.NullString
		errorMessage sql.NullString
		createdRaw   string
		updatedRaw   string
	)

	if err := scanner.Scan(
		&id,
		&userID,
		&statusStr,
		&scheduledRaw,
		&startedRaw,
		&completedRaw,
		&notebookID,
		&sourcesUsed,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:              id,
		UserID:          userID,
		Status:          Status(statusStr),
		NotebookID:      notebookID.String,
		SourcesUsedJSON: sourcesUsed.String,
		ErrorMessage:    errorMessage.String,
	}

	if t, err := parseTimeString(scheduledRaw); err == nil {
		job.ScheduledAt = t
	}
	if startedRaw.Valid {
		if t, err := parseTimeString(startedRaw.String); err == nil {
			job.StartedAt = &t
		}
	}
	if completedRaw.Valid {
		if t, err := parseTimeString(completedRaw.String); err == nil {
			job.CompletedAt = &t
		}
	}
	if t, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = t
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = t
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
