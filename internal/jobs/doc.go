// Package jobs persists generation jobs in SQLite and enforces the job
// lifecycle state machine.
//
// A job moves scheduled -> fetching -> generating -> complete, or to failed
// from either in-flight state. Terminal records are immutable history and are
// never deleted. The store is the single enforcement point for the lifecycle
// invariants: at most one non-terminal job per user (checked transactionally
// at Create), completed_at set iff terminal, started_at stamped no earlier
// than scheduled_at, and notebook_id written at most once.
//
// Schema changes bump the version in schema.go; the database is recreated
// rather than migrated.
package jobs
