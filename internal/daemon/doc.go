// Package daemon assembles and supervises the backend services: the job
// workflow, the daily scheduler, and the HTTP API. A file lock enforces a
// single instance per data directory.
package daemon
