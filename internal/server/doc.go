// Package server exposes the backend HTTP surface: credential hand-off and
// lifecycle, generation job control, and the daily-scheduling cron hook.
package server
