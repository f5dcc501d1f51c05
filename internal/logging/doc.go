// Package logging builds the slog loggers used across briefcast and holds
// the shared attribute helpers and field-name constants.
//
// Two output formats are supported: a compact single-line console format for
// interactive use and JSON for log shipping. Components tag their loggers via
// WithComponent so console lines read "component: message".
package logging
