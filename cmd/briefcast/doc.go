// Package main hosts the briefcast CLI entrypoint and command graph.
//
// The Cobra-based command tree surfaces credential capture, hand-off, and
// generation control against the backend API. It centralizes configuration
// resolution, token handling, and client construction so subcommands can
// focus on user experience instead of wiring.
package main
