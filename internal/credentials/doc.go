// Package credentials stores captured NotebookLM browser sessions.
//
// A session is an opaque JSON blob produced by the capture flow and consumed
// by the replay flow. The store keeps at most one session per user and never
// hands the blob to any external caller; status queries surface only
// existence and the capture timestamp.
package credentials
