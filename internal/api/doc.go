// Package api defines the JSON payloads exchanged over the backend HTTP
// surface. Handlers and the CLI client share these types so the wire shape
// lives in one place.
package api
