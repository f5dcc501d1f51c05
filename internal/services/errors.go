package services

import (
	"errors"
	"fmt"
	"strings"
)

// Domain sentinel errors. Components wrap these via Wrap so callers can
// classify failures with errors.Is regardless of how deep the cause sits.
var (
	// ErrCaptureConflict: a second capture was started while one is active.
	ErrCaptureConflict = errors.New("capture already in progress")
	// ErrNoActiveSession: confirm or cancel without a matching live capture.
	ErrNoActiveSession = errors.New("no active capture session")
	// ErrLocalSessionNotFound: upload requested but no local blob exists.
	ErrLocalSessionNotFound = errors.New("local session not found")
	// ErrUploadRejected: the credential service refused the transfer.
	ErrUploadRejected = errors.New("credential upload rejected")
	// ErrNotConnected: generation attempted with no stored session.
	ErrNotConnected = errors.New("notebook service not connected")
	// ErrSourceCollection: no content could be collected from any source.
	ErrSourceCollection = errors.New("source collection failed")
	// ErrReplay: replaying the stored session against the third-party
	// service failed (expired session, automation error, service error).
	ErrReplay = errors.New("session replay failed")
	// ErrJobAlreadyRunning: a non-terminal job already exists for the user.
	ErrJobAlreadyRunning = errors.New("generation job already running")
)

// Generic markers for failures without a domain-specific sentinel.
var (
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error that includes component context while tagging it with
// the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

var allMarkers = []error{
	ErrCaptureConflict, ErrNoActiveSession, ErrLocalSessionNotFound,
	ErrUploadRejected, ErrNotConnected, ErrSourceCollection, ErrReplay,
	ErrJobAlreadyRunning, ErrValidation, ErrConfiguration, ErrNotFound,
	ErrTransient,
}

// IsClassified reports whether err already carries one of the sentinel
// markers, so callers can avoid double-wrapping.
func IsClassified(err error) bool {
	for _, marker := range allMarkers {
		if errors.Is(err, marker) {
			return true
		}
	}
	return false
}

// Message extracts a user-presentable failure message, trimming the sentinel
// prefix when present.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, marker := range allMarkers {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
