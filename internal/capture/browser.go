package capture

import (
	"context"
	"time"
)

// Browser opens an interactive window on the capture host so the user can
// sign in to the third-party service. Implementations must leave the window
// visible; the whole point of the flow is a human completing a login.
type Browser interface {
	Open(ctx context.Context, origin string) (AutomationContext, error)
}

// AutomationContext is a live browser context holding the user's in-progress
// session. Close must be safe to call more than once.
type AutomationContext interface {
	// StorageState serializes the context's cookies and local storage as
	// the session blob.
	StorageState(ctx context.Context) ([]byte, error)
	Close() error
}

// Status describes the controller's current capture, if any.
type Status struct {
	Active    bool      `json:"active"`
	UserID    string    `json:"user_id,omitempty"`
	Handle    string    `json:"handle,omitempty"`
	StartedAt time.Time `json:"started_at,omitzero"`
}

// StartResult is returned by Controller.Start.
type StartResult struct {
	Handle          string `json:"handle"`
	CredentialsPath string `json:"credentials_path"`
	// NeedsConfirmation tells the caller the browser window is open and the
	// flow waits for an explicit Confirm once login is done.
	NeedsConfirmation bool `json:"needs_confirmation"`
}
