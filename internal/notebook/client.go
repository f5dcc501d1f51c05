package notebook

import (
	"context"

	"briefcast/internal/sources"
)

// Client drives the third-party notebook service with a user's captured
// browser session. Implementations must treat the session as read-only and
// report expired or unusable sessions as services.ErrReplay.
type Client interface {
	// CreateNotebook creates a notebook, adds the collected items as text
	// sources, and returns the notebook's identifier.
	CreateNotebook(ctx context.Context, session []byte, title string, items []sources.Item) (string, error)
	// GenerateAudio starts audio generation on an existing notebook and
	// waits for it to finish.
	GenerateAudio(ctx context.Context, session []byte, notebookID string) error
}
