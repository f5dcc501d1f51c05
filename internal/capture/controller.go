package capture

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"briefcast/internal/config"
	"briefcast/internal/logging"
	"briefcast/internal/services"
)

// Controller owns the interactive capture flow on the capture host. At most
// one capture is in flight; a second Start while a browser window is open is
// a conflict, not a queue.
type Controller struct {
	browser        Browser
	origin         string
	credentialsDir string
	logger         *slog.Logger

	mu     sync.Mutex
	active *activeCapture
}

type activeCapture struct {
	handle    string
	userID    string
	ctx       AutomationContext
	startedAt time.Time
}

// NewController builds a capture controller. The browser argument lets tests
// substitute a fake; production callers pass NewPlaywrightBrowser.
func NewController(cfg *config.Config, browser Browser, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Controller{
		browser:        browser,
		origin:         cfg.Notebook.Origin,
		credentialsDir: cfg.Paths.CredentialsDir,
		logger:         logging.WithComponent(logger, "capture"),
	}
}

// Start opens the login window for userID and returns a handle the caller
// must present to Confirm or Cancel.
func (c *Controller) Start(ctx context.Context, userID string) (StartResult, error) {
	if userID == "" {
		return StartResult{}, services.Wrap(services.ErrValidation, "capture", "start", "user id required", nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		return StartResult{}, services.Wrap(services.ErrCaptureConflict, "capture", "start",
			"another capture is in progress for user "+c.active.userID, nil)
	}

	automation, err := c.browser.Open(ctx, c.origin)
	if err != nil {
		return StartResult{}, services.Wrap(services.ErrTransient, "capture", "start", "open browser", err)
	}

	handle := uuid.NewString()
	c.active = &activeCapture{
		handle:    handle,
		userID:    userID,
		ctx:       automation,
		startedAt: time.Now().UTC(),
	}
	c.logger.Info("capture started",
		logging.String(logging.FieldUserID, userID),
		logging.String("handle", handle))
	return StartResult{
		Handle:            handle,
		CredentialsPath:   LocalPath(c.credentialsDir, userID),
		NeedsConfirmation: true,
	}, nil
}

// Confirm extracts the session from the open browser and persists it to the
// local credentials path. The browser is closed whether extraction succeeds
// or not; a failed confirm leaves no active capture behind.
func (c *Controller) Confirm(ctx context.Context, userID, handle string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	active, err := c.take(userID, handle, "confirm")
	if err != nil {
		return "", err
	}
	defer active.ctx.Close()
	c.active = nil

	state, err := active.ctx.StorageState(ctx)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "capture", "confirm", "extract session", err)
	}

	path := LocalPath(c.credentialsDir, active.userID)
	if err := writeLocalBlob(path, state); err != nil {
		return "", services.Wrap(services.ErrTransient, "capture", "confirm", "persist session", err)
	}
	c.logger.Info("capture confirmed",
		logging.String(logging.FieldUserID, active.userID),
		logging.String("path", path))
	return path, nil
}

// Cancel closes the open browser without persisting anything.
func (c *Controller) Cancel(userID, handle string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	active, err := c.take(userID, handle, "cancel")
	if err != nil {
		return err
	}
	c.active = nil
	_ = active.ctx.Close()
	c.logger.Info("capture cancelled", logging.String(logging.FieldUserID, active.userID))
	return nil
}

// Status reports the current capture without exposing the browser context.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return Status{}
	}
	return Status{
		Active:    true,
		UserID:    c.active.userID,
		Handle:    c.active.handle,
		StartedAt: c.active.startedAt,
	}
}

// Shutdown closes any open capture; used on agent exit.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		_ = c.active.ctx.Close()
		c.active = nil
	}
}

// take validates that a live capture matches the caller. Callers hold c.mu.
func (c *Controller) take(userID, handle, operation string) (*activeCapture, error) {
	if c.active == nil {
		return nil, services.Wrap(services.ErrNoActiveSession, "capture", operation, "no capture in progress", nil)
	}
	if c.active.userID != userID || (handle != "" && c.active.handle != handle) {
		return nil, services.Wrap(services.ErrNoActiveSession, "capture", operation,
			"capture handle does not match the active session", nil)
	}
	return c.active, nil
}
