package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"briefcast/internal/logging"
	"briefcast/internal/services"
)

// Uploader hands a locally captured session blob to the backend credential
// service. Upload is idempotent because the service upserts; re-running a
// failed upload is always safe.
type Uploader struct {
	apiBase        string
	credentialsDir string
	httpClient     *http.Client
	logger         *slog.Logger
}

// NewUploader builds an uploader against the backend API base URL.
func NewUploader(apiBase, credentialsDir string, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Uploader{
		apiBase:        strings.TrimRight(strings.TrimSpace(apiBase), "/"),
		credentialsDir: credentialsDir,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		logger:         logging.WithComponent(logger, "capture-upload"),
	}
}

type uploadRequest struct {
	UserID      string          `json:"user_id"`
	Credentials json.RawMessage `json:"credentials"`
}

// Upload reads the local blob for userID and posts it to the credential
// service with the caller's bearer token. On confirmed acceptance the local
// copy is deleted; on any failure it is kept for retry.
func (u *Uploader) Upload(ctx context.Context, userID, bearerToken string) error {
	path := LocalPath(u.credentialsDir, userID)
	blob, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return services.Wrap(services.ErrLocalSessionNotFound, "capture", "upload",
			"no captured session on this machine, run connect first", nil)
	}
	if err != nil {
		return services.Wrap(services.ErrTransient, "capture", "upload", "read local session", err)
	}
	if !json.Valid(blob) {
		return services.Wrap(services.ErrLocalSessionNotFound, "capture", "upload",
			"local session file is corrupt, run connect again", nil)
	}

	payload, err := json.Marshal(uploadRequest{UserID: userID, Credentials: blob})
	if err != nil {
		return services.Wrap(services.ErrTransient, "capture", "upload", "encode payload", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		u.apiBase+"/auth/notebooklm/upload-credentials", bytes.NewReader(payload))
	if err != nil {
		return services.Wrap(services.ErrTransient, "capture", "upload", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearerToken)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrUploadRejected, "capture", "upload",
			"credential service unreachable", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return services.Wrap(services.ErrUploadRejected, "capture", "upload",
			"identity mismatch: "+responseDetail(body), nil)
	case resp.StatusCode == http.StatusBadRequest:
		return services.Wrap(services.ErrUploadRejected, "capture", "upload",
			"payload rejected as malformed: "+responseDetail(body), nil)
	default:
		return services.Wrap(services.ErrUploadRejected, "capture", "upload",
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, responseDetail(body)), nil)
	}

	// The service owns the session now; the local copy has no further use.
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		u.logger.Warn("failed to remove local session after upload",
			logging.String("path", path),
			logging.Error(err))
	}
	u.logger.Info("session uploaded", logging.String(logging.FieldUserID, userID))
	return nil
}

func responseDetail(body []byte) string {
	var parsed struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Detail != "" {
			return parsed.Detail
		}
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "no detail"
	}
	return trimmed
}
