package capture

import (
	"fmt"
	"os"
	"path/filepath"

	"briefcast/internal/textutil"
)

// LocalPath returns where a user's captured session blob lives on the
// capture host. The user id is flattened so it can never escape the
// credentials directory.
func LocalPath(credentialsDir, userID string) string {
	return filepath.Join(credentialsDir, textutil.SanitizeToken(userID)+".json")
}

// writeLocalBlob persists the session blob with an atomic temp+rename so a
// crash mid-write never leaves a torn credentials file behind.
func writeLocalBlob(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
