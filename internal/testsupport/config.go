package testsupport

import (
	"path/filepath"
	"testing"

	"briefcast/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.CredentialsDir = filepath.Join(base, "credentials")
	cfg.API.Bind = "127.0.0.1:0"
	cfg.Agent.Bind = "127.0.0.1:0"
	cfg.API.AuthTokens = map[string]string{"test-token": "test-user"}
	cfg.Workflow.JobPollInterval = 1
	cfg.Workflow.ErrorRetryInterval = 1
	cfg.Workflow.SchedulerInterval = 1

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithAuthToken registers an extra bearer token on the test config.
func WithAuthToken(token, userID string) ConfigOption {
	return func(cfg *config.Config) {
		if cfg.API.AuthTokens == nil {
			cfg.API.AuthTokens = map[string]string{}
		}
		cfg.API.AuthTokens[token] = userID
	}
}

// WithNotebookOrigin points the third-party origin at a test server.
func WithNotebookOrigin(origin string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Notebook.Origin = origin
	}
}
