package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"briefcast/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadParsesFileAndExpandsPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"

[api]
bind = "127.0.0.1:0"
auth_tokens = { "tok-1" = "user-1" }

[workflow]
job_poll_interval = 1
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %s to be used, got %s exists=%v", path, resolved, exists)
	}
	if cfg.Workflow.JobPollInterval != 1 {
		t.Fatalf("expected file value to win, got %d", cfg.Workflow.JobPollInterval)
	}
	if cfg.API.AuthTokens["tok-1"] != "user-1" {
		t.Fatalf("expected auth token map parsed, got %#v", cfg.API.AuthTokens)
	}
	if !filepath.IsAbs(cfg.Paths.CredentialsDir) {
		t.Fatalf("expected credentials dir expanded, got %q", cfg.Paths.CredentialsDir)
	}
	// Defaults fill sections the file omits.
	if cfg.Notebook.Origin == "" {
		t.Fatal("expected notebook origin default")
	}
}

func TestLoadAppliesEnvironmentOverrides(t *testing.T) {
	t.Setenv("BRIEFCAST_LOG_LEVEL", "debug")
	t.Setenv("BRIEFCAST_API_BIND", "127.0.0.1:9999")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected env override for log level, got %q", cfg.Logging.Level)
	}
	if cfg.API.Bind != "127.0.0.1:9999" {
		t.Fatalf("expected env override for api bind, got %q", cfg.API.Bind)
	}
}

func TestValidateRejectsBadOrigin(t *testing.T) {
	cfg := config.Default()
	cfg.Notebook.Origin = "not a url"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "notebook.origin") {
		t.Fatalf("expected origin validation error, got %v", err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Paths.CredentialsDir = filepath.Join(dir, "creds")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, d := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir, cfg.Paths.CredentialsDir} {
		info, err := os.Stat(d)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s, err=%v", d, err)
		}
	}
}
