package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v9"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for daemon and capture-host state.
type Paths struct {
	DataDir        string `toml:"data_dir" env:"BRIEFCAST_DATA_DIR"`
	LogDir         string `toml:"log_dir" env:"BRIEFCAST_LOG_DIR"`
	CredentialsDir string `toml:"credentials_dir" env:"BRIEFCAST_CREDENTIALS_DIR"`
}

// API contains the backend HTTP surface configuration.
type API struct {
	Bind string `toml:"bind" env:"BRIEFCAST_API_BIND"`
	// AuthTokens maps bearer tokens to user IDs. The real deployment sits
	// behind an identity provider; this map is the pluggable stand-in at
	// that boundary.
	AuthTokens     map[string]string `toml:"auth_tokens"`
	CronSecret     string            `toml:"cron_secret" env:"BRIEFCAST_CRON_SECRET"`
	AllowedOrigins []string          `toml:"allowed_origins"`
}

// Agent contains the local capture-agent HTTP configuration.
type Agent struct {
	Bind    string `toml:"bind" env:"BRIEFCAST_AGENT_BIND"`
	APIBase string `toml:"api_base" env:"BRIEFCAST_API_BASE"`
}

// Notebook contains settings for the third-party notebook service automation.
type Notebook struct {
	Origin               string `toml:"origin"`
	ReplayTimeoutSeconds int    `toml:"replay_timeout_seconds"`
	AudioTimeoutSeconds  int    `toml:"audio_timeout_seconds"`
}

// Collectors contains content-source fetch settings.
type Collectors struct {
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`
	MaxItemsPerFeed       int `toml:"max_items_per_feed"`
	MaxPostsPerNewsletter int `toml:"max_posts_per_newsletter"`
}

// Topics contains the news-summary API connection settings.
type Topics struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key" env:"BRIEFCAST_TOPICS_API_KEY"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Workflow contains daemon timing and intervals.
type Workflow struct {
	JobPollInterval    int `toml:"job_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	SchedulerInterval  int `toml:"scheduler_interval"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic" env:"BRIEFCAST_NTFY_TOPIC"`
	RequestTimeout int    `toml:"request_timeout"`
	Jobs           bool   `toml:"jobs"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" env:"BRIEFCAST_LOG_FORMAT"`
	Level  string `toml:"level" env:"BRIEFCAST_LOG_LEVEL"`
}

// Config encapsulates all configuration values for briefcast.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and capture-host credential directories
//   - API: backend bind address, auth tokens, CORS origins
//   - Agent: local capture agent bind and backend base URL
//   - Notebook: third-party service origin and replay timeouts
//   - Collectors: content-source fetch limits
//   - Topics: news-summary API connection
//   - Workflow: daemon polling intervals
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	API           API           `toml:"api"`
	Agent         Agent         `toml:"agent"`
	Notebook      Notebook      `toml:"notebook"`
	Collectors    Collectors    `toml:"collectors"`
	Topics        Topics        `toml:"topics"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/briefcast/config.toml")
}

// Load locates, parses, and validates a configuration file. Environment
// variables override file values. The returned config has all path fields
// expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, "", false, fmt.Errorf("apply environment overrides: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("briefcast.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon and capture-host
// operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.CredentialsDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SampleConfig returns the annotated sample configuration file contents.
func SampleConfig() string {
	return sampleConfig
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Paths.CredentialsDir, err = expandPath(c.Paths.CredentialsDir); err != nil {
		return err
	}
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	c.Agent.Bind = strings.TrimSpace(c.Agent.Bind)
	c.Agent.APIBase = strings.TrimRight(strings.TrimSpace(c.Agent.APIBase), "/")
	c.Notebook.Origin = strings.TrimRight(strings.TrimSpace(c.Notebook.Origin), "/")
	c.Topics.BaseURL = strings.TrimRight(strings.TrimSpace(c.Topics.BaseURL), "/")
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
