package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateNotebook(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateCollectors(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.CredentialsDir == "" {
		return errors.New("paths.credentials_dir must be set")
	}
	return nil
}

func (c *Config) validateNotebook() error {
	if c.Notebook.Origin == "" {
		return errors.New("notebook.origin must be set")
	}
	parsed, err := url.Parse(c.Notebook.Origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("notebook.origin %q is not a valid URL", c.Notebook.Origin)
	}
	if c.Notebook.ReplayTimeoutSeconds <= 0 {
		return errors.New("notebook.replay_timeout_seconds must be positive")
	}
	if c.Notebook.AudioTimeoutSeconds <= 0 {
		return errors.New("notebook.audio_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.JobPollInterval <= 0 {
		return errors.New("workflow.job_poll_interval must be positive")
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		return errors.New("workflow.error_retry_interval must be positive")
	}
	if c.Workflow.SchedulerInterval <= 0 {
		return errors.New("workflow.scheduler_interval must be positive")
	}
	return nil
}

func (c *Config) validateCollectors() error {
	if c.Collectors.RequestTimeoutSeconds <= 0 {
		return errors.New("collectors.request_timeout_seconds must be positive")
	}
	if c.Collectors.MaxItemsPerFeed <= 0 {
		return errors.New("collectors.max_items_per_feed must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (console or json)", c.Logging.Format)
	}
	return nil
}
