package main

import (
	"errors"
	"os"
	"strings"
	"sync"

	"briefcast/internal/client"
	"briefcast/internal/config"
)

type commandContext struct {
	configFlag *string
	apiFlag    *string
	tokenFlag  *string
	userFlag   *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, apiFlag, tokenFlag, userFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		apiFlag:    apiFlag,
		tokenFlag:  tokenFlag,
		userFlag:   userFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// apiBase resolves the backend base URL: flag, then configuration.
func (c *commandContext) apiBase() (string, error) {
	if c.apiFlag != nil {
		if base := strings.TrimSpace(*c.apiFlag); base != "" {
			return strings.TrimRight(base, "/"), nil
		}
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	if cfg.Agent.APIBase == "" {
		return "", errors.New("backend API base not configured; set agent.api_base or pass --api")
	}
	return cfg.Agent.APIBase, nil
}

// token resolves the bearer token: flag, then BRIEFCAST_TOKEN.
func (c *commandContext) token() (string, error) {
	if c.tokenFlag != nil {
		if token := strings.TrimSpace(*c.tokenFlag); token != "" {
			return token, nil
		}
	}
	if token := strings.TrimSpace(os.Getenv("BRIEFCAST_TOKEN")); token != "" {
		return token, nil
	}
	return "", errors.New("bearer token required; pass --token or set BRIEFCAST_TOKEN")
}

// userID resolves the acting user: flag, then BRIEFCAST_USER_ID.
func (c *commandContext) userID() (string, error) {
	if c.userFlag != nil {
		if user := strings.TrimSpace(*c.userFlag); user != "" {
			return user, nil
		}
	}
	if user := strings.TrimSpace(os.Getenv("BRIEFCAST_USER_ID")); user != "" {
		return user, nil
	}
	return "", errors.New("user id required; pass --user or set BRIEFCAST_USER_ID")
}

func (c *commandContext) backendClient() (*client.Client, error) {
	base, err := c.apiBase()
	if err != nil {
		return nil, err
	}
	token, err := c.token()
	if err != nil {
		return nil, err
	}
	return client.New(base, token), nil
}
