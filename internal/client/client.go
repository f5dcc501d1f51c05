// Package client implements the HTTP client the CLI uses against the
// backend API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"briefcast/internal/api"
	"briefcast/internal/services"
)

// Client talks to the backend HTTP API on behalf of the CLI.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New builds a client for the given backend base URL and bearer token.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Health checks backend reachability.
func (c *Client) Health(ctx context.Context) error {
	var out api.HealthResponse
	return c.do(ctx, http.MethodGet, "/healthz", nil, &out)
}

// CredentialStatus reports whether the backend holds a session for the user.
func (c *Client) CredentialStatus(ctx context.Context) (api.CredentialStatus, error) {
	var out api.CredentialStatus
	err := c.do(ctx, http.MethodGet, "/auth/notebooklm/status", nil, &out)
	return out, err
}

// Revoke deletes the user's stored session.
func (c *Client) Revoke(ctx context.Context) (bool, error) {
	var out api.RevokeResponse
	if err := c.do(ctx, http.MethodDelete, "/auth/notebooklm/revoke", nil, &out); err != nil {
		return false, err
	}
	return out.Revoked, nil
}

// Generate requests an immediate generation job.
func (c *Client) Generate(ctx context.Context) (api.Job, error) {
	var out api.GenerateResponse
	err := c.do(ctx, http.MethodPost, "/generate", nil, &out)
	return out.Job, err
}

// ListGenerations returns the user's job history, newest first.
func (c *Client) ListGenerations(ctx context.Context, limit int) ([]api.Job, error) {
	path := "/generations"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out api.JobListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// GetGeneration fetches a single job by identifier.
func (c *Client) GetGeneration(ctx context.Context, id string) (api.Job, error) {
	var out api.Job
	err := c.do(ctx, http.MethodGet, "/generations/"+id, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, dst any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return c.statusError(resp)
	}
	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) statusError(resp *http.Response) error {
	detail := ""
	var payload api.ErrorResponse
	if body, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil {
		if json.Unmarshal(body, &payload) == nil {
			detail = payload.Error
		}
	}
	if detail == "" {
		detail = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusConflict:
		return services.Wrap(services.ErrJobAlreadyRunning, "client", "request", detail, nil)
	case http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, "client", "request", detail, nil)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("backend rejected credentials: %s", detail)
	default:
		return fmt.Errorf("backend error (%d): %s", resp.StatusCode, detail)
	}
}
