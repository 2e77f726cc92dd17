// Package httpengine talks to the course restore engine over its JSON API.
package httpengine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/campuskit/courserestore/internal/domain/model"
)

const maxErrorBodyBytes = 4 * 1024

// Options configures the engine client.
type Options struct {
	// BaseURL is the engine API root, e.g. "http://restore-engine:8500".
	BaseURL string
	// Token is sent as a bearer token on every request. Optional.
	Token string
	// HTTPClient overrides the default client. Optional.
	HTTPClient *http.Client
	// PollInterval is how often Execute polls for terminal status.
	// Defaults to 2s.
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Client is an engine API client implementing core.RestoreEngine.
type Client struct {
	baseURL      string
	token        string
	http         *http.Client
	pollInterval time.Duration
	logger       *slog.Logger
}

// New creates an engine client.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("engine base URL is required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	logger := opts.Logger
	if logger != nil {
		logger = logger.With("component", "restore_engine")
	}
	return &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		token:        opts.Token,
		http:         hc,
		pollInterval: interval,
		logger:       logger,
	}, nil
}

// MustNew creates an engine client and panics on error.
func MustNew(opts Options) *Client {
	c, err := New(opts)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("engine request %s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("engine %s %s returned HTTP %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode engine response: %w", err)
	}
	return nil
}

// Create registers a restore with the engine and returns its restore id.
func (c *Client) Create(ctx context.Context, spec model.EngineRestoreSpec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}

	var out struct {
		RestoreID string `json:"restore_id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/restores", spec, &out); err != nil {
		return "", err
	}
	if out.RestoreID == "" {
		return "", errors.New("engine returned empty restore id")
	}
	return out.RestoreID, nil
}

// Precheck runs the engine's preflight checks for a registered restore.
func (c *Client) Precheck(ctx context.Context, restoreID string) (model.PrecheckResult, error) {
	var out model.PrecheckResult
	err := c.doJSON(ctx, http.MethodPost, "/restores/"+restoreID+"/precheck", nil, &out)
	return out, err
}

// Execute starts a registered restore and polls until the engine reports a
// terminal status. Returns an error when the restore finishes with an error
// or drops out of the engine's view.
func (c *Client) Execute(ctx context.Context, restoreID string) error {
	if err := c.doJSON(ctx, http.MethodPost, "/restores/"+restoreID+"/execute", nil, nil); err != nil {
		return err
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		progress, err := c.Progress(ctx, restoreID)
		if err != nil {
			return err
		}
		if c.logger != nil {
			c.logger.DebugContext(ctx, "restore progress",
				"restore_id", restoreID,
				"status", progress.Status,
				"percent", progress.Percent,
			)
		}

		switch progress.Status {
		case model.StatusFinishedOK:
			return nil
		case model.StatusFinishedError:
			return fmt.Errorf("restore %s finished with error", restoreID)
		case model.StatusUnknown:
			return fmt.Errorf("restore %s is no longer known to the engine", restoreID)
		case model.StatusAwaiting, model.StatusExecuting:
			// keep polling
		}
	}
}

// Progress returns a point-in-time progress snapshot for a restore.
func (c *Client) Progress(ctx context.Context, restoreID string) (model.RestoreProgress, error) {
	var out model.RestoreProgress
	if err := c.doJSON(ctx, http.MethodGet, "/restores/"+restoreID+"/progress", nil, &out); err != nil {
		return model.RestoreProgress{}, err
	}
	if out.RestoreID == "" {
		out.RestoreID = restoreID
	}
	return out, nil
}

// Backup asks the engine to produce a backup archive of a course.
func (c *Client) Backup(ctx context.Context, req model.BackupRequest) (model.BackupResult, error) {
	var out model.BackupResult
	err := c.doJSON(ctx, http.MethodPost, "/backups", req, &out)
	return out, err
}
