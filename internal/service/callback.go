package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/campuskit/courserestore/internal/domain/model"
)

const (
	// DefaultCallbackTimeout bounds a callback request end to end.
	DefaultCallbackTimeout = 10 * time.Second

	maxResponseBodyBytes = 4 * 1024 // avoid storing excessively large payloads
)

// CallbackConfig holds the callback delivery settings. HeaderName and
// HeaderValue form an optional authentication header sent on every request;
// both must be set together.
type CallbackConfig struct {
	HeaderName  string
	HeaderValue string
	Timeout     time.Duration
	// AcceptStatus decides whether an HTTP status counts as delivered.
	// Defaults to any status below 400.
	AcceptStatus func(status int) bool
}

// HasAuthHeader reports whether an authentication header is configured.
func (c CallbackConfig) HasAuthHeader() bool {
	return c.HeaderName != "" && c.HeaderValue != ""
}

// Validate rejects a half-configured authentication header.
func (c CallbackConfig) Validate() error {
	if (c.HeaderName == "") != (c.HeaderValue == "") {
		return model.ErrConfigMissing
	}
	return nil
}

// CallbackDispatcherOptions groups dependencies for CallbackDispatcher.
type CallbackDispatcherOptions struct {
	Config     CallbackConfig
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// CallbackDispatcher delivers restore completion callbacks. A callback with
// no payload is a GET; a callback with a payload is a POST carrying the
// stored payload verbatim as a JSON body.
type CallbackDispatcher struct {
	cfg    CallbackConfig
	http   *http.Client
	logger *slog.Logger
}

// NewCallbackDispatcher constructs a dispatcher.
func NewCallbackDispatcher(opts CallbackDispatcherOptions) (*CallbackDispatcher, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}

	cfg := opts.Config
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultCallbackTimeout
	}
	if cfg.AcceptStatus == nil {
		cfg.AcceptStatus = func(status int) bool { return status < http.StatusBadRequest }
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "callback_dispatcher")
	}

	return &CallbackDispatcher{cfg: cfg, http: hc, logger: logger}, nil
}

// MustNewCallbackDispatcher constructs a dispatcher and panics on error.
// Use this when you want fail-fast behavior during application startup.
func MustNewCallbackDispatcher(opts CallbackDispatcherOptions) *CallbackDispatcher {
	d, err := NewCallbackDispatcher(opts)
	if err != nil {
		panic(err)
	}
	return d
}

// Dispatch sends the callback for a finished restore. payload may be nil for
// a bodyless notification. Returns a *model.TransportError when the request
// never produced an HTTP status and a *model.HTTPError when the endpoint
// answered with an unacceptable one.
func (d *CallbackDispatcher) Dispatch(ctx context.Context, callbackURL string, payload *string) error {
	if err := model.ValidateCallbackURL(callbackURL); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	req, err := d.buildRequest(ctx, callbackURL, payload)
	if err != nil {
		return err
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return &model.TransportError{Err: err}
	}

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if closeErr := resp.Body.Close(); closeErr != nil && readErr == nil {
		readErr = closeErr
	}

	if !d.cfg.AcceptStatus(resp.StatusCode) {
		return &model.HTTPError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	if readErr != nil {
		// Delivered but the body could not be drained; log and move on.
		if d.logger != nil {
			d.logger.WarnContext(ctx, "read callback response body", "url", callbackURL, "error", readErr)
		}
	}

	if d.logger != nil {
		d.logger.InfoContext(ctx, "callback delivered",
			"url", callbackURL,
			"status", resp.StatusCode,
			"method", req.Method,
		)
	}
	return nil
}

func (d *CallbackDispatcher) buildRequest(ctx context.Context, callbackURL string, payload *string) (*http.Request, error) {
	method := http.MethodGet
	var body io.Reader
	if payload != nil {
		method = http.MethodPost
		body = strings.NewReader(*payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, callbackURL, body)
	if err != nil {
		return nil, fmt.Errorf("build callback request: %w", err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Cache-Control", "no-cache")
	}
	if d.cfg.HasAuthHeader() {
		req.Header.Set(d.cfg.HeaderName, d.cfg.HeaderValue)
	}
	return req, nil
}

// CallbackFailureReason renders a dispatch error into the text persisted on
// the restore job record.
func CallbackFailureReason(err error) string {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		return fmt.Sprintf("Unexpected response, HTTP code: %d Response: %s", httpErr.StatusCode, httpErr.Body)
	}
	var transportErr *model.TransportError
	if errors.As(err, &transportErr) {
		return fmt.Sprintf("Unexpected response, transport error: %v", transportErr.Err)
	}
	return err.Error()
}
