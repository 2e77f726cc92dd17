package model

import (
	"errors"
	"fmt"
	"strings"
)

// Request-time validation errors. These surface synchronously to the caller
// before any job record or queued task exists.
var (
	// ErrInvalidTarget is returned when neither an existing course nor a valid
	// category can be resolved from a restore request.
	ErrInvalidTarget = errors.New("restore target is invalid")
	// ErrCourseNotFound is returned when a course selector matches nothing.
	ErrCourseNotFound = errors.New("course not found")
	// ErrJobNotFound is returned when no restore job record exists for a course.
	ErrJobNotFound = errors.New("restore job not found")
	// ErrArchiveNotFound is returned when an archive handle does not resolve
	// to readable content.
	ErrArchiveNotFound = errors.New("archive not found")
	// ErrConfigMissing is returned when the callback authentication settings
	// required by policy are absent from configuration.
	ErrConfigMissing = errors.New("callback API header or key missing in configuration")
	// ErrRestorePending is returned when a course already has an outstanding
	// restore job with a pending callback.
	ErrRestorePending = errors.New("course already has a pending restore")
)

// PrecheckError aggregates the blocking errors the engine reported during the
// precheck phase.
type PrecheckError struct {
	Errors []string
}

func (e *PrecheckError) Error() string {
	return "restore precheck failed: " + strings.Join(e.Errors, "; ")
}

// ExtractionError wraps a failure to unpack an archive into a working directory.
type ExtractionError struct {
	Dir string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract archive to %s: %v", e.Dir, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// TransportError indicates an outbound callback failed before an HTTP status
// was received (connection refused, timeout, DNS failure).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("callback transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPError indicates the callback endpoint answered with an unacceptable
// status code. Body is truncated by the dispatcher.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("callback returned HTTP %d: %s", e.StatusCode, e.Body)
}
