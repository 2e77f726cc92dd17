// Package model defines the core data types used throughout the courserestore system.
package model

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// RestoreTarget selects how restored content is applied to the target course.
type RestoreTarget string

const (
	// TargetNewCourse restores into a freshly provisioned course.
	TargetNewCourse RestoreTarget = "new_course"
	// TargetExistingDeleting replaces the content of an existing course.
	TargetExistingDeleting RestoreTarget = "existing_deleting"
)

// Valid returns true if the RestoreTarget is valid.
func (t RestoreTarget) Valid() bool {
	return t == TargetNewCourse || t == TargetExistingDeleting
}

// RestoreJob tracks one outstanding or completed restore-and-notify workflow.
// It is created when an asynchronous engine restore is queued and mutated
// exactly once by the completion handler (terminal update or deletion).
type RestoreJob struct {
	ID              int64      `json:"id"                         db:"id"`
	CourseID        int64      `json:"course_id"                  db:"course_id"`
	BackupDir       string     `json:"backup_dir"                 db:"backup_dir"`
	RestoreID       *string    `json:"restore_id,omitempty"       db:"restore_id"`
	CallbackURL     *string    `json:"callback_url,omitempty"     db:"callback_url"`
	CallbackPayload *string    `json:"callback_payload,omitempty" db:"callback_payload"`
	TimeCreated     time.Time  `json:"time_created"               db:"time_created"`
	TimeExecuted    *time.Time `json:"time_executed,omitempty"    db:"time_executed"`
	FailureReason   *string    `json:"failure_reason,omitempty"   db:"failure_reason"`
	Failed          bool       `json:"failed"                     db:"failed"`
}

// HasCallback reports whether a callback notification was requested.
func (j *RestoreJob) HasCallback() bool {
	return j.CallbackURL != nil && strings.TrimSpace(*j.CallbackURL) != ""
}

// CreateRestoreJobRequest represents a request to persist a new restore job.
type CreateRestoreJobRequest struct {
	CourseID        int64   `json:"course_id"`
	BackupDir       string  `json:"backup_dir"`
	RestoreID       *string `json:"restore_id,omitempty"`
	CallbackURL     *string `json:"callback_url,omitempty"`
	CallbackPayload *string `json:"callback_payload,omitempty"`
}

// Validate validates the CreateRestoreJobRequest fields.
func (r *CreateRestoreJobRequest) Validate() error {
	if r.CourseID <= 0 {
		return errors.New("course id is required")
	}
	if strings.TrimSpace(r.BackupDir) == "" {
		return errors.New("backup dir is required")
	}
	if r.CallbackURL != nil {
		if err := ValidateCallbackURL(*r.CallbackURL); err != nil {
			return err
		}
	}
	return nil
}

// ValidateCallbackURL checks that a callback URL is absolute http(s).
func ValidateCallbackURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return errors.New("callback url is not a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("callback url must be an absolute http(s) URL")
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("callback url is missing a host")
	}
	return nil
}

// RestoreJobListing is a restore job joined with course metadata for display.
// CourseShortname is a placeholder when the course no longer exists.
type RestoreJobListing struct {
	RestoreJob
	CourseShortname string `json:"course_shortname" db:"course_shortname"`
}

// RestoreOutcome is the terminal outcome of an engine restore execution.
type RestoreOutcome string

const (
	// OutcomeSucceeded indicates the engine finished the restore successfully.
	OutcomeSucceeded RestoreOutcome = "succeeded"
	// OutcomeFailed indicates the engine aborted the restore with a hard error.
	OutcomeFailed RestoreOutcome = "failed"
)

// Valid returns true if the RestoreOutcome is valid.
func (o RestoreOutcome) Valid() bool {
	return o == OutcomeSucceeded || o == OutcomeFailed
}

// CompletionEvent is emitted by the restore runner when an engine restore
// reaches a terminal state, and consumed by the completion handler.
type CompletionEvent struct {
	CourseID int64          `json:"course_id"`
	Outcome  RestoreOutcome `json:"outcome"`
	Reason   string         `json:"reason,omitempty"`
}

// Validate validates the CompletionEvent fields.
func (e *CompletionEvent) Validate() error {
	if e.CourseID <= 0 {
		return errors.New("course id is required")
	}
	if !e.Outcome.Valid() {
		return errors.New("invalid restore outcome")
	}
	return nil
}
