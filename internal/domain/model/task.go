package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// TaskType represents the type of deferred task to be executed.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type TaskType string

// TaskStatus represents the current status of a deferred task.
type TaskStatus string

const (
	// TaskTypeRestore drives an already-prechecked engine restore to completion.
	TaskTypeRestore TaskType = "restore"

	// TaskStatusPending indicates a task is waiting to be processed.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusRunning indicates a task is currently being processed.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusCompleted indicates a task has finished successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates a task has failed to complete.
	TaskStatusFailed TaskStatus = "failed"
)

// ErrNoTasksAvailable is returned when no tasks are available for reservation.
var ErrNoTasksAvailable = errors.New("no tasks available")

// UnmarshalText implements encoding.TextUnmarshaler for TaskType to allow env parsing.
func (t *TaskType) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	tt := TaskType(v)
	if tt.Valid() {
		*t = tt
		return nil
	}
	return fmt.Errorf("invalid TaskType: %q", v)
}

// Valid returns true if the TaskType is valid.
func (t TaskType) Valid() bool {
	return t == TaskTypeRestore
}

// Valid returns true if the TaskStatus is valid.
func (s TaskStatus) Valid() bool {
	return s == TaskStatusPending || s == TaskStatusRunning ||
		s == TaskStatusCompleted || s == TaskStatusFailed
}

// Task is a durable unit of deferred work consumed by a runner. The restore
// orchestrator enqueues one task per queued engine restore.
type Task struct {
	ID             string          `json:"id"                         db:"id"`
	Type           TaskType        `json:"type"                       db:"type"`
	Status         TaskStatus      `json:"status"                     db:"status"`
	Payload        json.RawMessage `json:"payload"                    db:"payload"`
	ScheduledAt    time.Time       `json:"scheduled_at"               db:"scheduled_at"`
	StartedAt      *time.Time      `json:"started_at,omitempty"       db:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"     db:"completed_at"`
	RetryCount     int             `json:"retry_count"                db:"retry_count"`
	MaxRetries     int             `json:"max_retries"                db:"max_retries"`
	LastError      *string         `json:"last_error,omitempty"       db:"last_error"`
	LeaseExpiresAt *time.Time      `json:"lease_expires_at,omitempty" db:"lease_expires_at"`
	CreatedAt      time.Time       `json:"created_at"                 db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"                 db:"updated_at"`
}

// CreateTaskRequest represents a request to enqueue a new deferred task.
type CreateTaskRequest struct {
	Type        TaskType        `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	ScheduledAt *time.Time      `json:"scheduled_at,omitempty"`
	MaxRetries  int             `json:"max_retries"`
}

// Validate validates the CreateTaskRequest fields.
func (r *CreateTaskRequest) Validate() error {
	if !r.Type.Valid() {
		return errors.New("invalid task type")
	}
	if len(r.Payload) == 0 {
		return errors.New("payload is required")
	}
	if r.MaxRetries < 0 {
		return errors.New("max retries must be >= 0")
	}
	return nil
}

// RestoreTaskPayload is the payload carried by a TaskTypeRestore task.
type RestoreTaskPayload struct {
	RestoreID string `json:"restore_id"`
	CourseID  int64  `json:"course_id"`
}
