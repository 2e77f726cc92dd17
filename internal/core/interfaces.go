// Package core defines the interfaces between services and their
// collaborators. Services depend on these interfaces, never on the
// concrete data or adapter types behind them.
package core

import (
	"context"
	"io"
	"time"

	"github.com/campuskit/courserestore/internal/domain/model"
)

// RestoreJobRepository persists restore job records. A record exists for
// every queued restore and is deleted once the restore succeeds.
type RestoreJobRepository interface {
	// Create inserts a new restore job and returns it with generated fields set.
	Create(ctx context.Context, req model.CreateRestoreJobRequest) (*model.RestoreJob, error)
	// GetByCourse returns the newest non-failed job for the given course.
	// Returns model.ErrJobNotFound when none exists.
	GetByCourse(ctx context.Context, courseID int64) (*model.RestoreJob, error)
	// Update rewrites the mutable fields of an existing job.
	Update(ctx context.Context, job *model.RestoreJob) error
	// Delete removes a job record by id.
	Delete(ctx context.Context, id int64) error
	// ListAll returns all job records, newest first, joined with course names.
	ListAll(ctx context.Context) ([]model.RestoreJobListing, error)
	// ListPending returns jobs that have not yet executed.
	ListPending(ctx context.Context) ([]model.RestoreJob, error)
	// ClearFailed deletes all failed job records and returns how many went.
	ClearFailed(ctx context.Context) (int64, error)
}

// CourseRepository reads and creates course records.
type CourseRepository interface {
	// GetByID returns the course with the given id, or model.ErrCourseNotFound.
	GetByID(ctx context.Context, id int64) (*model.Course, error)
	// GetByShortname returns the course with the given shortname.
	GetByShortname(ctx context.Context, shortname string) (*model.Course, error)
	// GetByIDNumber returns the course with the given idnumber.
	GetByIDNumber(ctx context.Context, idnumber string) (*model.Course, error)
	// CategoryExists reports whether a course category with the id exists.
	CategoryExists(ctx context.Context, id int64) (bool, error)
	// CreateCourse inserts a placeholder course for a restore to fill.
	CreateCourse(ctx context.Context, req model.CreateCourseRequest) (*model.Course, error)
}

// TaskRepository is the durable queue of deferred tasks.
type TaskRepository interface {
	// Create enqueues a task and returns it with generated fields set.
	Create(ctx context.Context, req model.CreateTaskRequest) (*model.Task, error)
	// GetByID returns the task with the given id.
	GetByID(ctx context.Context, id string) (*model.Task, error)
	// ReserveNext atomically claims the next runnable task of the given
	// type. Returns model.ErrNoTasksAvailable when the queue is empty.
	ReserveNext(ctx context.Context, taskType model.TaskType, leaseDuration time.Duration) (*model.Task, error)
	// WaitForTask blocks until a task of the given type may be available
	// or the timeout elapses.
	WaitForTask(ctx context.Context, taskType model.TaskType, timeout time.Duration) error
	// Complete marks a reserved task as completed.
	Complete(ctx context.Context, id string) error
	// Fail records a task failure. The task is requeued while retries
	// remain and marked failed otherwise.
	Fail(ctx context.Context, id string, taskErr string) error
	// RequeueExpired returns leases that expired back to pending.
	RequeueExpired(ctx context.Context, taskType model.TaskType) (int64, error)
}

// CompletionBus carries completion events from the restore runner to the
// completion handler.
type CompletionBus interface {
	// Publish broadcasts a completion event.
	Publish(ctx context.Context, event model.CompletionEvent) error
	// Next blocks until an event arrives or ctx is done.
	Next(ctx context.Context) (model.CompletionEvent, error)
}

// RestoreEngine is the course restore engine the orchestrator drives.
type RestoreEngine interface {
	// Create registers a restore with the engine and returns its restore id.
	Create(ctx context.Context, spec model.EngineRestoreSpec) (string, error)
	// Precheck runs the engine's preflight checks for a registered restore.
	Precheck(ctx context.Context, restoreID string) (model.PrecheckResult, error)
	// Execute drives a registered restore to completion. Blocks until the
	// engine reports a terminal status.
	Execute(ctx context.Context, restoreID string) error
	// Progress returns a point-in-time progress snapshot.
	Progress(ctx context.Context, restoreID string) (model.RestoreProgress, error)
	// Backup produces a backup archive of the given course.
	Backup(ctx context.Context, req model.BackupRequest) (model.BackupResult, error)
}

// ArchiveStore resolves backup archive handles to their contents.
type ArchiveStore interface {
	// Resolve opens the archive behind the handle for reading. Returns
	// model.ErrArchiveNotFound when the handle points nowhere.
	Resolve(ctx context.Context, handle string) (io.ReadCloser, error)
	// Put stores an archive under the handle.
	Put(ctx context.Context, handle string, r io.Reader, size int64) error
}

// ProgressCache is a short-lived cache of restore progress snapshots used
// by the status view to avoid hammering the engine.
type ProgressCache interface {
	// Get returns the cached snapshot for the restore id, or false.
	Get(ctx context.Context, restoreID string) (model.RestoreProgress, bool, error)
	// Set caches a snapshot for the configured TTL.
	Set(ctx context.Context, progress model.RestoreProgress) error
}
