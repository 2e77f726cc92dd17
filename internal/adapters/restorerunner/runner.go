// Package restorerunner consumes queued restore tasks and drives the
// engine restore to completion, publishing a completion event either way.
package restorerunner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/campuskit/courserestore/internal/core"
	"github.com/campuskit/courserestore/internal/domain/model"
	"github.com/campuskit/courserestore/internal/observability/metrics"
	"github.com/campuskit/courserestore/internal/observability/statsd"
)

const (
	defaultLease        = 10 * time.Minute
	defaultNotifyWait   = 30 * time.Second
	maxEventReasonBytes = 1000
)

// Options configures the restore runner.
type Options struct {
	Tasks  core.TaskRepository
	Engine core.RestoreEngine
	Bus    core.CompletionBus

	// Lease is the per-task lease duration; defaults to 10m since engine
	// restores are long-running.
	Lease time.Duration
	// Concurrency is the number of worker goroutines; defaults to 1.
	Concurrency int

	Logger  *slog.Logger
	Metrics statsd.Sink
}

// Runner pulls restore tasks and executes them against the engine.
type Runner struct {
	tasks   core.TaskRepository
	engine  core.RestoreEngine
	bus     core.CompletionBus
	lease   time.Duration
	workers int
	logger  *slog.Logger
	metrics statsd.Sink
}

// New wires a restore runner.
func New(opts Options) (*Runner, error) {
	if opts.Tasks == nil {
		return nil, errors.New("TaskRepository is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("RestoreEngine is required")
	}
	if opts.Bus == nil {
		return nil, errors.New("CompletionBus is required")
	}

	lease := opts.Lease
	if lease <= 0 {
		lease = defaultLease
	}
	workers := opts.Concurrency
	if workers <= 0 {
		workers = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		tasks:   opts.Tasks,
		engine:  opts.Engine,
		bus:     opts.Bus,
		lease:   lease,
		workers: workers,
		logger:  logger.With("component", "restore_runner"),
		metrics: opts.Metrics,
	}, nil
}

// MustNew wires a restore runner and panics on error.
func MustNew(opts Options) *Runner {
	r, err := New(opts)
	if err != nil {
		panic(err)
	}
	return r
}

// Run starts worker goroutines and processes tasks until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting restore runner", "workers", r.workers, "lease", r.lease)

	// first worker error cancels the group
	g, ctx := errgroup.WithContext(ctx)
	for range r.workers {
		g.Go(func() error {
			return r.workerLoop(ctx)
		})
	}
	return g.Wait()
}

func (r *Runner) workerLoop(ctx context.Context) error {
	for ctx.Err() == nil {
		task, err := r.tasks.ReserveNext(ctx, model.TaskTypeRestore, r.lease)
		switch {
		case err == nil:
			r.processTask(ctx, task)
		case errors.Is(err, model.ErrNoTasksAvailable):
			if waitErr := r.tasks.WaitForTask(ctx, model.TaskTypeRestore, defaultNotifyWait); waitErr != nil && ctx.Err() == nil {
				return fmt.Errorf("wait for task: %w", waitErr)
			}
		default:
			return fmt.Errorf("reserve next: %w", err)
		}
	}
	return ctx.Err()
}

func (r *Runner) processTask(ctx context.Context, task *model.Task) {
	start := time.Now()

	payload, err := decodePayload(task.Payload)
	if err != nil {
		r.fail(ctx, task.ID, err)
		r.emit("executed", metrics.ResultError, time.Since(start), err)
		return
	}

	execErr := r.engine.Execute(ctx, payload.RestoreID)

	event := model.CompletionEvent{CourseID: payload.CourseID, Outcome: model.OutcomeSucceeded}
	if execErr != nil {
		event.Outcome = model.OutcomeFailed
		event.Reason = truncate(execErr.Error(), maxEventReasonBytes)
		r.logger.ErrorContext(ctx, "restore execution failed",
			"task_id", task.ID,
			"restore_id", payload.RestoreID,
			"course_id", payload.CourseID,
			"error", execErr,
		)
	} else {
		r.logger.InfoContext(ctx, "restore executed",
			"task_id", task.ID,
			"restore_id", payload.RestoreID,
			"course_id", payload.CourseID,
		)
	}

	if pubErr := r.bus.Publish(ctx, event); pubErr != nil {
		// Without the event the completion handler never settles the job;
		// leave the task for a lease retry.
		r.fail(ctx, task.ID, fmt.Errorf("publish completion event: %w", pubErr))
		r.emit("executed", metrics.ResultError, time.Since(start), pubErr)
		return
	}

	// The task is done even when the restore failed: the failure now lives
	// in the published event, not in the queue.
	if completeErr := r.tasks.Complete(ctx, task.ID); completeErr != nil {
		r.logger.ErrorContext(ctx, "complete task error", "task_id", task.ID, "error", completeErr)
	}

	result := metrics.ResultSuccess
	if execErr != nil {
		result = metrics.ResultError
	}
	r.emit("executed", result, time.Since(start), execErr)
}

func (r *Runner) fail(ctx context.Context, taskID string, err error) {
	if failErr := r.tasks.Fail(ctx, taskID, err.Error()); failErr != nil {
		r.logger.ErrorContext(ctx, "fail task error", "task_id", taskID, "error", failErr, "original_error", err)
	}
}

func (r *Runner) emit(stage, result string, d time.Duration, err error) {
	metrics.EmitRestoreLifecycle(r.metrics, metrics.RestoreMetric{
		Stage:    stage,
		Result:   result,
		Duration: d,
		Err:      err,
	})
}

func decodePayload(raw json.RawMessage) (model.RestoreTaskPayload, error) {
	var payload model.RestoreTaskPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, fmt.Errorf("decode task payload: %w", err)
	}
	if payload.RestoreID == "" {
		return payload, errors.New("task payload missing restore_id")
	}
	if payload.CourseID <= 0 {
		return payload, errors.New("task payload missing course_id")
	}
	return payload, nil
}

// truncate bounds the event reason without splitting a multibyte rune;
// the reason ends up in a Postgres text column, which rejects invalid
// UTF-8 and NUL.
func truncate(s string, n int) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	s = strings.ReplaceAll(s, "\x00", "")
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
