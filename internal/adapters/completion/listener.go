// Package completion runs the loop that feeds completion events from the
// bus into the completion service.
package completion

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/campuskit/courserestore/internal/core"
	"github.com/campuskit/courserestore/internal/domain/model"
	"github.com/campuskit/courserestore/internal/service"
)

const (
	reconnectBackoff     = 2 * time.Second
	defaultSweepInterval = 5 * time.Minute
)

// Options configures the completion listener.
type Options struct {
	Bus     core.CompletionBus
	Handler *service.CompletionService

	// Jobs and Engine feed the reconciliation sweep. NOTIFY reaches only
	// connected sessions, so an event emitted while the listen session is
	// down would strand its job; the sweep settles those from engine
	// progress. Leaving either nil disables the sweep.
	Jobs   core.RestoreJobRepository
	Engine core.RestoreEngine
	// SweepInterval overrides how often pending jobs are reconciled.
	SweepInterval time.Duration

	Logger *slog.Logger
}

// Listener consumes completion events until its context is cancelled.
type Listener struct {
	bus           core.CompletionBus
	handler       *service.CompletionService
	jobs          core.RestoreJobRepository
	engine        core.RestoreEngine
	sweepInterval time.Duration
	logger        *slog.Logger
}

// New wires a completion listener.
func New(opts Options) (*Listener, error) {
	if opts.Bus == nil {
		return nil, errors.New("CompletionBus is required")
	}
	if opts.Handler == nil {
		return nil, errors.New("CompletionService is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := opts.SweepInterval
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Listener{
		bus:           opts.Bus,
		handler:       opts.Handler,
		jobs:          opts.Jobs,
		engine:        opts.Engine,
		sweepInterval: interval,
		logger:        logger.With("component", "completion_listener"),
	}, nil
}

// MustNew wires a completion listener and panics on error.
func MustNew(opts Options) *Listener {
	l, err := New(opts)
	if err != nil {
		panic(err)
	}
	return l
}

// Run blocks consuming events. Bus errors trigger a short backoff and a
// fresh listen; handler errors are logged, the loop continues.
func (l *Listener) Run(ctx context.Context) error {
	l.logger.InfoContext(ctx, "starting completion listener")

	if l.jobs != nil && l.engine != nil {
		go l.sweepLoop(ctx)
	}

	for {
		event, err := l.bus.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.ErrorContext(ctx, "completion bus error", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(reconnectBackoff):
			}
			continue
		}

		if handleErr := l.handler.Handle(ctx, event); handleErr != nil {
			l.logger.ErrorContext(ctx, "handle completion event failed",
				"course_id", event.CourseID,
				"outcome", event.Outcome,
				"error", handleErr,
			)
		}
	}
}

func (l *Listener) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep(ctx)
		}
	}
}

// sweep settles pending jobs whose engine restore already finished but
// whose completion event never arrived.
func (l *Listener) sweep(ctx context.Context) {
	jobs, err := l.jobs.ListPending(ctx)
	if err != nil {
		l.logger.ErrorContext(ctx, "list pending jobs for sweep", "error", err)
		return
	}

	for _, job := range jobs {
		if ctx.Err() != nil {
			return
		}
		if job.RestoreID == nil {
			continue
		}

		progress, progressErr := l.engine.Progress(ctx, *job.RestoreID)
		if progressErr != nil {
			l.logger.WarnContext(ctx, "sweep progress lookup failed",
				"course_id", job.CourseID,
				"restore_id", *job.RestoreID,
				"error", progressErr,
			)
			continue
		}
		if !progress.Status.Terminal() {
			continue
		}

		event := model.CompletionEvent{CourseID: job.CourseID, Outcome: model.OutcomeSucceeded}
		if progress.Status == model.StatusFinishedError {
			event.Outcome = model.OutcomeFailed
			event.Reason = "restore finished with error"
		}

		l.logger.InfoContext(ctx, "settling job missed by the bus",
			"course_id", job.CourseID,
			"restore_id", *job.RestoreID,
			"outcome", event.Outcome,
		)
		if handleErr := l.handler.Handle(ctx, event); handleErr != nil {
			l.logger.ErrorContext(ctx, "sweep settle failed",
				"course_id", job.CourseID,
				"error", handleErr,
			)
		}
	}
}
