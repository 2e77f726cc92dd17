package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/campuskit/courserestore/internal/core"
	"github.com/campuskit/courserestore/internal/domain/model"
	"github.com/campuskit/courserestore/internal/observability/metrics"
	"github.com/campuskit/courserestore/internal/observability/statsd"
)

// maxFailureReasonLen bounds the failure reason persisted on a job record.
const maxFailureReasonLen = 1000

// CompletionServiceOptions groups dependencies for CompletionService.
type CompletionServiceOptions struct {
	Jobs       core.RestoreJobRepository
	Dispatcher *CallbackDispatcher
	Logger     *slog.Logger
	Metrics    statsd.Sink
	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// CompletionService reacts to restore completion events. It cleans up the
// working directory, fires the callback when one was requested and settles
// the job record: deleted on success, retained with a failure reason
// otherwise. There is no retry; a failed callback is terminal.
type CompletionService struct {
	jobs       core.RestoreJobRepository
	dispatcher *CallbackDispatcher
	logger     *slog.Logger
	metrics    statsd.Sink
	now        func() time.Time
}

// NewCompletionService constructs a CompletionService.
func NewCompletionService(opts CompletionServiceOptions) (*CompletionService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("RestoreJobRepository is required")
	}
	if opts.Dispatcher == nil {
		return nil, errors.New("CallbackDispatcher is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "completion_service")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &CompletionService{
		jobs:       opts.Jobs,
		dispatcher: opts.Dispatcher,
		logger:     logger,
		metrics:    opts.Metrics,
		now:        now,
	}, nil
}

// MustNewCompletionService constructs a CompletionService and panics on error.
func MustNewCompletionService(opts CompletionServiceOptions) *CompletionService {
	s, err := NewCompletionService(opts)
	if err != nil {
		panic(err)
	}
	return s
}

// Handle settles the restore job for a completion event. Events for courses
// with no outstanding job are ignored, which makes redelivery harmless.
func (s *CompletionService) Handle(ctx context.Context, event model.CompletionEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	job, err := s.jobs.GetByCourse(ctx, event.CourseID)
	if errors.Is(err, model.ErrJobNotFound) {
		if s.logger != nil {
			s.logger.DebugContext(ctx, "no restore job for completion event", "course_id", event.CourseID)
		}
		metrics.EmitRestoreLifecycle(s.metrics, metrics.RestoreMetric{
			Stage:  "completed",
			Result: metrics.ResultNoop,
		})
		return nil
	}
	if err != nil {
		return err
	}

	// The staged backup is no longer needed whatever happened.
	s.cleanupWorkdir(ctx, job)

	executed := s.now().UTC()
	job.TimeExecuted = &executed

	if event.Outcome == model.OutcomeFailed {
		return s.settleFailure(ctx, job, truncateReason(event.Reason))
	}

	if !job.HasCallback() {
		return s.settleSuccess(ctx, job)
	}

	start := s.now()
	dispatchErr := s.dispatcher.Dispatch(ctx, *job.CallbackURL, job.CallbackPayload)
	s.emitCallbackMetric(start, dispatchErr)
	if dispatchErr != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "callback delivery failed",
				"course_id", job.CourseID,
				"url", *job.CallbackURL,
				"error", dispatchErr,
			)
		}
		return s.settleFailure(ctx, job, truncateReason(CallbackFailureReason(dispatchErr)))
	}

	return s.settleSuccess(ctx, job)
}

func (s *CompletionService) settleSuccess(ctx context.Context, job *model.RestoreJob) error {
	if err := s.jobs.Delete(ctx, job.ID); err != nil && !errors.Is(err, model.ErrJobNotFound) {
		return err
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "restore settled", "course_id", job.CourseID, "outcome", "succeeded")
	}
	metrics.EmitRestoreLifecycle(s.metrics, metrics.RestoreMetric{
		Stage:  "completed",
		Result: metrics.ResultSuccess,
	})
	return nil
}

func (s *CompletionService) settleFailure(ctx context.Context, job *model.RestoreJob, reason string) error {
	job.Failed = true
	job.FailureReason = &reason
	if err := s.jobs.Update(ctx, job); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.WarnContext(ctx, "restore settled",
			"course_id", job.CourseID,
			"outcome", "failed",
			"reason", reason,
		)
	}
	metrics.EmitRestoreLifecycle(s.metrics, metrics.RestoreMetric{
		Stage:  "completed",
		Result: metrics.ResultError,
	})
	return nil
}

func (s *CompletionService) cleanupWorkdir(ctx context.Context, job *model.RestoreJob) {
	if job.BackupDir == "" {
		return
	}
	if err := os.RemoveAll(job.BackupDir); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "remove working directory", "dir", job.BackupDir, "error", err)
	}
}

func (s *CompletionService) emitCallbackMetric(start time.Time, err error) {
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.EmitRestoreLifecycle(s.metrics, metrics.RestoreMetric{
		Stage:    "callback",
		Result:   result,
		Duration: s.now().Sub(start),
		Err:      err,
	})
}

// truncateReason bounds the persisted failure reason. Callback response
// bodies are arbitrary bytes, so the reason is coerced to valid UTF-8,
// stripped of NUL and cut on a rune boundary before it reaches the text
// column.
func truncateReason(reason string) string {
	reason = strings.ToValidUTF8(reason, "\uFFFD")
	reason = strings.ReplaceAll(reason, "\x00", "")
	if len(reason) <= maxFailureReasonLen {
		return reason
	}
	cut := maxFailureReasonLen
	for cut > 0 && !utf8.RuneStart(reason[cut]) {
		cut--
	}
	return reason[:cut]
}
