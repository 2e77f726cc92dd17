package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/campuskit/courserestore/internal/core"
	"github.com/campuskit/courserestore/internal/domain/model"
)

// StatusServiceOptions groups dependencies for StatusService.
type StatusServiceOptions struct {
	Jobs   core.RestoreJobRepository
	Engine core.RestoreEngine
	Cache  core.ProgressCache
	Logger *slog.Logger
}

// StatusService answers progress and listing queries about restores.
type StatusService struct {
	jobs   core.RestoreJobRepository
	engine core.RestoreEngine
	cache  core.ProgressCache
	logger *slog.Logger
}

// NewStatusService constructs a StatusService.
func NewStatusService(opts StatusServiceOptions) (*StatusService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("RestoreJobRepository is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("RestoreEngine is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "status_service")
	}

	return &StatusService{
		jobs:   opts.Jobs,
		engine: opts.Engine,
		cache:  opts.Cache,
		logger: logger,
	}, nil
}

// MustNewStatusService constructs a StatusService and panics on error.
func MustNewStatusService(opts StatusServiceOptions) *StatusService {
	s, err := NewStatusService(opts)
	if err != nil {
		panic(err)
	}
	return s
}

// Progress returns the live progress of an engine restore. Snapshots are
// served from the cache when fresh.
func (s *StatusService) Progress(ctx context.Context, restoreID string) (model.RestoreProgress, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, restoreID)
		if err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "progress cache read failed", "restore_id", restoreID, "error", err)
		}
		if ok {
			return cached, nil
		}
	}

	progress, err := s.engine.Progress(ctx, restoreID)
	if err != nil {
		return model.RestoreProgress{}, err
	}

	if s.cache != nil {
		if cacheErr := s.cache.Set(ctx, progress); cacheErr != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "progress cache write failed", "restore_id", restoreID, "error", cacheErr)
		}
	}
	return progress, nil
}

// ProgressForCourse resolves the course's outstanding restore job and
// returns its engine progress. A job without an engine restore id yet
// reports awaiting.
func (s *StatusService) ProgressForCourse(ctx context.Context, courseID int64) (model.RestoreProgress, error) {
	job, err := s.jobs.GetByCourse(ctx, courseID)
	if err != nil {
		return model.RestoreProgress{}, err
	}
	if job.RestoreID == nil {
		return model.RestoreProgress{Status: model.StatusAwaiting}, nil
	}
	return s.Progress(ctx, *job.RestoreID)
}

// ListJobs returns all restore job records with course names, newest first.
func (s *StatusService) ListJobs(ctx context.Context) ([]model.RestoreJobListing, error) {
	return s.jobs.ListAll(ctx)
}

// PendingJobs returns restore jobs that have not executed yet.
func (s *StatusService) PendingJobs(ctx context.Context) ([]model.RestoreJob, error) {
	return s.jobs.ListPending(ctx)
}

// ClearFailed deletes all failed restore job records and returns the count.
func (s *StatusService) ClearFailed(ctx context.Context) (int64, error) {
	return s.jobs.ClearFailed(ctx)
}
