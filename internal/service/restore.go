// Package service implements the restore orchestration, completion, status
// and backup business logic on top of the core interfaces.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/campuskit/courserestore/internal/archive"
	"github.com/campuskit/courserestore/internal/core"
	"github.com/campuskit/courserestore/internal/domain/model"
)

// RestoreServiceOptions groups dependencies for RestoreService.
type RestoreServiceOptions struct {
	Jobs     core.RestoreJobRepository
	Courses  core.CourseRepository
	Tasks    core.TaskRepository
	Engine   core.RestoreEngine
	Archives core.ArchiveStore

	// WorkRoot is the directory restore working directories are created in.
	WorkRoot string
	// RequireCallbackAuth refuses callback restores unless an auth header
	// is configured for the dispatcher.
	RequireCallbackAuth bool
	// CallbackConfig is consulted only for the auth requirement above.
	CallbackConfig CallbackConfig

	Logger *slog.Logger
}

// RestoreService validates restore requests, stages backup content and
// queues engine restores for the runner.
type RestoreService struct {
	jobs     core.RestoreJobRepository
	courses  core.CourseRepository
	tasks    core.TaskRepository
	engine   core.RestoreEngine
	archives core.ArchiveStore

	workRoot            string
	requireCallbackAuth bool
	callbackCfg         CallbackConfig
	logger              *slog.Logger
}

// NewRestoreService constructs a RestoreService.
func NewRestoreService(opts RestoreServiceOptions) (*RestoreService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("RestoreJobRepository is required")
	}
	if opts.Courses == nil {
		return nil, errors.New("CourseRepository is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("RestoreEngine is required")
	}
	if opts.Archives == nil {
		return nil, errors.New("ArchiveStore is required")
	}
	if strings.TrimSpace(opts.WorkRoot) == "" {
		return nil, errors.New("work root is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "restore_service")
	}

	return &RestoreService{
		jobs:                opts.Jobs,
		courses:             opts.Courses,
		tasks:               opts.Tasks,
		engine:              opts.Engine,
		archives:            opts.Archives,
		workRoot:            opts.WorkRoot,
		requireCallbackAuth: opts.RequireCallbackAuth,
		callbackCfg:         opts.CallbackConfig,
		logger:              logger,
	}, nil
}

// MustNewRestoreService constructs a RestoreService and panics on error.
func MustNewRestoreService(opts RestoreServiceOptions) *RestoreService {
	s, err := NewRestoreService(opts)
	if err != nil {
		panic(err)
	}
	return s
}

// StartAsync stages the backup, prechecks the restore and queues it for the
// runner. On success a restore job record exists and a deferred task carries
// the engine restore id. The working directory is removed again on every
// failure path.
func (s *RestoreService) StartAsync(ctx context.Context, req model.RestoreRequest) (*model.RestoreJob, error) {
	if s.tasks == nil {
		return nil, errors.New("task repository not configured")
	}
	if err := s.checkConfig(req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	course, target, err := s.resolveTarget(ctx, req)
	if err != nil {
		return nil, err
	}

	if _, getErr := s.jobs.GetByCourse(ctx, course.ID); getErr == nil {
		return nil, model.ErrRestorePending
	} else if !errors.Is(getErr, model.ErrJobNotFound) {
		return nil, getErr
	}

	workdir, err := s.stageBackup(ctx, req.ArchiveHandle)
	if err != nil {
		return nil, err
	}

	restoreID, err := s.prepareRestore(ctx, workdir, course.ID, target)
	if err != nil {
		s.removeWorkdir(ctx, workdir)
		return nil, err
	}

	payload, err := json.Marshal(model.RestoreTaskPayload{RestoreID: restoreID, CourseID: course.ID})
	if err != nil {
		s.removeWorkdir(ctx, workdir)
		return nil, fmt.Errorf("marshal task payload: %w", err)
	}
	// The record must exist before the task is consumable: a runner that
	// picks the task up immediately publishes a completion event, and the
	// completion handler can only settle a persisted job.
	job, err := s.jobs.Create(ctx, model.CreateRestoreJobRequest{
		CourseID:        course.ID,
		BackupDir:       workdir,
		RestoreID:       &restoreID,
		CallbackURL:     req.CallbackURL,
		CallbackPayload: req.CallbackPayload,
	})
	if err != nil {
		s.removeWorkdir(ctx, workdir)
		return nil, err
	}

	if _, taskErr := s.tasks.Create(ctx, model.CreateTaskRequest{
		Type:    model.TaskTypeRestore,
		Payload: payload,
	}); taskErr != nil {
		s.removeWorkdir(ctx, workdir)
		if delErr := s.jobs.Delete(ctx, job.ID); delErr != nil && s.logger != nil {
			s.logger.ErrorContext(ctx, "remove job record after enqueue failure",
				"job_id", job.ID,
				"error", delErr,
			)
		}
		return nil, fmt.Errorf("queue restore task: %w", taskErr)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "restore queued",
			"course_id", course.ID,
			"restore_id", restoreID,
			"backup_dir", workdir,
			"has_callback", job.HasCallback(),
		)
	}
	return job, nil
}

// RunSync stages, prechecks and executes a restore in the calling goroutine.
// Used by the admin CLI. No job record or task is created; the working
// directory is always removed before returning.
func (s *RestoreService) RunSync(ctx context.Context, req model.RestoreRequest) (courseID int64, err error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	course, target, err := s.resolveTarget(ctx, req)
	if err != nil {
		return 0, err
	}

	workdir, err := s.stageBackup(ctx, req.ArchiveHandle)
	if err != nil {
		return 0, err
	}
	defer s.removeWorkdir(ctx, workdir)

	restoreID, err := s.prepareRestore(ctx, workdir, course.ID, target)
	if err != nil {
		return 0, err
	}

	if execErr := s.engine.Execute(ctx, restoreID); execErr != nil {
		return 0, fmt.Errorf("execute restore: %w", execErr)
	}
	return course.ID, nil
}

// checkConfig enforces the callback authentication policy before any other
// validation, so a misconfigured deployment fails loudly.
func (s *RestoreService) checkConfig(req model.RestoreRequest) error {
	if req.CallbackURL == nil {
		return nil
	}
	if err := s.callbackCfg.Validate(); err != nil {
		return err
	}
	if s.requireCallbackAuth && !s.callbackCfg.HasAuthHeader() {
		return model.ErrConfigMissing
	}
	return nil
}

// resolveTarget resolves the selector to a concrete course, creating one
// when only a category is given. Selector fields are consulted in order:
// course id, shortname, idnumber, category id.
func (s *RestoreService) resolveTarget(ctx context.Context, req model.RestoreRequest) (*model.Course, model.RestoreTarget, error) {
	sel := req.Selector
	switch {
	case sel.CourseID > 0:
		course, err := s.courses.GetByID(ctx, sel.CourseID)
		return course, model.TargetExistingDeleting, err
	case sel.Shortname != "":
		course, err := s.courses.GetByShortname(ctx, sel.Shortname)
		return course, model.TargetExistingDeleting, err
	case sel.IDNumber != "":
		course, err := s.courses.GetByIDNumber(ctx, sel.IDNumber)
		return course, model.TargetExistingDeleting, err
	case sel.CategoryID > 0:
		course, err := s.createTargetCourse(ctx, sel.CategoryID, req.CourseFullname)
		return course, model.TargetNewCourse, err
	default:
		return nil, "", model.ErrInvalidTarget
	}
}

func (s *RestoreService) createTargetCourse(ctx context.Context, categoryID int64, fullname string) (*model.Course, error) {
	exists, err := s.courses.CategoryExists(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, model.ErrInvalidTarget
	}

	suffix := workdirSuffix()
	if fullname == "" {
		fullname = "Restored course " + suffix
	}
	return s.courses.CreateCourse(ctx, model.CreateCourseRequest{
		CategoryID: categoryID,
		Shortname:  "restored_" + suffix,
		Fullname:   fullname,
	})
}

// stageBackup creates a unique working directory and extracts the archive
// into it. The directory is removed again when extraction fails.
func (s *RestoreService) stageBackup(ctx context.Context, handle string) (string, error) {
	workdir := filepath.Join(s.workRoot, "restore_"+workdirSuffix())
	if err := os.MkdirAll(workdir, 0o750); err != nil {
		return "", fmt.Errorf("create working directory: %w", err)
	}

	src, err := s.archives.Resolve(ctx, handle)
	if err != nil {
		s.removeWorkdir(ctx, workdir)
		return "", err
	}
	defer func() {
		_ = src.Close()
	}()

	if extractErr := archive.Extract(src, workdir); extractErr != nil {
		s.removeWorkdir(ctx, workdir)
		return "", extractErr
	}
	return workdir, nil
}

// prepareRestore registers the restore with the engine and runs the
// precheck. Blocking precheck errors abort the restore.
func (s *RestoreService) prepareRestore(ctx context.Context, workdir string, courseID int64, target model.RestoreTarget) (string, error) {
	restoreID, err := s.engine.Create(ctx, model.EngineRestoreSpec{
		BackupDir: workdir,
		CourseID:  courseID,
		Target:    target,
	})
	if err != nil {
		return "", fmt.Errorf("create engine restore: %w", err)
	}

	precheck, err := s.engine.Precheck(ctx, restoreID)
	if err != nil {
		return "", fmt.Errorf("precheck restore: %w", err)
	}
	if precheck.Blocked() {
		return "", &model.PrecheckError{Errors: precheck.Errors}
	}
	if len(precheck.Warnings) > 0 && s.logger != nil {
		s.logger.WarnContext(ctx, "restore precheck warnings",
			"restore_id", restoreID,
			"warnings", strings.Join(precheck.Warnings, "; "),
		)
	}
	return restoreID, nil
}

func (s *RestoreService) removeWorkdir(ctx context.Context, workdir string) {
	if err := os.RemoveAll(workdir); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "remove working directory", "dir", workdir, "error", err)
	}
}

func workdirSuffix() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:13]
}
