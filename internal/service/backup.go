package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/campuskit/courserestore/internal/core"
	"github.com/campuskit/courserestore/internal/domain/model"
)

// BackupServiceOptions groups dependencies for BackupService.
type BackupServiceOptions struct {
	Courses  core.CourseRepository
	Engine   core.RestoreEngine
	Archives core.ArchiveStore
	Logger   *slog.Logger
}

// BackupService produces course backup archives and manages uploaded ones.
type BackupService struct {
	courses  core.CourseRepository
	engine   core.RestoreEngine
	archives core.ArchiveStore
	logger   *slog.Logger
}

// NewBackupService constructs a BackupService.
func NewBackupService(opts BackupServiceOptions) (*BackupService, error) {
	if opts.Courses == nil {
		return nil, errors.New("CourseRepository is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("RestoreEngine is required")
	}
	if opts.Archives == nil {
		return nil, errors.New("ArchiveStore is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "backup_service")
	}

	return &BackupService{
		courses:  opts.Courses,
		engine:   opts.Engine,
		archives: opts.Archives,
		logger:   logger,
	}, nil
}

// MustNewBackupService constructs a BackupService and panics on error.
func MustNewBackupService(opts BackupServiceOptions) *BackupService {
	s, err := NewBackupService(opts)
	if err != nil {
		panic(err)
	}
	return s
}

// ResolveCourse maps a course selector to the course it names. Backups
// never create courses, so a bare category selector is rejected.
func (s *BackupService) ResolveCourse(ctx context.Context, sel model.CourseSelector) (*model.Course, error) {
	switch {
	case sel.CourseID > 0:
		return s.courses.GetByID(ctx, sel.CourseID)
	case sel.Shortname != "":
		return s.courses.GetByShortname(ctx, sel.Shortname)
	case sel.IDNumber != "":
		return s.courses.GetByIDNumber(ctx, sel.IDNumber)
	default:
		return nil, errors.New("a course id, shortname or idnumber is required")
	}
}

// CreateBackup asks the engine to back up a course. The engine writes the
// archive into the shared store; the returned handle resolves there.
func (s *BackupService) CreateBackup(ctx context.Context, req model.BackupRequest) (model.BackupResult, error) {
	if req.CourseID <= 0 {
		return model.BackupResult{}, errors.New("course id is required")
	}
	if _, err := s.courses.GetByID(ctx, req.CourseID); err != nil {
		return model.BackupResult{}, err
	}

	result, err := s.engine.Backup(ctx, req)
	if err != nil {
		return model.BackupResult{}, fmt.Errorf("engine backup: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "backup created",
			"course_id", req.CourseID,
			"handle", result.Handle,
			"size", result.Size,
		)
	}
	return result, nil
}

// UploadArchive stores an externally produced backup archive under the
// handle so it can be restored later.
func (s *BackupService) UploadArchive(ctx context.Context, handle string, r io.Reader, size int64) error {
	if handle == "" {
		return errors.New("archive handle is required")
	}
	if err := s.archives.Put(ctx, handle, r, size); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "archive uploaded", "handle", handle, "size", size)
	}
	return nil
}

// OpenArchive resolves a stored archive for download.
func (s *BackupService) OpenArchive(ctx context.Context, handle string) (io.ReadCloser, error) {
	return s.archives.Resolve(ctx, handle)
}
