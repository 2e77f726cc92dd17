package model

import "errors"

// EngineRestoreSpec describes a restore for the engine to prepare. BackupDir
// must already contain the extracted backup contents.
type EngineRestoreSpec struct {
	BackupDir string        `json:"backup_dir"`
	CourseID  int64         `json:"course_id"`
	Target    RestoreTarget `json:"target"`
}

// Validate validates the EngineRestoreSpec fields.
func (s *EngineRestoreSpec) Validate() error {
	if s.BackupDir == "" {
		return errors.New("backup dir is required")
	}
	if s.CourseID <= 0 {
		return errors.New("course id is required")
	}
	if !s.Target.Valid() {
		return ErrInvalidTarget
	}
	return nil
}

// PrecheckResult carries the outcome of an engine precheck. A restore may
// proceed in the presence of warnings but never in the presence of errors.
type PrecheckResult struct {
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Blocked reports whether the precheck forbids executing the restore.
func (r PrecheckResult) Blocked() bool {
	return len(r.Errors) > 0
}

// BackupRequest asks the engine to produce a backup archive of a course.
type BackupRequest struct {
	CourseID     int64 `json:"course_id"`
	IncludeUsers bool  `json:"include_users"`
}

// BackupResult describes a finished backup archive. Handle locates the
// archive in the configured archive store.
type BackupResult struct {
	Handle   string `json:"handle"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}
