// Package httpx provides HTTP handlers and utilities for the course restore API.
package httpx

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/campuskit/courserestore/internal/domain/model"
	"github.com/campuskit/courserestore/internal/service"
)

// RestoreHandlers provides HTTP handlers for restore operations.
type RestoreHandlers struct {
	Restores *service.RestoreService
	Status   *service.StatusService
}

// Create handles HTTP requests to queue a new restore.
func (h *RestoreHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.RestoreRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	job, err := h.Restores.StartAsync(r.Context(), req)
	if err != nil {
		WriteError(w, restoreErrorParams(err))
		return
	}

	WriteJSON(w, http.StatusAccepted, job)
}

// List handles HTTP requests to list restore jobs.
func (h *RestoreHandlers) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.Status.ListJobs(r.Context())
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "list_failed", Err: err})
		return
	}

	WriteJSON(w, http.StatusOK, jobs)
}

// ClearFailed handles HTTP requests to delete all failed restore jobs.
func (h *RestoreHandlers) ClearFailed(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.Status.ClearFailed(r.Context())
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "clear_failed", Err: err})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// Progress handles HTTP requests for the progress of an engine restore.
func (h *RestoreHandlers) Progress(w http.ResponseWriter, r *http.Request) {
	restoreID := r.PathValue("id")
	if restoreID == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("restore id is required")},
		)
		return
	}

	progress, err := h.Status.Progress(r.Context(), restoreID)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadGateway, ErrCode: "progress_failed", Err: err})
		return
	}

	WriteJSON(w, http.StatusOK, progress)
}

// CourseProgress handles HTTP requests for the restore progress of a course.
func (h *RestoreHandlers) CourseProgress(w http.ResponseWriter, r *http.Request) {
	courseID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("course id must be an integer")},
		)
		return
	}

	progress, err := h.Status.ProgressForCourse(r.Context(), courseID)
	if err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: err})
			return
		}
		WriteError(w, ErrorParams{Code: http.StatusBadGateway, ErrCode: "progress_failed", Err: err})
		return
	}

	WriteJSON(w, http.StatusOK, progress)
}

// restoreErrorParams maps restore queueing failures onto HTTP error responses.
func restoreErrorParams(err error) ErrorParams {
	var precheckErr *model.PrecheckError
	var extractErr *model.ExtractionError

	switch {
	case errors.Is(err, model.ErrRestorePending):
		return ErrorParams{Code: http.StatusConflict, ErrCode: "restore_pending", Err: err}
	case errors.Is(err, model.ErrCourseNotFound):
		return ErrorParams{Code: http.StatusNotFound, ErrCode: "course_not_found", Err: err}
	case errors.Is(err, model.ErrArchiveNotFound):
		return ErrorParams{Code: http.StatusNotFound, ErrCode: "archive_not_found", Err: err}
	case errors.Is(err, model.ErrInvalidTarget):
		return ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_target", Err: err}
	case errors.Is(err, model.ErrConfigMissing):
		return ErrorParams{Code: http.StatusInternalServerError, ErrCode: "config_missing", Err: err}
	case errors.As(err, &precheckErr):
		return ErrorParams{Code: http.StatusUnprocessableEntity, ErrCode: "precheck_failed", Err: err}
	case errors.As(err, &extractErr):
		return ErrorParams{Code: http.StatusUnprocessableEntity, ErrCode: "extract_failed", Err: err}
	default:
		return ErrorParams{Code: http.StatusBadRequest, ErrCode: "restore_failed", Err: err}
	}
}
