package httpx

import (
	"errors"
	"io"
	"net/http"

	"github.com/campuskit/courserestore/internal/domain/model"
	"github.com/campuskit/courserestore/internal/service"
)

// BackupHandlers provides HTTP handlers for backup archive operations.
type BackupHandlers struct {
	Svc *service.BackupService
}

// Create handles HTTP requests to produce a new course backup.
func (h *BackupHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.BackupRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.Svc.CreateBackup(r.Context(), req)
	if err != nil {
		if errors.Is(err, model.ErrCourseNotFound) {
			WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "course_not_found", Err: err})
			return
		}
		WriteError(w, ErrorParams{Code: http.StatusBadGateway, ErrCode: "backup_failed", Err: err})
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// Upload handles HTTP requests to store a backup archive.
func (h *BackupHandlers) Upload(w http.ResponseWriter, r *http.Request) {
	handle := r.PathValue("handle")
	if handle == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("archive handle is required")},
		)
		return
	}

	if err := h.Svc.UploadArchive(r.Context(), handle, r.Body, r.ContentLength); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "upload_failed", Err: err})
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]string{"handle": handle})
}

// Download handles HTTP requests to fetch a stored backup archive.
func (h *BackupHandlers) Download(w http.ResponseWriter, r *http.Request) {
	handle := r.PathValue("handle")
	if handle == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("archive handle is required")},
		)
		return
	}

	rc, err := h.Svc.OpenArchive(r.Context(), handle)
	if err != nil {
		if errors.Is(err, model.ErrArchiveNotFound) {
			WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "archive_not_found", Err: err})
			return
		}
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "open_failed", Err: err})
		return
	}
	defer func() {
		_ = rc.Close()
	}()

	w.Header().Set("Content-Type", "application/zip")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		// Client disconnects mid-transfer are not actionable here.
		return
	}
}
