package httpx

import (
	"log/slog"
	"net/http"

	"github.com/campuskit/courserestore/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Restores *service.RestoreService
	Status   *service.StatusService
	Backups  *service.BackupService
	Logger   *slog.Logger
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	restoreHandlers := &RestoreHandlers{Restores: services.Restores, Status: services.Status}
	backupHandlers := &BackupHandlers{Svc: services.Backups}

	registerRestoreRoutes(mux, restoreHandlers)
	registerBackupRoutes(mux, backupHandlers)
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	return mux
}

func registerRestoreRoutes(mux *http.ServeMux, h *RestoreHandlers) {
	mux.HandleFunc("POST /api/restores", h.Create)
	mux.HandleFunc("GET /api/restores", h.List)
	mux.HandleFunc("DELETE /api/restores/failed", h.ClearFailed)
	mux.HandleFunc("GET /api/restores/{id}/progress", h.Progress)
	mux.HandleFunc("GET /api/courses/{id}/restore-progress", h.CourseProgress)
}

func registerBackupRoutes(mux *http.ServeMux, h *BackupHandlers) {
	mux.HandleFunc("POST /api/backups", h.Create)
	mux.HandleFunc("PUT /api/archives/{handle}", h.Upload)
	mux.HandleFunc("GET /api/archives/{handle}", h.Download)
}
