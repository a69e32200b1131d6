package handler

import (
	"log/slog"
	"net/http"

	"mediastock/internal/backup"
)

type BackupHandler struct {
	manager *backup.Manager
	logger  *slog.Logger
}

func NewBackupHandler(manager *backup.Manager, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: manager, logger: logger}
}

// Status handles GET /api/backup/status.
func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}

// Run handles POST /api/backup/run, triggering an immediate backup.
func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Run(r.Context()); err != nil {
		h.logger.Error("manual backup", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, h.manager.Status())
}
