package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"mediastock/internal/inventory"
	"mediastock/internal/model"
	"mediastock/internal/websocket"
)

type CategoryHandler struct {
	tracker *inventory.Tracker
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewCategoryHandler(tracker *inventory.Tracker, hub *websocket.Hub, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{tracker: tracker, hub: hub, logger: logger}
}

func (h *CategoryHandler) broadcast(ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(ev)
	}
}

// List handles GET /api/categories.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories := h.tracker.Categories()
	if categories == nil {
		categories = []model.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

// Create handles POST /api/categories. The value doubles as the document
// key, so re-adding an existing value overwrites its label.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var cat model.Category
	if err := json.NewDecoder(r.Body).Decode(&cat); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	cat.Value = strings.TrimSpace(cat.Value)
	if cat.Value == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "value is required"})
		return
	}

	if err := h.tracker.AddCategory(r.Context(), cat); err != nil {
		h.logger.Error("create category", "value", cat.Value, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create category"})
		return
	}

	h.broadcast(websocket.NewEvent("category", "created", cat.Value, nil))
	writeJSON(w, http.StatusCreated, cat)
}

// Delete handles DELETE /api/categories/{value}. Items referencing the
// value are left untouched.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	value := r.PathValue("value")

	if err := h.tracker.DeleteCategory(r.Context(), value); err != nil {
		h.logger.Error("delete category", "value", value, "error", err)
		writeStoreError(w, err, "failed to delete category")
		return
	}

	h.broadcast(websocket.NewEvent("category", "deleted", value, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
