package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"mediastock/internal/inventory"
	"mediastock/internal/model"
	"mediastock/internal/websocket"
)

type ItemHandler struct {
	tracker *inventory.Tracker
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewItemHandler(tracker *inventory.Tracker, hub *websocket.Hub, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{tracker: tracker, hub: hub, logger: logger}
}

func (h *ItemHandler) broadcast(ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(ev)
	}
}

// allowedItemFields are the item fields a partial update may touch.
// Identity and lifecycle stamps (id, addedDate, updatedDate) are managed by
// the tracker.
var allowedItemFields = map[string]bool{
	"instrumentName":   true,
	"serialNumber":     true,
	"description":      true,
	"category":         true,
	"supplier":         true,
	"costPrice":        true,
	"value":            true,
	"quantity":         true,
	"minThreshold":     true,
	"assignedEvent":    true,
	"maintenanceNotes": true,
	"status":           true,
}

// List handles GET /api/items.
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	items := h.tracker.Items()
	if items == nil {
		items = []model.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

// Create handles POST /api/items.
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var item model.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	item.Name = strings.TrimSpace(item.Name)
	item.SerialNumber = strings.TrimSpace(item.SerialNumber)
	if item.Name == "" || item.SerialNumber == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "instrumentName and serialNumber are required"})
		return
	}

	created, err := h.tracker.AddItem(r.Context(), item)
	if err != nil {
		h.logger.Error("create item", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create item"})
		return
	}

	h.broadcast(websocket.NewEvent("item", "created", created.ID, nil))
	writeJSON(w, http.StatusCreated, created)
}

// Update handles PATCH /api/items/{id} with a partial field set.
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	updates := make(map[string]any, len(fields))
	for k, v := range fields {
		if allowedItemFields[k] {
			updates[k] = v
		}
	}
	if len(updates) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no updatable fields"})
		return
	}

	if err := h.tracker.UpdateItem(r.Context(), id, updates); err != nil {
		if errors.Is(err, inventory.ErrInvalidField) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		h.logger.Error("update item", "id", id, "error", err)
		writeStoreError(w, err, "failed to update item")
		return
	}

	h.broadcast(websocket.NewEvent("item", "updated", id, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.tracker.DeleteItem(r.Context(), id); err != nil {
		h.logger.Error("delete item", "id", id, "error", err)
		writeStoreError(w, err, "failed to delete item")
		return
	}

	h.broadcast(websocket.NewEvent("item", "deleted", id, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type bulkRequest struct {
	IDs    []string `json:"ids"`
	Status string   `json:"status,omitempty"`
}

// BulkStatus handles POST /api/items/status, setting the status of every
// listed item.
func (h *ItemHandler) BulkStatus(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if len(req.IDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ids are required"})
		return
	}

	if err := h.tracker.BulkUpdateStatus(r.Context(), req.IDs, req.Status); err != nil {
		if errors.Is(err, inventory.ErrInvalidField) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		h.logger.Error("bulk status", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update some items"})
		return
	}

	h.broadcast(websocket.NewEvent("item", "bulk_updated", "", map[string]any{"count": len(req.IDs)}))
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// BulkDelete handles POST /api/items/delete.
func (h *ItemHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if len(req.IDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ids are required"})
		return
	}

	if err := h.tracker.BulkDelete(r.Context(), req.IDs); err != nil {
		h.logger.Error("bulk delete", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete some items"})
		return
	}

	h.broadcast(websocket.NewEvent("item", "bulk_deleted", "", map[string]any{"count": len(req.IDs)}))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type movementRequest struct {
	Quantity int    `json:"quantity"`
	Note     string `json:"note"`
}

// Inbound handles POST /api/items/{id}/inbound, receiving stock.
func (h *ItemHandler) Inbound(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req movementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be positive"})
		return
	}

	if err := h.tracker.LogInbound(r.Context(), id, req.Quantity, req.Note); err != nil {
		h.logger.Error("log inbound", "id", id, "error", err)
		writeStoreError(w, err, "failed to log inbound movement")
		return
	}

	h.broadcast(websocket.NewEvent("movement", "inbound", id, map[string]any{"quantity": req.Quantity}))
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged"})
}

// Outbound handles POST /api/items/{id}/outbound, issuing stock. Under the
// reject policy, insufficient stock is a 409.
func (h *ItemHandler) Outbound(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req movementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be positive"})
		return
	}

	err := h.tracker.LogOutbound(r.Context(), id, req.Quantity, req.Note)
	if errors.Is(err, inventory.ErrInsufficientStock) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("log outbound", "id", id, "error", err)
		writeStoreError(w, err, "failed to log outbound movement")
		return
	}

	h.broadcast(websocket.NewEvent("movement", "outbound", id, map[string]any{"quantity": req.Quantity}))
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged"})
}

// Movements handles GET /api/movements.
func (h *ItemHandler) Movements(w http.ResponseWriter, r *http.Request) {
	movements := h.tracker.Movements()
	if movements == nil {
		movements = []model.Movement{}
	}
	writeJSON(w, http.StatusOK, movements)
}
