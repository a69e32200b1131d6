package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"mediastock/internal/alert"
	"mediastock/internal/model"
)

type PushHandler struct {
	service  *alert.Service
	notifier *alert.Notifier
	logger   *slog.Logger
}

func NewPushHandler(service *alert.Service, notifier *alert.Notifier, logger *slog.Logger) *PushHandler {
	return &PushHandler{service: service, notifier: notifier, logger: logger}
}

// VAPIDKey handles GET /api/push/vapid-key.
func (h *PushHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"publicKey": h.service.VAPIDPublicKey()})
}

type subscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
	DeviceName string `json:"deviceName"`
}

// Subscribe handles POST /api/push/subscribe.
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Endpoint == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "endpoint and keys are required"})
		return
	}

	sub, err := h.notifier.Register(r.Context(), model.PushSubscription{
		Endpoint:   req.Endpoint,
		P256dhKey:  req.Keys.P256dh,
		AuthKey:    req.Keys.Auth,
		DeviceName: req.DeviceName,
	})
	if err != nil {
		h.logger.Error("register push subscription", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to register subscription"})
		return
	}

	writeJSON(w, http.StatusCreated, sub)
}
