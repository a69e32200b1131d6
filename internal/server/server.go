package server

import (
	"log/slog"
	"net/http"

	"mediastock/internal/alert"
	"mediastock/internal/backup"
	"mediastock/internal/handler"
	"mediastock/internal/inventory"
	"mediastock/internal/middleware"
	"mediastock/internal/websocket"
)

// Server wires the HTTP API, the WebSocket change feed, and the background
// services around one inventory tracker.
type Server struct {
	tracker   *inventory.Tracker
	hub       *websocket.Hub
	itemH     *handler.ItemHandler
	categoryH *handler.CategoryHandler
	reportH   *handler.ReportHandler
	pushH     *handler.PushHandler
	backupH   *handler.BackupHandler
	limiter   *middleware.RateLimiter
	logger    *slog.Logger
}

// New builds a Server. pushSvc and notifier may be nil when push alerts are
// not configured; backupMgr may be nil when backups are not configured.
func New(tracker *inventory.Tracker, hub *websocket.Hub, pushSvc *alert.Service, notifier *alert.Notifier, backupMgr *backup.Manager, limiter *middleware.RateLimiter, logger *slog.Logger) *Server {
	s := &Server{
		tracker:   tracker,
		hub:       hub,
		itemH:     handler.NewItemHandler(tracker, hub, logger.With("component", "item")),
		categoryH: handler.NewCategoryHandler(tracker, hub, logger.With("component", "category")),
		reportH:   handler.NewReportHandler(tracker, logger.With("component", "report")),
		limiter:   limiter,
		logger:    logger,
	}
	if pushSvc != nil && notifier != nil {
		s.pushH = handler.NewPushHandler(pushSvc, notifier, logger.With("component", "push"))
	}
	if backupMgr != nil {
		s.backupH = handler.NewBackupHandler(backupMgr, logger.With("component", "backup"))
	}
	return s
}

// limited rate-limits a write route. Reads and the change feed stay open.
func (s *Server) limited(h http.HandlerFunc) http.Handler {
	if s.limiter == nil {
		return h
	}
	return middleware.Limit(s.limiter)(h)
}

// Router returns the HTTP handler with all routes registered.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Items
	mux.HandleFunc("GET /api/items", s.itemH.List)
	mux.Handle("POST /api/items", s.limited(s.itemH.Create))
	mux.Handle("PATCH /api/items/{id}", s.limited(s.itemH.Update))
	mux.Handle("DELETE /api/items/{id}", s.limited(s.itemH.Delete))
	mux.Handle("POST /api/items/status", s.limited(s.itemH.BulkStatus))
	mux.Handle("POST /api/items/delete", s.limited(s.itemH.BulkDelete))

	// Stock movements
	mux.Handle("POST /api/items/{id}/inbound", s.limited(s.itemH.Inbound))
	mux.Handle("POST /api/items/{id}/outbound", s.limited(s.itemH.Outbound))
	mux.HandleFunc("GET /api/movements", s.itemH.Movements)

	// Categories
	mux.HandleFunc("GET /api/categories", s.categoryH.List)
	mux.Handle("POST /api/categories", s.limited(s.categoryH.Create))
	mux.Handle("DELETE /api/categories/{value}", s.limited(s.categoryH.Delete))

	// Reports
	mux.HandleFunc("GET /api/reports/summary", s.reportH.Summary)
	mux.HandleFunc("GET /api/reports/export.csv", s.reportH.ExportCSV)
	mux.HandleFunc("GET /api/reports/export.pdf", s.reportH.ExportPDF)

	// Push alerts
	if s.pushH != nil {
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
		mux.Handle("POST /api/push/subscribe", s.limited(s.pushH.Subscribe))
	}

	// Backups
	if s.backupH != nil {
		mux.HandleFunc("GET /api/backup/status", s.backupH.Status)
		mux.Handle("POST /api/backup/run", s.limited(s.backupH.Run))
	}

	// Change feed + health
	mux.HandleFunc("GET /ws", websocket.Handle(s.hub, s.logger.With("component", "websocket")))
	mux.HandleFunc("GET /api/health", s.health)

	return middleware.RequestLogger(s.logger)(mux)
}

// health reports sync health: degraded when the last snapshot of any
// collection failed to decode, meaning a projection may be stale.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if !s.tracker.Healthy() {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write([]byte(`{"status":"` + status + `"}`))
}
