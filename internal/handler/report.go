package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"mediastock/internal/inventory"
	"mediastock/internal/report"
)

type ReportHandler struct {
	tracker *inventory.Tracker
	logger  *slog.Logger
}

func NewReportHandler(tracker *inventory.Tracker, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{tracker: tracker, logger: logger}
}

// filterFromQuery builds a report filter from query parameters: q (name or
// serial search), category, status, date (YYYY-MM-DD, matched against the
// day the item was added).
func filterFromQuery(r *http.Request) (report.Filter, error) {
	f := report.Filter{
		Search:   r.URL.Query().Get("q"),
		Category: r.URL.Query().Get("category"),
		Status:   r.URL.Query().Get("status"),
	}
	if date := r.URL.Query().Get("date"); date != "" {
		t, err := time.Parse("2006-01-02", date)
		if err != nil {
			return report.Filter{}, fmt.Errorf("invalid date %q", date)
		}
		f.AddedOn = &t
	}
	return f, nil
}

// Summary handles GET /api/reports/summary.
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	items := filter.Apply(h.tracker.Items())
	writeJSON(w, http.StatusOK, report.Summarize(items))
}

// ExportCSV handles GET /api/reports/export.csv.
func (h *ReportHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	items := filter.Apply(h.tracker.Items())

	filename := fmt.Sprintf("church-media-report-%s.csv", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := report.WriteCSV(w, items); err != nil {
		h.logger.Error("export csv", "error", err)
	}
}

// ExportPDF handles GET /api/reports/export.pdf.
func (h *ReportHandler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	items := filter.Apply(h.tracker.Items())

	filename := fmt.Sprintf("church-media-report-%s.pdf", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := report.WritePDF(w, items, time.Now().UTC()); err != nil {
		h.logger.Error("export pdf", "error", err)
	}
}
