package reportshandler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jung-kurt/gofpdf"

	"appraisal/internal/domain/auth"
	"appraisal/internal/domain/reports"
	"appraisal/internal/transport/http/api"
	"appraisal/internal/transport/http/middleware"
)

type Handler struct {
	Service *reports.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *reports.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/cycles/{cycleID}/summary", h.handleCycleSummary)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/cycles/{cycleID}/summary.csv", h.handleCycleSummaryCSV)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/cycles/{cycleID}/summary.pdf", h.handleCycleSummaryPDF)
	})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) (reports.CycleSummary, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return reports.CycleSummary{}, false
	}
	summary, err := h.Service.CycleSummary(r.Context(), user.TenantID, chi.URLParam(r, "cycleID"))
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "cycle not found", middleware.GetRequestID(r.Context()))
		return reports.CycleSummary{}, false
	}
	return summary, true
}

func (h *Handler) handleCycleSummary(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.summary(w, r)
	if !ok {
		return
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCycleSummaryCSV(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.summary(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "cycle-summary-"+summary.CycleID+".csv"))

	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"metric", "value"})
	_ = writer.Write([]string{"cycle", summary.CycleName})
	_ = writer.Write([]string{"status", summary.CycleStatus})
	_ = writer.Write([]string{"participants", strconv.Itoa(summary.Participants)})
	for _, status := range sortedStatuses(summary.StatusCounts) {
		_ = writer.Write([]string{"participants_" + status, strconv.Itoa(summary.StatusCounts[status])})
	}
	_ = writer.Write([]string{"overdue", strconv.Itoa(summary.OverdueCount)})
	if summary.AverageScore != nil {
		_ = writer.Write([]string{"average_score", strconv.FormatFloat(*summary.AverageScore, 'f', 2, 64)})
	}
	for _, band := range summary.ScoreDistribution {
		_ = writer.Write([]string{fmt.Sprintf("score_band_%d", band.Band), strconv.Itoa(band.Count)})
	}
	_ = writer.Write([]string{"released_ratings", strconv.Itoa(summary.ReleasedRatings)})
	_ = writer.Write([]string{"acknowledged", strconv.Itoa(summary.Acknowledged)})
	_ = writer.Write([]string{"open_disputes", strconv.Itoa(summary.OpenDisputes)})
	writer.Flush()
}

func (h *Handler) handleCycleSummaryPDF(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.summary(w, r)
	if !ok {
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Appraisal Cycle Summary")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Cycle: %s (%s)", summary.CycleName, summary.CycleStatus))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Participants: %d (overdue: %d)", summary.Participants, summary.OverdueCount))
	pdf.Ln(10)

	for _, status := range sortedStatuses(summary.StatusCounts) {
		pdf.Cell(0, 8, fmt.Sprintf("%s: %d", status, summary.StatusCounts[status]))
		pdf.Ln(7)
	}
	pdf.Ln(3)

	if summary.AverageScore != nil {
		pdf.Cell(0, 8, fmt.Sprintf("Average overall score: %.2f", *summary.AverageScore))
		pdf.Ln(7)
	}
	for _, band := range summary.ScoreDistribution {
		pdf.Cell(0, 8, fmt.Sprintf("Scores in band %d: %d", band.Band, band.Count))
		pdf.Ln(7)
	}
	pdf.Ln(3)
	pdf.Cell(0, 8, fmt.Sprintf("Released ratings: %d", summary.ReleasedRatings))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Acknowledged: %d", summary.Acknowledged))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Open disputes: %d", summary.OpenDisputes))

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "cycle-summary-"+summary.CycleID+".pdf"))
	if err := pdf.Output(w); err != nil {
		api.Fail(w, http.StatusInternalServerError, "pdf_failed", "failed to render pdf", middleware.GetRequestID(r.Context()))
	}
}

func sortedStatuses(counts map[string]int) []string {
	statuses := make([]string, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	return statuses
}
