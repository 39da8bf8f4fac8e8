// Package reporthttp exposes the reconciliation reports over HTTP.
package reporthttp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/enerdash/enerdash/internal/fy"
	"github.com/enerdash/enerdash/internal/report"
	"github.com/enerdash/enerdash/internal/report/export"
	"github.com/enerdash/enerdash/internal/report/svg"
	"github.com/enerdash/enerdash/internal/shared"
)

const requestTimeout = 15 * time.Second

// ReportService defines the reporting contract used by the handler.
type ReportService interface {
	BuildSourceView(ctx context.Context, scope report.AccessScope, year string, source report.Source, limit int) (report.SourceView, error)
	BuildCombined(ctx context.Context, scope report.AccessScope, year string) (report.Report, error)
	Latest(scope report.AccessScope, year string) (report.Report, bool)
}

// Handler coordinates HTTP requests for the reconciliation dashboard.
type Handler struct {
	logger    *slog.Logger
	service   ReportService
	validator *validator.Validate
	bufPool   sync.Pool
	now       func() time.Time
}

// NewHandler constructs the report HTTP handler.
func NewHandler(logger *slog.Logger, service ReportService) *Handler {
	h := &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
		now:       time.Now,
	}
	h.bufPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

type reportFilters struct {
	FY    string `validate:"required"`
	Limit int    `validate:"min=0,max=50"`
}

func (h *Handler) parseFilters(r *http.Request) (reportFilters, error) {
	filters := reportFilters{
		FY: strings.TrimSpace(r.URL.Query().Get("fy")),
	}
	if filters.FY == "" {
		filters.FY = fy.Current(h.now().UTC())
	}
	if limitStr := strings.TrimSpace(r.URL.Query().Get("limit")); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return reportFilters{}, fmt.Errorf("limit invalid: %w", err)
		}
		filters.Limit = limit
	}
	if err := h.validator.Struct(filters); err != nil {
		return reportFilters{}, err
	}
	if _, err := fy.Parse(filters.FY); err != nil {
		return reportFilters{}, err
	}
	return filters, nil
}

func (h *Handler) scope(r *http.Request) (report.AccessScope, bool) {
	caller := shared.CallerFromContext(r.Context())
	if caller == nil {
		return report.AccessScope{}, false
	}
	return report.NewAccessScope(caller.ProductionKeys, caller.ConsumptionKeys), true
}

func (h *Handler) handleSource(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	source := report.Source(chi.URLParam(r, "source"))
	if !source.Valid() {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	filters, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	view, err := h.service.BuildSourceView(ctx, scope, filters.FY, source, filters.Limit)
	if err != nil {
		h.handleServerError(w, "build source view", err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, view)
}

func (h *Handler) handleCombined(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.loadCombined(w, r)
	if !ok {
		return
	}
	shared.RespondJSON(w, http.StatusOK, rep)
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.loadCombined(w, r)
	if !ok {
		return
	}

	buf := h.bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.bufPool.Put(buf)
	}()

	if err := export.WriteReportCSV(buf, rep); err != nil {
		h.handleServerError(w, "write csv", err)
		return
	}

	filename := fmt.Sprintf("report-%s.csv", rep.FinancialYear)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

func (h *Handler) handleXLSX(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.loadCombined(w, r)
	if !ok {
		return
	}

	buf := h.bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.bufPool.Put(buf)
	}()

	if err := export.WriteReportXLSX(buf, rep); err != nil {
		h.handleServerError(w, "write xlsx", err)
		return
	}

	filename := fmt.Sprintf("report-%s.xlsx", rep.FinancialYear)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream xlsx", err)
	}
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.loadCombined(w, r)
	if !ok {
		return
	}

	markup, err := svg.ReportBars(rep, svg.BarOpts{
		Title:       fmt.Sprintf("Reconciliation %s", rep.FinancialYear),
		Description: "Monthly totals per series",
	})
	if err != nil {
		h.handleServerError(w, "render preview", err)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	if _, err := w.Write([]byte(markup)); err != nil {
		h.logError("stream svg", err)
	}
}

func (h *Handler) handleSeriesPreview(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.loadCombined(w, r)
	if !ok {
		return
	}

	key := chi.URLParam(r, "key")
	known := false
	for _, s := range rep.Series {
		if s.Key == key {
			known = true
			break
		}
	}
	if !known {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}

	markup, err := svg.ReportLine(rep, key, svg.LineOpts{ShowDots: true})
	if err != nil {
		h.handleServerError(w, "render series preview", err)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	if _, err := w.Write([]byte(markup)); err != nil {
		h.logError("stream svg", err)
	}
}

func (h *Handler) handleSourceCSV(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	source := report.Source(chi.URLParam(r, "source"))
	if !source.Valid() {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	filters, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	view, err := h.service.BuildSourceView(ctx, scope, filters.FY, source, filters.Limit)
	if err != nil {
		h.handleServerError(w, "build source view", err)
		return
	}

	buf := h.bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.bufPool.Put(buf)
	}()

	if err := export.WriteSourceViewCSV(buf, view); err != nil {
		h.handleServerError(w, "write csv", err)
		return
	}

	filename := fmt.Sprintf("report-%s-%s.csv", source, view.FinancialYear)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

// handleLatest serves the most recent in-process build without touching the
// cache or the feeds. Dashboards poll it between refreshes.
func (h *Handler) handleLatest(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	filters, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}

	rep, ok := h.service.Latest(scope, filters.FY)
	if !ok {
		shared.RespondJSON(w, http.StatusNotFound, map[string]string{"error": shared.ErrNoData.Error()})
		return
	}
	shared.RespondJSON(w, http.StatusOK, rep)
}

func (h *Handler) loadCombined(w http.ResponseWriter, r *http.Request) (report.Report, bool) {
	scope, ok := h.scope(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return report.Report{}, false
	}
	filters, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return report.Report{}, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	rep, err := h.service.BuildCombined(ctx, scope, filters.FY)
	if err != nil {
		h.handleServerError(w, "build combined report", err)
		return report.Report{}, false
	}
	if rep.Empty() {
		shared.RespondJSON(w, http.StatusNotFound, map[string]string{"error": shared.ErrNoData.Error()})
		return report.Report{}, false
	}
	return rep, true
}

func (h *Handler) handleFilterError(w http.ResponseWriter, err error) {
	shared.RespondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}

func (h *Handler) handleServerError(w http.ResponseWriter, action string, err error) {
	h.logError(action, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h *Handler) logError(action string, err error) {
	if h.logger != nil {
		h.logger.Error(action, slog.Any("error", err))
	}
}
