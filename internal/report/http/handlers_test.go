package reporthttp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enerdash/enerdash/internal/report"
	"github.com/enerdash/enerdash/internal/shared"
)

type mockService struct {
	rep       report.Report
	view      report.SourceView
	latest    report.Report
	hasLatest bool
	err       error
	lastYear  string
	lastLim   int
}

func (m *mockService) BuildSourceView(ctx context.Context, scope report.AccessScope, year string, source report.Source, limit int) (report.SourceView, error) {
	m.lastYear = year
	m.lastLim = limit
	if m.err != nil {
		return report.SourceView{}, m.err
	}
	view := m.view
	view.FinancialYear = year
	view.Source = source
	return view, nil
}

func (m *mockService) BuildCombined(ctx context.Context, scope report.AccessScope, year string) (report.Report, error) {
	m.lastYear = year
	if m.err != nil {
		return report.Report{}, m.err
	}
	rep := m.rep
	rep.FinancialYear = year
	return rep, nil
}

func (m *mockService) Latest(scope report.AccessScope, year string) (report.Report, bool) {
	m.lastYear = year
	return m.latest, m.hasLatest
}

func fixtureReport() report.Report {
	return report.Report{
		FinancialYear: "2024-2025",
		Rows: []report.ChartRow{
			{MonthKey: "042024", Month: "Apr FY2024", Values: map[string]float64{"10_production": 1234.5}},
			{MonthKey: "052024", Month: "May", Values: map[string]float64{"10_production": 0}},
		},
		Series: []report.SeriesDescriptor{
			{Key: "10_production", DisplayName: "Site A", Source: report.SourceProduction, ColorIndex: 0},
		},
	}
}

func newTestRouter(svc *mockService) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	h.WithNow(func() time.Time { return time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC) })
	r := chi.NewRouter()
	r.Route("/reports", h.MountRoutes)
	return r
}

func authedRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	caller := &shared.Caller{
		UserID:          7,
		Email:           "ops@example.com",
		ProductionKeys:  []string{"c_10"},
		ConsumptionKeys: []string{"c_20"},
	}
	return req.WithContext(shared.ContextWithCaller(req.Context(), caller))
}

func TestHandleCombined(t *testing.T) {
	svc := &mockService{rep: fixtureReport()}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/reports/combined?fy=2024-2025"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var got report.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "2024-2025", got.FinancialYear)
	require.Len(t, got.Series, 1)
	assert.Equal(t, "10_production", got.Series[0].Key)
}

func TestHandleCombinedDefaultsToCurrentYear(t *testing.T) {
	svc := &mockService{rep: fixtureReport()}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/reports/combined"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-2025", svc.lastYear)
}

func TestHandleCombinedRejectsBadYear(t *testing.T) {
	svc := &mockService{rep: fixtureReport()}
	router := newTestRouter(svc)

	for _, year := range []string{"2024", "2024-2026", "abcd-efgh"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, authedRequest(http.MethodGet, "/reports/combined?fy="+year))
		assert.Equal(t, http.StatusBadRequest, rec.Code, year)
	}
}

func TestHandleCombinedNoData(t *testing.T) {
	svc := &mockService{rep: report.Report{}}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/reports/combined?fy=2024-2025"))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no report data")
}

func TestHandleCombinedRequiresCaller(t *testing.T) {
	svc := &mockService{rep: fixtureReport()}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/combined?fy=2024-2025", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleSource(t *testing.T) {
	svc := &mockService{view: report.SourceView{Selected: []string{"10"}}}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/reports/production?fy=2024-2025&limit=3"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, svc.lastLim)

	var got report.SourceView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, report.SourceProduction, got.Source)
	assert.Equal(t, []string{"10"}, got.Selected)
}

func TestHandleSourceUnknown(t *testing.T) {
	svc := &mockService{}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/reports/weather?fy=2024-2025"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleSourceRejectsBadLimit(t *testing.T) {
	svc := &mockService{}
	router := newTestRouter(svc)

	for _, limit := range []string{"abc", "-1", "999"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, authedRequest(http.MethodGet, "/reports/production?fy=2024-2025&limit="+limit))
		assert.Equal(t, http.StatusBadRequest, rec.Code, limit)
	}
}

func TestHandleCSVExport(t *testing.T) {
	svc := &mockService{rep: fixtureReport()}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/reports/combined/export.csv?fy=2024-2025"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "report-2024-2025.csv")
	assert.Contains(t, rec.Body.String(), "Site A")
	assert.Contains(t, rec.Body.String(), "1,234.50")
}

func TestHandleXLSXExport(t *testing.T) {
	svc := &mockService{rep: fixtureReport()}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/reports/combined/export.xlsx?fy=2024-2025"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.NotZero(t, rec.Body.Len())
}

func TestHandlePreviewSVG(t *testing.T) {
	svc := &mockService{rep: fixtureReport()}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/reports/combined/preview.svg?fy=2024-2025"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<svg")
}

func TestHandleSeriesPreviewSVG(t *testing.T) {
	svc := &mockService{rep: fixtureReport()}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/reports/combined/series/10_production/preview.svg?fy=2024-2025"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<svg")
	assert.Contains(t, rec.Body.String(), "Site A")
}

func TestHandleSeriesPreviewUnknownKey(t *testing.T) {
	svc := &mockService{rep: fixtureReport()}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/reports/combined/series/99_banking/preview.svg?fy=2024-2025"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleSourceCSVExport(t *testing.T) {
	svc := &mockService{view: report.SourceView{
		Rows: []report.ChartRow{
			{MonthKey: "042024", Month: "Apr FY2024", Values: map[string]float64{"10_production": 1234.5}},
		},
		Series: []report.SeriesDescriptor{
			{Key: "10_production", DisplayName: "Site A", Source: report.SourceProduction},
		},
	}}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/reports/production/export.csv?fy=2024-2025"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "report-production-2024-2025.csv")
	assert.Contains(t, rec.Body.String(), "Site A")
	assert.Contains(t, rec.Body.String(), "1,234.50")
}

func TestHandleSourceCSVUnknownSource(t *testing.T) {
	svc := &mockService{}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/reports/weather/export.csv?fy=2024-2025"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleLatest(t *testing.T) {
	svc := &mockService{latest: fixtureReport(), hasLatest: true}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/reports/combined/latest?fy=2024-2025"))

	require.Equal(t, http.StatusOK, rec.Code)

	var got report.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "2024-2025", got.FinancialYear)
}

func TestHandleLatestBeforeFirstBuild(t *testing.T) {
	svc := &mockService{}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/reports/combined/latest?fy=2024-2025"))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no report data")
}
