package audithttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/stockwizard/internal/audit"
	"github.com/odyssey-erp/stockwizard/internal/shared"
	"github.com/odyssey-erp/stockwizard/internal/view"
)

type stubTimelineService struct {
	result      audit.Result
	exportRows  []audit.TimelineRow
	lastFilters audit.TimelineFilters
}

func (s *stubTimelineService) Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error) {
	s.lastFilters = filters
	return s.result, nil
}

func (s *stubTimelineService) Export(ctx context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error) {
	s.lastFilters = filters
	return s.exportRows, nil
}

type stubExporter struct {
	csv []byte
}

func (s stubExporter) WriteCSV(rows []audit.TimelineRow) ([]byte, error) {
	if s.csv != nil {
		return s.csv, nil
	}
	return audit.NewExporter(nil, nil).WriteCSV(rows)
}

func (s stubExporter) RenderPDF(ctx context.Context, vm audit.ViewModel) ([]byte, error) {
	return nil, audit.ErrPDFUnavailable
}

func newAuditHandler(t *testing.T, service *stubTimelineService, exporter Exporter) *Handler {
	t.Helper()
	templates, err := view.NewEngine()
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}
	handler := NewHandler(nil, service, templates, exporter, nil)
	handler.now = func() time.Time { return time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC) }
	return handler
}

func withUser(req *http.Request) *http.Request {
	sess := &shared.Session{}
	sess.SetUser("u1")
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestTimelineRequiresLogin(t *testing.T) {
	service := &stubTimelineService{}
	handler := newAuditHandler(t, service, stubExporter{})
	req := httptest.NewRequest(http.MethodGet, "/audit", nil)
	rr := httptest.NewRecorder()
	handler.handleTimeline(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestTimelineRendersRows(t *testing.T) {
	rows := []audit.TimelineRow{{
		At:       time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC),
		Actor:    "clerk",
		Action:   "stock_movement.status",
		Entity:   "stock_movement",
		EntityID: "sm-1",
		Meta:     map[string]any{"status": "PICKING"},
	}}
	service := &stubTimelineService{result: audit.Result{Rows: rows, Paging: audit.PagingInfo{Page: 1, PageSize: 20, HasNext: true, NextPage: 2}}}
	handler := newAuditHandler(t, service, stubExporter{})
	req := withUser(httptest.NewRequest(http.MethodGet, "/audit?from=2024-03-01&to=2024-03-15&entity=stock_movement&entity_id=sm-1", nil))
	rr := httptest.NewRecorder()
	handler.handleTimeline(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "clerk") || !strings.Contains(body, "PICKING") {
		t.Fatalf("expected row in response: %s", body)
	}
	if !strings.Contains(body, "page=2") {
		t.Fatalf("expected next page link: %s", body)
	}
	if service.lastFilters.From.Format("2006-01-02") != "2024-03-01" {
		t.Fatalf("unexpected filters: %+v", service.lastFilters)
	}
	if service.lastFilters.EntityID != "sm-1" || service.lastFilters.Entity != "stock_movement" {
		t.Fatalf("unexpected entity filters: %+v", service.lastFilters)
	}
}

func TestTimelineDefaultsToLastWeek(t *testing.T) {
	service := &stubTimelineService{}
	handler := newAuditHandler(t, service, stubExporter{})
	rr := httptest.NewRecorder()
	handler.handleTimeline(rr, withUser(httptest.NewRequest(http.MethodGet, "/audit", nil)))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := service.lastFilters.From.Format("2006-01-02"); got != "2024-03-08" {
		t.Fatalf("expected from 2024-03-08, got %s", got)
	}
	if service.lastFilters.PageSize != defaultPageSize {
		t.Fatalf("expected default page size, got %d", service.lastFilters.PageSize)
	}
}

func TestTimelineRejectsBadFilters(t *testing.T) {
	cases := []string{
		"/audit?from=yesterday",
		"/audit?from=2024-03-10&to=2024-03-01",
		"/audit?from=2023-01-01&to=2024-03-01",
		"/audit?page=0",
		"/audit?page_size=x",
	}
	for _, target := range cases {
		handler := newAuditHandler(t, &stubTimelineService{}, stubExporter{})
		rr := httptest.NewRecorder()
		handler.handleTimeline(rr, withUser(httptest.NewRequest(http.MethodGet, target, nil)))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rr.Code)
		}
	}
}

func TestExportCSV(t *testing.T) {
	rows := []audit.TimelineRow{{Actor: "clerk"}}
	service := &stubTimelineService{exportRows: rows}
	handler := newAuditHandler(t, service, stubExporter{csv: []byte("actor")})
	req := withUser(httptest.NewRequest(http.MethodGet, "/audit/export.csv?from=2024-03-01&to=2024-03-05", nil))
	rr := httptest.NewRecorder()
	handler.handleExport(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ctype := rr.Header().Get("Content-Type"); !strings.Contains(ctype, "text/csv") {
		t.Fatalf("unexpected content-type: %s", ctype)
	}
}

func TestPDFNotImplemented(t *testing.T) {
	service := &stubTimelineService{}
	handler := newAuditHandler(t, service, stubExporter{})
	req := withUser(httptest.NewRequest(http.MethodGet, "/audit/pdf", nil))
	rr := httptest.NewRecorder()
	handler.handlePDF(rr, req)
	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", rr.Code)
	}
}

func TestExportRateLimited(t *testing.T) {
	handler := newAuditHandler(t, &stubTimelineService{}, stubExporter{csv: []byte("actor")})
	r := chi.NewRouter()
	handler.MountRoutes(r)
	var last int
	for i := 0; i <= rateLimit; i++ {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodGet, "/audit/export.csv", nil)))
		last = rr.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after %d requests, got %d", rateLimit, last)
	}
}
