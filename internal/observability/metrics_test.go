package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	require.Contains(t, body, `stockwizard_http_requests_total{code="418",route="/test"} 1`)
	require.Contains(t, body, `stockwizard_http_request_duration_seconds_bucket{route="/test"`)
}

func TestObserveUpstream(t *testing.T) {
	metrics := NewMetrics()

	metrics.ObserveUpstream(http.MethodGet, "/api/stockMovements/:id", http.StatusOK, 20*time.Millisecond)
	metrics.ObserveUpstream(http.MethodPost, "/api/stockMovements/:id/status", 0, time.Second)

	body := scrape(t, metrics)
	require.Contains(t, body, `stockwizard_upstream_requests_total{code="200",method="GET",route="/api/stockMovements/:id"} 1`)
	require.Contains(t, body, `stockwizard_upstream_requests_total{code="error",method="POST",route="/api/stockMovements/:id/status"} 1`)
}

func TestBusyGaugeBalances(t *testing.T) {
	metrics := NewMetrics()

	metrics.Show()
	metrics.Show()
	require.Contains(t, scrape(t, metrics), "stockwizard_busy_operations 2")

	metrics.Hide()
	metrics.Hide()
	require.True(t, strings.Contains(scrape(t, metrics), "stockwizard_busy_operations 0"))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var metrics *Metrics
	metrics.Show()
	metrics.Hide()
	metrics.ObserveUpstream(http.MethodGet, "/api/getSession", http.StatusOK, time.Millisecond)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
