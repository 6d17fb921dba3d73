package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordFetch(t *testing.T) {
	c := New()
	c.RecordFetch("ds_energy", "ok", 20*time.Millisecond)
	c.RecordFetch("ds_energy", "ok", 30*time.Millisecond)
	c.RecordFetch("ds_energy", "error", time.Millisecond)

	if got := testutil.ToFloat64(c.WidgetFetches.WithLabelValues("ds_energy", "ok")); got != 2 {
		t.Fatalf("expected 2 ok fetches, got %v", got)
	}
	if got := testutil.ToFloat64(c.WidgetFetches.WithLabelValues("ds_energy", "error")); got != 1 {
		t.Fatalf("expected 1 failed fetch, got %v", got)
	}
}

func TestRecordBuilderOperation(t *testing.T) {
	c := New()
	c.RecordBuilderOperation("add_widget", nil)
	c.RecordBuilderOperation("add_widget", errors.New("boom"))
	if got := testutil.ToFloat64(c.BuilderOperations.WithLabelValues("add_widget", "error")); got != 1 {
		t.Fatalf("expected 1 failed operation, got %v", got)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.RecordFetch("ds_energy", "ok", time.Second)
	c.RecordBuilderOperation("undo", nil)
	c.SetBuilderSessions(3)
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	c := New()
	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Get("/dashboards/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboards/"+id, nil))
	}

	if got := testutil.ToFloat64(c.HTTPRequestsTotal.WithLabelValues("GET", "/dashboards/{id}", "418")); got != 2 {
		t.Fatalf("expected 2 requests on the route pattern, got %v", got)
	}

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "dashboard_http_requests_total") {
		t.Fatal("metrics output missing request counter")
	}
}
