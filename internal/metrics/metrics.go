package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dashboard"

// Collector holds the service's Prometheus metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	WidgetFetches       *prometheus.CounterVec
	WidgetFetchDuration *prometheus.HistogramVec
	BuilderOperations   *prometheus.CounterVec
	BuilderSessions     prometheus.Gauge
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

func New() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		WidgetFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "widget_fetches_total",
			Help:      "Telemetry fetches per data source and outcome",
		}, []string{"data_source", "status"}),
		WidgetFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "widget_fetch_duration_seconds",
			Help:      "Duration of telemetry fetches in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"data_source"}),
		BuilderOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builder_operations_total",
			Help:      "Builder mutations, undo, redo and saves by outcome",
		}, []string{"operation", "status"}),
		BuilderSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "builder_sessions",
			Help:      "Number of open builder sessions",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		c.WidgetFetches,
		c.WidgetFetchDuration,
		c.BuilderOperations,
		c.BuilderSessions,
		c.HTTPRequestsTotal,
		c.HTTPRequestDuration,
	)
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordFetch(dataSource, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.WidgetFetches.WithLabelValues(dataSource, status).Inc()
	c.WidgetFetchDuration.WithLabelValues(dataSource).Observe(d.Seconds())
}

func (c *Collector) RecordBuilderOperation(operation string, err error) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.BuilderOperations.WithLabelValues(operation, status).Inc()
}

func (c *Collector) SetBuilderSessions(n int) {
	if c == nil {
		return
	}
	c.BuilderSessions.Set(float64(n))
}

// Middleware records request counts and latency keyed by the chi route
// pattern, so path parameters do not explode label cardinality.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
