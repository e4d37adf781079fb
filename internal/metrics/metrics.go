// Package metrics exposes Prometheus instrumentation for the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the API records to.
type Metrics struct {
	registry *prometheus.Registry

	importsTotal    *prometheus.CounterVec
	importRows      *prometheus.CounterVec
	importDuration  prometheus.Histogram
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	dashboardLoaded prometheus.Counter
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		importsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "csv_imports_total",
				Help: "Total number of CSV imports by outcome",
			},
			[]string{"status"},
		),
		importRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "csv_import_rows_total",
				Help: "CSV rows processed by result",
			},
			[]string{"result"},
		),
		importDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "csv_import_duration_seconds",
				Help:    "Time spent processing one CSV upload",
				Buckets: prometheus.DefBuckets,
			},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		dashboardLoaded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "dashboard_summaries_total",
				Help: "Dashboard summaries computed",
			},
		),
	}
}

// ObserveImport records one finished import.
func (m *Metrics) ObserveImport(status string, imported, failed, rejected int, elapsed time.Duration) {
	m.importsTotal.WithLabelValues(status).Inc()
	m.importRows.WithLabelValues("imported").Add(float64(imported))
	m.importRows.WithLabelValues("failed").Add(float64(failed))
	m.importRows.WithLabelValues("rejected").Add(float64(rejected))
	m.importDuration.Observe(elapsed.Seconds())
}

// ObserveDashboard counts one computed dashboard summary.
func (m *Metrics) ObserveDashboard() {
	m.dashboardLoaded.Inc()
}

// Middleware records request counts and latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
