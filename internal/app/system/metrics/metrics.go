// internal/app/system/metrics/metrics.go
//
// Package metrics exposes Prometheus metrics for the HTTP API and for data
// changes. Each Metrics owns its registry so tests can build as many as they
// need.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "datatracker"

// Metrics holds the collectors and the registry they are registered with.
type Metrics struct {
	reg *prometheus.Registry

	// RED metrics
	reqs *prometheus.CounterVec
	durs *prometheus.HistogramVec

	changes *prometheus.CounterVec
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		reqs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Number of API requests by method, route and status code",
		}, []string{"method", "route", "code"}),
		durs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of API requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "data",
			Name:      "changes_total",
			Help:      "Number of logged data changes by entity type and action",
		}, []string{"data_type", "action"}),
	}
	m.reg.MustRegister(
		m.reqs, m.durs, m.changes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Middleware counts and times requests. The route label is the chi route
// pattern, so identifiers in paths do not create new series.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
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
		m.reqs.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.durs.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// ObserveChange counts one logged change. A nil Metrics ignores the call.
func (m *Metrics) ObserveChange(dataType, action string) {
	if m == nil {
		return
	}
	m.changes.WithLabelValues(dataType, action).Inc()
}
