package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cibere/starapi"
)

// Metrics collects per-request Prometheus metrics.
type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics registers the request counter and latency histogram on the
// registry. A nil registry creates a private one.
func NewMetrics(registry *prometheus.Registry) (*Metrics, error) {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
	for _, c := range []prometheus.Collector{m.requestsTotal, m.requestDuration} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return m, nil
}

// Middleware records every request except /metrics itself. The path label is
// the route template, not the raw path, to keep the label cardinality bounded.
func (m *Metrics) Middleware() starapi.Middleware {
	return func(next starapi.HandlerFunc) starapi.HandlerFunc {
		return func(r *starapi.Request) (*starapi.Response, error) {
			if r.Path() == "/metrics" {
				return next(r)
			}
			start := time.Now()
			resp, err := next(r)

			var status int
			switch {
			case err != nil:
				status = starapi.StatusFromError(err)
			case resp == nil:
				status = http.StatusNoContent
			default:
				status = resp.StatusCode
			}
			labels := prometheus.Labels{
				"method": r.Method(),
				"path":   r.RoutePath(),
				"status": strconv.Itoa(status),
			}
			m.requestsTotal.With(labels).Inc()
			m.requestDuration.With(labels).Observe(time.Since(start).Seconds())
			return resp, err
		}
	}
}

// Handler exposes the registry in the Prometheus text format, typically
// mounted at /metrics.
func (m *Metrics) Handler() starapi.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(r *starapi.Request) (*starapi.Response, error) {
		w := &bufferedWriter{header: http.Header{}, status: http.StatusOK}
		h.ServeHTTP(w, r.Raw())
		resp := starapi.NewResponse(w.body.Bytes())
		resp.StatusCode = w.status
		for k, vals := range w.header {
			resp.Header[k] = vals
		}
		return resp, nil
	}
}

// bufferedWriter adapts promhttp's ResponseWriter output to a Response.
type bufferedWriter struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func (w *bufferedWriter) Header() http.Header {
	return w.header
}

func (w *bufferedWriter) Write(p []byte) (int, error) {
	return w.body.Write(p)
}

func (w *bufferedWriter) WriteHeader(status int) {
	w.status = status
}
