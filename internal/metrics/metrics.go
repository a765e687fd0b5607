// Package metrics exposes Prometheus instrumentation shared by both
// listeners, tagged with a "protocol" label (caldav/mcp) so the two
// transports' traffic is distinguishable in one registry.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "calcard_http_requests_total",
		Help: "Total HTTP requests handled, by protocol, method, route, and status.",
	}, []string{"protocol", "method", "route", "status"})

	httpErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "calcard_http_errors_total",
		Help: "Total HTTP responses with a 4xx or 5xx status, by protocol and route.",
	}, []string{"protocol", "route"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "calcard_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds, by protocol and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"protocol", "route"})

	dbQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "calcard_db_query_duration_seconds",
		Help:    "Store operation latency in seconds, by operation name.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

type routeCtxKey struct{}

// WithRoutePattern stashes the matched chi route pattern in the
// request context so Middleware can label metrics by route rather
// than raw path. No handler in this repository calls it, so Middleware
// labels every request with its raw URL path.
func WithRoutePattern(r *http.Request, pattern string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), routeCtxKey{}, pattern))
}

func routePattern(r *http.Request) string {
	if v, ok := r.Context().Value(routeCtxKey{}).(string); ok && v != "" {
		return v
	}
	return r.URL.Path
}

// Middleware records request counts, error counts, and latency for
// every request passing through it, labelled with protocol (caldav or
// mcp — fixed per listener) and the route pattern in context, if any.
func Middleware(protocol string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := routePattern(r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			httpRequestsTotal.WithLabelValues(protocol, r.Method, route, statusLabel(status)).Inc()
			httpRequestDuration.WithLabelValues(protocol, route).Observe(time.Since(start).Seconds())
			if status >= 400 {
				httpErrorsTotal.WithLabelValues(protocol, route).Inc()
			}
		})
	}
}

func statusLabel(status int) string {
	switch {
	case status < 200:
		return "1xx"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// Handler serves the Prometheus exposition format for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveDBLatency records the duration of a single named Store
// operation.
func ObserveDBLatency(operation string, d time.Duration) {
	dbQueryDuration.WithLabelValues(operation).Observe(d.Seconds())
}
