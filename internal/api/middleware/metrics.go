package middleware

import (
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/xoslabs/workforce/internal/api"

// MetricsCollector counts requests and error responses. The atomic totals
// back GET /metrics; the otel counter carries route and status labels.
type MetricsCollector struct {
	requestCount *atomic.Int64
	errorCount   *atomic.Int64
	requests     metric.Int64Counter
}

func NewMetricsCollector(requestCount, errorCount *atomic.Int64) *MetricsCollector {
	requests, err := otel.Meter(meterName).Int64Counter("http.server.requests",
		metric.WithDescription("HTTP requests by route and status"))
	if err != nil {
		otel.Handle(err)
	}
	return &MetricsCollector{
		requestCount: requestCount,
		errorCount:   errorCount,
		requests:     requests,
	}
}

func (mc *MetricsCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mc.requestCount.Add(1)

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		if rw.statusCode >= 400 {
			mc.errorCount.Add(1)
		}
		if mc.requests != nil {
			mc.requests.Add(r.Context(), 1, metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("route", routePattern(r)),
				attribute.String("status", strconv.Itoa(rw.statusCode)),
			))
		}
	})
}

// routePattern is read after the handler ran, when chi has filled in the
// matched pattern.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
