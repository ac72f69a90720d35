package middleware

import (
	"net/http"

	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/tuansdf/react-start-template/internal/metrics"
)

// Metrics records Prometheus request metrics under the route pattern. It also
// names the current span "METHOD route" and tags it with http.route.
func Metrics(route string) Middleware {
	return func(w http.ResponseWriter, r *http.Request, next http.Handler) {
		span := trace.SpanFromContext(r.Context())
		span.SetName(r.Method + " " + route)
		span.SetAttributes(semconv.HTTPRoute(route))
		metrics.Instrument(route, next).ServeHTTP(w, r)
	}
}
