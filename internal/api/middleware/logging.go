package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RequestLogger assigns each request an id from ids and logs ENTER before and
// EXIT after the rest of the chain. The request-scoped logger is stored in
// the context for handlers and zerolog.Ctx.
func RequestLogger(ids *RequestIDs, logger zerolog.Logger) Middleware {
	return func(w http.ResponseWriter, r *http.Request, next http.Handler) {
		start := time.Now()
		requestID := ids.Next()

		reqLogger := logger.With().Str("request_id", requestID).Logger()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		ctx = reqLogger.WithContext(ctx)
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("request_id", requestID))

		reqLogger.Info().
			Str("method", r.Method).
			Str("url", r.URL.Path).
			Msg("ENTER")

		rw := &responseWriter{ResponseWriter: w}
		next.ServeHTTP(rw, r.WithContext(ctx))

		reqLogger.Info().
			Str("method", r.Method).
			Str("url", r.URL.Path).
			Int("status", rw.statusCode()).
			Int("bytes", rw.bytes).
			Int64("duration", time.Since(start).Round(time.Millisecond).Milliseconds()).
			Msg("EXIT")
	}
}

// RequestIDHeader echoes the id assigned by RequestLogger as X-Request-ID.
// It must run after RequestLogger.
func RequestIDHeader() Middleware {
	return func(w http.ResponseWriter, r *http.Request, next http.Handler) {
		if id := GetRequestID(r.Context()); id != "" {
			w.Header().Set("X-Request-ID", id)
		}
		next.ServeHTTP(w, r)
	}
}
