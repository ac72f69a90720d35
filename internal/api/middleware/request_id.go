package middleware

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/rs/zerolog"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestIDs hands out request ids of the form "<base>-<n>". The base is
// random per process; n is a uint32 counter that wraps to 0 after
// 4294967295, so ids are unique across 2^32 consecutive requests.
type RequestIDs struct {
	base    string
	counter atomic.Uint32
}

// NewRequestIDs creates a generator with a random 8-character base.
func NewRequestIDs() (*RequestIDs, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("request id base: %w", err)
	}
	return newRequestIDs(base64.RawURLEncoding.EncodeToString(buf), 0), nil
}

func newRequestIDs(base string, start uint32) *RequestIDs {
	ids := &RequestIDs{base: base}
	ids.counter.Store(start)
	return ids
}

// Base is the random prefix shared by every id from g.
func (g *RequestIDs) Base() string { return g.base }

// Next returns the next id. Safe for concurrent use.
func (g *RequestIDs) Next() string {
	n := g.counter.Add(1)
	return g.base + "-" + strconv.FormatUint(uint64(n), 10)
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// LoggerFromContext returns the request-scoped logger, or a disabled logger
// outside a request.
func LoggerFromContext(ctx context.Context) *zerolog.Logger {
	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		noop := zerolog.Nop()
		return &noop
	}
	return logger
}
