package middleware

import (
	"net/http"
)

// DefaultMaxBodySize caps request bodies at 1MB.
const DefaultMaxBodySize int64 = 1 << 20

// RequestSize limits request bodies to maxBytes. Reads past the limit fail
// and the server closes the connection after the response.
func RequestSize(maxBytes int64) Middleware {
	return func(w http.ResponseWriter, r *http.Request, next http.Handler) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		next.ServeHTTP(w, r)
	}
}
