package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/tuansdf/react-start-template/internal/api/problem"
)

// Recover turns a handler panic into a 500 problem response and an error log
// entry. http.ErrAbortHandler is re-panicked so net/http can abort the
// connection quietly.
func Recover(env string) Middleware {
	return func(w http.ResponseWriter, r *http.Request, next http.Handler) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			LoggerFromContext(r.Context()).Error().
				Str("path", r.URL.Path).
				Bytes("stack", debug.Stack()).
				Msgf("panic: %v", rec)
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Internal server error", fmt.Errorf("panic: %v", rec), env)
		}()
		next.ServeHTTP(w, r)
	}
}
