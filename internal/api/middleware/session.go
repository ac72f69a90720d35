package middleware

import (
	"context"
	"net/http"

	"github.com/tuansdf/react-start-template/internal/api/problem"
	"github.com/tuansdf/react-start-template/internal/auth"
)

// SessionResolver looks up the session carried by request headers. A nil
// result without error means there is no valid session.
type SessionResolver interface {
	GetSession(ctx context.Context, headers http.Header) (*auth.SessionResult, error)
}

// RequireSession redirects requests without a valid session to signInPath.
// Otherwise it invokes next unmodified, with the session stored in the
// request context. Refreshed cookies in the result are not written; clients
// pick them up from the get-session endpoint.
func RequireSession(resolver SessionResolver, signInPath, env string) Middleware {
	return func(w http.ResponseWriter, r *http.Request, next http.Handler) {
		result, err := resolver.GetSession(r.Context(), r.Header)
		if err != nil {
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Internal server error", err, env)
			return
		}
		if result == nil {
			http.Redirect(w, r, signInPath, http.StatusFound)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.ContextWithSession(r.Context(), result)))
	}
}
