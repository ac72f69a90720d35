package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/tuansdf/react-start-template/internal/api/middleware"
	"github.com/tuansdf/react-start-template/internal/auth"
)

// AuthProvider is the auth service as the HTTP layer sees it: the protocol
// handler mounted under auth.BasePath plus session lookup for the page gate.
type AuthProvider interface {
	HandleAuthRequest(w http.ResponseWriter, r *http.Request)
	middleware.SessionResolver
}

var _ AuthProvider = (*auth.Service)(nil)

// Route binds a ServeMux pattern to per-method handlers. Middleware runs in
// order around the handler, after route metrics have started.
type Route struct {
	Pattern    string
	Methods    map[string]http.Handler
	Middleware []middleware.Middleware
}

// NewRouter registers routes on a ServeMux and wraps the mux with the global
// middleware, first entry outermost. Unmatched paths get the mux's 404.
func NewRouter(routes []Route, global ...middleware.Middleware) http.Handler {
	mux := http.NewServeMux()
	for _, route := range routes {
		mws := make([]middleware.Middleware, 0, len(route.Middleware)+1)
		mws = append(mws, middleware.Metrics(route.Pattern))
		mws = append(mws, route.Middleware...)
		mux.Handle(route.Pattern, middleware.Chain(methodMux(route.Methods), mws...))
	}
	return middleware.Chain(mux, global...)
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		if r.Method == http.MethodHead {
			if handler, ok := handlers[http.MethodGet]; ok {
				handler.ServeHTTP(w, r)
				return
			}
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
