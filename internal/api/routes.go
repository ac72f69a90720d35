package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tuansdf/react-start-template/internal/api/handlers"
	"github.com/tuansdf/react-start-template/internal/api/middleware"
	"github.com/tuansdf/react-start-template/internal/auth"
	"github.com/tuansdf/react-start-template/internal/config"
	"github.com/tuansdf/react-start-template/internal/metrics"
	"github.com/tuansdf/react-start-template/web"
)

// Deps are the collaborators the route table is built from.
type Deps struct {
	Config    config.Config
	Auth      AuthProvider
	Pages     *handlers.PagesHandler
	Readiness *handlers.ReadinessChecker
	Build     BuildInfo
}

// Routes is the static route table of the application.
func Routes(d Deps) []Route {
	authHandler := http.HandlerFunc(d.Auth.HandleAuthRequest)

	routes := []Route{
		{
			Pattern: auth.BasePath + "/",
			Methods: map[string]http.Handler{
				http.MethodGet:  authHandler,
				http.MethodPost: authHandler,
			},
		},
		{
			Pattern: "/api/health",
			Methods: map[string]http.Handler{http.MethodGet: handlers.Health()},
		},
		{
			Pattern: "/api/ready",
			Methods: map[string]http.Handler{http.MethodGet: http.HandlerFunc(d.Readiness.Ready)},
		},
		{
			Pattern: "/api/version",
			Methods: map[string]http.Handler{http.MethodGet: VersionHandler(d.Build)},
		},
		{
			Pattern: "/{$}",
			Methods: map[string]http.Handler{http.MethodGet: http.HandlerFunc(d.Pages.Home)},
			Middleware: []middleware.Middleware{
				middleware.RequireSession(d.Auth, d.Config.Auth.SignInPath, d.Config.Environment),
			},
		},
		{
			Pattern: d.Config.Auth.SignInPath,
			Methods: map[string]http.Handler{http.MethodGet: http.HandlerFunc(d.Pages.SignIn)},
		},
		{
			Pattern: "/robots.txt",
			Methods: map[string]http.Handler{http.MethodGet: web.RobotsTxtHandler()},
		},
	}

	if d.Config.Metrics.Enabled {
		routes = append(routes, Route{
			Pattern: "/metrics",
			Methods: map[string]http.Handler{http.MethodGet: metrics.Handler()},
		})
	}
	return routes
}

// GlobalMiddleware is applied to every request, matched or not.
func GlobalMiddleware(cfg config.Config, ids *middleware.RequestIDs, logger zerolog.Logger) []middleware.Middleware {
	return []middleware.Middleware{
		middleware.Tracing(),
		middleware.RequestLogger(ids, logger),
		middleware.RequestIDHeader(),
		middleware.Recover(cfg.Environment),
		middleware.SecurityHeaders(cfg.IsProduction()),
		middleware.RequestSize(middleware.DefaultMaxBodySize),
	}
}

// NewHandler assembles the application's root handler.
func NewHandler(d Deps, ids *middleware.RequestIDs, logger zerolog.Logger) http.Handler {
	return NewRouter(Routes(d), GlobalMiddleware(d.Config, ids, logger)...)
}
