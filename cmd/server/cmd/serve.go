package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tuansdf/react-start-template/internal/api"
	"github.com/tuansdf/react-start-template/internal/api/handlers"
	"github.com/tuansdf/react-start-template/internal/api/middleware"
	"github.com/tuansdf/react-start-template/internal/audit"
	"github.com/tuansdf/react-start-template/internal/auth"
	"github.com/tuansdf/react-start-template/internal/config"
	"github.com/tuansdf/react-start-template/internal/jobs"
	"github.com/tuansdf/react-start-template/internal/metrics"
	"github.com/tuansdf/react-start-template/internal/storage/postgres"
	"github.com/tuansdf/react-start-template/internal/telemetry"
	"github.com/tuansdf/react-start-template/web"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	host    string
	port    int
	migrate bool
}

func newServeCommand(global *globalOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server and the background job client.

The server connects to DATABASE_URL (retrying until DATABASE_CONNECT_TIMEOUT),
optionally applies migrations, bootstraps the admin user when ADMIN_EMAIL is
set, and shuts down gracefully on SIGINT or SIGTERM.

Examples:
  server serve
  server serve --host 127.0.0.1 --port 9090 --migrate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			if opts.host != "" {
				cfg.Server.Host = opts.host
			}
			if opts.port != 0 {
				cfg.Server.Port = opts.port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, opts.migrate)
		},
	}
	cmd.Flags().StringVar(&opts.host, "host", "", "listen host (overrides HOST)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "listen port (overrides PORT)")
	cmd.Flags().BoolVar(&opts.migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func runServer(ctx context.Context, cfg config.Config, migrate bool) error {
	logger, flush := config.NewLogger(cfg.Logging, cfg.Environment)
	defer func() { _ = flush() }()

	logger.Info().Str("version", Version).Str("environment", cfg.Environment).Msg("starting server")
	metrics.Init(Version, GitCommit, BuildDate)

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown")
		}
	}()

	pool, err := postgres.Connect(ctx, poolConfig(cfg), logger)
	if err != nil {
		return fmt.Errorf("database unavailable: %w", err)
	}
	defer pool.Close()

	if migrate {
		if err := applyMigrations(ctx, cfg, pool, logger); err != nil {
			return err
		}
	}

	store, err := postgres.NewStore(pool)
	if err != nil {
		return err
	}
	authService, err := auth.NewService(store, cfg, logger, auth.WithAuditLogger(audit.NewLogger(logger)))
	if err != nil {
		return fmt.Errorf("create auth service: %w", err)
	}
	defer authService.Close()

	if err := bootstrapAdmin(ctx, authService, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("admin bootstrap failed")
	}

	collector := metrics.NewDBCollector(pool)
	go collector.Start(ctx, 15*time.Second)
	defer collector.Stop()

	if cfg.Jobs.Enabled {
		client, err := startJobs(ctx, cfg, pool, store, logger)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := client.Stop(sctx); err != nil {
				logger.Error().Err(err).Msg("job client shutdown")
			}
		}()
	}

	handler, err := newHandler(cfg, authService, pool, logger)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Addr(), err)
	}
	return serveHTTP(ctx, newHTTPServer(handler), ln, logger)
}

func newHandler(cfg config.Config, authService *auth.Service, pool *pgxpool.Pool, logger zerolog.Logger) (http.Handler, error) {
	templates, err := web.NewTemplates()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	ids, err := middleware.NewRequestIDs()
	if err != nil {
		return nil, fmt.Errorf("init request ids: %w", err)
	}
	logger.Debug().Str("request_id_base", ids.Base()).Msg("request ids initialized")

	return api.NewHandler(api.Deps{
		Config:    cfg,
		Auth:      authService,
		Pages:     handlers.NewPagesHandler(templates, cfg.Environment),
		Readiness: handlers.NewReadinessChecker(pool, cfg.Jobs.Enabled, Version, GitCommit),
		Build:     api.BuildInfo{Version: Version, GitCommit: GitCommit, BuildDate: BuildDate},
	}, ids, logger), nil
}

// poolConfig maps the database settings. SQL is traced at debug level in
// development only.
func poolConfig(cfg config.Config) postgres.PoolConfig {
	return postgres.PoolConfig{
		URL:            cfg.Database.URL,
		MaxConnections: cfg.Database.MaxConnections,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		LogQueries:     cfg.IsDevelopment(),
	}
}

func newHTTPServer(handler http.Handler) *http.Server {
	return &http.Server{
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}

// serveHTTP serves on ln until ctx is cancelled, then drains in-flight
// requests for up to shutdownTimeout.
func serveHTTP(ctx context.Context, server *http.Server, ln net.Listener, logger zerolog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", ln.Addr().String()).Msg("listening")
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(sctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// adminEnsurer is the part of the auth service the bootstrap needs.
type adminEnsurer interface {
	EnsureAdmin(ctx context.Context, name, email, password string) (bool, error)
}

func bootstrapAdmin(ctx context.Context, svc adminEnsurer, cfg config.Config, logger zerolog.Logger) error {
	admin := cfg.Admin
	if admin.Email == "" || admin.Password == "" {
		logger.Debug().Msg("admin bootstrap not configured")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	created, err := svc.EnsureAdmin(ctx, admin.Name, admin.Email, admin.Password)
	if err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	if !created {
		return nil
	}

	event := logger.Info()
	if !cfg.IsProduction() {
		event = event.Str("email", admin.Email)
	}
	event.Msg("bootstrapped admin user")
	return nil
}

func startJobs(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, store jobs.SessionCleaner, logger zerolog.Logger) (*river.Client[pgx.Tx], error) {
	client, err := jobs.NewClient(
		pool,
		jobs.NewWorkers(store, logger),
		config.NewSlogLogger(cfg.Logging),
		jobs.NewPeriodicJobs(cfg.Jobs.SessionCleanupInterval),
	)
	if err != nil {
		return nil, err
	}
	if err := client.Start(ctx); err != nil {
		return nil, fmt.Errorf("start job client: %w", err)
	}
	logger.Info().Dur("session_cleanup_interval", cfg.Jobs.SessionCleanupInterval).Msg("background jobs started")
	return client, nil
}
