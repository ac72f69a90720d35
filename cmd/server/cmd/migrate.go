package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tuansdf/react-start-template/internal/config"
	"github.com/tuansdf/react-start-template/internal/jobs"
	"github.com/tuansdf/react-start-template/internal/storage/postgres"
)

func newMigrateCommand(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations, including the job queue schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, flush, err := commandSetup(global)
			if err != nil {
				return err
			}
			defer func() { _ = flush() }()

			pool, err := postgres.Connect(cmd.Context(), postgres.PoolConfig{
				URL:            cfg.Database.URL,
				MaxConnections: 2,
				ConnectTimeout: cfg.Database.ConnectTimeout,
			}, logger)
			if err != nil {
				return fmt.Errorf("database unavailable: %w", err)
			}
			defer pool.Close()
			return applyMigrations(cmd.Context(), cfg, pool, logger)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back application migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1")
			}
			cfg, logger, flush, err := commandSetup(global)
			if err != nil {
				return err
			}
			defer func() { _ = flush() }()

			if err := postgres.MigrateDown(cfg.Database.URL, steps); err != nil {
				return err
			}
			logger.Info().Int("steps", steps).Msg("migrations rolled back")
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	status := &cobra.Command{
		Use:   "status",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, flush, err := commandSetup(global)
			if err != nil {
				return err
			}
			defer func() { _ = flush() }()

			version, dirty, err := postgres.MigrationVersion(cfg.Database.URL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version: %d\ndirty:   %t\n", version, dirty)
			return nil
		},
	}

	cmd.AddCommand(up, down, status)
	return cmd
}

func commandSetup(global *globalOptions) (config.Config, zerolog.Logger, func() error, error) {
	cfg, err := global.loadConfig()
	if err != nil {
		return config.Config{}, zerolog.Nop(), nil, err
	}
	logger, flush := config.NewLogger(cfg.Logging, cfg.Environment)
	return cfg, logger, flush, nil
}

// applyMigrations runs the application schema and, when background jobs are
// enabled, River's schema.
func applyMigrations(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, logger zerolog.Logger) error {
	if err := postgres.MigrateUp(cfg.Database.URL); err != nil {
		return err
	}
	logger.Info().Msg("application migrations applied")

	if !cfg.Jobs.Enabled {
		return nil
	}
	applied, err := jobs.Migrate(ctx, pool)
	if err != nil {
		return err
	}
	logger.Info().Int("applied", applied).Msg("job queue migrations applied")
	return nil
}
