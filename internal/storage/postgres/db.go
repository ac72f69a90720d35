package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

// PoolConfig carries the settings Connect needs from the application config.
type PoolConfig struct {
	URL            string
	MaxConnections int
	ConnectTimeout time.Duration
	// LogQueries attaches a query tracer that logs every statement at debug.
	LogQueries bool
}

// Connect opens the pool and blocks until the database answers a liveness
// probe or the connect budget is spent.
func Connect(ctx context.Context, cfg PoolConfig, logger zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConnections)
	}
	if cfg.LogQueries {
		poolCfg.ConnConfig.Tracer = &tracelog.TraceLog{
			Logger:   queryLogger(logger),
			LogLevel: tracelog.LogLevelDebug,
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := Probe(ctx, pool, cfg.ConnectTimeout, logger); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info().
		Int32("max_conns", poolCfg.MaxConns).
		Str("host", poolCfg.ConnConfig.Host).
		Str("database", poolCfg.ConnConfig.Database).
		Msg("database connected")
	return pool, nil
}

// RowQuerier is the part of a pool the liveness probe uses.
type RowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Probe runs SELECT 1, retrying with capped exponential backoff until budget
// elapses. A non-positive budget means a single attempt.
func Probe(ctx context.Context, db RowQuerier, budget time.Duration, logger zerolog.Logger) error {
	probe := func() error {
		var one int
		if err := db.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
			return err
		}
		if one != 1 {
			return backoff.Permanent(fmt.Errorf("unexpected probe result %d", one))
		}
		return nil
	}

	var policy backoff.BackOff = &backoff.StopBackOff{}
	if budget > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = 100 * time.Millisecond
		exp.MaxInterval = 2 * time.Second
		exp.MaxElapsedTime = budget
		policy = exp
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn().Err(err).Dur("retry_in", wait).Msg("database not ready")
	}
	if err := backoff.RetryNotify(probe, backoff.WithContext(policy, ctx), notify); err != nil {
		return fmt.Errorf("database probe: %w", err)
	}
	return nil
}

func queryLogger(logger zerolog.Logger) tracelog.Logger {
	l := logger.With().Str("component", "pgx").Logger()
	return tracelog.LoggerFunc(func(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
		var ev *zerolog.Event
		switch level {
		case tracelog.LogLevelError:
			ev = l.Error()
		case tracelog.LogLevelWarn:
			ev = l.Warn()
		case tracelog.LogLevelInfo:
			ev = l.Info()
		default:
			ev = l.Debug()
		}
		ev.Fields(data).Msg(msg)
	})
}

// Store is the typed query layer over a pool, with transaction support.
type Store struct {
	*Queries
	pool *pgxpool.Pool
}

// NewStore wraps pool in the typed query layer.
func NewStore(pool *pgxpool.Pool) (*Store, error) {
	if pool == nil {
		return nil, errors.New("postgres store: pool is nil")
	}
	return &Store{Queries: New(pool), pool: pool}, nil
}

func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// WithTx runs fn inside a transaction; fn's error rolls it back.
func (s *Store) WithTx(ctx context.Context, fn func(Querier) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(s.Queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback after error %v: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// IsNotFound reports whether err is the no-rows error from a :one query.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsUniqueViolation reports whether err is a unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
