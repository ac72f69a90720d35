package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"github.com/rs/zerolog"

	"github.com/tuansdf/react-start-template/internal/metrics"
)

// SessionCleaner deletes sessions past their expiry; implemented by the
// postgres store.
type SessionCleaner interface {
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// SessionCleanupArgs has no fields; there is one cleanup per schedule tick.
type SessionCleanupArgs struct{}

func (SessionCleanupArgs) Kind() string { return JobKindSessionCleanup }

// SessionCleanupWorker removes expired session rows. Lookups already ignore
// them; this only bounds table growth.
type SessionCleanupWorker struct {
	river.WorkerDefaults[SessionCleanupArgs]
	Store  SessionCleaner
	Logger zerolog.Logger
}

func (SessionCleanupWorker) Timeout(*river.Job[SessionCleanupArgs]) time.Duration {
	return time.Minute
}

// Work deletes expired sessions and records the count.
func (w SessionCleanupWorker) Work(ctx context.Context, job *river.Job[SessionCleanupArgs]) error {
	if w.Store == nil {
		return fmt.Errorf("session store not configured")
	}

	start := time.Now()
	removed, err := w.Store.DeleteExpiredSessions(ctx)
	metrics.SessionCleanupDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SessionCleanupErrors.Inc()
		return fmt.Errorf("delete expired sessions: %w", err)
	}

	metrics.SessionsCleaned.Add(float64(removed))
	event := w.Logger.Debug()
	if removed > 0 {
		event = w.Logger.Info()
	}
	event.Int64("removed", removed).Int64("job_id", job.ID).Msg("expired sessions cleaned")
	return nil
}

// NewWorkers registers every worker the client runs.
func NewWorkers(store SessionCleaner, logger zerolog.Logger) *river.Workers {
	workers := river.NewWorkers()
	river.AddWorker[SessionCleanupArgs](workers, SessionCleanupWorker{
		Store:  store,
		Logger: logger.With().Str("job", JobKindSessionCleanup).Logger(),
	})
	return workers
}
