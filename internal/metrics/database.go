package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DBPoolConnections reports pool connections by state (acquired, idle, total, max).
	DBPoolConnections = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_pool_connections",
			Help:      "Database pool connections by state",
		},
		[]string{"state"},
	)

	// DBPoolAcquires mirrors the pool's cumulative acquire counters.
	DBPoolAcquires = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_pool_acquires",
			Help:      "Cumulative pool acquires; kind=empty counts acquires that had to wait for a connection",
		},
		[]string{"kind"},
	)
)

type poolSnapshot struct {
	acquired, idle, total, max int32
	acquires, emptyAcquires    int64
}

// DBCollector samples pool statistics into gauges until stopped.
type DBCollector struct {
	sample func() (poolSnapshot, bool)
	stop   chan struct{}
	once   sync.Once
}

// NewDBCollector samples pool. A nil pool makes collection a no-op.
func NewDBCollector(pool *pgxpool.Pool) *DBCollector {
	c := &DBCollector{stop: make(chan struct{})}
	c.sample = func() (poolSnapshot, bool) {
		if pool == nil {
			return poolSnapshot{}, false
		}
		s := pool.Stat()
		return poolSnapshot{
			acquired:      s.AcquiredConns(),
			idle:          s.IdleConns(),
			total:         s.TotalConns(),
			max:           s.MaxConns(),
			acquires:      s.AcquireCount(),
			emptyAcquires: s.EmptyAcquireCount(),
		}, true
	}
	return c
}

// Start samples once immediately, then every interval, until ctx is done or
// Stop is called.
func (c *DBCollector) Start(ctx context.Context, interval time.Duration) {
	c.collect()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

// Stop is safe to call more than once.
func (c *DBCollector) Stop() {
	c.once.Do(func() { close(c.stop) })
}

func (c *DBCollector) collect() {
	snap, ok := c.sample()
	if !ok {
		return
	}
	DBPoolConnections.WithLabelValues("acquired").Set(float64(snap.acquired))
	DBPoolConnections.WithLabelValues("idle").Set(float64(snap.idle))
	DBPoolConnections.WithLabelValues("total").Set(float64(snap.total))
	DBPoolConnections.WithLabelValues("max").Set(float64(snap.max))
	DBPoolAcquires.WithLabelValues("all").Set(float64(snap.acquires))
	DBPoolAcquires.WithLabelValues("empty").Set(float64(snap.emptyAcquires))
}
