package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "app"

// Registry is the process-wide registry served on /metrics.
var Registry = prometheus.NewRegistry()

// AppInfo exposes build information as labels; the value is always 1.
var AppInfo = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "app_info",
		Help:      "Application version information (always set to 1, version info in labels)",
	},
	[]string{"version", "commit", "build_date"},
)

// Auth metrics
var (
	// AuthEvents counts auth protocol operations by outcome.
	AuthEvents = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_events_total",
			Help:      "Total number of authentication operations",
		},
		[]string{"event", "result"}, // result: success|failure
	)

	// AuthRateLimited counts requests rejected by the auth rate limiter.
	AuthRateLimited = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_rate_limited_total",
			Help:      "Total number of auth requests rejected by the rate limiter",
		},
		[]string{"path"},
	)

	// SessionLookups counts session resolutions by the source that answered.
	SessionLookups = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_lookups_total",
			Help:      "Total number of session lookups",
		},
		[]string{"source"}, // source: cookie_cache|store|none
	)
)

// Background job metrics
var (
	SessionsCleaned = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_cleaned_total",
			Help:      "Total number of expired sessions deleted by the cleanup job",
		},
	)

	SessionCleanupDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_cleanup_duration_seconds",
			Help:      "Duration of session cleanup job execution in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
	)

	SessionCleanupErrors = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_cleanup_errors_total",
			Help:      "Total number of session cleanup job failures",
		},
	)
)

// Init registers runtime collectors and records build information. Call once.
func Init(version, commit, buildDate string) {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	AppInfo.WithLabelValues(version, commit, buildDate).Set(1)
}
