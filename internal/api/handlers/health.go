package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tuansdf/react-start-template/internal/storage/postgres"
)

const (
	checkPass = "pass"
	checkWarn = "warn"
	checkFail = "fail"
)

// Health answers liveness probes with a plain "OK". It never touches the
// database or the session.
func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// ReadinessReport is the JSON body of the readiness endpoint.
type ReadinessReport struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// CheckResult is the outcome of one readiness check. Status is pass, warn
// or fail; Details carries check-specific data such as pool statistics.
type CheckResult struct {
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	LatencyMs int64          `json:"latency_ms"`
	Details   map[string]any `json:"details,omitempty"`
}

// poolStatter is satisfied by *pgxpool.Pool.
type poolStatter interface {
	Stat() *pgxpool.Stat
}

// ReadinessChecker reports whether the database, the schema and the job
// queue are usable.
type ReadinessChecker struct {
	db          postgres.RowQuerier
	jobsEnabled bool
	version     string
	gitCommit   string
	timeout     time.Duration
}

// NewReadinessChecker builds the /api/ready checker. db may be nil, which
// reports the database as not initialized.
func NewReadinessChecker(db postgres.RowQuerier, jobsEnabled bool, version, gitCommit string) *ReadinessChecker {
	return &ReadinessChecker{
		db:          db,
		jobsEnabled: jobsEnabled,
		version:     version,
		gitCommit:   gitCommit,
		timeout:     2 * time.Second,
	}
}

// Ready responds 200 when no check fails and 503 otherwise. A warning
// degrades the status but keeps 200.
func (c *ReadinessChecker) Ready(w http.ResponseWriter, r *http.Request) {
	report := c.Check(r.Context())

	status := http.StatusOK
	if report.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(report)
}

// Check runs the database check, then the migration and job queue checks
// when the database answered. Each check shares the checker timeout.
func (c *ReadinessChecker) Check(ctx context.Context) ReadinessReport {
	checks := map[string]CheckResult{
		"database": c.checkDatabase(ctx),
	}
	if checks["database"].Status == checkPass {
		checks["migrations"] = c.checkMigrations(ctx)
		checks["job_queue"] = c.checkJobQueue(ctx)
	}

	overall := "healthy"
	for _, check := range checks {
		if check.Status == checkFail {
			overall = "unhealthy"
			break
		}
		if check.Status == checkWarn {
			overall = "degraded"
		}
	}

	return ReadinessReport{
		Status:    overall,
		Version:   c.version,
		GitCommit: c.gitCommit,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func (c *ReadinessChecker) checkDatabase(ctx context.Context) CheckResult {
	if c.db == nil {
		return CheckResult{Status: checkFail, Message: "Database pool not initialized"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	var one int
	err := c.db.QueryRow(ctx, "SELECT 1").Scan(&one)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return CheckResult{
			Status:    checkFail,
			Message:   databaseFailure(ctx, err),
			LatencyMs: latency,
			Details:   map[string]any{"error": err.Error()},
		}
	}

	result := CheckResult{Status: checkPass, Message: "PostgreSQL connection successful", LatencyMs: latency}
	if statter, ok := c.db.(poolStatter); ok {
		stats := statter.Stat()
		result.Details = map[string]any{
			"max_connections":      stats.MaxConns(),
			"total_connections":    stats.TotalConns(),
			"idle_connections":     stats.IdleConns(),
			"acquired_connections": stats.AcquiredConns(),
		}
	}
	return result
}

func databaseFailure(ctx context.Context, err error) string {
	msg := err.Error()
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return "Database query timed out"
	case strings.Contains(msg, "connection refused"):
		return "Database connection refused"
	case strings.Contains(msg, "no such host"):
		return "Cannot reach database host"
	case strings.Contains(msg, "authentication failed"):
		return "Database authentication failed"
	default:
		return "Database query failed"
	}
}

func (c *ReadinessChecker) checkMigrations(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	var (
		version int64
		dirty   bool
	)
	err := c.db.QueryRow(ctx, `SELECT version, dirty FROM schema_migrations LIMIT 1`).Scan(&version, &dirty)
	latency := time.Since(start).Milliseconds()

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return CheckResult{Status: checkFail, Message: "No migrations applied", LatencyMs: latency}
	case err != nil:
		return CheckResult{
			Status:    checkFail,
			Message:   "Failed to query migration version",
			LatencyMs: latency,
			Details:   map[string]any{"error": err.Error()},
		}
	case dirty:
		return CheckResult{
			Status:    checkFail,
			Message:   "Database in dirty migration state",
			LatencyMs: latency,
			Details:   map[string]any{"version": version, "dirty": true},
		}
	}
	return CheckResult{
		Status:    checkPass,
		Message:   fmt.Sprintf("Migrations applied (version %d)", version),
		LatencyMs: latency,
		Details:   map[string]any{"version": version, "dirty": false},
	}
}

func (c *ReadinessChecker) checkJobQueue(ctx context.Context) CheckResult {
	if !c.jobsEnabled {
		return CheckResult{Status: checkPass, Message: "Background jobs disabled"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	var exists bool
	err := c.db.QueryRow(ctx, `SELECT to_regclass('river_job') IS NOT NULL`).Scan(&exists)
	if err != nil {
		return CheckResult{
			Status:    checkFail,
			Message:   "Failed to check job queue table",
			LatencyMs: time.Since(start).Milliseconds(),
			Details:   map[string]any{"error": err.Error()},
		}
	}
	if !exists {
		return CheckResult{
			Status:    checkWarn,
			Message:   "River job table not found",
			LatencyMs: time.Since(start).Milliseconds(),
		}
	}

	var active int64
	err = c.db.QueryRow(ctx, `SELECT count(*) FROM river_job WHERE state = ANY($1)`, []string{"available", "running"}).Scan(&active)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return CheckResult{
			Status:    checkFail,
			Message:   "Failed to query job queue",
			LatencyMs: latency,
			Details:   map[string]any{"error": err.Error()},
		}
	}
	return CheckResult{
		Status:    checkPass,
		Message:   "River job queue operational",
		LatencyMs: latency,
		Details:   map[string]any{"active_jobs": active},
	}
}
