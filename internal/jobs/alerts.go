package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// AlertFunc is invoked for failures that will not be retried.
type AlertFunc func(ctx context.Context, job *rivertype.JobRow, err error)

// AlertingErrorHandler logs job failures. Failures with retries left are
// logged at warn; the final attempt is logged at error and forwarded to Notify.
type AlertingErrorHandler struct {
	Logger *slog.Logger
	Notify AlertFunc
}

// NewAlertingErrorHandler returns a River error handler. notify may be nil.
func NewAlertingErrorHandler(logger *slog.Logger, notify AlertFunc) *AlertingErrorHandler {
	return &AlertingErrorHandler{Logger: logger, Notify: notify}
}

// HandleError logs a failed attempt and alerts on the final one.
func (h *AlertingErrorHandler) HandleError(ctx context.Context, job *rivertype.JobRow, err error) *river.ErrorHandlerResult {
	h.report(ctx, job, err, "job failed")
	return nil
}

// HandlePanic treats a worker panic like a failed attempt.
func (h *AlertingErrorHandler) HandlePanic(ctx context.Context, job *rivertype.JobRow, panicVal any, trace string) *river.ErrorHandlerResult {
	h.report(ctx, job, fmt.Errorf("panic: %v", panicVal), "job panicked", "trace", trace)
	return nil
}

func (h *AlertingErrorHandler) report(ctx context.Context, job *rivertype.JobRow, err error, msg string, extra ...any) {
	final := job.Attempt >= job.MaxAttempts
	if h.Logger != nil {
		level := slog.LevelWarn
		if final {
			level = slog.LevelError
		}
		attrs := append([]any{
			"job_id", job.ID,
			"kind", job.Kind,
			"attempt", job.Attempt,
			"max_attempts", job.MaxAttempts,
			"error", err,
		}, extra...)
		h.Logger.Log(ctx, level, msg, attrs...)
	}
	if final && h.Notify != nil {
		h.Notify(ctx, job, err)
	}
}
