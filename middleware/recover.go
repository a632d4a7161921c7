package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/viralclips/dispatch/job"
)

// Recover returns middleware that recovers from panics in the worker.
// A panic becomes a failed outcome and is logged with a stack trace, so a
// single job can never take the process down.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) (out job.Outcome) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("worker panicked",
					slog.String("job_type", j.Type),
					slog.String("job_id", j.ID.String()),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
				out = job.Failure(fmt.Errorf("panic in %s worker: %v", j.Type, r))
			}
		}()
		return next(ctx)
	}
}
