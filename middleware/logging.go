package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/viralclips/dispatch/job"
)

// Logging returns middleware that logs the start and outcome of each run.
// Every line carries job_id and job_type.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) job.Outcome {
		log := logger.With(
			slog.String("job_id", j.ID.String()),
			slog.String("job_type", j.Type),
		)
		log.InfoContext(ctx, "job started", slog.Int("payload_bytes", len(j.Payload)))

		start := time.Now()
		out := next(ctx)
		elapsed := slog.Duration("elapsed", time.Since(start))

		switch {
		case out.Failed():
			log.ErrorContext(ctx, "job failed", elapsed, slog.String("error", out.Err.Error()))
		case out.Result.FilePath != "":
			log.InfoContext(ctx, "job completed", elapsed,
				slog.String("result", out.Result.String()),
				slog.String("file_path", out.Result.FilePath),
			)
		default:
			log.InfoContext(ctx, "job completed", elapsed, slog.String("result", out.Result.String()))
		}
		return out
	}
}
