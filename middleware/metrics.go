package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/viralclips/dispatch/job"
)

// meterName is the instrumentation scope name for dispatch metrics.
const meterName = "github.com/viralclips/dispatch"

// Metrics returns middleware that records per-run metrics using the global
// OTel MeterProvider. Without a configured provider the instruments are
// noops.
//
// Instruments:
//   - dispatch.job.duration (Float64Histogram): run time in seconds,
//     with attributes: job_type, status ("completed" or "failed")
//   - dispatch.job.runs (Int64Counter): total runs,
//     with attributes: job_type, status
func Metrics() Middleware {
	return MetricsWithMeter(otel.Meter(meterName))
}

// MetricsWithMeter returns metrics middleware using the provided meter.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// On error the OTel API returns noop instruments.
	duration, _ := meter.Float64Histogram( //nolint:errcheck // noop fallback
		"dispatch.job.duration",
		metric.WithDescription("Duration of worker runs in seconds"),
		metric.WithUnit("s"),
	)
	runs, _ := meter.Int64Counter( //nolint:errcheck // noop fallback
		"dispatch.job.runs",
		metric.WithDescription("Total number of worker runs"),
		metric.WithUnit("{run}"),
	)

	return func(ctx context.Context, j *job.Job, next Handler) job.Outcome {
		start := time.Now()
		out := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := job.StatusCompleted
		if out.Failed() {
			status = job.StatusFailed
		}

		attrs := metric.WithAttributes(
			attribute.String("job_type", j.Type),
			attribute.String("status", string(status)),
		)
		duration.Record(ctx, elapsed, attrs)
		runs.Add(ctx, 1, attrs)
		return out
	}
}
