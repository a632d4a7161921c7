package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/viralclips/dispatch/job"
)

// tracerName is the instrumentation scope name for dispatch tracing.
const tracerName = "github.com/viralclips/dispatch"

// Tracing returns middleware that wraps each run in an OpenTelemetry span.
// If no TracerProvider is configured globally, the default noop tracer is used
// and this middleware becomes a pass-through.
//
// Span attributes: dispatch.job.id, dispatch.job.type, dispatch.payload_bytes.
// A failed outcome sets the span status to codes.Error.
func Tracing() Middleware {
	return TracingWithTracer(otel.Tracer(tracerName))
}

// TracingWithTracer returns tracing middleware using the provided tracer.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) job.Outcome {
		ctx, span := tracer.Start(ctx, "dispatch.job.run",
			trace.WithAttributes(
				attribute.String("dispatch.job.id", j.ID.String()),
				attribute.String("dispatch.job.type", j.Type),
				attribute.Int("dispatch.payload_bytes", len(j.Payload)),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		out := next(ctx)
		if out.Failed() {
			span.RecordError(out.Err)
			span.SetStatus(codes.Error, out.Err.Error())
		} else {
			span.SetAttributes(attribute.String("dispatch.job.result", out.Result.String()))
			span.SetStatus(codes.Ok, "")
		}
		return out
	}
}
