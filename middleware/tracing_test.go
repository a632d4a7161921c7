package middleware_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/viralclips/dispatch/id"
	"github.com/viralclips/dispatch/job"
	mw "github.com/viralclips/dispatch/middleware"
)

func newTestJob() *job.Job {
	return &job.Job{
		ID:      id.NewJobID(),
		Type:    "download_video",
		Payload: []byte(`{"url":"https://youtu.be/x"}`),
		Status:  job.StatusQueued,
	}
}

// traceRun runs h through the tracing middleware and returns the single
// ended span.
func traceRun(t *testing.T, j *job.Job, h mw.Handler) (sdktrace.ReadOnlySpan, job.Outcome) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	out := mw.TracingWithTracer(tp.Tracer("test"))(context.Background(), j, h)

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	return spans[0], out
}

func spanAttr(s sdktrace.ReadOnlySpan, key string) (string, bool) {
	for _, a := range s.Attributes() {
		if string(a.Key) == key {
			return a.Value.Emit(), true
		}
	}
	return "", false
}

func TestTracing_Span(t *testing.T) {
	tests := []struct {
		name     string
		handler  mw.Handler
		code     codes.Code
		desc     string
		result   string
		hasError bool
	}{
		{name: "success", handler: ok, code: codes.Ok, result: "success"},
		{name: "default result", handler: func(context.Context) job.Outcome {
			return job.Success(job.Result{FilePath: "downloads/x.mp4"})
		}, code: codes.Ok, result: "completed"},
		{name: "failure", handler: failing, code: codes.Error, desc: "yt-dlp exited 1", hasError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := newTestJob()
			span, _ := traceRun(t, j, tt.handler)

			if span.Name() != "dispatch.job.run" {
				t.Errorf("name = %q", span.Name())
			}
			if span.Status().Code != tt.code || span.Status().Description != tt.desc {
				t.Errorf("status = %v/%q, want %v/%q", span.Status().Code, span.Status().Description, tt.code, tt.desc)
			}
			want := map[string]string{
				"dispatch.job.id":        j.ID.String(),
				"dispatch.job.type":      "download_video",
				"dispatch.payload_bytes": "28",
			}
			for k, v := range want {
				if got, _ := spanAttr(span, k); got != v {
					t.Errorf("%s = %q, want %q", k, got, v)
				}
			}
			got, has := spanAttr(span, "dispatch.job.result")
			if tt.hasError {
				if has {
					t.Errorf("failed run carries result %q", got)
				}
			} else if got != tt.result {
				t.Errorf("result = %q, want %q", got, tt.result)
			}

			recorded := false
			for _, ev := range span.Events() {
				recorded = recorded || ev.Name == "exception"
			}
			if recorded != tt.hasError {
				t.Errorf("exception event recorded = %v, want %v", recorded, tt.hasError)
			}
		})
	}
}

func TestTracing_FailurePassesThrough(t *testing.T) {
	cause := errors.New("unsupported url")
	_, out := traceRun(t, newTestJob(), func(context.Context) job.Outcome { return job.Failure(cause) })
	if !errors.Is(out.Err, cause) {
		t.Fatalf("err = %v, want %v", out.Err, cause)
	}
}

func TestTracing_WorkerSeesSpan(t *testing.T) {
	var inner trace.SpanContext
	span, _ := traceRun(t, newTestJob(), func(ctx context.Context) job.Outcome {
		inner = trace.SpanFromContext(ctx).SpanContext()
		return job.Success(job.Result{})
	})
	if !inner.IsValid() || inner.SpanID() != span.SpanContext().SpanID() {
		t.Errorf("worker span %v, want %v", inner.SpanID(), span.SpanContext().SpanID())
	}
}

func TestTracing_DefaultNoopSafe(t *testing.T) {
	called := false
	out := mw.Tracing()(context.Background(), newTestJob(), func(context.Context) job.Outcome {
		called = true
		return job.Success(job.Result{})
	})
	if out.Failed() || !called {
		t.Fatalf("called=%v out=%+v", called, out)
	}
}
