package middleware_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/viralclips/dispatch/id"
	"github.com/viralclips/dispatch/job"
	"github.com/viralclips/dispatch/middleware"
)

func ok(_ context.Context) job.Outcome { return job.Success(job.Result{Status: "success"}) }

func TestChain_ExecutionOrder(t *testing.T) {
	var order []string

	mw1 := func(ctx context.Context, _ *job.Job, next middleware.Handler) job.Outcome {
		order = append(order, "mw1-before")
		out := next(ctx)
		order = append(order, "mw1-after")
		return out
	}
	mw2 := func(ctx context.Context, _ *job.Job, next middleware.Handler) job.Outcome {
		order = append(order, "mw2-before")
		out := next(ctx)
		order = append(order, "mw2-after")
		return out
	}

	chain := middleware.Chain(mw1, mw2)
	j := &job.Job{Type: "test", ID: id.NewJobID()}

	out := chain(context.Background(), j, func(_ context.Context) job.Outcome {
		order = append(order, "worker")
		return job.Success(job.Result{})
	})
	if out.Failed() {
		t.Fatalf("unexpected failure: %v", out.Err)
	}

	expected := []string{"mw1-before", "mw2-before", "worker", "mw2-after", "mw1-after"}
	if len(order) != len(expected) {
		t.Fatalf("expected %d calls, got %d: %v", len(expected), len(order), order)
	}
	for i, want := range expected {
		if order[i] != want {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want)
		}
	}
}

func TestChain_Empty(t *testing.T) {
	chain := middleware.Chain()
	called := false

	out := chain(context.Background(), &job.Job{ID: id.NewJobID()}, func(_ context.Context) job.Outcome {
		called = true
		return job.Success(job.Result{})
	})
	if out.Failed() {
		t.Fatalf("unexpected failure: %v", out.Err)
	}
	if !called {
		t.Fatal("worker not called with empty chain")
	}
}

func TestChain_PropagatesFailure(t *testing.T) {
	pass := func(ctx context.Context, _ *job.Job, next middleware.Handler) job.Outcome {
		return next(ctx)
	}
	want := errors.New("worker error")

	out := middleware.Chain(pass)(context.Background(), &job.Job{ID: id.NewJobID()}, func(_ context.Context) job.Outcome {
		return job.Failure(want)
	})
	if !errors.Is(out.Err, want) {
		t.Fatalf("expected %v, got %v", want, out.Err)
	}
}

func TestChain_ShortCircuit(t *testing.T) {
	blocked := errors.New("blocked")
	stop := func(_ context.Context, _ *job.Job, _ middleware.Handler) job.Outcome {
		return job.Failure(blocked)
	}

	called := false
	out := middleware.Chain(stop)(context.Background(), &job.Job{ID: id.NewJobID()}, func(_ context.Context) job.Outcome {
		called = true
		return job.Success(job.Result{})
	})
	if called {
		t.Fatal("worker must not run after short-circuit")
	}
	if !errors.Is(out.Err, blocked) {
		t.Fatalf("expected %v, got %v", blocked, out.Err)
	}
}

func TestRecover_CatchesPanic(t *testing.T) {
	mw := middleware.Recover(slog.Default())
	j := &job.Job{Type: "panicky", ID: id.NewJobID()}

	out := mw(context.Background(), j, func(_ context.Context) job.Outcome {
		panic("test panic")
	})
	if !out.Failed() {
		t.Fatal("expected failure from panic recovery")
	}
	if got := out.Err.Error(); got != "panic in panicky worker: test panic" {
		t.Errorf("unexpected error message: %q", got)
	}
}

func TestRecover_PassesThrough(t *testing.T) {
	mw := middleware.Recover(slog.Default())
	j := &job.Job{Type: "normal", ID: id.NewJobID()}

	out := mw(context.Background(), j, ok)
	if out.Failed() {
		t.Fatalf("unexpected failure: %v", out.Err)
	}
	if out.Result.Status != "success" {
		t.Errorf("Result.Status = %q, want success", out.Result.Status)
	}
}

func TestLogging_Outcomes(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	mw := middleware.Logging(logger)
	j := &job.Job{Type: "log-test", ID: id.NewJobID()}

	if out := mw(context.Background(), j, ok); out.Failed() {
		t.Fatalf("unexpected failure: %v", out.Err)
	}

	want := errors.New("fail")
	out := mw(context.Background(), j, func(_ context.Context) job.Outcome { return job.Failure(want) })
	if !errors.Is(out.Err, want) {
		t.Fatalf("expected %v, got %v", want, out.Err)
	}

	_ = mw(context.Background(), j, func(_ context.Context) job.Outcome {
		return job.Success(job.Result{Status: "success", FilePath: "downloads/a.mp4"})
	})

	logs := buf.String()
	for _, s := range []string{"job started", "job completed", "job failed", "job_type=log-test", j.ID.String(), "file_path=downloads/a.mp4"} {
		if !strings.Contains(logs, s) {
			t.Errorf("log output missing %q", s)
		}
	}
}
