package middleware

import (
	"context"

	"github.com/viralclips/dispatch/job"
)

// Handler is the terminal function that runs the worker.
type Handler func(ctx context.Context) job.Outcome

// Middleware wraps a Handler with cross-cutting logic.
// It receives the current context, the record being run (as it was when
// the run started) and the next handler to call.
type Middleware func(ctx context.Context, j *job.Job, next Handler) job.Outcome

// Chain composes multiple middleware into a single Middleware.
// Middleware are applied right-to-left: the first middleware in the
// list is the outermost wrapper.
//
// Example: Chain(logging, tracing, recover) executes as:
//
//	logging → tracing → recover → worker
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) job.Outcome {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) job.Outcome {
				return mw(ctx, j, prev)
			}
		}
		return h(ctx)
	}
}
