package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/viralclips/dispatch/ext"
	"github.com/viralclips/dispatch/job"
	"github.com/viralclips/dispatch/middleware"
)

// Runner drives one job record through its state machine:
//
//	queued → in_progress → completed | failed
//
// It invokes the registered worker through the middleware chain, seals the
// worker's progress reporter once the worker returns and then makes exactly
// one terminal write.
type Runner struct {
	registry   *job.Registry
	extensions *ext.Registry
	store      job.Store
	mw         middleware.Middleware
	logger     *slog.Logger
	now        func() time.Time
}

// NewRunner creates a Runner. Panic recovery is always installed as the
// innermost middleware, so mws observe a panic as a failed outcome.
func NewRunner(
	registry *job.Registry,
	extensions *ext.Registry,
	store job.Store,
	logger *slog.Logger,
	mws ...middleware.Middleware,
) *Runner {
	chain := make([]middleware.Middleware, 0, len(mws)+1)
	chain = append(chain, mws...)
	chain = append(chain, middleware.Recover(logger))

	return &Runner{
		registry:   registry,
		extensions: extensions,
		store:      store,
		mw:         middleware.Chain(chain...),
		logger:     logger,
		now:        time.Now,
	}
}

// Run executes the job j, which must be a freshly created queued record.
// Every outcome ends up in the store; Run itself has nothing to return.
func (r *Runner) Run(ctx context.Context, j *job.Job) {
	w, ok := r.registry.Lookup(j.Type)
	if !ok {
		r.abort(ctx, j, fmt.Errorf("no worker registered for job_type %q", j.Type))
		return
	}

	start := r.now()
	if err := r.store.UpdateJob(ctx, j.ID, job.StartPatch()); err != nil {
		r.logger.Error("failed to mark job in progress",
			slog.String("job_id", j.ID.String()),
			slog.String("job_type", j.Type),
			slog.String("error", err.Error()),
		)
		r.abort(ctx, j, fmt.Errorf("start job: %w", err))
		return
	}

	running := *j
	running.Apply(job.StartPatch(), start)
	r.extensions.EmitJobStarted(ctx, &running)

	rep := newReporter(r.store, r.extensions, r.logger, r.now, running)
	out := r.mw(ctx, &running, func(ctx context.Context) job.Outcome {
		return w.Run(ctx, running.ID, running.Payload, rep)
	})
	rep.seal()

	final := rep.snapshot()
	if out.Failed() {
		r.finish(ctx, &final, job.FailPatch(out.Err.Error()))
		r.extensions.EmitJobFailed(ctx, &final, out.Err)
		return
	}

	r.finish(ctx, &final, job.CompletePatch(out.Result))
	r.extensions.EmitJobCompleted(ctx, &final, r.now().Sub(start))
}

// abort records a job that never reached its worker.
func (r *Runner) abort(ctx context.Context, j *job.Job, cause error) {
	final := *j
	r.finish(ctx, &final, job.FailPatch(cause.Error()))
	r.extensions.EmitJobFailed(ctx, &final, cause)
}

// finish makes the single terminal write and applies it to j. A failed
// write is logged; the record then keeps its last persisted state until
// it expires.
func (r *Runner) finish(ctx context.Context, j *job.Job, p job.Patch) {
	if err := r.store.UpdateJob(ctx, j.ID, p); err != nil {
		r.logger.Error("failed to write terminal job state",
			slog.String("job_id", j.ID.String()),
			slog.String("job_type", j.Type),
			slog.String("status", string(*p.Status)),
			slog.String("error", err.Error()),
		)
	}
	j.Apply(p, r.now())
}
