package ext

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/viralclips/dispatch/job"
)

// entry pairs a hook with the name of the extension that provided it.
type entry[H any] struct {
	name string
	hook H
}

// collect appends e to list when e implements hook interface H.
func collect[H any](list *[]entry[H], e Extension) {
	if h, ok := e.(H); ok {
		*list = append(*list, entry[H]{name: e.Name(), hook: h})
	}
}

// Registry holds registered extensions and fans lifecycle events out to
// them. Hooks are sorted by interface at registration, so an emit only
// walks the extensions that care about it.
//
// Register is not safe for concurrent use with the emitters; register
// everything before the pool starts.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	created    []entry[JobCreated]
	rejected   []entry[JobRejected]
	started    []entry[JobStarted]
	progressed []entry[JobProgressed]
	completed  []entry[JobCompleted]
	failed     []entry[JobFailed]
	shutdown   []entry[Shutdown]
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds an extension. Extensions are notified in registration
// order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	collect(&r.created, e)
	collect(&r.rejected, e)
	collect(&r.started, e)
	collect(&r.progressed, e)
	collect(&r.completed, e)
	collect(&r.failed, e)
	collect(&r.shutdown, e)
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// notify calls fn for every entry. Errors and panics are logged against
// the extension and never reach the caller.
func notify[H any](r *Registry, hook string, list []entry[H], fn func(H) error) {
	for _, e := range list {
		if err := safeCall(e.hook, fn); err != nil {
			r.logger.Warn("extension hook error",
				slog.String("hook", hook),
				slog.String("extension", e.name),
				slog.String("error", err.Error()),
			)
		}
	}
}

func safeCall[H any](h H, fn func(H) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(h)
}

// ── Job event emitters ──────────────────────────────

// EmitJobCreated notifies JobCreated extensions.
func (r *Registry) EmitJobCreated(ctx context.Context, j *job.Job) {
	notify(r, "OnJobCreated", r.created, func(h JobCreated) error {
		return h.OnJobCreated(ctx, j)
	})
}

// EmitJobRejected notifies JobRejected extensions.
func (r *Registry) EmitJobRejected(ctx context.Context, jobType string, rejectErr error) {
	notify(r, "OnJobRejected", r.rejected, func(h JobRejected) error {
		return h.OnJobRejected(ctx, jobType, rejectErr)
	})
}

// EmitJobStarted notifies JobStarted extensions.
func (r *Registry) EmitJobStarted(ctx context.Context, j *job.Job) {
	notify(r, "OnJobStarted", r.started, func(h JobStarted) error {
		return h.OnJobStarted(ctx, j)
	})
}

// EmitJobProgressed notifies JobProgressed extensions.
func (r *Registry) EmitJobProgressed(ctx context.Context, j *job.Job, p job.Progress) {
	notify(r, "OnJobProgressed", r.progressed, func(h JobProgressed) error {
		return h.OnJobProgressed(ctx, j, p)
	})
}

// EmitJobCompleted notifies JobCompleted extensions.
func (r *Registry) EmitJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) {
	notify(r, "OnJobCompleted", r.completed, func(h JobCompleted) error {
		return h.OnJobCompleted(ctx, j, elapsed)
	})
}

// EmitJobFailed notifies JobFailed extensions.
func (r *Registry) EmitJobFailed(ctx context.Context, j *job.Job, jobErr error) {
	notify(r, "OnJobFailed", r.failed, func(h JobFailed) error {
		return h.OnJobFailed(ctx, j, jobErr)
	})
}

// EmitShutdown notifies Shutdown extensions.
func (r *Registry) EmitShutdown(ctx context.Context) {
	notify(r, "OnShutdown", r.shutdown, func(h Shutdown) error {
		return h.OnShutdown(ctx)
	})
}
