// Package ext defines the extension system for Dispatch.
// Extensions are notified of lifecycle events (job created, started,
// completed, failed, rejected) and can react to them.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package ext

import (
	"context"
	"time"

	"github.com/viralclips/dispatch/job"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Job lifecycle hooks
// ──────────────────────────────────────────────────

// JobCreated is called after a record is stored and its run is queued.
type JobCreated interface {
	OnJobCreated(ctx context.Context, j *job.Job) error
}

// JobRejected is called when dispatch refuses a request before any record
// exists (unknown type, bad payload, rate limit, full queue).
type JobRejected interface {
	OnJobRejected(ctx context.Context, jobType string, err error) error
}

// JobStarted is called after the record moved to in_progress.
type JobStarted interface {
	OnJobStarted(ctx context.Context, j *job.Job) error
}

// JobProgressed is called after a worker progress write was persisted.
type JobProgressed interface {
	OnJobProgressed(ctx context.Context, j *job.Job, p job.Progress) error
}

// JobCompleted is called after the terminal completed write.
type JobCompleted interface {
	OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error
}

// JobFailed is called after the terminal failed write.
type JobFailed interface {
	OnJobFailed(ctx context.Context, j *job.Job, err error) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
