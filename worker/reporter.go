package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/viralclips/dispatch"
	"github.com/viralclips/dispatch/ext"
	"github.com/viralclips/dispatch/id"
	"github.com/viralclips/dispatch/job"
)

// Compile-time interface check.
var _ job.Reporter = (*reporter)(nil)

// reporter is the progress side-channel handed to a running worker.
//
// Writes hold the read lock for their whole store round-trip; seal takes
// the write lock. After seal returns no progress write is in flight and
// none will start, so the runner's terminal write is the last write to
// the record.
type reporter struct {
	mu     sync.RWMutex
	sealed bool

	jobID      id.JobID
	store      job.Store
	extensions *ext.Registry
	logger     *slog.Logger
	now        func() time.Time

	snapMu sync.Mutex
	snap   job.Job
}

func newReporter(s job.Store, extensions *ext.Registry, logger *slog.Logger, now func() time.Time, j job.Job) *reporter {
	return &reporter{
		jobID:      j.ID,
		store:      s,
		extensions: extensions,
		logger:     logger,
		now:        now,
		snap:       j,
	}
}

// Report persists p. Terminal and queued statuses are refused, as is any
// write once the worker's Run has returned.
func (r *reporter) Report(ctx context.Context, p job.Progress) error {
	jobID := r.jobID
	if p.Status == job.StatusQueued || p.Status.IsTerminal() {
		return fmt.Errorf("dispatch/worker: report %s: status %q is reserved: %w",
			jobID, p.Status, dispatch.ErrInvalidTransition)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.sealed {
		return fmt.Errorf("dispatch/worker: report %s: %w", jobID, dispatch.ErrReporterSealed)
	}

	patch := p.Patch()
	if patch.IsEmpty() {
		return nil
	}
	if err := r.store.UpdateJob(ctx, jobID, patch); err != nil {
		r.logger.Warn("progress write failed",
			slog.String("job_id", jobID.String()),
			slog.String("status", string(p.Status)),
			slog.String("progress", p.Progress),
			slog.String("error", err.Error()),
		)
		return err
	}

	r.snapMu.Lock()
	r.snap.Apply(patch, r.now())
	snap := r.snap
	r.snapMu.Unlock()

	r.extensions.EmitJobProgressed(ctx, &snap, p)
	return nil
}

// seal waits for in-flight writes and rejects every later one.
func (r *reporter) seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// snapshot returns the record as last written through this reporter.
func (r *reporter) snapshot() job.Job {
	r.snapMu.Lock()
	defer r.snapMu.Unlock()
	return r.snap
}
