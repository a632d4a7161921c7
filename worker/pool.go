package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/viralclips/dispatch"
	"github.com/viralclips/dispatch/id"
	"github.com/viralclips/dispatch/job"
)

// task is one created record waiting for a goroutine.
type task struct {
	ctx context.Context
	job *job.Job
	// done runs after the job reached a terminal state.
	done func()
}

// Pool runs jobs on a fixed number of goroutines fed by a bounded queue.
//
// Admission never blocks: Reserve takes one of QueueCapacity slots or
// fails with dispatch.ErrQueueFull. A slot is returned when a goroutine
// picks the task up, or by Unreserve when the caller could not create
// the record.
type Pool struct {
	runner      *Runner
	concurrency int
	capacity    int
	workerID    id.WorkerID
	logger      *slog.Logger

	slots *semaphore.Weighted
	tasks chan task

	mu      sync.Mutex
	running bool
	stopped bool
	wg      sync.WaitGroup
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolConcurrency sets the number of goroutines running jobs.
func WithPoolConcurrency(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithQueueCapacity sets how many jobs may wait for a goroutine.
func WithQueueCapacity(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.capacity = n
		}
	}
}

// NewPool creates a worker pool around runner.
func NewPool(runner *Runner, logger *slog.Logger, opts ...PoolOption) *Pool {
	def := dispatch.DefaultConfig()
	p := &Pool{
		runner:      runner,
		concurrency: def.Concurrency,
		capacity:    def.QueueCapacity,
		workerID:    id.NewWorkerID(),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.slots = semaphore.NewWeighted(int64(p.capacity))
	p.tasks = make(chan task, p.capacity)
	return p
}

// WorkerID returns the pool's unique worker identifier.
func (p *Pool) WorkerID() id.WorkerID { return p.workerID }

// Start launches the goroutines. It returns immediately. A stopped pool
// cannot be restarted.
func (p *Pool) Start(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return dispatch.ErrPoolStopped
	}
	if p.running {
		return nil
	}
	p.running = true

	p.logger.Info("worker pool starting",
		slog.String("worker_id", p.workerID.String()),
		slog.Int("concurrency", p.concurrency),
		slog.Int("queue_capacity", p.capacity),
	)

	for range p.concurrency {
		p.wg.Add(1)
		go p.loop()
	}
	return nil
}

// Reserve takes a queue slot for one job without blocking.
func (p *Pool) Reserve() error {
	p.mu.Lock()
	accepting := p.running && !p.stopped
	p.mu.Unlock()
	if !accepting {
		return dispatch.ErrPoolStopped
	}
	if !p.slots.TryAcquire(1) {
		return fmt.Errorf("dispatch/worker: %d jobs waiting: %w", p.capacity, dispatch.ErrQueueFull)
	}
	return nil
}

// Unreserve returns a slot taken by Reserve that will not be submitted.
func (p *Pool) Unreserve() { p.slots.Release(1) }

// Submit queues a created record on a slot taken by Reserve. The job runs
// under a context detached from ctx's cancellation, so it outlives the
// request that created it. done, if non-nil, runs once the job is
// terminal. If the pool stopped since Reserve, the slot is returned and
// Submit fails with dispatch.ErrPoolStopped.
func (p *Pool) Submit(ctx context.Context, j *job.Job, done func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		p.slots.Release(1)
		return dispatch.ErrPoolStopped
	}
	// Never blocks: at most capacity slots are held and the channel has
	// room for capacity tasks.
	p.tasks <- task{ctx: context.WithoutCancel(ctx), job: j, done: done}
	return nil
}

// Stop stops accepting jobs, lets the goroutines drain the queue and waits
// for them until ctx is done. Running jobs are never cancelled; if ctx
// expires first Stop returns ctx.Err() and the jobs keep running.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	wasRunning := p.running
	p.running = false
	close(p.tasks)
	p.mu.Unlock()

	if !wasRunning {
		return nil
	}

	p.logger.Info("worker pool stopping", slog.String("worker_id", p.workerID.String()))

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully")
		return nil
	case <-ctx.Done():
		p.logger.Warn("worker pool shutdown timed out, jobs still running",
			slog.String("worker_id", p.workerID.String()),
		)
		return ctx.Err()
	}
}

// loop is run by each goroutine until the queue is closed and drained.
func (p *Pool) loop() {
	defer p.wg.Done()

	for t := range p.tasks {
		p.slots.Release(1)
		p.runner.Run(t.ctx, t.job)
		if t.done != nil {
			t.done()
		}
	}
}
