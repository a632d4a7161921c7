package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher) error

// Storer is the minimal store interface held by the Dispatcher. It covers
// lifecycle operations only; the job.Store half is used by the engine
// layer, which sits above this package and so can import job.
type Storer interface {
	Ping(ctx context.Context) error
	Close() error
}

// poolRunner is an internal interface for worker pool lifecycle.
type poolRunner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// extensionEmitter is an internal interface for extension lifecycle events.
type extensionEmitter interface {
	EmitShutdown(ctx context.Context)
}

// Dispatcher owns the lifecycle of the store handle and the worker pool.
//
// Create one with New() and functional options, then hand it to
// engine.Build which wires the registry, runner and pool into it.
type Dispatcher struct {
	config     Config
	logger     *slog.Logger
	store      Storer
	extensions extensionEmitter
	pool       poolRunner

	started bool
}

// New creates a new Dispatcher with the given options.
func New(opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Logger returns the dispatcher's logger.
func (d *Dispatcher) Logger() *slog.Logger { return d.logger }

// Store returns the dispatcher's store.
func (d *Dispatcher) Store() Storer { return d.store }

// Config returns a copy of the dispatcher's configuration.
func (d *Dispatcher) Config() Config { return d.config }

// SetPool sets the worker pool (called by the engine package).
func (d *Dispatcher) SetPool(p poolRunner) { d.pool = p }

// SetExtensions sets the extension emitter (called by the engine package).
func (d *Dispatcher) SetExtensions(e extensionEmitter) { d.extensions = e }

// Start verifies the store is reachable and starts the worker pool.
func (d *Dispatcher) Start(ctx context.Context) error {
	if d.store == nil || d.pool == nil {
		return ErrNoStore
	}
	if err := d.store.Ping(ctx); err != nil {
		return Unavailable("dispatch: start", err)
	}
	if err := d.pool.Start(ctx); err != nil {
		return err
	}
	d.started = true
	return nil
}

// Stop drains the worker pool, emits shutdown to extensions and closes the
// store. Running jobs are waited for until ShutdownTimeout or ctx expires.
func (d *Dispatcher) Stop(ctx context.Context) error {
	var errs []error
	if d.pool != nil && d.started {
		stopCtx, cancel := ctx, context.CancelFunc(func() {})
		if d.config.ShutdownTimeout > 0 {
			stopCtx, cancel = context.WithTimeout(ctx, d.config.ShutdownTimeout)
		}
		if err := d.pool.Stop(stopCtx); err != nil {
			d.logger.Error("pool stop error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		cancel()
		d.started = false
	}
	if d.extensions != nil {
		d.extensions.EmitShutdown(ctx)
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithConcurrency sets the number of jobs executed concurrently.
func WithConcurrency(n int) Option {
	return func(d *Dispatcher) error {
		if n < 1 {
			return errors.New("dispatch: concurrency must be at least 1")
		}
		d.config.Concurrency = n
		return nil
	}
}

// WithQueueCapacity sets how many admitted jobs may wait for a worker.
func WithQueueCapacity(n int) Option {
	return func(d *Dispatcher) error {
		if n < 1 {
			return errors.New("dispatch: queue capacity must be at least 1")
		}
		d.config.QueueCapacity = n
		return nil
	}
}

// WithShutdownTimeout bounds how long Stop waits for running jobs.
func WithShutdownTimeout(t time.Duration) Option {
	return func(d *Dispatcher) error {
		d.config.ShutdownTimeout = t
		return nil
	}
}

// WithConfig replaces the whole configuration.
func WithConfig(c Config) Option {
	return func(d *Dispatcher) error {
		d.config = c
		return nil
	}
}

// WithLogger sets the structured logger for the dispatcher.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) error {
		d.logger = l
		return nil
	}
}

// WithStore sets the persistence backend for the dispatcher. The store
// is typically a store.Store, which also satisfies job.Store.
func WithStore(s Storer) Option {
	return func(d *Dispatcher) error {
		d.store = s
		return nil
	}
}
