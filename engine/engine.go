// Package engine wires the Dispatch subsystems together. It creates the
// extension registry, middleware chain, runner and worker pool around an
// immutable job registry, and provides the Dispatch/Get operations.
//
// This package exists to break the import cycle: the root dispatch package
// defines the error taxonomy and Dispatcher lifecycle (imported by job,
// worker, etc.) and so cannot import those packages back. The engine
// package sits above all subsystem packages and below the application
// layer.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/viralclips/dispatch"
	"github.com/viralclips/dispatch/ext"
	"github.com/viralclips/dispatch/id"
	"github.com/viralclips/dispatch/job"
	mw "github.com/viralclips/dispatch/middleware"
	"github.com/viralclips/dispatch/observability"
	"github.com/viralclips/dispatch/queue"
	"github.com/viralclips/dispatch/worker"
)

// instrumentationName is the OTel scope used by the engine.
const instrumentationName = "github.com/viralclips/dispatch"

// Engine wraps a Dispatcher with typed subsystem access.
// Use Build() to create one from a Dispatcher.
type Engine struct {
	d          *dispatch.Dispatcher
	extensions *ext.Registry
	registry   *job.Registry
	jobStore   job.Store
	runner     *worker.Runner
	pool       *worker.Pool
	mws        []mw.Middleware
	logger     *slog.Logger
	tracer     trace.Tracer

	// Queue subsystem.
	queueConfigs []queue.Config
	queueManager *queue.Manager

	// Prometheus lifecycle metrics.
	metrics         *observability.MetricsExtension
	promRegisterer  prometheus.Registerer
	promGatherer    prometheus.Gatherer
	disableInternal bool

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures an Engine.
type Option func(*Engine)

// WithExtension registers an extension with the engine.
func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) {
		eng.extensions.Register(e)
	}
}

// WithMiddleware adds middleware to the engine's chain. It runs inside the
// built-in tracing, metrics and logging middleware.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) {
		eng.mws = append(eng.mws, m)
	}
}

// WithQueueConfig registers per-job-type admission limits. Types not
// listed have no limits beyond the pool's queue capacity.
func WithQueueConfig(configs ...queue.Config) Option {
	return func(eng *Engine) {
		eng.queueConfigs = append(eng.queueConfigs, configs...)
	}
}

// WithTracerProvider sets a custom OTel TracerProvider for the engine.
// If not set, the global otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) {
		eng.tracerProvider = tp
	}
}

// WithMeterProvider sets a custom OTel MeterProvider for the metrics
// middleware. If not set, the global otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) {
		eng.meterProvider = mp
	}
}

// WithPrometheus registers the lifecycle metrics with reg and serves them
// from g. By default a private registry is used.
func WithPrometheus(reg prometheus.Registerer, g prometheus.Gatherer) Option {
	return func(eng *Engine) {
		eng.promRegisterer = reg
		eng.promGatherer = g
	}
}

// WithoutDefaultMiddleware drops the built-in tracing, metrics and
// logging middleware. Panic recovery is always kept.
func WithoutDefaultMiddleware() Option {
	return func(eng *Engine) {
		eng.disableInternal = true
	}
}

// Build creates an Engine from an existing Dispatcher and a built
// registry. The Dispatcher's store must implement job.Store.
func Build(d *dispatch.Dispatcher, registry *job.Registry, opts ...Option) (*Engine, error) {
	logger := d.Logger()
	store := d.Store()

	if store == nil {
		return nil, dispatch.ErrNoStore
	}
	if registry == nil {
		return nil, errors.New("dispatch/engine: nil job registry")
	}

	js, ok := store.(job.Store)
	if !ok {
		return nil, errors.New("dispatch/engine: store does not implement job.Store")
	}

	eng := &Engine{
		d:          d,
		extensions: ext.NewRegistry(logger),
		registry:   registry,
		jobStore:   js,
		logger:     logger,
	}

	for _, opt := range opts {
		opt(eng)
	}

	tp := eng.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	eng.tracer = tp.Tracer(instrumentationName)

	// Register the Prometheus lifecycle extension.
	if eng.promRegisterer != nil {
		eng.metrics = observability.NewMetricsExtensionWithRegistry(eng.promRegisterer, eng.promGatherer)
	} else {
		eng.metrics = observability.NewMetricsExtension()
	}
	eng.extensions.Register(eng.metrics)

	// Default stack: tracing → metrics → logging → custom → recover → worker.
	var allMws []mw.Middleware
	if !eng.disableInternal {
		mp := eng.meterProvider
		if mp == nil {
			mp = otel.GetMeterProvider()
		}
		allMws = append(allMws,
			mw.TracingWithTracer(eng.tracer),
			mw.MetricsWithMeter(mp.Meter(instrumentationName)),
			mw.Logging(logger),
		)
	}
	allMws = append(allMws, eng.mws...)

	if len(eng.queueConfigs) > 0 {
		eng.queueManager = queue.NewManager(eng.queueConfigs...)
	}

	config := d.Config()
	eng.runner = worker.NewRunner(eng.registry, eng.extensions, eng.jobStore, logger, allMws...)
	eng.pool = worker.NewPool(eng.runner, logger,
		worker.WithPoolConcurrency(config.Concurrency),
		worker.WithQueueCapacity(config.QueueCapacity),
	)

	// Wire back into the Dispatcher.
	d.SetPool(eng.pool)
	d.SetExtensions(eng.extensions)

	logger.Debug("engine built",
		slog.Any("job_types", registry.Names()),
		slog.Int("concurrency", config.Concurrency),
		slog.Int("queue_capacity", config.QueueCapacity),
	)
	return eng, nil
}

// Enqueue marshals a typed payload and dispatches it.
func Enqueue[T any](ctx context.Context, eng *Engine, jobType string, payload T) (*job.Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("dispatch/engine: marshal payload for %q: %w", jobType, err)
	}
	return eng.Dispatch(ctx, jobType, data)
}

// Dispatch validates a request, creates its record and queues it for
// execution. It returns as soon as the record exists; the returned job is
// the freshly created queued record.
//
// Nothing is persisted when the job type is unknown, the payload is
// invalid or admission is refused. Admission never blocks.
func (eng *Engine) Dispatch(ctx context.Context, jobType string, payload json.RawMessage) (_ *job.Job, err error) {
	ctx, span := eng.tracer.Start(ctx, "dispatch.job.dispatch",
		trace.WithAttributes(attribute.String("dispatch.job.type", jobType)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	w, ok := eng.registry.Lookup(jobType)
	if !ok {
		return nil, eng.reject(ctx, jobType, dispatch.NewValidationError(jobType, dispatch.ErrUnknownJobType))
	}
	if vErr := w.Validate(payload); vErr != nil {
		if !errors.Is(vErr, dispatch.ErrInvalidPayload) {
			vErr = fmt.Errorf("%w: %w", dispatch.ErrInvalidPayload, vErr)
		}
		return nil, eng.reject(ctx, jobType, dispatch.NewValidationError(jobType, vErr))
	}

	if eng.queueManager != nil {
		if qErr := eng.queueManager.Acquire(jobType); qErr != nil {
			return nil, eng.reject(ctx, jobType, qErr)
		}
	}
	release := func() {
		if eng.queueManager != nil {
			eng.queueManager.Release(jobType)
		}
	}

	if rErr := eng.pool.Reserve(); rErr != nil {
		release()
		return nil, eng.reject(ctx, jobType, rErr)
	}

	j, cErr := eng.jobStore.CreateJob(ctx, jobType, payload)
	if cErr != nil {
		eng.pool.Unreserve()
		release()
		return nil, eng.reject(ctx, jobType, cErr)
	}
	span.SetAttributes(attribute.String("dispatch.job.id", j.ID.String()))

	// Created goes out before the run can start, so no listener ever sees
	// started or a terminal event ahead of it.
	eng.extensions.EmitJobCreated(ctx, j)

	if sErr := eng.pool.Submit(ctx, j, release); sErr != nil {
		release()
		eng.abandon(ctx, j, sErr)
		return nil, sErr
	}

	eng.logger.Debug("job dispatched",
		slog.String("job_id", j.ID.String()),
		slog.String("job_type", jobType),
	)
	return j, nil
}

// Get returns the current state of a job record.
func (eng *Engine) Get(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	return eng.jobStore.GetJob(ctx, jobID)
}

// reject reports a refused dispatch and returns err.
func (eng *Engine) reject(ctx context.Context, jobType string, err error) error {
	eng.extensions.EmitJobRejected(ctx, jobType, err)
	eng.logger.Warn("job rejected",
		slog.String("job_type", jobType),
		slog.String("error", err.Error()),
	)
	return err
}

// abandon fails a record that was created, and announced, but could not
// be queued because the pool stopped in between. The failed event closes
// the created one for listeners.
func (eng *Engine) abandon(ctx context.Context, j *job.Job, cause error) {
	ctx = context.WithoutCancel(ctx)
	if err := eng.jobStore.UpdateJob(ctx, j.ID, job.FailPatch(cause.Error())); err != nil {
		eng.logger.Error("failed to fail abandoned job",
			slog.String("job_id", j.ID.String()),
			slog.String("error", err.Error()),
		)
	}
	failed := *j
	failed.Status = job.StatusFailed
	failed.Error = cause.Error()
	eng.extensions.EmitJobFailed(ctx, &failed, cause)
}

// Start begins job processing.
func (eng *Engine) Start(ctx context.Context) error {
	return eng.d.Start(ctx)
}

// Stop stops accepting jobs, drains the queue and shuts down the
// dispatcher.
func (eng *Engine) Stop(ctx context.Context) error {
	return eng.d.Stop(ctx)
}

// Extensions returns the extension registry.
func (eng *Engine) Extensions() *ext.Registry { return eng.extensions }

// Registry returns the job registry.
func (eng *Engine) Registry() *job.Registry { return eng.registry }

// Dispatcher returns the underlying Dispatcher.
func (eng *Engine) Dispatcher() *dispatch.Dispatcher { return eng.d }

// Pool returns the worker pool.
func (eng *Engine) Pool() *worker.Pool { return eng.pool }

// Metrics returns the Prometheus lifecycle metrics extension.
func (eng *Engine) Metrics() *observability.MetricsExtension { return eng.metrics }

// QueueManager returns the queue manager, or nil if no queue configs
// were provided.
func (eng *Engine) QueueManager() *queue.Manager { return eng.queueManager }

// Ping checks that the store is reachable.
func (eng *Engine) Ping(ctx context.Context) error {
	return eng.d.Store().Ping(ctx)
}
