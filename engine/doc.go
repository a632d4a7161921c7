// Package engine wires all Dispatch subsystems together and provides
// the application-level API for dispatching work and reading job state.
//
// # Building an Engine
//
//	b := job.NewRegistryBuilder()
//	job.Register(b, download.New(download.Config{Resolution: 720}).Definition())
//	reg, err := b.Build()
//
//	d, err := dispatch.New(
//	    dispatch.WithStore(redisStore),
//	    dispatch.WithConcurrency(4),
//	    dispatch.WithQueueCapacity(64),
//	)
//
//	eng, err := engine.Build(d, reg,
//	    engine.WithExtension(myExtension),
//	    engine.WithMiddleware(myMiddleware),
//	    engine.WithQueueConfig(queue.Config{
//	        JobType:   "download_video",
//	        RateLimit: 2,
//	    }),
//	)
//
// # Dispatching Jobs
//
//	j, err := eng.Dispatch(ctx, "download_video", json.RawMessage(`{"url":"..."}`))
//
//	// Typed payloads
//	j, err := engine.Enqueue(ctx, eng, "download_video", download.Payload{URL: "..."})
//
// Dispatch returns once the record is stored as queued; the job runs on
// the engine's worker pool, detached from ctx's cancellation. Poll its
// state with [Engine.Get].
//
// # Options
//
//   - [WithExtension]: register a lifecycle extension
//   - [WithMiddleware]: add a middleware to the execution chain
//   - [WithQueueConfig]: per-job-type rate limits and outstanding caps
//   - [WithTracerProvider]: set the OpenTelemetry tracer provider
//   - [WithMeterProvider]: set the OpenTelemetry meter provider
//   - [WithPrometheus]: choose the Prometheus registry for lifecycle metrics
//   - [WithoutDefaultMiddleware]: drop tracing, metrics and logging middleware
package engine
