// Package dispatch tracks the lifecycle of asynchronous jobs. Clients submit
// a job type and payload, the job is handed to the worker registered for
// that type, and status, progress and result are persisted so clients can
// poll for completion out-of-band.
//
// # Quick Start
//
//	b := job.NewRegistryBuilder()
//	job.Register(b, download.New(download.Config{Resolution: 720}).Definition())
//	reg, err := b.Build()
//
//	s, err := redisstore.Open(ctx, &redis.Options{Addr: "localhost:6379"})
//	d, err := dispatch.New(
//	    dispatch.WithStore(s),
//	    dispatch.WithConcurrency(4),
//	    dispatch.WithQueueCapacity(64),
//	)
//	eng, err := engine.Build(d, reg)
//	_ = eng.Start(ctx)
//
//	j, err := eng.Dispatch(ctx, "download_video", payload)
//	j, err = eng.Get(ctx, j.ID)
//
// # Architecture
//
// A job record moves queued → in_progress → completed | failed. The engine
// validates the job type and payload against an immutable registry before
// anything is persisted, reserves a slot in a bounded worker pool, creates
// the record, and schedules the runner. The runner invokes the worker
// synchronously, lets it write progress through a sealed side-channel, and
// issues exactly one terminal write once the worker has returned.
//
// Lifecycle hooks in ext feed the Prometheus metrics, the audit trail and
// the server-sent event stream served by the api package.
//
// All job IDs use TypeID: type-prefixed, K-sortable, UUIDv7-based.
package dispatch
