// Package worker provides the job execution machinery: a Runner that
// drives one job record from queued to a terminal state, and a Pool of a
// fixed number of goroutines that feed it from a bounded queue.
//
// A job's life inside this package:
//
//	Pool.Reserve   take a queue slot without blocking (ErrQueueFull)
//	store.CreateJob  (by the caller)
//	Pool.Submit    enqueue the record; never blocks once reserved
//	Runner.Run     in_progress → worker → seal reporter → completed|failed
//
// Worker failures and panics never escape a Runner; they become a failed
// record.
package worker
