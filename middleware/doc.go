// Package middleware provides composable middleware around worker invocation.
//
// A [Middleware] wraps the call that runs one job's worker and sees the
// [job.Outcome] it produced. Middleware are composed into a chain using
// [Chain]. They are applied right-to-left: the first middleware in the
// slice is the outermost wrapper.
//
//	// logging → recover → worker
//	chain := middleware.Chain(middleware.Logging(logger), middleware.Recover(logger))
//
// # Built-in Middleware
//
//   - [Logging] logs job type, id, duration and outcome of each run
//   - [Recover] catches panics and turns them into a failed outcome
//   - [Tracing] wraps the run in an OpenTelemetry span
//   - [Metrics] records per-type duration and outcome counters
//
// # Writing Custom Middleware
//
//	func MyMiddleware() middleware.Middleware {
//	    return func(ctx context.Context, j *job.Job, next middleware.Handler) job.Outcome {
//	        // pre-processing
//	        out := next(ctx)
//	        // post-processing
//	        return out
//	    }
//	}
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting, in which case it returns a [job.Failure].
package middleware
