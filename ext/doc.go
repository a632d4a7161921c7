// Package ext defines the extension system for Dispatch.
//
// Extensions are notified of lifecycle events and can react to them,
// for example by recording metrics or writing audit logs.
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	// Opt in to specific hooks by implementing their interfaces.
//	func (e *MyExtension) OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error {
//	    log.Printf("job %s completed in %s", j.ID, elapsed)
//	    return nil
//	}
//
// # Job Lifecycle Hooks
//
//   - [JobCreated]: record stored, run queued
//   - [JobRejected]: dispatch refused the request, no record exists
//   - [JobStarted]: record moved to in_progress
//   - [JobProgressed]: a worker progress write was persisted
//   - [JobCompleted]: terminal completed write
//   - [JobFailed]: terminal failed write
//
// # Other Hooks
//
//   - [Shutdown]: the dispatcher is shutting down gracefully
//
// The [Registry] fans out each event to all registered extensions that
// implement the corresponding hook interface. Hook errors are logged and
// never reach the job.
package ext
