// Package audithook is a Dispatch extension that turns job lifecycle events
// into structured audit events.
//
// Every job hook (created, rejected, started, completed, failed) emits an
// [AuditEvent] through the [Recorder] interface. Severity is info for normal
// operations, warning for rejected requests and critical for failed jobs.
// Progress writes are too chatty for an audit trail and are not recorded.
//
// # Usage with slog
//
//	eng, err := engine.Build(d, reg,
//	    engine.WithExtension(audithook.New(audithook.NewLogRecorder(logger))),
//	)
//
// # Selective filtering
//
//	audithook.New(recorder,
//	    audithook.WithActions(
//	        audithook.ActionJobRejected,
//	        audithook.ActionJobFailed,
//	    ),
//	)
package audithook
