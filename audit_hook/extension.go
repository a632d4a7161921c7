package audithook

import (
	"context"
	"log/slog"
	"time"

	"github.com/viralclips/dispatch/ext"
	"github.com/viralclips/dispatch/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension    = (*Extension)(nil)
	_ ext.JobCreated   = (*Extension)(nil)
	_ ext.JobRejected  = (*Extension)(nil)
	_ ext.JobStarted   = (*Extension)(nil)
	_ ext.JobCompleted = (*Extension)(nil)
	_ ext.JobFailed    = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one entry of the audit trail.
type AuditEvent struct {
	// What happened
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	// Details
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`

	// When it happened
	At time.Time `json:"at"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Extension bridges Dispatch lifecycle events to an audit trail backend.
// Each lifecycle hook emits a structured audit event through the [Recorder].
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "audit-hook" }

// ── Job lifecycle hooks ─────────────────────────────

// OnJobCreated implements ext.JobCreated.
func (e *Extension) OnJobCreated(ctx context.Context, j *job.Job) error {
	return e.emit(ctx, jobEvent(ActionJobCreated, j))
}

// OnJobRejected implements ext.JobRejected. No record exists yet, so the
// resource is the requested job type.
func (e *Extension) OnJobRejected(ctx context.Context, jobType string, rejectErr error) error {
	evt := &AuditEvent{
		Action:     ActionJobRejected,
		Resource:   ResourceJobType,
		ResourceID: jobType,
		Severity:   SeverityWarning,
		Outcome:    OutcomeFailure,
	}
	return e.emit(ctx, evt.withError(rejectErr))
}

// OnJobStarted implements ext.JobStarted.
func (e *Extension) OnJobStarted(ctx context.Context, j *job.Job) error {
	return e.emit(ctx, jobEvent(ActionJobStarted, j))
}

// OnJobCompleted implements ext.JobCompleted.
func (e *Extension) OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error {
	evt := jobEvent(ActionJobCompleted, j)
	evt.Metadata["file_path"] = j.FilePath
	evt.Metadata["elapsed_ms"] = elapsed.Milliseconds()
	return e.emit(ctx, evt)
}

// OnJobFailed implements ext.JobFailed.
func (e *Extension) OnJobFailed(ctx context.Context, j *job.Job, jobErr error) error {
	evt := jobEvent(ActionJobFailed, j)
	evt.Severity = SeverityCritical
	evt.Outcome = OutcomeFailure
	evt.Metadata["progress"] = j.Progress
	return e.emit(ctx, evt.withError(jobErr))
}

// ── Internal helpers ────────────────────────────────

// jobEvent returns a successful info-level event about record j.
func jobEvent(action string, j *job.Job) *AuditEvent {
	return &AuditEvent{
		Action:     action,
		Resource:   ResourceJob,
		ResourceID: j.ID.String(),
		Severity:   SeverityInfo,
		Outcome:    OutcomeSuccess,
		Metadata:   map[string]any{"job_type": j.Type},
	}
}

func (evt *AuditEvent) withError(err error) *AuditEvent {
	if err == nil {
		return evt
	}
	if evt.Metadata == nil {
		evt.Metadata = make(map[string]any, 1)
	}
	evt.Reason = err.Error()
	evt.Metadata["error"] = evt.Reason
	return evt
}

// emit stamps evt and hands it to the recorder if its action is enabled.
// Recorder failures are logged and never reach the job.
func (e *Extension) emit(ctx context.Context, evt *AuditEvent) error {
	if e.enabled != nil && !e.enabled[evt.Action] {
		return nil
	}
	evt.Category = CategoryJob
	evt.At = time.Now().UTC()

	if err := e.recorder.Record(ctx, evt); err != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			slog.String("action", evt.Action),
			slog.String("resource_id", evt.ResourceID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}
