package job

import (
	"context"
	"encoding/json"

	"github.com/viralclips/dispatch/id"
)

// Worker performs the work behind one job type.
//
// Validate is called at the dispatch boundary, before any record exists.
// Run is called exactly once per dispatched job. While running, the worker
// may write progress through r; those writes stop being accepted as soon
// as Run returns.
type Worker interface {
	Validate(payload json.RawMessage) error
	Run(ctx context.Context, jobID id.JobID, payload json.RawMessage, r Reporter) Outcome
}

// Result describes a successful run.
type Result struct {
	// Status is a short worker-defined summary, e.g. "success".
	Status string `json:"status"`
	// FilePath is the artifact the worker produced, if any.
	FilePath string `json:"file_path,omitempty"`
}

// String is the value persisted in the record's result field.
func (r Result) String() string {
	if r.Status == "" {
		return string(StatusCompleted)
	}
	return r.Status
}

// Outcome is either a Result or an error, never both.
type Outcome struct {
	Result Result
	Err    error
}

// Success returns a successful Outcome.
func Success(r Result) Outcome { return Outcome{Result: r} }

// Failure returns a failed Outcome. A nil err is replaced so that a
// failure can never be mistaken for success.
func Failure(err error) Outcome {
	if err == nil {
		err = errUnspecified
	}
	return Outcome{Err: err}
}

// Failed reports whether the outcome carries an error.
func (o Outcome) Failed() bool { return o.Err != nil }

// Progress is what a worker may write while running. Only status, progress
// and eta are reachable from here, which keeps worker writes disjoint from
// the runner's result, error and file_path.
type Progress struct {
	// Status is a worker phase such as "downloading"; empty keeps the
	// current status.
	Status Status
	// Progress is numeric or percentage-bearing, e.g. "42.5%".
	Progress string
	// ETA is the estimated seconds remaining; empty keeps the current value.
	ETA string
}

// Reporter is the worker's side-channel into its own record.
type Reporter interface {
	Report(ctx context.Context, p Progress) error
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, p Progress) error

// Report implements Reporter.
func (f ReporterFunc) Report(ctx context.Context, p Progress) error { return f(ctx, p) }

// Patch converts p into a store patch.
func (p Progress) Patch() Patch {
	var out Patch
	if p.Status != "" {
		out = out.WithStatus(p.Status)
	}
	if p.Progress != "" {
		out = out.WithProgress(p.Progress)
	}
	if p.ETA != "" {
		out = out.WithETA(p.ETA)
	}
	return out
}
