package job

import (
	"encoding/json"
	"time"

	"github.com/viralclips/dispatch/id"
)

// Status is the lifecycle state of a job record.
type Status string

const (
	// StatusQueued is written once, at creation.
	StatusQueued Status = "queued"
	// StatusInProgress means the runner has handed the job to its worker.
	StatusInProgress Status = "in_progress"
	// StatusCompleted means the worker returned a result.
	StatusCompleted Status = "completed"
	// StatusFailed means the worker returned an error or panicked.
	StatusFailed Status = "failed"
)

// Progress values written by the runner.
const (
	ProgressStart = "0"
	ProgressDone  = "100"
)

// Job is the persisted record of one unit of asynchronous work.
type Job struct {
	ID        id.JobID        `json:"job_id"`
	Type      string          `json:"job_type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Status    Status          `json:"status"`
	Progress  string          `json:"progress"`
	ETA       string          `json:"eta,omitempty"`
	Result    string          `json:"result"`
	Error     string          `json:"error"`
	FilePath  string          `json:"file_path"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// New returns a freshly queued record for jobType created at now.
// Timestamps are truncated to whole seconds.
func New(jobType string, payload json.RawMessage, now time.Time) *Job {
	now = now.UTC().Truncate(time.Second)
	return &Job{
		ID:        id.NewJobID(),
		Type:      jobType,
		Payload:   payload,
		Status:    StatusQueued,
		Progress:  ProgressStart,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Apply merges the fields set in p into j and bumps UpdatedAt to now,
// never moving it backwards.
func (j *Job) Apply(p Patch, now time.Time) {
	if p.Status != nil {
		j.Status = *p.Status
	}
	if p.Progress != nil {
		j.Progress = *p.Progress
	}
	if p.ETA != nil {
		j.ETA = *p.ETA
	}
	if p.Result != nil {
		j.Result = *p.Result
	}
	if p.Error != nil {
		j.Error = *p.Error
	}
	if p.FilePath != nil {
		j.FilePath = *p.FilePath
	}
	now = now.UTC().Truncate(time.Second)
	if now.After(j.UpdatedAt) {
		j.UpdatedAt = now
	}
}
