package api

import (
	"encoding/json"
	"time"

	"github.com/viralclips/dispatch/job"
)

// CreateJobRequest is the body of POST /api/v1/jobs.
type CreateJobRequest struct {
	JobType string          `json:"job_type" binding:"required"`
	Payload json.RawMessage `json:"payload"`
}

// CreateJobResponse acknowledges a queued job.
type CreateJobResponse struct {
	JobID  string     `json:"job_id"`
	Status job.Status `json:"status"`
}

// JobResponse is the polled state of a job.
type JobResponse struct {
	JobID     string     `json:"job_id"`
	JobType   string     `json:"job_type"`
	Status    job.Status `json:"status"`
	Progress  string     `json:"progress"`
	ETA       string     `json:"eta"`
	Result    string     `json:"result"`
	Error     string     `json:"error"`
	FilePath  string     `json:"file_path"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func newJobResponse(j *job.Job) JobResponse {
	return JobResponse{
		JobID:     j.ID.String(),
		JobType:   j.Type,
		Status:    j.Status,
		Progress:  j.Progress,
		ETA:       j.ETA,
		Result:    j.Result,
		Error:     j.Error,
		FilePath:  j.FilePath,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// ValidateURLRequest is the optional body of POST /api/v1/validate_url/.
type ValidateURLRequest struct {
	URL string `json:"url" form:"url"`
}

// ValidateURLResponse reports whether a URL is a YouTube link.
type ValidateURLResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// MessageResponse is the body of most error replies.
type MessageResponse struct {
	Message string `json:"message"`
}
