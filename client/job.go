package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/viralclips/dispatch/backoff"
)

// JobResult acknowledges a queued job.
type JobResult struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// Job is the polled state of a job.
type Job struct {
	JobID     string    `json:"job_id"`
	JobType   string    `json:"job_type"`
	Status    string    `json:"status"`
	Progress  string    `json:"progress"`
	ETA       string    `json:"eta"`
	Result    string    `json:"result"`
	Error     string    `json:"error"`
	FilePath  string    `json:"file_path"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Done reports whether the job reached completed or failed.
func (j *Job) Done() bool { return j.Status == "completed" || j.Status == "failed" }

// Preview is video metadata returned by the preview endpoint.
type Preview struct {
	Title     string  `json:"title"`
	Thumbnail string  `json:"thumbnail"`
	Duration  float64 `json:"duration"`
	Valid     bool    `json:"valid"`
}

// CreateJob submits a job. payload is marshaled to JSON.
func (c *Client) CreateJob(ctx context.Context, jobType string, payload any) (*JobResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("dispatch/client: marshal payload: %w", err)
	}
	body := struct {
		JobType string          `json:"job_type"`
		Payload json.RawMessage `json:"payload"`
	}{jobType, raw}

	var res JobResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/jobs/", body, &res); err != nil {
		return nil, err
	}
	c.logger.Debug("job submitted",
		slog.String("job_id", res.JobID),
		slog.String("job_type", jobType),
	)
	return &res, nil
}

// GetJob fetches the current state of a job. A missing or expired job
// yields an error matching dispatch.ErrJobNotFound.
func (c *Client) GetJob(ctx context.Context, jobID string) (*Job, error) {
	var j Job
	if err := c.do(ctx, http.MethodGet, "/api/v1/jobs/"+url.PathEscape(jobID), nil, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

// Wait polls the job until it is done or ctx ends, sleeping per poll
// between reads; nil uses [backoff.DefaultPoll]. Temporary replies (429,
// 503) are retried on the same schedule. On ctx expiry it returns the
// last snapshot seen together with ctx.Err().
func (c *Client) Wait(ctx context.Context, jobID string, poll backoff.Strategy) (*Job, error) {
	if poll == nil {
		poll = backoff.DefaultPoll()
	}

	var last *Job
	for attempt := 1; ; attempt++ {
		j, err := c.GetJob(ctx, jobID)
		var apiErr *APIError
		switch {
		case err == nil:
			if j.Done() {
				return j, nil
			}
			last = j
		case errors.As(err, &apiErr) && apiErr.Temporary():
			c.logger.Debug("job poll deferred",
				slog.String("job_id", jobID),
				slog.Int("status", apiErr.StatusCode),
			)
		case ctx.Err() != nil:
			return last, ctx.Err()
		default:
			return nil, err
		}

		timer := time.NewTimer(poll.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return last, ctx.Err()
		case <-timer.C:
		}
	}
}

// ValidateURL asks the server whether u is a YouTube link.
func (c *Client) ValidateURL(ctx context.Context, u string) (bool, error) {
	err := c.do(ctx, http.MethodPost, "/api/v1/validate_url/?url="+url.QueryEscape(u), nil, nil)
	var apiErr *APIError
	switch {
	case err == nil:
		return true, nil
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest:
		return false, nil
	default:
		return false, err
	}
}

// Preview fetches video metadata for u.
func (c *Client) Preview(ctx context.Context, u string) (*Preview, error) {
	var p Preview
	if err := c.do(ctx, http.MethodGet, "/api/v1/preview/?url="+url.QueryEscape(u), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
