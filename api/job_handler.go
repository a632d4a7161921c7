package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/viralclips/dispatch"
	"github.com/viralclips/dispatch/id"
	"github.com/viralclips/dispatch/job"
)

const msgJobNotFound = "Job not found."

func (a *API) createJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, MessageResponse{Message: "Invalid request body."})
		return
	}

	j, err := a.eng.Dispatch(c.Request.Context(), req.JobType, req.Payload)
	if err != nil {
		status, msg := mapDispatchError(err)
		if status >= http.StatusInternalServerError {
			_ = c.Error(err)
		}
		c.JSON(status, MessageResponse{Message: msg})
		return
	}

	c.JSON(http.StatusAccepted, CreateJobResponse{JobID: j.ID.String(), Status: j.Status})
}

func (a *API) getJob(c *gin.Context) {
	j, ok := a.lookupJob(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newJobResponse(j))
}

// lookupJob loads the record named by the job_id path parameter. On
// failure it writes the error reply and returns false.
func (a *API) lookupJob(c *gin.Context) (*job.Job, bool) {
	jobID, err := id.ParseJobID(c.Param("job_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, MessageResponse{Message: msgJobNotFound})
		return nil, false
	}

	j, err := a.eng.Get(c.Request.Context(), jobID)
	switch {
	case errors.Is(err, dispatch.ErrJobNotFound):
		c.JSON(http.StatusNotFound, MessageResponse{Message: msgJobNotFound})
		return nil, false
	case err != nil:
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, MessageResponse{Message: "Job store unavailable."})
		return nil, false
	}
	return j, true
}

// mapDispatchError maps a Dispatch failure to an HTTP status and message.
func mapDispatchError(err error) (int, string) {
	var vErr *dispatch.ValidationError
	switch {
	case errors.As(err, &vErr) && errors.Is(err, dispatch.ErrUnknownJobType):
		return http.StatusBadRequest, fmt.Sprintf("Invalid job_type: %s", vErr.JobType)
	case errors.As(err, &vErr):
		return http.StatusBadRequest, fmt.Sprintf("Invalid payload for %s: %v", vErr.JobType, vErr.Err)
	case errors.Is(err, dispatch.ErrQueueFull):
		return http.StatusTooManyRequests, "Job queue is full, retry later."
	case errors.Is(err, dispatch.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many jobs of this type, retry later."
	case errors.Is(err, dispatch.ErrPoolStopped), errors.Is(err, dispatch.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "Service unavailable."
	default:
		return http.StatusInternalServerError, "Internal error."
	}
}
