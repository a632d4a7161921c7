package dispatch

import (
	"errors"
	"fmt"
)

var (
	// Store errors.
	ErrNoStore            = errors.New("dispatch: no store configured")
	ErrStoreClosed        = errors.New("dispatch: store closed")
	ErrStorageUnavailable = errors.New("dispatch: storage unavailable")

	// Not found errors.
	ErrJobNotFound = errors.New("dispatch: job not found")

	// Validation errors. Both are always returned wrapped in a *ValidationError.
	ErrUnknownJobType = errors.New("dispatch: unknown job type")
	ErrInvalidPayload = errors.New("dispatch: invalid payload")

	// State errors.
	ErrInvalidTransition = errors.New("dispatch: invalid state transition")
	ErrReporterSealed    = errors.New("dispatch: progress reporter sealed")

	// Admission errors.
	ErrQueueFull   = errors.New("dispatch: job queue full")
	ErrRateLimited = errors.New("dispatch: job type rate limited")
	ErrPoolStopped = errors.New("dispatch: worker pool not running")
)

// ValidationError reports a dispatch request rejected before anything was
// persisted.
type ValidationError struct {
	JobType string
	Err     error
}

// NewValidationError wraps err as a rejection of a request for jobType.
func NewValidationError(jobType string, err error) *ValidationError {
	return &ValidationError{JobType: jobType, Err: err}
}

func (e *ValidationError) Error() string {
	if errors.Is(e.Err, ErrUnknownJobType) {
		return fmt.Sprintf("invalid job_type: %s", e.JobType)
	}
	return fmt.Sprintf("invalid payload for job_type %s: %v", e.JobType, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Unavailable marks err as a storage transport failure so callers can
// match it with errors.Is(err, ErrStorageUnavailable).
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
