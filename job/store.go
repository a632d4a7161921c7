package job

import (
	"context"
	"encoding/json"

	"github.com/viralclips/dispatch/id"
)

// Store defines the persistence contract for job records.
//
// Implementations must make UpdateJob an atomic check-and-merge: it fails
// with dispatch.ErrJobNotFound when the record is missing or expired, and
// with dispatch.ErrInvalidTransition when the stored status is terminal or
// the patch moves back to queued. Backend transport failures are reported
// wrapped in dispatch.ErrStorageUnavailable.
type Store interface {
	// CreateJob persists a new queued record and sets its expiry.
	CreateJob(ctx context.Context, jobType string, payload json.RawMessage) (*Job, error)

	// UpdateJob merges the fields set in p and refreshes updated_at.
	// The expiry is left untouched.
	UpdateJob(ctx context.Context, jobID id.JobID, p Patch) error

	// GetJob retrieves a record by ID.
	GetJob(ctx context.Context, jobID id.JobID) (*Job, error)
}
