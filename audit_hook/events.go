package audithook

import "slices"

// Audit event actions. Each constant corresponds to one ext lifecycle hook
// and becomes the Action field of the audit event.
const (
	ActionJobCreated   = "job.created"
	ActionJobRejected  = "job.rejected"
	ActionJobStarted   = "job.started"
	ActionJobCompleted = "job.completed"
	ActionJobFailed    = "job.failed"
)

// CategoryJob groups all job actions.
const CategoryJob = "dispatch.job"

// Resource types used as the Resource field in audit events.
const (
	ResourceJob     = "job"
	ResourceJobType = "job_type"
)

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionJobCreated,
		ActionJobRejected,
		ActionJobStarted,
		ActionJobCompleted,
		ActionJobFailed,
	}
}

// IsAction reports whether a is an action this extension emits.
func IsAction(a string) bool {
	return slices.Contains(AllActions(), a)
}
