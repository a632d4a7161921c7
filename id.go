package dispatch

import "github.com/viralclips/dispatch/id"

// ID is the identifier type for job records.
type ID = id.ID

// JobID is the identifier of a single job record.
type JobID = id.JobID
