package redis

// jobKey returns the key for a job record: {prefix}job:{id}
func (s *Store) jobKey(id string) string { return s.prefix + "job:" + id }

// Hash field names of a job record.
const (
	fieldID        = "id"
	fieldJobType   = "job_type"
	fieldPayload   = "payload"
	fieldStatus    = "status"
	fieldProgress  = "progress"
	fieldETA       = "eta"
	fieldResult    = "result"
	fieldError     = "error"
	fieldFilePath  = "file_path"
	fieldCreatedAt = "created_at"
	fieldUpdatedAt = "updated_at"
)
