package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/viralclips/dispatch"
	"github.com/viralclips/dispatch/id"
	"github.com/viralclips/dispatch/job"
)

// Return codes of updateScript.
const (
	updateMissing  = 0
	updateApplied  = 1
	updateTerminal = -1
	updateBackward = -2
)

// updateScript merges fields into an existing record.
//
//	KEYS[1]  job key
//	ARGV[1]  now, unix seconds
//	ARGV[2]  target status, "" when the patch leaves status alone
//	ARGV[3:] field/value pairs
//
// updated_at is never moved backwards and the key's TTL is not touched.
var updateScript = goredis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'status')
if not cur then
  return 0
end
if cur == 'completed' or cur == 'failed' then
  return -1
end
local nxt = ARGV[2]
if nxt == 'queued' or (cur == 'queued' and nxt == 'completed') then
  return -2
end
local updated = tonumber(ARGV[1])
local prev = tonumber(redis.call('HGET', KEYS[1], 'updated_at') or '0')
if prev and prev > updated then
  updated = prev
end
if #ARGV > 2 then
  redis.call('HSET', KEYS[1], 'updated_at', tostring(updated), unpack(ARGV, 3))
else
  redis.call('HSET', KEYS[1], 'updated_at', tostring(updated))
end
return 1
`)

// CreateJob stores the record as a Hash and sets its expiry in the same
// transaction.
func (s *Store) CreateJob(ctx context.Context, jobType string, payload json.RawMessage) (*job.Job, error) {
	j := job.New(jobType, payload, s.now())
	key := s.jobKey(j.ID.String())

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, jobToMap(j))
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, dispatch.Unavailable("dispatch/redis: create job", err)
	}
	return j, nil
}

// UpdateJob merges p into an existing record.
func (s *Store) UpdateJob(ctx context.Context, jobID id.JobID, p job.Patch) error {
	var target string
	if p.Status != nil {
		if *p.Status == "" {
			return fmt.Errorf("dispatch/redis: update job %s: %w", jobID, dispatch.ErrInvalidTransition)
		}
		target = string(*p.Status)
	}

	fields := p.Fields()
	args := make([]any, 0, 2+2*len(fields))
	args = append(args, s.now().UTC().Unix(), target)
	for k, v := range fields {
		args = append(args, k, v)
	}

	code, err := updateScript.Run(ctx, s.client, []string{s.jobKey(jobID.String())}, args...).Int()
	if err != nil {
		return dispatch.Unavailable("dispatch/redis: update job", err)
	}

	switch code {
	case updateApplied:
		return nil
	case updateMissing:
		return dispatch.ErrJobNotFound
	case updateTerminal:
		return fmt.Errorf("dispatch/redis: update job %s: record is terminal: %w", jobID, dispatch.ErrInvalidTransition)
	case updateBackward:
		return fmt.Errorf("dispatch/redis: update job %s: to %s: %w", jobID, target, dispatch.ErrInvalidTransition)
	default:
		return fmt.Errorf("dispatch/redis: update job %s: unexpected script result %d", jobID, code)
	}
}

// GetJob retrieves a record by ID.
func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	vals, err := s.client.HGetAll(ctx, s.jobKey(jobID.String())).Result()
	if err != nil {
		return nil, dispatch.Unavailable("dispatch/redis: get job", err)
	}
	if len(vals) == 0 {
		return nil, dispatch.ErrJobNotFound
	}
	return mapToJob(vals)
}

// ── helpers ──

func jobToMap(j *job.Job) map[string]any {
	return map[string]any{
		fieldID:        j.ID.String(),
		fieldJobType:   j.Type,
		fieldPayload:   string(j.Payload),
		fieldStatus:    string(j.Status),
		fieldProgress:  j.Progress,
		fieldETA:       j.ETA,
		fieldResult:    j.Result,
		fieldError:     j.Error,
		fieldFilePath:  j.FilePath,
		fieldCreatedAt: strconv.FormatInt(j.CreatedAt.Unix(), 10),
		fieldUpdatedAt: strconv.FormatInt(j.UpdatedAt.Unix(), 10),
	}
}

func mapToJob(m map[string]string) (*job.Job, error) {
	jID, err := id.ParseJobID(m[fieldID])
	if err != nil {
		return nil, fmt.Errorf("dispatch/redis: parse job id: %w", err)
	}

	created, _ := strconv.ParseInt(m[fieldCreatedAt], 10, 64) //nolint:errcheck // best-effort parse from trusted Redis data
	updated, _ := strconv.ParseInt(m[fieldUpdatedAt], 10, 64) //nolint:errcheck // best-effort parse from trusted Redis data

	j := &job.Job{
		ID:        jID,
		Type:      m[fieldJobType],
		Status:    job.Status(m[fieldStatus]),
		Progress:  m[fieldProgress],
		ETA:       m[fieldETA],
		Result:    m[fieldResult],
		Error:     m[fieldError],
		FilePath:  m[fieldFilePath],
		CreatedAt: time.Unix(created, 0).UTC(),
		UpdatedAt: time.Unix(updated, 0).UTC(),
	}
	if p := m[fieldPayload]; p != "" {
		j.Payload = json.RawMessage(p)
	}
	return j, nil
}
