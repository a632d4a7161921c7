// Package memory implements store.Store in process memory. Records expire
// on the same fixed-TTL rule as the Redis backend. Intended for unit
// testing and development.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/viralclips/dispatch"
	"github.com/viralclips/dispatch/id"
	"github.com/viralclips/dispatch/job"
	"github.com/viralclips/dispatch/store"
)

var _ store.Store = (*Store)(nil)

type entry struct {
	job       job.Job
	expiresAt time.Time
}

// Store is a fully in-memory implementation of store.Store.
// Safe for concurrent access.
type Store struct {
	mu     sync.Mutex
	jobs   map[string]*entry
	ttl    time.Duration
	now    func() time.Time
	closed bool
}

// Option configures the Store.
type Option func(*Store)

// WithTTL sets the record lifetime. Defaults to dispatch.DefaultJobTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithClock replaces time.Now, letting tests move time forward.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a new empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		jobs: make(map[string]*entry),
		ttl:  dispatch.DefaultJobTTL,
		now:  time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ping fails only after Close.
func (s *Store) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return dispatch.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed; later calls fail with ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// CreateJob persists a new queued record.
func (s *Store) CreateJob(_ context.Context, jobType string, payload json.RawMessage) (*job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, dispatch.Unavailable("dispatch/memory: create job", dispatch.ErrStoreClosed)
	}

	now := s.now()
	j := job.New(jobType, clonePayload(payload), now)
	s.jobs[j.ID.String()] = &entry{job: *j, expiresAt: j.CreatedAt.Add(s.ttl)}

	cp := *j
	return &cp, nil
}

// UpdateJob merges p into an existing, unexpired record.
func (s *Store) UpdateJob(_ context.Context, jobID id.JobID, p job.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return dispatch.Unavailable("dispatch/memory: update job", dispatch.ErrStoreClosed)
	}

	now := s.now()
	e, ok := s.live(jobID.String(), now)
	if !ok {
		return dispatch.ErrJobNotFound
	}
	if e.job.Status.IsTerminal() {
		return fmt.Errorf("dispatch/memory: update job %s: %w", jobID, dispatch.ErrInvalidTransition)
	}
	if p.Status != nil {
		if err := job.ValidateTransition(e.job.Status, *p.Status); err != nil {
			return fmt.Errorf("dispatch/memory: update job %s: %w", jobID, err)
		}
	}

	e.job.Apply(p, now)
	return nil
}

// GetJob retrieves a record by ID.
func (s *Store) GetJob(_ context.Context, jobID id.JobID) (*job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, dispatch.Unavailable("dispatch/memory: get job", dispatch.ErrStoreClosed)
	}

	e, ok := s.live(jobID.String(), s.now())
	if !ok {
		return nil, dispatch.ErrJobNotFound
	}
	cp := e.job
	cp.Payload = clonePayload(e.job.Payload)
	return &cp, nil
}

// Len returns the number of unexpired records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for key := range s.jobs {
		if _, ok := s.live(key, now); ok {
			n++
		}
	}
	return n
}

// live returns the entry for key, evicting it if it has expired.
// Caller holds s.mu.
func (s *Store) live(key string, now time.Time) (*entry, bool) {
	e, ok := s.jobs[key]
	if !ok {
		return nil, false
	}
	if !now.Before(e.expiresAt) {
		delete(s.jobs, key)
		return nil, false
	}
	return e, true
}

func clonePayload(p json.RawMessage) json.RawMessage {
	if p == nil {
		return nil
	}
	return append(json.RawMessage(nil), p...)
}
