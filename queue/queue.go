package queue

import (
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/viralclips/dispatch"
)

// Config defines admission limits for one job type.
type Config struct {
	// JobType is the registered job type the limits apply to.
	JobType string

	// MaxOutstanding caps how many jobs of this type may be queued or
	// running at once. Zero means no type-specific cap.
	MaxOutstanding int

	// RateLimit is the maximum sustained number of new jobs per second.
	// Zero disables rate limiting.
	RateLimit float64

	// RateBurst is the burst size for the token-bucket rate limiter.
	// Defaults to 1 if RateLimit is set but RateBurst is zero.
	RateBurst int
}

// typeState tracks runtime state for a single job type.
type typeState struct {
	config      Config
	limiter     *rate.Limiter
	outstanding int
}

// Manager controls per-type rate limiting and outstanding caps.
// It is safe for concurrent use.
type Manager struct {
	mu    sync.Mutex
	types map[string]*typeState
}

// NewManager creates a Manager with the given configurations.
// Job types not listed here have no limits.
func NewManager(configs ...Config) *Manager {
	m := &Manager{types: make(map[string]*typeState, len(configs))}
	for _, cfg := range configs {
		m.types[cfg.JobType] = newTypeState(cfg)
	}
	return m
}

func newTypeState(cfg Config) *typeState {
	ts := &typeState{config: cfg}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		ts.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return ts
}

// Acquire admits one job of jobType or returns an error wrapping
// dispatch.ErrQueueFull (cap reached) or dispatch.ErrRateLimited. The cap
// is checked first so a refused request does not consume a token. On
// success the caller MUST call Release once the job is done or was never
// created.
func (m *Manager) Acquire(jobType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts := m.types[jobType]
	if ts == nil {
		return nil
	}
	if ts.config.MaxOutstanding > 0 && ts.outstanding >= ts.config.MaxOutstanding {
		return fmt.Errorf("dispatch/queue: %s has %d outstanding jobs: %w",
			jobType, ts.outstanding, dispatch.ErrQueueFull)
	}
	if ts.limiter != nil && !ts.limiter.Allow() {
		return fmt.Errorf("dispatch/queue: %s: %w", jobType, dispatch.ErrRateLimited)
	}
	ts.outstanding++
	return nil
}

// Release returns the slot taken by a successful Acquire.
func (m *Manager) Release(jobType string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ts := m.types[jobType]; ts != nil && ts.outstanding > 0 {
		ts.outstanding--
	}
}

// SetConfig dynamically updates (or creates) a job type's limits.
func (m *Manager) SetConfig(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.types[cfg.JobType]
	ts := newTypeState(cfg)

	// Preserve the outstanding count when reconfiguring.
	if existing != nil {
		ts.outstanding = existing.outstanding
	}
	m.types[cfg.JobType] = ts
}

// Outstanding returns the number of admitted, unreleased jobs of jobType.
func (m *Manager) Outstanding(jobType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ts := m.types[jobType]; ts != nil {
		return ts.outstanding
	}
	return 0
}
