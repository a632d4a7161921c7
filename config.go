package dispatch

import "time"

// DefaultJobTTL is how long a job record lives after creation. The store
// owns the lifetime; see the WithTTL option of each store package.
const DefaultJobTTL = 24 * time.Hour

// Config holds configuration for the Dispatcher.
type Config struct {
	// Concurrency is the number of jobs executed at the same time.
	Concurrency int

	// QueueCapacity is the number of admitted jobs that may wait for a
	// free worker. Dispatch fails with ErrQueueFull beyond it.
	QueueCapacity int

	// ShutdownTimeout is the maximum time to wait for running jobs on Stop.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:     4,
		QueueCapacity:   64,
		ShutdownTimeout: 30 * time.Second,
	}
}
