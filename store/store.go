package store

import (
	"context"

	"github.com/viralclips/dispatch/job"
)

// Store is the aggregate persistence interface the engine is built on.
type Store interface {
	job.Store

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases the backend connection if the store owns it.
	Close() error
}
