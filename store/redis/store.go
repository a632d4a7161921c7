package redis

import (
	"context"
	"io"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/viralclips/dispatch"
	"github.com/viralclips/dispatch/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithTTL sets the record lifetime. Defaults to dispatch.DefaultJobTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithKeyPrefix namespaces every key, e.g. "viralclips:" gives
// "viralclips:job:<id>". The default is no prefix.
func WithKeyPrefix(p string) Option {
	return func(s *Store) { s.prefix = p }
}

// withClock replaces time.Now in tests.
func withClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store implements store.Store backed by Redis.
type Store struct {
	client goredis.Cmdable
	closer io.Closer
	logger *slog.Logger
	ttl    time.Duration
	prefix string
	now    func() time.Time
}

// New creates a Redis-backed store on a client the caller owns; Close
// leaves the client open.
func New(client goredis.Cmdable, opts ...Option) *Store {
	s := &Store{
		client: client,
		logger: slog.Default(),
		ttl:    dispatch.DefaultJobTTL,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open connects to Redis, verifies the connection and returns a store that
// owns the client; Close closes it.
func Open(ctx context.Context, ro *goredis.Options, opts ...Option) (*Store, error) {
	client := goredis.NewClient(ro)
	s := New(client, opts...)
	s.closer = client

	if err := s.Ping(ctx); err != nil {
		_ = client.Close() //nolint:errcheck // already failing
		return nil, err
	}
	s.logger.Info("redis store connected",
		slog.String("addr", ro.Addr),
		slog.Int("db", ro.DB),
	)
	return s, nil
}

// Client returns the underlying Redis client.
func (s *Store) Client() goredis.Cmdable { return s.client }

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return dispatch.Unavailable("dispatch/redis: ping", err)
	}
	return nil
}

// Close closes the client if the store opened it.
func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
