// Package store defines the aggregate persistence interface.
//
// The job package owns the record contract ([job.Store]); [Store] adds the
// handle lifecycle the Dispatcher drives: Ping on start, Close on stop.
//
// # Available Backends
//
//   - store/memory: in-memory store for development and testing
//   - store/redis: Redis hashes with a fixed per-record TTL
//
// # Usage
//
//	import redisstore "github.com/viralclips/dispatch/store/redis"
//
//	s, err := redisstore.Open(ctx, &redis.Options{Addr: "localhost:6379"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	d, err := dispatch.New(dispatch.WithStore(s))
package store
