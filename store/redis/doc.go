// Package redis implements store.Store on Redis. Each job record is a Hash
// at "job:<id>" whose expiry is set once, at creation, and never refreshed.
// Updates run as a Lua script so the existence check, the terminal-state
// check and the field merge happen atomically.
//
// Usage:
//
//	s, err := redisstore.Open(ctx, &redis.Options{Addr: "localhost:6379"})
//	if err != nil { ... }
//	defer s.Close()
//
// or, when the caller owns the client:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	s := redisstore.New(client)
package redis
