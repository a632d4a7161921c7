// Package observability provides a Prometheus metrics extension that
// records job lifecycle counters, run latency and in-flight jobs, and the
// HTTP handler that exposes them.
package observability
