// Package stream is a real-time broker for job lifecycle events.
// It bridges the ext hooks to in-process subscribers via topic-based
// pub/sub; the HTTP API relays it to clients as server-sent events.
package stream

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of lifecycle event.
type EventType string

const (
	EventJobCreated   EventType = "job.created"
	EventJobStarted   EventType = "job.started"
	EventJobProgress  EventType = "job.progress"
	EventJobCompleted EventType = "job.completed"
	EventJobFailed    EventType = "job.failed"
)

// Terminal reports whether no further events follow for the job.
func (t EventType) Terminal() bool {
	return t == EventJobCompleted || t == EventJobFailed
}

// Event is the envelope sent to subscribers on a topic channel.
type Event struct {
	// Type identifies the lifecycle event.
	Type EventType `json:"type"`

	// Timestamp is when the event was emitted.
	Timestamp time.Time `json:"ts"`

	// Topic is the per-job channel this event was published on.
	Topic string `json:"topic"`

	// JobType is copied from the record for topic routing.
	JobType string `json:"-"`

	// Data is the event-specific payload.
	Data json.RawMessage `json:"data"`
}

// JobEventData is the payload for job lifecycle events.
type JobEventData struct {
	JobID     string `json:"job_id"`
	JobType   string `json:"job_type"`
	Status    string `json:"status"`
	Progress  string `json:"progress"`
	ETA       string `json:"eta,omitempty"`
	FilePath  string `json:"file_path,omitempty"`
	Error     string `json:"error,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms,omitempty"`
}
