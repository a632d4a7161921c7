package stream

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Subscriber is one consumer of broker events. Delivery never blocks the
// publisher: when the buffer is full the event is dropped for this
// subscriber and counted.
type Subscriber struct {
	id     string
	ch     chan *Event
	topics []string
	filter func(*Event) bool

	dropped atomic.Int64

	// mu orders send against Close so a closed channel is never written.
	mu         sync.RWMutex
	closed     bool
	overflowed bool
}

func newSubscriber(id string, buffer int, filter func(*Event) bool, topics []string) *Subscriber {
	return &Subscriber{
		id:     id,
		ch:     make(chan *Event, buffer),
		topics: slices.Compact(slices.Sorted(slices.Values(topics))),
		filter: filter,
	}
}

// ID returns the subscriber identifier.
func (s *Subscriber) ID() string { return s.id }

// C returns the event channel. It is closed when the subscriber is
// removed or the broker shuts down.
func (s *Subscriber) C() <-chan *Event { return s.ch }

// Dropped returns how many events were discarded on a full buffer.
func (s *Subscriber) Dropped() int64 { return s.dropped.Load() }

// Overflowed reports whether the subscriber was closed because a terminal
// event did not fit in its buffer. The outcome must then be read from the
// store.
func (s *Subscriber) Overflowed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overflowed
}

// Topics returns the topics the subscriber listens on, sorted.
func (s *Subscriber) Topics() []string { return slices.Clone(s.topics) }

func (s *Subscriber) send(evt *Event) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- evt:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Close closes the event channel. Safe to call more than once.
func (s *Subscriber) Close() { s.close(false) }

func (s *Subscriber) close(overflowed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.overflowed = overflowed
		close(s.ch)
	}
}
