package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viralclips/dispatch/ext"
	"github.com/viralclips/dispatch/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension     = (*Broker)(nil)
	_ ext.JobCreated    = (*Broker)(nil)
	_ ext.JobStarted    = (*Broker)(nil)
	_ ext.JobProgressed = (*Broker)(nil)
	_ ext.JobCompleted  = (*Broker)(nil)
	_ ext.JobFailed     = (*Broker)(nil)
	_ ext.Shutdown      = (*Broker)(nil)
)

// DefaultBufferSize is the default per-subscriber event buffer.
const DefaultBufferSize = 64

// Broker is the real-time stream broker. It implements the ext.Extension
// interface to receive lifecycle events and fans them out to subscribers
// via topic-based pub/sub.
type Broker struct {
	routes *router
	logger *slog.Logger
	now    func() time.Time

	subscribers sync.Map // subscriberID → *Subscriber
	seq         atomic.Uint64
	shutdown    atomic.Bool

	totalPublished atomic.Int64
	totalDropped   atomic.Int64

	bufferSize int
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithBufferSize sets the per-subscriber event buffer size.
func WithBufferSize(size int) BrokerOption {
	return func(b *Broker) { b.bufferSize = size }
}

// NewBroker creates a new stream broker.
func NewBroker(logger *slog.Logger, opts ...BrokerOption) *Broker {
	b := &Broker{
		routes:     newRouter(),
		logger:     logger,
		now:        time.Now,
		bufferSize: DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements ext.Extension.
func (b *Broker) Name() string { return "stream-broker" }

// Subscribe creates a subscriber on the given topics. After shutdown the
// returned subscriber is already closed.
func (b *Broker) Subscribe(topics ...string) *Subscriber {
	return b.SubscribeFunc(nil, topics...)
}

// SubscribeFunc is like Subscribe but delivers only events for which
// filter returns true. A nil filter accepts everything. Malformed topic
// names are logged and skipped.
func (b *Broker) SubscribeFunc(filter func(*Event) bool, topics ...string) *Subscriber {
	topics = slices.DeleteFunc(slices.Clone(topics), func(t string) bool {
		if err := ValidateTopic(t); err != nil {
			b.logger.Warn("stream subscribe: topic ignored", slog.String("error", err.Error()))
			return true
		}
		return false
	})
	sub := newSubscriber("sub_"+strconv.FormatUint(b.seq.Add(1), 10), b.bufferSize, filter, topics)
	if b.shutdown.Load() {
		sub.Close()
		return sub
	}
	b.subscribers.Store(sub.ID(), sub)
	b.routes.add(sub)
	return sub
}

// RemoveSubscriber takes a subscriber off its topics and closes it.
// Unknown IDs are ignored.
func (b *Broker) RemoveSubscriber(subscriberID string) {
	val, ok := b.subscribers.LoadAndDelete(subscriberID)
	if !ok {
		return
	}
	sub := val.(*Subscriber) //nolint:errcheck // sync.Map always stores *Subscriber
	b.routes.remove(sub)
	sub.Close()
}

// Stats returns broker statistics.
func (b *Broker) Stats() BrokerStats {
	count := 0
	b.subscribers.Range(func(_, _ any) bool {
		count++
		return true
	})
	return BrokerStats{
		TopicCount:      b.routes.topicCount(),
		SubscriberCount: count,
		TotalPublished:  b.totalPublished.Load(),
		TotalDropped:    b.totalDropped.Load(),
	}
}

// BrokerStats contains broker metrics.
type BrokerStats struct {
	TopicCount      int   `json:"topic_count"`
	SubscriberCount int   `json:"subscriber_count"`
	TotalPublished  int64 `json:"total_published"`
	TotalDropped    int64 `json:"total_dropped"`
}

// publish wraps j in an event and broadcasts it to all matching topics.
func (b *Broker) publish(typ EventType, j *job.Job, data JobEventData) {
	data.JobID = j.ID.String()
	data.JobType = j.Type
	if data.Status == "" {
		data.Status = string(j.Status)
	}
	if data.Progress == "" {
		data.Progress = j.Progress
	}

	evt := &Event{
		Type:      typ,
		Timestamp: b.now().UTC(),
		Topic:     JobTopic(data.JobID),
		JobType:   j.Type,
		Data:      mustMarshal(data),
	}
	delivered, dropped := b.routes.route(topicsFor(evt), evt)
	b.totalPublished.Add(int64(delivered))
	if dropped > 0 {
		b.totalDropped.Add(int64(dropped))
		b.logger.Debug("stream events dropped",
			slog.String("job_id", data.JobID),
			slog.String("event", string(typ)),
			slog.Int("subscribers", dropped),
		)
	}
}

// mustMarshal marshals data to JSON, panicking on error (programming error).
func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic("stream: marshal event data: " + err.Error())
	}
	return data
}

// ── Job lifecycle hooks ─────────────────────────────

// OnJobCreated implements ext.JobCreated.
func (b *Broker) OnJobCreated(_ context.Context, j *job.Job) error {
	b.publish(EventJobCreated, j, JobEventData{})
	return nil
}

// OnJobStarted implements ext.JobStarted.
func (b *Broker) OnJobStarted(_ context.Context, j *job.Job) error {
	b.publish(EventJobStarted, j, JobEventData{})
	return nil
}

// OnJobProgressed implements ext.JobProgressed.
func (b *Broker) OnJobProgressed(_ context.Context, j *job.Job, p job.Progress) error {
	b.publish(EventJobProgress, j, JobEventData{
		Status:   string(p.Status),
		Progress: p.Progress,
		ETA:      p.ETA,
	})
	return nil
}

// OnJobCompleted implements ext.JobCompleted.
func (b *Broker) OnJobCompleted(_ context.Context, j *job.Job, elapsed time.Duration) error {
	b.publish(EventJobCompleted, j, JobEventData{
		FilePath:  j.FilePath,
		ElapsedMs: elapsed.Milliseconds(),
	})
	return nil
}

// OnJobFailed implements ext.JobFailed.
func (b *Broker) OnJobFailed(_ context.Context, j *job.Job, jobErr error) error {
	b.publish(EventJobFailed, j, JobEventData{Error: jobErr.Error()})
	return nil
}

// ── Shutdown ────────────────────────────────────────

// OnShutdown implements ext.Shutdown. It closes every subscriber so
// streaming handlers return. Later calls are no-ops.
func (b *Broker) OnShutdown(_ context.Context) error {
	if !b.shutdown.CompareAndSwap(false, true) {
		return nil
	}
	b.subscribers.Range(func(key, value any) bool {
		sub := value.(*Subscriber) //nolint:errcheck // sync.Map always stores *Subscriber
		b.routes.remove(sub)
		sub.Close()
		b.subscribers.Delete(key)
		return true
	})
	b.logger.Info("stream broker shut down")
	return nil
}
