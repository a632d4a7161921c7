package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/viralclips/dispatch/job"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testJob(jobType string) *job.Job {
	return job.New(jobType, json.RawMessage(`{}`), time.Now())
}

func receive(t *testing.T, sub *Subscriber) *Event {
	t.Helper()
	select {
	case evt, ok := <-sub.C():
		if !ok {
			t.Fatal("subscriber closed")
		}
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func expectNone(t *testing.T, sub *Subscriber) {
	t.Helper()
	select {
	case evt := <-sub.C():
		t.Fatalf("unexpected event %s on %s", evt.Type, sub.ID())
	default:
	}
}

func TestBrokerSubscribeAndPublish(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	j := testJob("download_video")
	sub := b.Subscribe(JobTopic(j.ID.String()))

	if err := b.OnJobCreated(context.Background(), j); err != nil {
		t.Fatalf("OnJobCreated: %v", err)
	}

	evt := receive(t, sub)
	if evt.Type != EventJobCreated {
		t.Errorf("Type = %q, want %q", evt.Type, EventJobCreated)
	}
	if evt.Topic != JobTopic(j.ID.String()) {
		t.Errorf("Topic = %q", evt.Topic)
	}

	var data JobEventData
	if err := json.Unmarshal(evt.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.JobID != j.ID.String() || data.JobType != "download_video" || data.Status != "queued" || data.Progress != job.ProgressStart {
		t.Errorf("unexpected data %+v", data)
	}
}

func TestBrokerTopicRouting(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	ctx := context.Background()
	a := testJob("download_video")
	other := testJob("transcode")

	all := b.Subscribe(TopicJobs)
	byType := b.Subscribe(TypeTopic("download_video"))
	byJob := b.Subscribe(JobTopic(a.ID.String()))

	_ = b.OnJobStarted(ctx, other)
	receive(t, all)
	expectNone(t, byType)
	expectNone(t, byJob)

	_ = b.OnJobStarted(ctx, a)
	for _, sub := range []*Subscriber{all, byType, byJob} {
		if evt := receive(t, sub); evt.Type != EventJobStarted {
			t.Errorf("%s: Type = %q", sub.ID(), evt.Type)
		}
	}
}

func TestBrokerDeduplicatesAcrossTopics(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	j := testJob("download_video")
	sub := b.Subscribe(TopicJobs, TypeTopic(j.Type), JobTopic(j.ID.String()))

	_ = b.OnJobCreated(context.Background(), j)
	receive(t, sub)
	expectNone(t, sub)
}

func TestBrokerEventPayloads(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	ctx := context.Background()
	j := testJob("download_video")
	sub := b.Subscribe(JobTopic(j.ID.String()))

	j.Status = "downloading"
	j.Progress = "42.0%"
	_ = b.OnJobProgressed(ctx, j, job.Progress{Status: "downloading", Progress: "42.0%", ETA: "7"})

	j.Status = job.StatusCompleted
	j.Progress = "100%"
	j.FilePath = "downloads/" + j.ID.String() + ".mp4"
	_ = b.OnJobCompleted(ctx, j, 2*time.Second)

	tests := []struct {
		typ  EventType
		want JobEventData
	}{
		{EventJobProgress, JobEventData{Status: "downloading", Progress: "42.0%", ETA: "7"}},
		{EventJobCompleted, JobEventData{Status: "completed", Progress: "100%", FilePath: j.FilePath, ElapsedMs: 2000}},
	}
	for _, tt := range tests {
		evt := receive(t, sub)
		if evt.Type != tt.typ {
			t.Fatalf("Type = %q, want %q", evt.Type, tt.typ)
		}
		var got JobEventData
		if err := json.Unmarshal(evt.Data, &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		tt.want.JobID = j.ID.String()
		tt.want.JobType = j.Type
		if got != tt.want {
			t.Errorf("%s data = %+v, want %+v", tt.typ, got, tt.want)
		}
	}
	if !EventJobCompleted.Terminal() || EventJobProgress.Terminal() {
		t.Error("Terminal mismatch")
	}
}

func TestBrokerJobFailed(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	j := testJob("download_video")
	j.Status = job.StatusFailed
	sub := b.Subscribe(JobTopic(j.ID.String()))

	_ = b.OnJobFailed(context.Background(), j, errors.New("network timeout"))

	evt := receive(t, sub)
	var data JobEventData
	if err := json.Unmarshal(evt.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if evt.Type != EventJobFailed || data.Error != "network timeout" || data.Status != "failed" {
		t.Errorf("unexpected failure event %s %+v", evt.Type, data)
	}
}

func TestBrokerFullBufferDrops(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger(), WithBufferSize(1))
	j := testJob("download_video")
	sub := b.Subscribe(JobTopic(j.ID.String()))

	for range 3 {
		_ = b.OnJobProgressed(context.Background(), j, job.Progress{Progress: "1%"})
	}

	if sub.Dropped() != 2 {
		t.Errorf("Dropped = %d, want 2", sub.Dropped())
	}
	stats := b.Stats()
	if stats.TotalPublished != 1 || stats.TotalDropped != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestBrokerDroppedTerminalClosesSubscriber(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger(), WithBufferSize(4))
	j := testJob("download_video")
	sub := b.Subscribe(JobTopic(j.ID.String()))

	ctx := context.Background()
	_ = b.OnJobStarted(ctx, j)
	for range 10 {
		_ = b.OnJobProgressed(ctx, j, job.Progress{Status: "downloading", Progress: "12.5%"})
	}
	_ = b.OnJobCompleted(ctx, j, time.Second)

	var got int
	for range sub.C() {
		got++
	}
	if got != 4 {
		t.Errorf("buffered events = %d, want 4", got)
	}
	if !sub.Overflowed() {
		t.Error("subscriber should be marked overflowed")
	}
	if sub.Dropped() != 8 {
		t.Errorf("Dropped = %d, want 8", sub.Dropped())
	}
}

func TestBrokerCloseIsNotOverflow(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger(), WithBufferSize(1))
	j := testJob("download_video")
	sub := b.Subscribe(JobTopic(j.ID.String()))

	// Non-terminal drops keep the subscriber open.
	_ = b.OnJobProgressed(context.Background(), j, job.Progress{Progress: "1%"})
	_ = b.OnJobProgressed(context.Background(), j, job.Progress{Progress: "2%"})
	receive(t, sub)

	b.RemoveSubscriber(sub.ID())
	if _, ok := <-sub.C(); ok {
		t.Fatal("channel should be closed")
	}
	if sub.Overflowed() {
		t.Error("removed subscriber reported as overflowed")
	}
}

func TestBrokerFilter(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	sub := b.SubscribeFunc(func(e *Event) bool { return e.Type.Terminal() }, TopicJobs)

	j := testJob("download_video")
	_ = b.OnJobStarted(context.Background(), j)
	expectNone(t, sub)

	_ = b.OnJobCompleted(context.Background(), j, time.Second)
	if evt := receive(t, sub); evt.Type != EventJobCompleted {
		t.Errorf("Type = %q", evt.Type)
	}
	if b.Stats().TotalDropped != 0 {
		t.Error("filtered events must not count as dropped")
	}
}

func TestBrokerRemoveSubscriber(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	j := testJob("download_video")
	sub := b.Subscribe(TopicJobs, JobTopic(j.ID.String()), TopicJobs)

	if got := b.Stats(); got.SubscriberCount != 1 || got.TopicCount != 2 {
		t.Fatalf("stats = %+v", got)
	}
	if got, want := sub.Topics(), []string{JobTopic(j.ID.String()), TopicJobs}; !slices.Equal(got, want) {
		t.Errorf("Topics = %v, want %v", got, want)
	}

	b.RemoveSubscriber(sub.ID())
	b.RemoveSubscriber(sub.ID())

	if _, ok := <-sub.C(); ok {
		t.Error("channel should be closed")
	}
	if got := b.Stats(); got.SubscriberCount != 0 || got.TopicCount != 0 {
		t.Errorf("stats after remove = %+v", got)
	}
	_ = b.OnJobCreated(context.Background(), j)
}

func TestBrokerShutdown(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	sub := b.Subscribe(TopicJobs)

	if err := b.OnShutdown(context.Background()); err != nil {
		t.Fatalf("OnShutdown: %v", err)
	}
	if _, ok := <-sub.C(); ok {
		t.Error("subscriber should be closed on shutdown")
	}

	late := b.Subscribe(TopicJobs)
	if _, ok := <-late.C(); ok {
		t.Error("subscribers created after shutdown should be closed")
	}
	if b.Stats().SubscriberCount != 0 {
		t.Error("no subscribers should remain")
	}
}

func TestBrokerConcurrentPublishAndClose(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	j := testJob("download_video")

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_ = b.OnJobProgressed(context.Background(), j, job.Progress{Progress: "1%"})
			}
		}()
	}
	for range 20 {
		sub := b.Subscribe(TopicJobs)
		b.RemoveSubscriber(sub.ID())
	}
	wg.Wait()
}

func TestValidateTopic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		topic   string
		wantErr bool
	}{
		{TopicJobs, false},
		{JobTopic("job_01h455vb4pex5vsknk084sn02q"), false},
		{TypeTopic("download_video"), false},
		{"job:", true},
		{"queue:default", true},
		{"firehose", true},
	}
	for _, tt := range tests {
		if err := ValidateTopic(tt.topic); (err != nil) != tt.wantErr {
			t.Errorf("ValidateTopic(%q) err = %v, wantErr %v", tt.topic, err, tt.wantErr)
		}
	}
}

func TestBrokerSubscribeSkipsInvalidTopics(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	sub := b.Subscribe("queue:default", "job:", TopicJobs)
	if got := sub.Topics(); !slices.Equal(got, []string{TopicJobs}) {
		t.Fatalf("Topics = %v", got)
	}

	_ = b.OnJobCreated(context.Background(), testJob("download_video"))
	if evt := receive(t, sub); evt.Type != EventJobCreated {
		t.Errorf("Type = %q", evt.Type)
	}
}
