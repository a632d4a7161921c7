package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/viralclips/dispatch"
	"github.com/viralclips/dispatch/id"
	"github.com/viralclips/dispatch/job"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClockedStore() (*Store, *fakeClock) {
	clk := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return New(WithClock(clk.Now)), clk
}

// ──────────────────────────────────────────────────
// Lifecycle tests
// ──────────────────────────────────────────────────

func TestLifecycle(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, dispatch.ErrStoreClosed) {
		t.Fatalf("Ping after Close = %v, want ErrStoreClosed", err)
	}
	if _, err := s.CreateJob(ctx, "t", nil); !errors.Is(err, dispatch.ErrStorageUnavailable) {
		t.Fatalf("CreateJob after Close = %v, want ErrStorageUnavailable", err)
	}
}

// ──────────────────────────────────────────────────
// Job Store tests
// ──────────────────────────────────────────────────

func TestCreateAndGet(t *testing.T) {
	t.Parallel()
	s, _ := newClockedStore()
	ctx := context.Background()

	created, err := s.CreateJob(ctx, "download_video", []byte(`{"url":"https://youtube.com/watch?v=abc"}`))
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	got, err := s.GetJob(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != job.StatusQueued || got.Progress != "0" {
		t.Errorf("status/progress = %q/%q, want queued/0", got.Status, got.Progress)
	}
	if got.Type != "download_video" {
		t.Errorf("Type = %q", got.Type)
	}
	if string(got.Payload) != `{"url":"https://youtube.com/watch?v=abc"}` {
		t.Errorf("Payload = %s", got.Payload)
	}
	if got.CreatedAt.After(got.UpdatedAt) {
		t.Error("created_at must not be after updated_at")
	}
}

func TestGetUnknown(t *testing.T) {
	t.Parallel()
	s := New()
	if _, err := s.GetJob(context.Background(), id.NewJobID()); !errors.Is(err, dispatch.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestUniqueIDs(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	seen := make(map[string]struct{})
	for range 200 {
		j, err := s.CreateJob(ctx, "t", nil)
		if err != nil {
			t.Fatalf("CreateJob: %v", err)
		}
		if _, dup := seen[j.ID.String()]; dup {
			t.Fatalf("duplicate id %s", j.ID)
		}
		seen[j.ID.String()] = struct{}{}
	}
	if s.Len() != 200 {
		t.Fatalf("Len = %d, want 200", s.Len())
	}
}

func TestUpdateMerges(t *testing.T) {
	t.Parallel()
	s, clk := newClockedStore()
	ctx := context.Background()

	j, _ := s.CreateJob(ctx, "t", nil)
	clk.Advance(3 * time.Second)

	if err := s.UpdateJob(ctx, j.ID, job.StartPatch()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.UpdateJob(ctx, j.ID, job.Patch{}.WithStatus("downloading").WithProgress("60%").WithETA("12")); err != nil {
		t.Fatalf("progress: %v", err)
	}

	got, _ := s.GetJob(ctx, j.ID)
	if got.Status != "downloading" || got.Progress != "60%" || got.ETA != "12" {
		t.Errorf("got %q/%q/%q", got.Status, got.Progress, got.ETA)
	}
	if !got.UpdatedAt.Equal(j.CreatedAt.Add(3 * time.Second)) {
		t.Errorf("UpdatedAt = %v, want created+3s", got.UpdatedAt)
	}
}

func TestUpdateMissing(t *testing.T) {
	t.Parallel()
	s := New()
	err := s.UpdateJob(context.Background(), id.NewJobID(), job.StartPatch())
	if !errors.Is(err, dispatch.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
	if s.Len() != 0 {
		t.Fatal("update on a missing id must not create a record")
	}
}

func TestUpdateAfterTerminal(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	j, _ := s.CreateJob(ctx, "t", nil)
	_ = s.UpdateJob(ctx, j.ID, job.StartPatch())
	if err := s.UpdateJob(ctx, j.ID, job.CompletePatch(job.Result{Status: "success"})); err != nil {
		t.Fatalf("complete: %v", err)
	}

	err := s.UpdateJob(ctx, j.ID, job.Patch{}.WithStatus("downloading").WithProgress("60%"))
	if !errors.Is(err, dispatch.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	got, _ := s.GetJob(ctx, j.ID)
	if got.Status != job.StatusCompleted || got.Progress != "100" {
		t.Fatalf("terminal record changed: %q/%q", got.Status, got.Progress)
	}
}

func TestUpdateBackToQueued(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	j, _ := s.CreateJob(ctx, "t", nil)
	_ = s.UpdateJob(ctx, j.ID, job.StartPatch())
	err := s.UpdateJob(ctx, j.ID, job.Patch{}.WithStatus(job.StatusQueued))
	if !errors.Is(err, dispatch.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestTTLExpiry(t *testing.T) {
	t.Parallel()
	s, clk := newClockedStore()
	ctx := context.Background()

	j, _ := s.CreateJob(ctx, "t", nil)

	clk.Advance(dispatch.DefaultJobTTL - time.Second)
	if err := s.UpdateJob(ctx, j.ID, job.StartPatch()); err != nil {
		t.Fatalf("update before expiry: %v", err)
	}

	// The update above must not have extended the lifetime.
	clk.Advance(time.Second)
	if _, err := s.GetJob(ctx, j.ID); !errors.Is(err, dispatch.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound after TTL, got %v", err)
	}
	if err := s.UpdateJob(ctx, j.ID, job.Patch{}.WithProgress("50%")); !errors.Is(err, dispatch.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound on update after TTL, got %v", err)
	}
}

func TestCustomTTL(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	s := New(WithTTL(time.Minute), WithClock(clk.Now))
	ctx := context.Background()

	j, _ := s.CreateJob(ctx, "t", nil)
	clk.Advance(time.Minute)
	if _, err := s.GetJob(ctx, j.ID); !errors.Is(err, dispatch.ErrJobNotFound) {
		t.Fatalf("expected expiry after 1m, got %v", err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	j, _ := s.CreateJob(ctx, "t", []byte(`{"a":1}`))
	got, _ := s.GetJob(ctx, j.ID)
	got.Status = job.StatusFailed
	got.Payload[0] = 'X'

	again, _ := s.GetJob(ctx, j.ID)
	if again.Status != job.StatusQueued || string(again.Payload) != `{"a":1}` {
		t.Fatal("mutating a returned record must not affect the store")
	}
}

func TestConcurrentUpdates(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	j, _ := s.CreateJob(ctx, "t", nil)
	_ = s.UpdateJob(ctx, j.ID, job.StartPatch())

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.UpdateJob(ctx, j.ID, job.Patch{}.WithProgress(job.ETASeconds(i)))
		}()
	}
	wg.Wait()

	got, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != job.StatusInProgress {
		t.Errorf("status = %q", got.Status)
	}
}
