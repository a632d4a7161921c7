package queue

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/viralclips/dispatch"
)

// ---------------------------------------------------------------------------
// Manager basics
// ---------------------------------------------------------------------------

func TestNewManager_Empty(t *testing.T) {
	m := NewManager()
	if err := m.Acquire("any-type"); err != nil {
		t.Fatalf("expected Acquire to succeed for unconfigured type, got %v", err)
	}
	m.Release("any-type")
}

func TestNewManager_WithConfig(t *testing.T) {
	m := NewManager(Config{JobType: "download_video", MaxOutstanding: 2})
	if m.Outstanding("download_video") != 0 {
		t.Fatal("expected 0 outstanding jobs initially")
	}
}

// ---------------------------------------------------------------------------
// Outstanding cap
// ---------------------------------------------------------------------------

func TestManager_MaxOutstanding(t *testing.T) {
	m := NewManager(Config{JobType: "download_video", MaxOutstanding: 2})

	if err := m.Acquire("download_video"); err != nil {
		t.Fatalf("first Acquire should succeed: %v", err)
	}
	if err := m.Acquire("download_video"); err != nil {
		t.Fatalf("second Acquire should succeed: %v", err)
	}
	if err := m.Acquire("download_video"); !errors.Is(err, dispatch.ErrQueueFull) {
		t.Fatalf("third Acquire: expected ErrQueueFull, got %v", err)
	}

	m.Release("download_video")
	if err := m.Acquire("download_video"); err != nil {
		t.Fatalf("Acquire should succeed after Release: %v", err)
	}
}

func TestManager_AcquireRelease_Outstanding(t *testing.T) {
	m := NewManager(Config{JobType: "t", MaxOutstanding: 5})

	for i := range 3 {
		if err := m.Acquire("t"); err != nil {
			t.Fatalf("Acquire %d should succeed: %v", i, err)
		}
	}
	if m.Outstanding("t") != 3 {
		t.Fatalf("expected 3 outstanding, got %d", m.Outstanding("t"))
	}

	m.Release("t")
	m.Release("t")
	if m.Outstanding("t") != 1 {
		t.Fatalf("expected 1 outstanding, got %d", m.Outstanding("t"))
	}
}

// ---------------------------------------------------------------------------
// Rate limiting
// ---------------------------------------------------------------------------

func TestManager_RateLimit_Throttles(t *testing.T) {
	m := NewManager(Config{JobType: "limited", RateLimit: 1.0, RateBurst: 1})

	if err := m.Acquire("limited"); err != nil {
		t.Fatalf("first Acquire should succeed (within burst): %v", err)
	}
	m.Release("limited")

	if err := m.Acquire("limited"); !errors.Is(err, dispatch.ErrRateLimited) {
		t.Fatalf("second Acquire: expected ErrRateLimited, got %v", err)
	}

	time.Sleep(1100 * time.Millisecond)
	if err := m.Acquire("limited"); err != nil {
		t.Fatalf("Acquire should succeed after token refill: %v", err)
	}
	m.Release("limited")
}

func TestManager_RateLimit_BurstAllows(t *testing.T) {
	m := NewManager(Config{JobType: "bursty", RateLimit: 10.0, RateBurst: 3})

	for i := range 3 {
		if err := m.Acquire("bursty"); err != nil {
			t.Fatalf("Acquire %d should succeed (within burst): %v", i, err)
		}
		m.Release("bursty")
	}
}

func TestManager_CapCheckedBeforeRate(t *testing.T) {
	m := NewManager(Config{JobType: "t", MaxOutstanding: 1, RateLimit: 0.001, RateBurst: 2})

	if err := m.Acquire("t"); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	// Refused by the cap; must not spend the second token.
	if err := m.Acquire("t"); !errors.Is(err, dispatch.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	m.Release("t")
	if err := m.Acquire("t"); err != nil {
		t.Fatalf("second token should still be available: %v", err)
	}
}

func TestManager_TypesIsolated(t *testing.T) {
	m := NewManager(
		Config{JobType: "a", MaxOutstanding: 1},
		Config{JobType: "b", MaxOutstanding: 1},
	)

	_ = m.Acquire("a")
	if err := m.Acquire("a"); err == nil {
		t.Fatal("a should be blocked at its cap")
	}
	if err := m.Acquire("b"); err != nil {
		t.Fatalf("b should not be affected by a's limits: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Dynamic reconfiguration
// ---------------------------------------------------------------------------

func TestManager_SetConfig(t *testing.T) {
	m := NewManager(Config{JobType: "dyn", MaxOutstanding: 1})

	_ = m.Acquire("dyn")
	if err := m.Acquire("dyn"); err == nil {
		t.Fatal("should be blocked at cap 1")
	}

	m.SetConfig(Config{JobType: "dyn", MaxOutstanding: 3})

	if err := m.Acquire("dyn"); err != nil {
		t.Fatalf("should succeed after raising cap: %v", err)
	}
	if m.Outstanding("dyn") != 2 {
		t.Fatalf("outstanding count should survive reconfiguration, got %d", m.Outstanding("dyn"))
	}
}

// ---------------------------------------------------------------------------
// Concurrency safety
// ---------------------------------------------------------------------------

func TestManager_ConcurrentAccess(t *testing.T) {
	m := NewManager(Config{JobType: "concurrent", MaxOutstanding: 50})

	var acquired atomic.Int64
	var wg sync.WaitGroup

	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.Acquire("concurrent") == nil {
				acquired.Add(1)
				time.Sleep(time.Millisecond)
				m.Release("concurrent")
			}
		}()
	}
	wg.Wait()

	if acquired.Load() == 0 {
		t.Fatal("expected some Acquires to succeed")
	}
	if m.Outstanding("concurrent") != 0 {
		t.Fatalf("expected 0 outstanding after all goroutines, got %d", m.Outstanding("concurrent"))
	}
}

func TestManager_ReleaseUnderflow(t *testing.T) {
	m := NewManager(Config{JobType: "t", MaxOutstanding: 5})

	m.Release("t")
	if m.Outstanding("t") != 0 {
		t.Fatal("outstanding count should not go below 0")
	}
}
