// Package queue enforces per-job-type admission limits.
//
// Every dispatch passes through the [Manager] before a record is created.
// A job type without a [Config] is only bounded by the pool-wide queue
// capacity.
//
// # Per-Type Configuration
//
//	queue.Config{
//	    JobType:        "download_video",
//	    MaxOutstanding: 8,  // at most 8 download jobs queued or running
//	    RateLimit:      2,  // at most 2 new download jobs per second
//	    RateBurst:      5,  // allow bursts up to 5
//	}
//
// Pass configs when building the engine:
//
//	engine.Build(d, reg,
//	    engine.WithQueueConfig(
//	        queue.Config{JobType: "download_video", MaxOutstanding: 8},
//	    ),
//	)
//
// # Manager
//
// [Manager] uses a token-bucket rate limiter (golang.org/x/time/rate) and
// an outstanding-count gate. Acquire never blocks.
//
//	if err := m.Acquire(jobType); err != nil {
//	    return err // dispatch.ErrRateLimited or dispatch.ErrQueueFull
//	}
//	defer m.Release(jobType) // once the job reached a terminal state
package queue
