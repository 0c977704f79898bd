// Package resilience provides fault-tolerance patterns: retry with
// exponential backoff, a bounded conflict-retry loop with a fixed schedule,
// circuit breaker, and bulkhead.
package resilience

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"
)

// Config holds backoff parameters for infrastructure retries (connect, ping).
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
}

// RetryWithBackoff executes fn with exponential backoff + jitter.
// It respects context cancellation.
func RetryWithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt < cfg.MaxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * cfg.InitialBackoff
			wait := backoff
			if half := int64(backoff / 2); half > 0 {
				wait += time.Duration(rand.Int63n(half))
			}
			if err := sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
	return lastErr
}

// ============================================================
// Conflict retry
// ============================================================

// ConflictPolicy bounds the optimistic-concurrency retry loop. Backoff[n-1]
// is slept after failed attempt n; the last entry repeats if the schedule is
// shorter than MaxAttempts-1.
type ConflictPolicy struct {
	MaxAttempts int
	Backoff     []time.Duration
}

// DefaultConflictPolicy is three attempts with 20ms, 40ms, 80ms waits.
func DefaultConflictPolicy() ConflictPolicy {
	return ConflictPolicy{
		MaxAttempts: 3,
		Backoff:     []time.Duration{20 * time.Millisecond, 40 * time.Millisecond, 80 * time.Millisecond},
	}
}

func (p ConflictPolicy) wait(attempt int) time.Duration {
	if len(p.Backoff) == 0 {
		return 0
	}
	i := attempt - 1
	if i >= len(p.Backoff) {
		i = len(p.Backoff) - 1
	}
	return p.Backoff[i]
}

// ExhaustedError is returned when every attempt ended in a conflict.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d conflicting attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// RetryHook observes each conflict that will be retried.
type RetryHook func(attempt int, wait time.Duration, err error)

// RetryOnConflict runs fn until it succeeds, fails with an error isConflict
// rejects, or MaxAttempts conflicts happened. Every attempt re-runs fn from
// scratch.
func RetryOnConflict(ctx context.Context, p ConflictPolicy, isConflict func(error) bool, onRetry RetryHook, fn func(ctx context.Context, attempt int) error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	for attempt := 1; ; attempt++ {
		err := fn(ctx, attempt)
		if err == nil || !isConflict(err) {
			return err
		}
		if attempt >= maxAttempts {
			return &ExhaustedError{Attempts: attempt, Err: err}
		}
		wait := p.wait(attempt)
		if onRetry != nil {
			onRetry(attempt, wait, err)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ============================================================
// Circuit breaker / bulkhead
// ============================================================

// NewCircuitBreaker creates a circuit breaker with sensible defaults.
// isSuccessful decides which errors count as healthy round trips; nil means
// only a nil error does.
func NewCircuitBreaker(name string, isSuccessful func(error) bool) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:         name,
		MaxRequests:  3,                // half-open: allow 3 requests
		Interval:     30 * time.Second, // closed: reset counters every 30s
		Timeout:      10 * time.Second, // open -> half-open after 10s
		IsSuccessful: isSuccessful,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
	})
}

// Bulkhead limits concurrent access to a resource.
type Bulkhead struct {
	sem chan struct{}
}

// NewBulkhead creates a bulkhead with the given max concurrency.
func NewBulkhead(maxConcurrency int) *Bulkhead {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Bulkhead{sem: make(chan struct{}, maxConcurrency)}
}

// Acquire blocks until a slot is available or context is cancelled.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot.
func (b *Bulkhead) Release() {
	<-b.sem
}

// InUse reports how many slots are currently held.
func (b *Bulkhead) InUse() int { return len(b.sem) }
