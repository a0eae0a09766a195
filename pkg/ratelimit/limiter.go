package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow checks if a request is allowed under the current rate limit
	Allow() bool
	// Wait blocks until the rate limit allows another request or ctx is done
	Wait(ctx context.Context) error
	// Reset resets the rate limiter state
	Reset()
}

// SlidingWindow implements a sliding window rate limiter
type SlidingWindow struct {
	windowSize  time.Duration
	maxRequests int
	requests    []time.Time
	// pausedUntil blocks every request until the given time
	pausedUntil time.Time
	mu          sync.Mutex
}

// NewSlidingWindow creates a new sliding window rate limiter
func NewSlidingWindow(maxRequests int, windowSize time.Duration) *SlidingWindow {
	if maxRequests <= 0 {
		maxRequests = 1
	}
	return &SlidingWindow{
		windowSize:  windowSize,
		maxRequests: maxRequests,
		requests:    make([]time.Time, 0, maxRequests),
	}
}

// PerMinute returns a limiter allowing rpm requests in any rolling minute
func PerMinute(rpm int) *SlidingWindow {
	return NewSlidingWindow(rpm, time.Minute)
}

// Allow checks if a request can proceed
func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	if now.Before(sw.pausedUntil) {
		return false
	}
	sw.cleanOldRequests(now)

	if len(sw.requests) < sw.maxRequests {
		sw.requests = append(sw.requests, now)
		return true
	}

	return false
}

// Wait blocks until a request is allowed
func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for !sw.Allow() {
		if err := sleep(ctx, sw.timeToWait()); err != nil {
			return err
		}
	}
	return nil
}

// PauseUntil holds all requests until t, used when the server reports an
// exhausted quota
func (sw *SlidingWindow) PauseUntil(t time.Time) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if t.After(sw.pausedUntil) {
		sw.pausedUntil = t
	}
}

// Reset clears all recorded requests and any pause
func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.requests = sw.requests[:0]
	sw.pausedUntil = time.Time{}
}

// Used reports how many requests fall inside the current window
func (sw *SlidingWindow) Used() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.cleanOldRequests(time.Now())
	return len(sw.requests)
}

// Capacity is the number of requests allowed per window
func (sw *SlidingWindow) Capacity() int {
	return sw.maxRequests
}

func (sw *SlidingWindow) timeToWait() time.Duration {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	if now.Before(sw.pausedUntil) {
		return sw.pausedUntil.Sub(now)
	}
	if len(sw.requests) > 0 {
		if d := sw.windowSize - now.Sub(sw.requests[0]); d > 0 {
			return d
		}
	}
	// Small sleep to prevent busy waiting
	return 10 * time.Millisecond
}

// cleanOldRequests removes requests outside the sliding window
func (sw *SlidingWindow) cleanOldRequests(now time.Time) {
	cutoff := now.Add(-sw.windowSize)

	i := 0
	for i < len(sw.requests) && !sw.requests[i].After(cutoff) {
		i++
	}

	if i > 0 {
		copy(sw.requests, sw.requests[i:])
		sw.requests = sw.requests[:len(sw.requests)-i]
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unlimited is a Limiter that never blocks
type Unlimited struct{}

func (Unlimited) Allow() bool                    { return true }
func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }
func (Unlimited) Reset()                         {}
