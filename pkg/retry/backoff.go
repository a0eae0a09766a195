package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	errs "mineralscraper/pkg/errors"
)

// BackoffStrategy computes how long to wait before a given attempt.
// Attempts are numbered from 1; attempt 0 never waits.
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff grows the delay by Multiplier per attempt, capped at
// MaxDelay, then spreads it by up to JitterFactor in either direction.
type ExponentialBackoff struct {
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64
}

// DefaultExponentialBackoff starts at one second and doubles up to a minute.
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:    time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	m := math.Max(eb.Multiplier, 1)
	d := float64(eb.BaseDelay) * math.Pow(m, float64(attempt-1))
	return jittered(math.Min(d, float64(eb.MaxDelay)), eb.JitterFactor)
}

// LinearBackoff adds Increment per attempt on top of BaseDelay.
type LinearBackoff struct {
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	Increment    time.Duration
	JitterFactor float64
}

func (lb *LinearBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	d := float64(lb.BaseDelay + lb.Increment*time.Duration(attempt-1))
	return jittered(math.Min(d, float64(lb.MaxDelay)), lb.JitterFactor)
}

// ConstantBackoff waits the same Delay before every retry.
type ConstantBackoff struct {
	Delay time.Duration
}

func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return cb.Delay
}

// jittered moves d by a random amount in [-d*factor, +d*factor] and never
// returns a negative duration.
func jittered(d, factor float64) time.Duration {
	if factor > 0 {
		spread := d * factor
		d += rand.Float64()*2*spread - spread
	}
	if d < 0 {
		return 0
	}
	return time.Duration(d)
}

// Wait sleeps for delay unless ctx ends first.
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ErrorTypeBackoff chooses a strategy from the classified error type.
type ErrorTypeBackoff struct {
	NetworkErrorBackoff BackoffStrategy
	RateLimitBackoff    BackoffStrategy
	ServerErrorBackoff  BackoffStrategy
	DefaultBackoff      BackoffStrategy
}

// NewErrorTypeBackoff returns the strategies used against Reddit: quick
// linear retries for dropped connections, long waits for 429s.
func NewErrorTypeBackoff() *ErrorTypeBackoff {
	return &ErrorTypeBackoff{
		NetworkErrorBackoff: &LinearBackoff{
			BaseDelay:    time.Second,
			MaxDelay:     15 * time.Second,
			Increment:    2 * time.Second,
			JitterFactor: 0.2,
		},
		// the quota window is ten minutes long
		RateLimitBackoff: &ExponentialBackoff{
			BaseDelay:    10 * time.Second,
			MaxDelay:     10 * time.Minute,
			Multiplier:   3.0,
			JitterFactor: 0.2,
		},
		ServerErrorBackoff: &ExponentialBackoff{
			BaseDelay:    5 * time.Second,
			MaxDelay:     time.Minute,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		DefaultBackoff: DefaultExponentialBackoff(),
	}
}

func (etb *ErrorTypeBackoff) GetBackoffForError(errorType errs.ErrorType) BackoffStrategy {
	switch errorType {
	case errs.ErrorTypeNetwork:
		return etb.NetworkErrorBackoff
	case errs.ErrorTypeRateLimit:
		return etb.RateLimitBackoff
	case errs.ErrorTypeServerError:
		return etb.ServerErrorBackoff
	default:
		return etb.DefaultBackoff
	}
}
