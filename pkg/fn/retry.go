package fn

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryOpts configures retry behavior. The wait before retry n (0-based) is
// InitialWait * Factor^n, capped at MaxWait.
type RetryOpts struct {
	MaxAttempts int
	InitialWait time.Duration
	Factor      float64
	MaxWait     time.Duration
	Jitter      bool
	// OnRetry is called after a failed attempt, before sleeping.
	OnRetry func(attempt int, err error)
}

// DefaultRetry provides sensible retry defaults.
var DefaultRetry = RetryOpts{
	MaxAttempts: 3,
	InitialWait: time.Second,
	Factor:      2,
	MaxWait:     30 * time.Second,
	Jitter:      true,
}

// Backoff returns the un-jittered wait after failed attempt n (0-based).
func (o RetryOpts) Backoff(n int) time.Duration {
	factor := o.Factor
	if factor <= 0 {
		factor = 2
	}
	d := time.Duration(float64(o.InitialWait) * math.Pow(factor, float64(n)))
	if o.MaxWait > 0 && d > o.MaxWait {
		d = o.MaxWait
	}
	return d
}

// Retry calls f up to MaxAttempts times. f receives the 0-based attempt number
// so callers can degrade later attempts.
func Retry[T any](ctx context.Context, opts RetryOpts, f func(ctx context.Context, attempt int) Result[T]) Result[T] {
	var result Result[T]
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}

	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		result = f(ctx, attempt)
		if result.IsOk() {
			return result
		}
		if attempt == opts.MaxAttempts-1 {
			break
		}
		if opts.OnRetry != nil {
			opts.OnRetry(attempt, result.err)
		}
		// Check context before sleeping
		select {
		case <-ctx.Done():
			return Err[T](ctx.Err())
		default:
		}

		sleepDur := opts.Backoff(attempt)
		if opts.Jitter {
			sleepDur = time.Duration(float64(sleepDur) * (0.5 + rand.Float64()))
		}
		if sleepDur <= 0 {
			continue
		}

		timer := time.NewTimer(sleepDur)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Err[T](ctx.Err())
		case <-timer.C:
		}
	}
	return result
}
