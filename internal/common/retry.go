package common

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// Backoff describes exponential retry delays. Zero values fall back to
// 200ms initial and 5s maximum.
type Backoff struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// JitterFactor spreads each delay by up to this fraction either way.
	JitterFactor float64
}

// RetryPolicy bounds the number of attempts made by Retry.
type RetryPolicy struct {
	Attempts int
	Backoff  Backoff
}

// DefaultRetryPolicy is used for downstream calls (mail, OAuth, market API).
var DefaultRetryPolicy = RetryPolicy{
	Attempts: 3,
	Backoff:  Backoff{InitialInterval: 200 * time.Millisecond, MaxInterval: 2 * time.Second, JitterFactor: 0.2},
}

// backoff builds the delay sequence between the attempts of p: doubling from
// the initial interval, jittered, capped and stopped after Attempts-1 waits.
func (p RetryPolicy) backoff() retry.Backoff {
	initial := p.Backoff.InitialInterval
	if initial <= 0 {
		initial = 200 * time.Millisecond
	}
	maxInterval := p.Backoff.MaxInterval
	if maxInterval <= 0 {
		maxInterval = 5 * time.Second
	}

	b := retry.NewExponential(initial)
	if p.Backoff.JitterFactor > 0 {
		b = retry.WithJitterPercent(uint64(p.Backoff.JitterFactor*100), b)
	}
	b = retry.WithCappedDuration(maxInterval, b)
	return retry.WithMaxRetries(uint64(max(p.Attempts, 1)-1), b)
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// RetryAfterError asks Retry to wait at least Delay before the next attempt.
type RetryAfterError struct {
	Err   error
	Delay time.Duration
}

func (e *RetryAfterError) Error() string { return e.Err.Error() }
func (e *RetryAfterError) Unwrap() error { return e.Err }

// Retry calls fn until it succeeds, returns a permanent error, the attempts
// are exhausted or ctx is done. Exhausted transient failures are reported as
// ErrorServiceUnavailable wrapping the last error.
func Retry(ctx context.Context, p RetryPolicy, fn func(ctx context.Context) error) error {
	var lastErr error
	base := p.backoff()
	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		delay, stop := base.Next()
		if stop {
			return 0, true
		}
		var ra *RetryAfterError
		if errors.As(lastErr, &ra) && ra.Delay > delay {
			delay = ra.Delay
		}
		return delay, false
	})

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		lastErr = fn(ctx)
		if lastErr == nil || IsPermanent(lastErr) {
			return lastErr
		}
		return retry.RetryableError(lastErr)
	})

	var pe *permanentError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &pe):
		return pe.err
	case ctx.Err() != nil:
		return errors.Join(ErrorServiceUnavailable, ctx.Err(), lastErr)
	default:
		return errors.Join(ErrorServiceUnavailable, lastErr)
	}
}
