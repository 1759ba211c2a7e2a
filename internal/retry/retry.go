// Package retry provides the shared retry policy used for RPC submission
// and confirmation polling.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// ErrElapsed is returned when the policy's wall-clock budget runs out
// before an attempt succeeds.
var ErrElapsed = errors.New("retry: elapsed budget exhausted")

// Permanent wraps an error to stop retrying immediately. The wrapped
// error is returned to the caller unwrapped.
type Permanent struct {
	Err error
}

func (p *Permanent) Error() string { return p.Err.Error() }
func (p *Permanent) Unwrap() error { return p.Err }

// Stop marks err as permanent so Do returns it without further attempts.
func Stop(err error) error {
	return &Permanent{Err: err}
}

// Policy defines backoff behavior. The zero value is not usable; start
// from DefaultPolicy.
type Policy struct {
	// MaxAttempts bounds the number of calls. Zero means attempts are
	// bounded only by MaxElapsed or the context.
	MaxAttempts int
	// InitialDelay is the backoff before the second attempt.
	InitialDelay time.Duration
	// MaxDelay caps the backoff between attempts.
	MaxDelay time.Duration
	// Multiplier grows the delay after each failed attempt.
	Multiplier float64
	// Jitter, when true, sleeps a uniform random duration in
	// [0, delay) instead of the full delay. Spreads retries from
	// concurrent positions so they do not hammer a node in lockstep.
	Jitter bool
	// MaxElapsed bounds total wall-clock time across attempts. Zero
	// means no elapsed bound.
	MaxElapsed time.Duration
}

// DefaultPolicy returns the policy used for transaction submission.
// Both bounds are set: attempts cap the call count and MaxElapsed caps
// wall-clock time, whichever trips first.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  5,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
		MaxElapsed:   60 * time.Second,
	}
}

// Do runs fn until it succeeds, the attempt budget runs out, the elapsed
// budget runs out, or the context is canceled. The last attempt's error
// is returned on exhaustion; ErrElapsed wraps nothing and is returned
// only when the elapsed budget expires before the first attempt of a
// cycle.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	start := time.Now()
	delay := p.InitialDelay

	var lastErr error
	for attempt := 1; p.MaxAttempts == 0 || attempt <= p.MaxAttempts; attempt++ {
		if p.MaxElapsed > 0 && time.Since(start) >= p.MaxElapsed {
			if lastErr != nil {
				return lastErr
			}
			return ErrElapsed
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		var perm *Permanent
		if errors.As(err, &perm) {
			return perm.Err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err

		if p.MaxAttempts != 0 && attempt == p.MaxAttempts {
			break
		}

		sleep := delay
		if p.Jitter && sleep > 0 {
			sleep = time.Duration(rand.Int63n(int64(sleep)))
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * p.Multiplier)
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	return lastErr
}
