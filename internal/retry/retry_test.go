package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy() Policy {
	return Policy{
		MaxAttempts:  4,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoReturnsLastErrorOnExhaustion(t *testing.T) {
	want := errors.New("attempt 4")
	calls := 0
	err := fastPolicy().Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 4 {
			return want
		}
		return errors.New("earlier")
	})
	if !errors.Is(err, want) {
		t.Fatalf("Do() = %v, want %v", err, want)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want MaxAttempts (4)", calls)
	}
}

func TestDoStopsOnPermanentError(t *testing.T) {
	want := errors.New("account not found")
	calls := 0
	err := fastPolicy().Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Stop(want)
	})
	// The permanent error comes back unwrapped.
	if !errors.Is(err, want) {
		t.Fatalf("Do() = %v, want %v", err, want)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := fastPolicy().Do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoHonorsElapsedBudget(t *testing.T) {
	p := Policy{
		MaxAttempts:  0, // unbounded attempts
		InitialDelay: 2 * time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   1.0,
		MaxElapsed:   20 * time.Millisecond,
	}
	want := errors.New("still failing")
	start := time.Now()
	err := p.Do(context.Background(), func(ctx context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("Do() = %v, want %v", err, want)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("elapsed = %v, expected exit near the 20ms budget", elapsed)
	}
}

func TestDefaultPolicyBoundsAttemptsAndElapsed(t *testing.T) {
	p := DefaultPolicy()
	if p.MaxAttempts == 0 {
		t.Error("MaxAttempts = 0, submission retries have no attempt bound")
	}
	if p.MaxElapsed == 0 {
		t.Error("MaxElapsed = 0, submission retries have no wall-clock bound")
	}
}

func TestDoUnboundedAttemptsEventuallySucceeds(t *testing.T) {
	p := Policy{
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1.0,
	}
	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 10 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() = %v, want nil", err)
	}
	if calls != 10 {
		t.Errorf("calls = %d, want 10", calls)
	}
}
