package endpointpool

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"solana-sniper/internal/retry"
	"solana-sniper/internal/solana"
	"solana-sniper/internal/solana/stub"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func healthyClient() *stub.RPC {
	return &stub.RPC{
		GetLatestBlockhashFunc: func(ctx context.Context) (*solana.LatestBlockhash, error) {
			return &solana.LatestBlockhash{Blockhash: "hash", LastValidBlockHeight: 100}, nil
		},
	}
}

func unhealthyClient() *stub.RPC {
	return &stub.RPC{
		GetLatestBlockhashFunc: func(ctx context.Context) (*solana.LatestBlockhash, error) {
			return nil, &solana.HTTPStatusError{Status: 503}
		},
	}
}

func fastOptions() *Options {
	return &Options{
		Policy: retry.Policy{
			MaxAttempts:  4,
			InitialDelay: time.Millisecond,
			MaxDelay:     time.Millisecond,
			Multiplier:   1.0,
		},
		Logger: quietLogger(),
	}
}

func TestNewDropsUnhealthyCandidates(t *testing.T) {
	pool, err := New(context.Background(), []Endpoint{
		{Name: "bad", Client: unhealthyClient()},
		{Name: "good", Client: healthyClient()},
	}, fastOptions())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if pool.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", pool.Size())
	}
	if pool.Current().Name != "good" {
		t.Errorf("Current().Name = %q, want good", pool.Current().Name)
	}
}

func TestNewKeepsFirstWhenAllProbesFail(t *testing.T) {
	pool, err := New(context.Background(), []Endpoint{
		{Name: "first", Client: unhealthyClient()},
		{Name: "second", Client: unhealthyClient()},
	}, fastOptions())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if pool.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", pool.Size())
	}
	if pool.Current().Name != "first" {
		t.Errorf("Current().Name = %q, want first", pool.Current().Name)
	}
}

func TestNewRejectsEmptyCandidateList(t *testing.T) {
	_, err := New(context.Background(), nil, fastOptions())
	if !errors.Is(err, ErrNoEndpoints) {
		t.Fatalf("New() error = %v, want ErrNoEndpoints", err)
	}
}

func TestExecuteRotatesOnTransientErrors(t *testing.T) {
	pool, err := New(context.Background(), []Endpoint{
		{Name: "a", Client: healthyClient()},
		{Name: "b", Client: healthyClient()},
		{Name: "c", Client: healthyClient()},
	}, fastOptions())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Endpoints a and b answer with rate limits; c succeeds.
	var used []string
	err = pool.Execute(context.Background(), "test op", func(ctx context.Context, client solana.RPCClient) error {
		name := pool.Current().Name
		used = append(used, name)
		if name != "c" {
			return &solana.HTTPStatusError{Status: 429}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() = %v, want nil", err)
	}
	want := []string{"a", "b", "c"}
	if len(used) != len(want) {
		t.Fatalf("used = %v, want %v", used, want)
	}
	for i := range want {
		if used[i] != want[i] {
			t.Fatalf("used = %v, want %v", used, want)
		}
	}
}

func TestExecuteReturnsExhaustedAfterAllAttemptsFail(t *testing.T) {
	pool, err := New(context.Background(), []Endpoint{
		{Name: "a", Client: healthyClient()},
		{Name: "b", Client: healthyClient()},
	}, fastOptions())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	calls := 0
	err = pool.Execute(context.Background(), "test op", func(ctx context.Context, client solana.RPCClient) error {
		calls++
		return &solana.HTTPStatusError{Status: 503}
	})
	if !errors.Is(err, ErrRPCExhausted) {
		t.Fatalf("Execute() = %v, want ErrRPCExhausted", err)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want MaxAttempts (4)", calls)
	}
}

func TestExecuteStopsOnNonTransientError(t *testing.T) {
	pool, err := New(context.Background(), []Endpoint{
		{Name: "a", Client: healthyClient()},
		{Name: "b", Client: healthyClient()},
	}, fastOptions())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	want := &solana.RPCError{Code: -32602, Message: "invalid params"}
	calls := 0
	err = pool.Execute(context.Background(), "test op", func(ctx context.Context, client solana.RPCClient) error {
		calls++
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("Execute() = %v, want %v", err, want)
	}
	if errors.Is(err, ErrRPCExhausted) {
		t.Error("non-transient failure must not report exhaustion")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	// The cursor must not have moved.
	if pool.Current().Name != "a" {
		t.Errorf("Current().Name = %q, want a", pool.Current().Name)
	}
}

func TestRotateAdvancesCursorAndFiresHook(t *testing.T) {
	opts := fastOptions()
	var from, to string
	opts.OnRotate = func(f, t string) { from, to = f, t }

	pool, err := New(context.Background(), []Endpoint{
		{Name: "a", Client: healthyClient()},
		{Name: "b", Client: healthyClient()},
	}, opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	pool.Rotate()
	if pool.Current().Name != "b" {
		t.Errorf("Current().Name = %q, want b", pool.Current().Name)
	}
	if from != "a" || to != "b" {
		t.Errorf("hook saw %q -> %q, want a -> b", from, to)
	}
}

func TestExecuteInvokesRotationHook(t *testing.T) {
	opts := fastOptions()
	var rotations int
	opts.OnRotate = func(from, to string) { rotations++ }

	pool, err := New(context.Background(), []Endpoint{
		{Name: "a", Client: healthyClient()},
		{Name: "b", Client: healthyClient()},
	}, opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	pool.Execute(context.Background(), "test op", func(ctx context.Context, client solana.RPCClient) error {
		return &solana.HTTPStatusError{Status: 500}
	})
	if rotations != 4 {
		t.Errorf("rotations = %d, want one per failed attempt (4)", rotations)
	}
}
