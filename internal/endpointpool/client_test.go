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

func TestRoutedClientRotatesLikeExecute(t *testing.T) {
	transient := &solana.HTTPStatusError{Status: 429}

	flaky := &stub.RPC{
		GetLatestBlockhashFunc: func(ctx context.Context) (*solana.LatestBlockhash, error) {
			return &solana.LatestBlockhash{Blockhash: "a", LastValidBlockHeight: 1}, nil
		},
		GetBlockHeightFunc: func(ctx context.Context) (uint64, error) {
			return 0, transient
		},
	}
	healthy := &stub.RPC{
		GetLatestBlockhashFunc: func(ctx context.Context) (*solana.LatestBlockhash, error) {
			return &solana.LatestBlockhash{Blockhash: "b", LastValidBlockHeight: 2}, nil
		},
		GetBlockHeightFunc: func(ctx context.Context) (uint64, error) {
			return 777, nil
		},
	}

	pool, err := New(context.Background(), []Endpoint{
		{Name: "flaky", Client: flaky},
		{Name: "healthy", Client: healthy},
	}, &Options{
		Policy: retry.Policy{
			MaxAttempts:  4,
			InitialDelay: time.Millisecond,
			MaxDelay:     time.Millisecond,
			Multiplier:   1.0,
		},
		Logger: log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	height, err := Route(pool).GetBlockHeight(context.Background())
	if err != nil {
		t.Fatalf("GetBlockHeight() error = %v", err)
	}
	if height != 777 {
		t.Errorf("height = %d, want 777 from the healthy endpoint", height)
	}
}

func TestRoutedClientSurfacesExhaustion(t *testing.T) {
	transient := &solana.HTTPStatusError{Status: 503}
	rpc := &stub.RPC{
		GetLatestBlockhashFunc: func(ctx context.Context) (*solana.LatestBlockhash, error) {
			return &solana.LatestBlockhash{Blockhash: "a", LastValidBlockHeight: 1}, nil
		},
		GetBalanceFunc: func(ctx context.Context, pubkey string) (uint64, error) {
			return 0, transient
		},
	}

	pool, err := New(context.Background(), []Endpoint{{Name: "only", Client: rpc}}, &Options{
		Policy: retry.Policy{
			MaxAttempts:  2,
			InitialDelay: time.Millisecond,
			MaxDelay:     time.Millisecond,
			Multiplier:   1.0,
		},
		Logger: log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = Route(pool).GetBalance(context.Background(), "x")
	if !errors.Is(err, ErrRPCExhausted) {
		t.Errorf("err = %v, want ErrRPCExhausted", err)
	}
}
