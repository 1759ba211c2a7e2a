package discovery

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"solana-sniper/internal/amm"
	"solana-sniper/internal/endpointpool"
	"solana-sniper/internal/retry"
	"solana-sniper/internal/solana"
	"solana-sniper/internal/solana/stub"
)

// fakeWS feeds canned notifications through the WSClient interface.
type fakeWS struct {
	ch chan solana.LogNotification
}

func (f *fakeWS) SubscribeLogs(ctx context.Context, filter solana.LogsFilter) (<-chan solana.LogNotification, error) {
	return f.ch, nil
}

func (f *fakeWS) Close() error {
	close(f.ch)
	return nil
}

func fillKey(b byte) solana.Pubkey {
	var pk solana.Pubkey
	for i := range pk {
		pk[i] = b
	}
	return pk
}

func testPool(t *testing.T, rpc *stub.RPC) *endpointpool.Pool {
	t.Helper()
	if rpc.GetLatestBlockhashFunc == nil {
		rpc.GetLatestBlockhashFunc = func(ctx context.Context) (*solana.LatestBlockhash, error) {
			return &solana.LatestBlockhash{Blockhash: "hash", LastValidBlockHeight: 1000}, nil
		}
	}
	pool, err := endpointpool.New(context.Background(), []endpointpool.Endpoint{
		{Name: "test", Client: rpc},
	}, &endpointpool.Options{
		Policy: retry.Policy{
			MaxAttempts:  2,
			InitialDelay: time.Millisecond,
			MaxDelay:     time.Millisecond,
			Multiplier:   1.0,
		},
		Logger: log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("endpointpool.New() error = %v", err)
	}
	return pool
}

// initTransaction builds a transaction whose initialize2 instruction
// carries the pair at account position 4 and the mints at 8 and 9.
func initTransaction(pair, token0, token1 solana.Pubkey) *solana.Transaction {
	keys := []string{
		fillKey(0xa0).String(), // payer
		amm.RaydiumAMMProgram.String(),
		pair.String(),
		token0.String(),
		token1.String(),
	}
	return &solana.Transaction{
		AccountKeys: keys,
		Instructions: []solana.CompiledInstruction{
			{
				ProgramIDIndex: 1,
				// Positions 4, 8 and 9 point at pair, token0, token1.
				Accounts: []int{0, 0, 0, 0, 2, 0, 0, 0, 3, 4, 0},
			},
		},
	}
}

func TestWatchEmitsPoolEvent(t *testing.T) {
	pair := fillKey(0x01)
	token := fillKey(0x02)

	rpc := &stub.RPC{
		GetTransactionFunc: func(ctx context.Context, signature string) (*solana.Transaction, error) {
			return initTransaction(pair, solana.NativeMint, token), nil
		},
	}
	ws := &fakeWS{ch: make(chan solana.LogNotification, 4)}
	w := NewWatcher(ws, testPool(t, rpc), log.New(io.Discard, "", 0))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := w.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	ws.ch <- solana.LogNotification{
		Signature: "initSig",
		Slot:      42,
		Logs:      []string{"Program log: initialize2: InitializeInstruction2 { init_pc_amount: 1000 }"},
	}

	select {
	case ev := <-events:
		if ev.Pair != pair {
			t.Errorf("Pair = %s, want %s", ev.Pair, pair)
		}
		if ev.Token0 != solana.NativeMint || ev.Token1 != token {
			t.Errorf("mints = %s / %s", ev.Token0, ev.Token1)
		}
		if ev.Signature != "initSig" || ev.Slot != 42 {
			t.Errorf("event = %+v", ev)
		}
		mint, ok := ev.TokenMint()
		if !ok || mint != token {
			t.Errorf("TokenMint() = %s, %v", mint, ok)
		}
	case <-ctx.Done():
		t.Fatal("no event emitted")
	}
}

func TestWatchIgnoresNonInitLogs(t *testing.T) {
	fetched := 0
	rpc := &stub.RPC{
		GetTransactionFunc: func(ctx context.Context, signature string) (*solana.Transaction, error) {
			fetched++
			return initTransaction(fillKey(0x01), solana.NativeMint, fillKey(0x02)), nil
		},
	}
	ws := &fakeWS{ch: make(chan solana.LogNotification, 4)}
	w := NewWatcher(ws, testPool(t, rpc), log.New(io.Discard, "", 0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := w.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	// A plain swap and a failed init must both be skipped without an
	// RPC fetch.
	ws.ch <- solana.LogNotification{
		Signature: "swapSig",
		Logs:      []string{"Program log: ray_log: swap"},
	}
	ws.ch <- solana.LogNotification{
		Signature: "failedSig",
		Err:       map[string]interface{}{"InstructionError": nil},
		Logs:      []string{"init_pc_amount"},
	}

	select {
	case ev := <-events:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
	if fetched != 0 {
		t.Errorf("fetched = %d transactions, want 0", fetched)
	}
}

func TestWatchClosesOnCancel(t *testing.T) {
	ws := &fakeWS{ch: make(chan solana.LogNotification)}
	w := NewWatcher(ws, testPool(t, &stub.RPC{}), log.New(io.Discard, "", 0))

	ctx, cancel := context.WithCancel(context.Background())
	events, err := w.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	cancel()

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestTokenMintRequiresNativeSide(t *testing.T) {
	ev := PoolEvent{Token0: fillKey(0x01), Token1: fillKey(0x02)}
	if _, ok := ev.TokenMint(); ok {
		t.Fatal("TokenMint() accepted a pool without a wSOL side")
	}
}
