package oracle

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"solana-sniper/internal/endpointpool"
	"solana-sniper/internal/retry"
	"solana-sniper/internal/solana"
	"solana-sniper/internal/solana/stub"
)

const nativeMint = "So11111111111111111111111111111111111111112"

func ptr(v float64) *float64 { return &v }

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

// buyTransaction models a swap where the payer spent 1.005 SOL total
// (1 SOL swapped plus fees) and 0.98 wSOL entered the vault for 1000
// tokens. The token mint appears twice with opposite signs, as in real
// metadata: the vault pays out and the trader's account receives.
func buyTransaction() *solana.Transaction {
	return &solana.Transaction{
		Signature: "buySig",
		Meta: &solana.TransactionMeta{
			PreBalances:  []uint64{5_000_000_000, 0},
			PostBalances: []uint64{3_995_000_000, 0},
			PreTokenBalances: []solana.TokenBalance{
				{AccountIndex: 3, Mint: nativeMint, UITokenAmount: solana.TokenAmount{UIAmount: ptr(100.0), Decimals: 9}},
				{AccountIndex: 4, Mint: "tokenMint111", UITokenAmount: solana.TokenAmount{UIAmount: ptr(50_000.0), Decimals: 6}},
				{AccountIndex: 5, Mint: "tokenMint111", UITokenAmount: solana.TokenAmount{UIAmount: ptr(0.0), Decimals: 6}},
			},
			PostTokenBalances: []solana.TokenBalance{
				{AccountIndex: 3, Mint: nativeMint, UITokenAmount: solana.TokenAmount{UIAmount: ptr(100.98), Decimals: 9}},
				{AccountIndex: 4, Mint: "tokenMint111", UITokenAmount: solana.TokenAmount{UIAmount: ptr(49_000.0), Decimals: 6}},
				{AccountIndex: 5, Mint: "tokenMint111", UITokenAmount: solana.TokenAmount{UIAmount: ptr(1000.0), Decimals: 6}},
			},
		},
	}
}

func TestPriceFromSnapshot(t *testing.T) {
	snapshot, err := SnapshotFromTransaction(buyTransaction())
	if err != nil {
		t.Fatalf("SnapshotFromTransaction() error = %v", err)
	}

	sample, err := PriceFromSnapshot(snapshot)
	if err != nil {
		t.Fatalf("PriceFromSnapshot() error = %v", err)
	}

	// |0.98 wSOL| / |1000 tokens|. The vault's -1000 leg and the
	// trader's +1000 leg must both read as a 1000-token move, not
	// cancel each other.
	if want := 0.98 / 1000; !closeTo(sample.Price, want) {
		t.Errorf("Price = %g, want %g", sample.Price, want)
	}
	if sample.TokenAmount != 1000 {
		t.Errorf("TokenAmount = %g, want 1000", sample.TokenAmount)
	}
	// (post - pre) on the payer account, fees included.
	if want := -1.005; !closeTo(sample.CostWithFee, want) {
		t.Errorf("CostWithFee = %g, want %g", sample.CostWithFee, want)
	}
}

func closeTo(got, want float64) bool {
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	return diff < 1e-9
}

func TestPriceFromSnapshotZeroCounterDiff(t *testing.T) {
	tx := buyTransaction()
	// Token side unchanged: only wSOL moved.
	tx.Meta.PostTokenBalances[1].UITokenAmount.UIAmount = ptr(50_000.0)
	tx.Meta.PostTokenBalances[2].UITokenAmount.UIAmount = ptr(0.0)

	snapshot, err := SnapshotFromTransaction(tx)
	if err != nil {
		t.Fatalf("SnapshotFromTransaction() error = %v", err)
	}
	_, err = PriceFromSnapshot(snapshot)
	if !errors.Is(err, ErrNoSample) {
		t.Fatalf("PriceFromSnapshot() = %v, want ErrNoSample", err)
	}
}

func TestPriceFromSnapshotHandlesClosedAccount(t *testing.T) {
	// Selling the full balance can close the trader's token account,
	// dropping it from the post list; its whole pre balance counts as
	// the delta.
	tx := buyTransaction()
	tx.Meta.PreTokenBalances[2].UITokenAmount.UIAmount = ptr(1000.0)
	tx.Meta.PostTokenBalances[1].UITokenAmount.UIAmount = ptr(51_000.0)
	tx.Meta.PostTokenBalances = tx.Meta.PostTokenBalances[:2]

	snapshot, err := SnapshotFromTransaction(tx)
	if err != nil {
		t.Fatalf("SnapshotFromTransaction() error = %v", err)
	}
	sample, err := PriceFromSnapshot(snapshot)
	if err != nil {
		t.Fatalf("PriceFromSnapshot() error = %v", err)
	}
	if sample.TokenAmount != 1000 {
		t.Errorf("TokenAmount = %g, want the full emptied balance", sample.TokenAmount)
	}
}

func TestSnapshotRejectsMissingMeta(t *testing.T) {
	_, err := SnapshotFromTransaction(&solana.Transaction{})
	if !errors.Is(err, ErrMalformedMeta) {
		t.Fatalf("SnapshotFromTransaction() = %v, want ErrMalformedMeta", err)
	}

	_, err = SnapshotFromTransaction(&solana.Transaction{
		Meta: &solana.TransactionMeta{PreBalances: []uint64{1, 2}, PostBalances: []uint64{1}},
	})
	if !errors.Is(err, ErrMalformedMeta) {
		t.Fatalf("SnapshotFromTransaction() = %v, want ErrMalformedMeta on length mismatch", err)
	}
}

func TestPriceFromTransactionUnknownSignature(t *testing.T) {
	rpc := &stub.RPC{
		GetTransactionFunc: func(ctx context.Context, signature string) (*solana.Transaction, error) {
			return nil, nil
		},
	}
	o := New(testPool(t, rpc), log.New(io.Discard, "", 0))
	_, err := o.PriceFromTransaction(context.Background(), "unknown")
	if !errors.Is(err, ErrNoSample) {
		t.Fatalf("PriceFromTransaction() = %v, want ErrNoSample", err)
	}
}

func TestLivePriceUsesLatestSignature(t *testing.T) {
	var fetched string
	rpc := &stub.RPC{
		GetSignaturesForAddressFunc: func(ctx context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
			return []solana.SignatureInfo{{Signature: "latest"}, {Signature: "older"}}, nil
		},
		GetTransactionFunc: func(ctx context.Context, signature string) (*solana.Transaction, error) {
			fetched = signature
			return buyTransaction(), nil
		},
	}
	o := New(testPool(t, rpc), log.New(io.Discard, "", 0))

	price, err := o.LivePrice(context.Background(), solana.MustPubkey(nativeMint))
	if err != nil {
		t.Fatalf("LivePrice() error = %v", err)
	}
	if fetched != "latest" {
		t.Errorf("fetched %q, want the newest signature", fetched)
	}
	if !closeTo(price, 0.98/1000) {
		t.Errorf("price = %g", price)
	}
}

func TestLivePriceNoActivity(t *testing.T) {
	rpc := &stub.RPC{
		GetSignaturesForAddressFunc: func(ctx context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
			return nil, nil
		},
	}
	o := New(testPool(t, rpc), log.New(io.Discard, "", 0))
	_, err := o.LivePrice(context.Background(), solana.MustPubkey(nativeMint))
	if !errors.Is(err, ErrNoSample) {
		t.Fatalf("LivePrice() = %v, want ErrNoSample", err)
	}
}

func TestPnLPct(t *testing.T) {
	cases := []struct {
		live, bought, want float64
	}{
		{0.002, 0.001, 100},
		{0.001, 0.001, 0},
		{0.0005, 0.001, -50},
		{0.00175, 0.001, 75},
		{1, 0, 0},
	}
	for _, tc := range cases {
		if got := PnLPct(tc.live, tc.bought); !closeTo(got, tc.want) {
			t.Errorf("PnLPct(%g, %g) = %g, want %g", tc.live, tc.bought, got, tc.want)
		}
	}
}
