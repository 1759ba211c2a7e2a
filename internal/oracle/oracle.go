// Package oracle derives trade prices from confirmed transaction
// balance deltas.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"solana-sniper/internal/endpointpool"
	"solana-sniper/internal/solana"
)

// ErrNoSample means no usable price could be derived; the caller skips
// the tick rather than treating it as a terminal failure.
var ErrNoSample = errors.New("oracle: no price sample")

// ErrMalformedMeta means the transaction metadata is missing the
// balance snapshots the oracle needs.
var ErrMalformedMeta = errors.New("oracle: malformed transaction meta")

const lamportsPerSOL = 1e9

// Sample is a price derived from one confirmed transaction.
type Sample struct {
	// Price in SOL per token.
	Price float64
	// TokenAmount is the absolute token quantity that moved.
	TokenAmount float64
	// CostWithFee is the payer's lamport delta in SOL, fees included.
	CostWithFee float64
}

// BalanceSnapshot holds the pre/post balances of one transaction.
type BalanceSnapshot struct {
	PreLamports  []uint64
	PostLamports []uint64
	PreTokens    []solana.TokenBalance
	PostTokens   []solana.TokenBalance
}

// SnapshotFromTransaction extracts the balance snapshot, validating the
// pieces the price derivation reads.
func SnapshotFromTransaction(tx *solana.Transaction) (*BalanceSnapshot, error) {
	if tx == nil || tx.Meta == nil {
		return nil, fmt.Errorf("%w: no meta", ErrMalformedMeta)
	}
	m := tx.Meta
	if len(m.PreBalances) == 0 || len(m.PostBalances) == 0 {
		return nil, fmt.Errorf("%w: empty lamport balances", ErrMalformedMeta)
	}
	if len(m.PreBalances) != len(m.PostBalances) {
		return nil, fmt.Errorf("%w: %d pre vs %d post lamport balances",
			ErrMalformedMeta, len(m.PreBalances), len(m.PostBalances))
	}
	return &BalanceSnapshot{
		PreLamports:  m.PreBalances,
		PostLamports: m.PostBalances,
		PreTokens:    m.PreTokenBalances,
		PostTokens:   m.PostTokenBalances,
	}, nil
}

// CostWithFee is the payer's SOL delta including the transaction fee.
// Negative when the payer spent SOL.
func (s *BalanceSnapshot) CostWithFee() float64 {
	return (float64(s.PostLamports[0]) - float64(s.PreLamports[0])) / lamportsPerSOL
}

// tokenDiff is one token account's balance change.
type tokenDiff struct {
	mint string
	diff float64
}

// tokenDiffs matches pre and post token balances by account index and
// rounds each delta to the token's decimals.
func (s *BalanceSnapshot) tokenDiffs() []tokenDiff {
	pre := make(map[int]solana.TokenBalance, len(s.PreTokens))
	for _, tb := range s.PreTokens {
		pre[tb.AccountIndex] = tb
	}

	var diffs []tokenDiff
	seen := make(map[int]bool, len(s.PostTokens))
	for _, post := range s.PostTokens {
		seen[post.AccountIndex] = true
		var preAmt float64
		if p, ok := pre[post.AccountIndex]; ok {
			preAmt = uiValue(p.UITokenAmount)
		}
		d := roundTo(uiValue(post.UITokenAmount)-preAmt, post.UITokenAmount.Decimals)
		diffs = append(diffs, tokenDiff{mint: post.Mint, diff: d})
	}
	// Accounts emptied to zero can drop out of the post list entirely.
	for _, p := range s.PreTokens {
		if seen[p.AccountIndex] {
			continue
		}
		d := roundTo(-uiValue(p.UITokenAmount), p.UITokenAmount.Decimals)
		diffs = append(diffs, tokenDiff{mint: p.Mint, diff: d})
	}
	return diffs
}

func uiValue(a solana.TokenAmount) float64 {
	if a.UIAmount != nil {
		return *a.UIAmount
	}
	return 0
}

func roundTo(x float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(x*scale) / scale
}

// PriceFromSnapshot derives the executed price from a balance snapshot.
// The native side is identified by the wSOL mint; the counter side is
// everything else. Each moving leg contributes its absolute delta: a
// swap lists the same mint on both the pool vault and the trader
// account with opposite signs, so signed sums would cancel to zero. A
// zero counter delta yields ErrNoSample.
func PriceFromSnapshot(s *BalanceSnapshot) (*Sample, error) {
	nativeMint := solana.NativeMint.String()

	var nativeDiff, counterDiff float64
	for _, d := range s.tokenDiffs() {
		if d.diff == 0 {
			continue
		}
		if d.mint == nativeMint {
			nativeDiff = math.Abs(d.diff)
		} else {
			counterDiff = math.Abs(d.diff)
		}
	}

	if counterDiff == 0 {
		return nil, ErrNoSample
	}

	return &Sample{
		Price:       nativeDiff / counterDiff,
		TokenAmount: counterDiff,
		CostWithFee: s.CostWithFee(),
	}, nil
}

// Oracle resolves prices from confirmed transactions over the endpoint
// pool.
type Oracle struct {
	pool   *endpointpool.Pool
	logger *log.Logger
}

// New builds an Oracle on the endpoint pool.
func New(pool *endpointpool.Pool, logger *log.Logger) *Oracle {
	if logger == nil {
		logger = log.Default()
	}
	return &Oracle{pool: pool, logger: logger}
}

// PriceFromTransaction fetches a confirmed transaction and derives the
// executed price from its balance deltas.
func (o *Oracle) PriceFromTransaction(ctx context.Context, signature string) (*Sample, error) {
	var tx *solana.Transaction
	err := o.pool.Execute(ctx, "getTransaction", func(ctx context.Context, client solana.RPCClient) error {
		var err error
		tx, err = client.GetTransaction(ctx, signature)
		return err
	})
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, fmt.Errorf("%w: transaction %s unknown", ErrNoSample, signature)
	}

	snapshot, err := SnapshotFromTransaction(tx)
	if err != nil {
		return nil, err
	}
	return PriceFromSnapshot(snapshot)
}

// LivePrice derives the pool's latest trade price from the most recent
// transaction touching the pair.
func (o *Oracle) LivePrice(ctx context.Context, pair solana.Pubkey) (float64, error) {
	var sigs []solana.SignatureInfo
	err := o.pool.Execute(ctx, "getSignaturesForAddress", func(ctx context.Context, client solana.RPCClient) error {
		var err error
		sigs, err = client.GetSignaturesForAddress(ctx, pair.String(), &solana.SignaturesOpts{Limit: 1})
		return err
	})
	if err != nil {
		return 0, err
	}
	if len(sigs) == 0 {
		return 0, fmt.Errorf("%w: no activity on %s", ErrNoSample, pair)
	}

	sample, err := o.PriceFromTransaction(ctx, sigs[0].Signature)
	if err != nil {
		return 0, err
	}
	return sample.Price, nil
}

// PnLPct is the percentage move of live against the bought price.
func PnLPct(live, bought float64) float64 {
	if bought == 0 {
		return 0
	}
	return (live - bought) / bought * 100
}
