// Package discovery watches the chain for freshly initialized AMM pools.
package discovery

import (
	"context"
	"fmt"
	"log"
	"strings"

	"solana-sniper/internal/amm"
	"solana-sniper/internal/endpointpool"
	"solana-sniper/internal/solana"
)

// poolInitMarker appears in the log output of the AMM initialize2
// instruction and in no other pool operation.
const poolInitMarker = "init_pc_amount"

// Indexes of the mints and pair address in the initialize2 instruction
// account list.
const (
	initPairIndex   = 4
	initToken0Index = 8
	initToken1Index = 9
)

// PoolEvent is one newly initialized pool.
type PoolEvent struct {
	// Pair is the AMM pool account.
	Pair solana.Pubkey
	// Token0 and Token1 are the pool mints; either may be wSOL.
	Token0 solana.Pubkey
	Token1 solana.Pubkey
	// Signature of the initializing transaction.
	Signature string
	Slot      int64
}

// TokenMint returns the non-native mint, or false when neither side is
// wSOL.
func (e PoolEvent) TokenMint() (solana.Pubkey, bool) {
	if e.Token0 == solana.NativeMint {
		return e.Token1, true
	}
	if e.Token1 == solana.NativeMint {
		return e.Token0, true
	}
	return solana.Pubkey{}, false
}

// Watcher turns the log subscription into pool events.
type Watcher struct {
	ws     solana.WSClient
	pool   *endpointpool.Pool
	logger *log.Logger

	// OnResolveError, when set, is called once per notification whose
	// transaction could not be resolved into a pool event.
	OnResolveError func()
}

// NewWatcher builds a watcher over the WebSocket subscription and the
// RPC pool used to resolve transactions.
func NewWatcher(ws solana.WSClient, pool *endpointpool.Pool, logger *log.Logger) *Watcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Watcher{ws: ws, pool: pool, logger: logger}
}

// Watch subscribes to logs mentioning the AMM program and emits a
// PoolEvent per initialized pool until ctx is canceled. The returned
// channel closes when the subscription ends.
func (w *Watcher) Watch(ctx context.Context) (<-chan PoolEvent, error) {
	logs, err := w.ws.SubscribeLogs(ctx, solana.LogsFilter{
		Mentions:   []string{amm.RaydiumAMMProgram.String()},
		Commitment: solana.CommitmentFinalized,
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe logs: %w", err)
	}

	events := make(chan PoolEvent)
	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case notif, ok := <-logs:
				if !ok {
					return
				}
				if notif.Err != nil || !hasInitMarker(notif.Logs) {
					continue
				}
				event, err := w.resolve(ctx, notif)
				if err != nil {
					w.logger.Printf("[discovery] resolve %s: %v", notif.Signature, err)
					if w.OnResolveError != nil {
						w.OnResolveError()
					}
					continue
				}
				select {
				case events <- *event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return events, nil
}

func hasInitMarker(logs []string) bool {
	for _, line := range logs {
		if strings.Contains(line, poolInitMarker) {
			return true
		}
	}
	return false
}

// resolve fetches the initializing transaction and reads the pair and
// mint addresses out of the initialize2 account list.
func (w *Watcher) resolve(ctx context.Context, notif solana.LogNotification) (*PoolEvent, error) {
	var tx *solana.Transaction
	err := w.pool.Execute(ctx, "getTransaction", func(ctx context.Context, client solana.RPCClient) error {
		var err error
		tx, err = client.GetTransaction(ctx, notif.Signature)
		return err
	})
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction not found")
	}

	for _, in := range tx.InstructionsFor(amm.RaydiumAMMProgram.String()) {
		event, err := eventFromInstruction(tx, in)
		if err != nil {
			continue
		}
		event.Signature = notif.Signature
		event.Slot = notif.Slot
		return event, nil
	}
	return nil, fmt.Errorf("no pool init instruction")
}

func eventFromInstruction(tx *solana.Transaction, in solana.CompiledInstruction) (*PoolEvent, error) {
	if len(in.Accounts) <= initToken1Index {
		return nil, fmt.Errorf("instruction has %d accounts", len(in.Accounts))
	}
	pair, err := accountAt(tx, in, initPairIndex)
	if err != nil {
		return nil, err
	}
	token0, err := accountAt(tx, in, initToken0Index)
	if err != nil {
		return nil, err
	}
	token1, err := accountAt(tx, in, initToken1Index)
	if err != nil {
		return nil, err
	}
	return &PoolEvent{Pair: pair, Token0: token0, Token1: token1}, nil
}

func accountAt(tx *solana.Transaction, in solana.CompiledInstruction, idx int) (solana.Pubkey, error) {
	keyIdx := in.Accounts[idx]
	if keyIdx < 0 || keyIdx >= len(tx.AccountKeys) {
		return solana.Pubkey{}, fmt.Errorf("account index %d out of range", keyIdx)
	}
	return solana.PubkeyFromString(tx.AccountKeys[keyIdx])
}
