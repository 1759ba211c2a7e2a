// Package confirm drives submitted transactions to a terminal state.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"solana-sniper/internal/endpointpool"
	"solana-sniper/internal/solana"
)

// State tracks a transaction through its lifecycle.
type State int

const (
	StateBuilt State = iota
	StateSigned
	StateSent
	StateConfirmed
	StateExpired
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateBuilt:
		return "built"
	case StateSigned:
		return "signed"
	case StateSent:
		return "sent"
	case StateConfirmed:
		return "confirmed"
	case StateExpired:
		return "expired"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrExpired means the blockhash aged out before the transaction
// landed; the caller may rebuild with a fresh blockhash and resubmit.
var ErrExpired = errors.New("confirm: blockhash expired before confirmation")

// ErrFailed means the transaction executed and failed on chain.
// Terminal; resubmitting the same transaction cannot succeed.
var ErrFailed = errors.New("confirm: transaction failed on chain")

// ErrCeiling means the wall-clock ceiling elapsed with no terminal
// status observed.
var ErrCeiling = errors.New("confirm: confirmation ceiling elapsed")

// Options configures a Confirmer.
type Options struct {
	// Commitment the observed status must reach. Defaults to confirmed.
	Commitment solana.Commitment
	// SafetyBuffer shrinks the blockhash validity window so expiry is
	// declared before the chain would still accept the transaction.
	// Defaults to 150 blocks.
	SafetyBuffer uint64
	// PollInterval between status checks. Defaults to 2s.
	PollInterval time.Duration
	// Ceiling bounds total wall-clock time regardless of blockhash
	// validity. Defaults to 240s.
	Ceiling time.Duration
	Logger  *log.Logger
}

// Confirmer submits transactions and polls them to a terminal state.
type Confirmer struct {
	pool         *endpointpool.Pool
	commitment   solana.Commitment
	safetyBuffer uint64
	pollInterval time.Duration
	ceiling      time.Duration
	logger       *log.Logger
}

// New builds a Confirmer on the endpoint pool.
func New(pool *endpointpool.Pool, opts *Options) *Confirmer {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	if o.Commitment == "" {
		o.Commitment = solana.CommitmentConfirmed
	}
	if o.SafetyBuffer == 0 {
		o.SafetyBuffer = 150
	}
	if o.PollInterval == 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.Ceiling == 0 {
		o.Ceiling = 240 * time.Second
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return &Confirmer{
		pool:         pool,
		commitment:   o.Commitment,
		safetyBuffer: o.SafetyBuffer,
		pollInterval: o.PollInterval,
		ceiling:      o.Ceiling,
		logger:       o.Logger,
	}
}

// SubmittedTransaction is one in-flight transaction.
type SubmittedTransaction struct {
	Signature string
	// ExpiryBound is the block height past which the transaction is
	// treated as expired.
	ExpiryBound uint64
	SentAt      time.Time
	State       State
}

// Submit sends signed wire bytes and returns the in-flight handle in
// the Sent state.
func (c *Confirmer) Submit(ctx context.Context, signed *solana.SignedTransaction, lastValidBlockHeight uint64) (*SubmittedTransaction, error) {
	var sig string
	err := c.pool.Execute(ctx, "sendTransaction", func(ctx context.Context, client solana.RPCClient) error {
		var err error
		sig, err = client.SendTransaction(ctx, signed.Wire)
		return err
	})
	if err != nil {
		return nil, err
	}

	bound := lastValidBlockHeight
	if bound > c.safetyBuffer {
		bound -= c.safetyBuffer
	}
	return &SubmittedTransaction{
		Signature:   sig,
		ExpiryBound: bound,
		SentAt:      time.Now(),
		State:       StateSent,
	}, nil
}

// Await polls tx until it reaches a terminal state. Returns nil only
// when the transaction confirmed at the requested commitment. Transient
// RPC trouble is absorbed by the endpoint pool; a fully exhausted poll
// cycle is logged and retried until the ceiling.
func (c *Confirmer) Await(ctx context.Context, tx *SubmittedTransaction) error {
	deadline := tx.SentAt.Add(c.ceiling)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		if time.Now().After(deadline) {
			tx.State = StateExpired
			return fmt.Errorf("%w: %s after %s", ErrCeiling, tx.Signature, c.ceiling)
		}

		status, err := c.status(ctx, tx.Signature)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Printf("[confirm] status poll for %s failed: %v", tx.Signature, err)

		case status != nil && status.Err != nil:
			tx.State = StateFailed
			return fmt.Errorf("%w: %s: %v", ErrFailed, tx.Signature, status.Err)

		case status != nil && status.ConfirmationStatus.Ordinal() >= c.commitment.Ordinal():
			tx.State = StateConfirmed
			return nil

		case status == nil:
			// The node has not seen the signature. Expiry is decided by
			// block height, not by absence alone.
			expired, hErr := c.pastExpiry(ctx, tx.ExpiryBound)
			if hErr != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.logger.Printf("[confirm] block height check failed: %v", hErr)
			} else if expired {
				tx.State = StateExpired
				return fmt.Errorf("%w: %s", ErrExpired, tx.Signature)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Confirmer) status(ctx context.Context, signature string) (*solana.SignatureStatus, error) {
	var status *solana.SignatureStatus
	err := c.pool.Execute(ctx, "getSignatureStatuses", func(ctx context.Context, client solana.RPCClient) error {
		statuses, err := client.GetSignatureStatuses(ctx, []string{signature})
		if err != nil {
			return err
		}
		if len(statuses) > 0 {
			status = statuses[0]
		}
		return nil
	})
	return status, err
}

func (c *Confirmer) pastExpiry(ctx context.Context, bound uint64) (bool, error) {
	var height uint64
	err := c.pool.Execute(ctx, "getBlockHeight", func(ctx context.Context, client solana.RPCClient) error {
		var err error
		height, err = client.GetBlockHeight(ctx)
		return err
	})
	if err != nil {
		return false, err
	}
	return height > bound, nil
}
