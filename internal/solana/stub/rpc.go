// Package stub provides a configurable in-memory RPCClient for tests.
package stub

import (
	"context"
	"errors"

	"solana-sniper/internal/solana"
)

// ErrNotConfigured is returned by any method whose function field was
// left nil.
var ErrNotConfigured = errors.New("stub: method not configured")

// RPC implements solana.RPCClient via per-method function fields. Leave
// a field nil to have the method fail with ErrNotConfigured.
type RPC struct {
	GetLatestBlockhashFunc                func(ctx context.Context) (*solana.LatestBlockhash, error)
	GetBlockHeightFunc                    func(ctx context.Context) (uint64, error)
	GetBalanceFunc                        func(ctx context.Context, pubkey string) (uint64, error)
	SendTransactionFunc                   func(ctx context.Context, wire []byte) (string, error)
	GetSignatureStatusesFunc              func(ctx context.Context, signatures []string) ([]*solana.SignatureStatus, error)
	GetTransactionFunc                    func(ctx context.Context, signature string) (*solana.Transaction, error)
	GetSignaturesForAddressFunc           func(ctx context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error)
	GetAccountInfoFunc                    func(ctx context.Context, pubkey string) (*solana.AccountInfo, error)
	GetTokenAccountsByOwnerFunc           func(ctx context.Context, owner, mint string) ([]string, error)
	GetTokenAccountBalanceFunc            func(ctx context.Context, account string) (*solana.TokenAmount, error)
	GetMinimumBalanceForRentExemptionFunc func(ctx context.Context, size int) (uint64, error)
}

func (s *RPC) GetLatestBlockhash(ctx context.Context) (*solana.LatestBlockhash, error) {
	if s.GetLatestBlockhashFunc == nil {
		return nil, ErrNotConfigured
	}
	return s.GetLatestBlockhashFunc(ctx)
}

func (s *RPC) GetBlockHeight(ctx context.Context) (uint64, error) {
	if s.GetBlockHeightFunc == nil {
		return 0, ErrNotConfigured
	}
	return s.GetBlockHeightFunc(ctx)
}

func (s *RPC) GetBalance(ctx context.Context, pubkey string) (uint64, error) {
	if s.GetBalanceFunc == nil {
		return 0, ErrNotConfigured
	}
	return s.GetBalanceFunc(ctx, pubkey)
}

func (s *RPC) SendTransaction(ctx context.Context, wire []byte) (string, error) {
	if s.SendTransactionFunc == nil {
		return "", ErrNotConfigured
	}
	return s.SendTransactionFunc(ctx, wire)
}

func (s *RPC) GetSignatureStatuses(ctx context.Context, signatures []string) ([]*solana.SignatureStatus, error) {
	if s.GetSignatureStatusesFunc == nil {
		return nil, ErrNotConfigured
	}
	return s.GetSignatureStatusesFunc(ctx, signatures)
}

func (s *RPC) GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error) {
	if s.GetTransactionFunc == nil {
		return nil, ErrNotConfigured
	}
	return s.GetTransactionFunc(ctx, signature)
}

func (s *RPC) GetSignaturesForAddress(ctx context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	if s.GetSignaturesForAddressFunc == nil {
		return nil, ErrNotConfigured
	}
	return s.GetSignaturesForAddressFunc(ctx, address, opts)
}

func (s *RPC) GetAccountInfo(ctx context.Context, pubkey string) (*solana.AccountInfo, error) {
	if s.GetAccountInfoFunc == nil {
		return nil, ErrNotConfigured
	}
	return s.GetAccountInfoFunc(ctx, pubkey)
}

func (s *RPC) GetTokenAccountsByOwner(ctx context.Context, owner, mint string) ([]string, error) {
	if s.GetTokenAccountsByOwnerFunc == nil {
		return nil, ErrNotConfigured
	}
	return s.GetTokenAccountsByOwnerFunc(ctx, owner, mint)
}

func (s *RPC) GetTokenAccountBalance(ctx context.Context, account string) (*solana.TokenAmount, error) {
	if s.GetTokenAccountBalanceFunc == nil {
		return nil, ErrNotConfigured
	}
	return s.GetTokenAccountBalanceFunc(ctx, account)
}

func (s *RPC) GetMinimumBalanceForRentExemption(ctx context.Context, size int) (uint64, error) {
	if s.GetMinimumBalanceForRentExemptionFunc == nil {
		return 0, ErrNotConfigured
	}
	return s.GetMinimumBalanceForRentExemptionFunc(ctx, size)
}

var _ solana.RPCClient = (*RPC)(nil)
