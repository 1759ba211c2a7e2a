package solana

import "context"

// RPCClient defines the Solana JSON-RPC surface the engine needs. All
// methods perform a single attempt; retry and endpoint rotation live in
// the endpoint pool.
type RPCClient interface {
	// GetLatestBlockhash fetches a recent blockhash and its validity bound.
	GetLatestBlockhash(ctx context.Context) (*LatestBlockhash, error)

	// GetBlockHeight fetches the current block height.
	GetBlockHeight(ctx context.Context) (uint64, error)

	// GetBalance fetches an account's lamport balance.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// SendTransaction submits serialized transaction bytes and returns the
	// base58 signature reported by the node.
	SendTransaction(ctx context.Context, wire []byte) (string, error)

	// GetSignatureStatuses fetches confirmation status for signatures.
	// The result slice matches the input order; nil means unknown.
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error)

	// GetTransaction retrieves a confirmed transaction with its balance
	// metadata. Returns nil when the node does not know the signature.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetSignaturesForAddress retrieves signatures for an address, newest
	// first.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetAccountInfo retrieves account state. Returns nil if the account
	// does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetTokenAccountsByOwner lists token account addresses held by owner
	// for the given mint.
	GetTokenAccountsByOwner(ctx context.Context, owner, mint string) ([]string, error)

	// GetTokenAccountBalance fetches the balance of one token account.
	GetTokenAccountBalance(ctx context.Context, account string) (*TokenAmount, error)

	// GetMinimumBalanceForRentExemption returns the lamports needed to
	// make an account of the given size rent exempt.
	GetMinimumBalanceForRentExemption(ctx context.Context, size int) (uint64, error)
}
