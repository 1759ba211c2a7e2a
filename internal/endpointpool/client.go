package endpointpool

import (
	"context"

	"solana-sniper/internal/solana"
)

// RoutedClient adapts a Pool to the solana.RPCClient interface so that
// consumers written against a single client still get rotation and
// retries on every call.
type RoutedClient struct {
	pool *Pool
}

// Route wraps the pool as an RPCClient.
func Route(pool *Pool) *RoutedClient {
	return &RoutedClient{pool: pool}
}

var _ solana.RPCClient = (*RoutedClient)(nil)

func (c *RoutedClient) GetLatestBlockhash(ctx context.Context) (*solana.LatestBlockhash, error) {
	return execute(c.pool, ctx, "getLatestBlockhash", func(ctx context.Context, rpc solana.RPCClient) (*solana.LatestBlockhash, error) {
		return rpc.GetLatestBlockhash(ctx)
	})
}

func (c *RoutedClient) GetBlockHeight(ctx context.Context) (uint64, error) {
	return execute(c.pool, ctx, "getBlockHeight", func(ctx context.Context, rpc solana.RPCClient) (uint64, error) {
		return rpc.GetBlockHeight(ctx)
	})
}

func (c *RoutedClient) GetBalance(ctx context.Context, pubkey string) (uint64, error) {
	return execute(c.pool, ctx, "getBalance", func(ctx context.Context, rpc solana.RPCClient) (uint64, error) {
		return rpc.GetBalance(ctx, pubkey)
	})
}

func (c *RoutedClient) SendTransaction(ctx context.Context, wire []byte) (string, error) {
	return execute(c.pool, ctx, "sendTransaction", func(ctx context.Context, rpc solana.RPCClient) (string, error) {
		return rpc.SendTransaction(ctx, wire)
	})
}

func (c *RoutedClient) GetSignatureStatuses(ctx context.Context, signatures []string) ([]*solana.SignatureStatus, error) {
	return execute(c.pool, ctx, "getSignatureStatuses", func(ctx context.Context, rpc solana.RPCClient) ([]*solana.SignatureStatus, error) {
		return rpc.GetSignatureStatuses(ctx, signatures)
	})
}

func (c *RoutedClient) GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error) {
	return execute(c.pool, ctx, "getTransaction", func(ctx context.Context, rpc solana.RPCClient) (*solana.Transaction, error) {
		return rpc.GetTransaction(ctx, signature)
	})
}

func (c *RoutedClient) GetSignaturesForAddress(ctx context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	return execute(c.pool, ctx, "getSignaturesForAddress", func(ctx context.Context, rpc solana.RPCClient) ([]solana.SignatureInfo, error) {
		return rpc.GetSignaturesForAddress(ctx, address, opts)
	})
}

func (c *RoutedClient) GetAccountInfo(ctx context.Context, pubkey string) (*solana.AccountInfo, error) {
	return execute(c.pool, ctx, "getAccountInfo", func(ctx context.Context, rpc solana.RPCClient) (*solana.AccountInfo, error) {
		return rpc.GetAccountInfo(ctx, pubkey)
	})
}

func (c *RoutedClient) GetTokenAccountsByOwner(ctx context.Context, owner, mint string) ([]string, error) {
	return execute(c.pool, ctx, "getTokenAccountsByOwner", func(ctx context.Context, rpc solana.RPCClient) ([]string, error) {
		return rpc.GetTokenAccountsByOwner(ctx, owner, mint)
	})
}

func (c *RoutedClient) GetTokenAccountBalance(ctx context.Context, account string) (*solana.TokenAmount, error) {
	return execute(c.pool, ctx, "getTokenAccountBalance", func(ctx context.Context, rpc solana.RPCClient) (*solana.TokenAmount, error) {
		return rpc.GetTokenAccountBalance(ctx, account)
	})
}

func (c *RoutedClient) GetMinimumBalanceForRentExemption(ctx context.Context, size int) (uint64, error) {
	return execute(c.pool, ctx, "getMinimumBalanceForRentExemption", func(ctx context.Context, rpc solana.RPCClient) (uint64, error) {
		return rpc.GetMinimumBalanceForRentExemption(ctx, size)
	})
}

// execute adapts Pool.Execute to calls with a return value.
func execute[T any](p *Pool, ctx context.Context, label string, fn func(context.Context, solana.RPCClient) (T, error)) (T, error) {
	var out T
	err := p.Execute(ctx, label, func(ctx context.Context, rpc solana.RPCClient) error {
		var err error
		out, err = fn(ctx, rpc)
		return err
	})
	return out, err
}
