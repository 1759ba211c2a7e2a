// Package amm decodes Raydium AMM v4 pool state and quotes pool prices
// from vault balances.
package amm

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"

	"solana-sniper/internal/solana"
)

// RaydiumAMMProgram is the Raydium liquidity pool v4 program.
var RaydiumAMMProgram = solana.MustPubkey("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")

// ErrMalformedPoolState is returned when pool account data does not
// match the liquidity-state-v4 layout.
var ErrMalformedPoolState = errors.New("amm: malformed pool state")

// ErrPoolNotFound is returned when the pair account does not exist.
var ErrPoolNotFound = errors.New("amm: pool account not found")

// liquidityStateV4Size is the serialized size of the v4 pool state.
const liquidityStateV4Size = 752

// Field offsets within the liquidity-state-v4 layout.
const (
	offNonce           = 8
	offBaseDecimal     = 32
	offQuoteDecimal    = 40
	offBaseVault       = 336
	offQuoteVault      = 368
	offBaseMint        = 400
	offQuoteMint       = 432
	offLPMint          = 464
	offOpenOrders      = 496
	offMarketID        = 528
	offMarketProgramID = 560
	offTargetOrders    = 592
)

// PoolKeys holds every account a swap against the pool needs, plus the
// token decimals used to scale amounts.
type PoolKeys struct {
	AmmID         solana.Pubkey
	Authority     solana.Pubkey
	OpenOrders    solana.Pubkey
	TargetOrders  solana.Pubkey
	BaseVault     solana.Pubkey
	QuoteVault    solana.Pubkey
	BaseMint      solana.Pubkey
	QuoteMint     solana.Pubkey
	BaseDecimals  int
	QuoteDecimals int
}

// DecodePoolKeys parses liquidity-state-v4 account data fetched for
// pair and derives the pool authority from the stored nonce.
func DecodePoolKeys(pair solana.Pubkey, data []byte) (*PoolKeys, error) {
	if len(data) < liquidityStateV4Size {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrMalformedPoolState, len(data), liquidityStateV4Size)
	}

	nonce := binary.LittleEndian.Uint64(data[offNonce : offNonce+8])
	if nonce > 255 {
		return nil, fmt.Errorf("%w: nonce %d out of range", ErrMalformedPoolState, nonce)
	}

	authority, err := solana.CreateProgramAddress(
		[][]byte{[]byte("amm authority"), {byte(nonce)}},
		RaydiumAMMProgram,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: authority derivation: %v", ErrMalformedPoolState, err)
	}

	keys := &PoolKeys{
		AmmID:         pair,
		Authority:     authority,
		OpenOrders:    pubkeyAt(data, offOpenOrders),
		TargetOrders:  pubkeyAt(data, offTargetOrders),
		BaseVault:     pubkeyAt(data, offBaseVault),
		QuoteVault:    pubkeyAt(data, offQuoteVault),
		BaseMint:      pubkeyAt(data, offBaseMint),
		QuoteMint:     pubkeyAt(data, offQuoteMint),
		BaseDecimals:  int(binary.LittleEndian.Uint64(data[offBaseDecimal : offBaseDecimal+8])),
		QuoteDecimals: int(binary.LittleEndian.Uint64(data[offQuoteDecimal : offQuoteDecimal+8])),
	}

	if keys.BaseMint.IsZero() || keys.QuoteMint.IsZero() {
		return nil, fmt.Errorf("%w: zero mint", ErrMalformedPoolState)
	}
	return keys, nil
}

func pubkeyAt(data []byte, off int) solana.Pubkey {
	var pk solana.Pubkey
	copy(pk[:], data[off:off+32])
	return pk
}

// TokenMint returns the non-native side of the pool. Raydium pools list
// wSOL as either base or quote depending on creation order.
func (k *PoolKeys) TokenMint() solana.Pubkey {
	if k.BaseMint == solana.NativeMint {
		return k.QuoteMint
	}
	return k.BaseMint
}

// TokenDecimals returns the decimals of the non-native mint.
func (k *PoolKeys) TokenDecimals() int {
	if k.BaseMint == solana.NativeMint {
		return k.QuoteDecimals
	}
	return k.BaseDecimals
}

// nativeVault returns the wSOL vault and the token vault, in that order.
func (k *PoolKeys) vaultsBySide() (native, token solana.Pubkey) {
	if k.BaseMint == solana.NativeMint {
		return k.BaseVault, k.QuoteVault
	}
	return k.QuoteVault, k.BaseVault
}

// Client fetches pool keys and quotes prices over RPC.
type Client struct {
	rpc solana.RPCClient
}

// NewClient builds a pool client on the given RPC transport.
func NewClient(rpc solana.RPCClient) *Client {
	return &Client{rpc: rpc}
}

// FetchPoolKeys retrieves and decodes the pool state for pair.
func (c *Client) FetchPoolKeys(ctx context.Context, pair solana.Pubkey) (*PoolKeys, error) {
	info, err := c.rpc.GetAccountInfo(ctx, pair.String())
	if err != nil {
		return nil, fmt.Errorf("fetch pool %s: %w", pair, err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, pair)
	}
	return DecodePoolKeys(pair, info.Data)
}

// QuotePrice returns the pool's spot price in SOL per token, computed
// from the two vault balances. A zero token reserve quotes as zero.
func (c *Client) QuotePrice(ctx context.Context, keys *PoolKeys) (float64, error) {
	nativeVault, tokenVault := keys.vaultsBySide()

	nativeBal, err := c.rpc.GetTokenAccountBalance(ctx, nativeVault.String())
	if err != nil {
		return 0, fmt.Errorf("native vault balance: %w", err)
	}
	tokenBal, err := c.rpc.GetTokenAccountBalance(ctx, tokenVault.String())
	if err != nil {
		return 0, fmt.Errorf("token vault balance: %w", err)
	}

	nativeUI, err := uiAmount(nativeBal)
	if err != nil {
		return 0, err
	}
	tokenUI, err := uiAmount(tokenBal)
	if err != nil {
		return 0, err
	}

	if tokenUI == 0 {
		return 0, nil
	}
	return nativeUI / tokenUI, nil
}

// uiAmount resolves a token amount to its display value, deriving it
// from the raw amount when the node omits uiAmount.
func uiAmount(a *solana.TokenAmount) (float64, error) {
	if a.UIAmount != nil {
		return *a.UIAmount, nil
	}
	raw, err := strconv.ParseFloat(a.Amount, 64)
	if err != nil {
		return 0, fmt.Errorf("parse token amount %q: %w", a.Amount, err)
	}
	div := 1.0
	for i := 0; i < a.Decimals; i++ {
		div *= 10
	}
	return raw / div, nil
}
