// Package txbuild assembles the instruction sequences for pool swaps.
package txbuild

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math"

	"solana-sniper/internal/amm"
	"solana-sniper/internal/solana"
)

// ErrInvalidSlippage is returned for slippage outside [0, 10000) bps.
var ErrInvalidSlippage = errors.New("txbuild: slippage out of range")

// ErrQuoteUnavailable is returned when no usable price quote exists.
var ErrQuoteUnavailable = errors.New("txbuild: quote unavailable")

// lamportsPerSOL converts between SOL and its base unit.
const lamportsPerSOL = 1e9

// Builder assembles swap plans for one wallet.
type Builder struct {
	owner     solana.Pubkey
	unitLimit uint32
	unitPrice uint64

	// seedFn generates the ephemeral wSOL account seed. Replaced in
	// tests for determinism.
	seedFn func() string
}

// BuilderOption customizes a Builder.
type BuilderOption func(*Builder)

// WithComputeBudget overrides the default compute unit limit and price.
func WithComputeBudget(unitLimit uint32, unitPrice uint64) BuilderOption {
	return func(b *Builder) {
		b.unitLimit = unitLimit
		b.unitPrice = unitPrice
	}
}

// WithSeedFn overrides wSOL seed generation.
func WithSeedFn(fn func() string) BuilderOption {
	return func(b *Builder) { b.seedFn = fn }
}

// NewBuilder creates a builder for the owner wallet.
func NewBuilder(owner solana.Pubkey, opts ...BuilderOption) *Builder {
	b := &Builder{
		owner:     owner,
		unitLimit: 100_000,
		unitPrice: 1_000_000,
		seedFn:    randomSeed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// randomSeed produces a 32-character seed for the ephemeral wSOL
// account address.
func randomSeed() string {
	buf := make([]byte, 24)
	rand.Read(buf)
	return base64.RawURLEncoding.EncodeToString(buf)
}

// SwapPlan is an assembled, unsigned swap. The caller compiles it with
// a fresh blockhash, signs and submits; a plan can be resubmitted after
// blockhash expiry without rebuilding.
type SwapPlan struct {
	Instructions []solana.Instruction
	// WSOLAccount is the ephemeral wrapped-SOL account the plan creates
	// and closes.
	WSOLAccount solana.Pubkey
	// TokenAccount receives (buy) or provides (sell) the token side.
	TokenAccount solana.Pubkey
	// CreatesTokenAccount reports whether the plan includes the
	// create-ATA instruction.
	CreatesTokenAccount bool
	AmountIn            uint64
	MinimumOut          uint64
}

// BuildBuy assembles a buy of the pool's token with amountInLamports of
// SOL at the quoted price (SOL per token). existingTokenAccount names
// the wallet's token account when one exists; the zero value makes the
// plan create the associated token account. rentLamports is the token
// account rent-exemption minimum.
func (b *Builder) BuildBuy(keys *amm.PoolKeys, price float64, amountInLamports uint64, slippageBps int, existingTokenAccount solana.Pubkey, rentLamports uint64) (*SwapPlan, error) {
	if slippageBps < 0 || slippageBps >= 10000 {
		return nil, fmt.Errorf("%w: %d bps", ErrInvalidSlippage, slippageBps)
	}
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, fmt.Errorf("%w: price %g", ErrQuoteUnavailable, price)
	}

	solIn := float64(amountInLamports) / lamportsPerSOL
	amountOut := solIn / price
	minimumOut := applySlippage(amountOut, slippageBps, keys.TokenDecimals())

	seed := b.seedFn()
	wsolAccount := solana.CreateWithSeed(b.owner, seed, solana.TokenProgram)

	tokenAccount := existingTokenAccount
	createATA := tokenAccount.IsZero()
	var ataInstr solana.Instruction
	if createATA {
		var err error
		tokenAccount, err = solana.AssociatedTokenAddress(b.owner, keys.TokenMint())
		if err != nil {
			return nil, fmt.Errorf("derive token account: %w", err)
		}
		ataInstr, err = CreateAssociatedTokenAccount(b.owner, b.owner, keys.TokenMint())
		if err != nil {
			return nil, fmt.Errorf("create token account: %w", err)
		}
	}

	instructions := []solana.Instruction{
		SetComputeUnitLimit(b.unitLimit),
		SetComputeUnitPrice(b.unitPrice),
		CreateAccountWithSeed(b.owner, wsolAccount, b.owner, seed, rentLamports+amountInLamports, TokenAccountSize, solana.TokenProgram),
		InitializeTokenAccount(wsolAccount, solana.NativeMint, b.owner),
		Transfer(b.owner, wsolAccount, amountInLamports),
	}
	if createATA {
		instructions = append(instructions, ataInstr)
	}
	instructions = append(instructions,
		Swap(keys, wsolAccount, tokenAccount, b.owner, amountInLamports, minimumOut),
		CloseTokenAccount(wsolAccount, b.owner, b.owner),
	)

	return &SwapPlan{
		Instructions:        instructions,
		WSOLAccount:         wsolAccount,
		TokenAccount:        tokenAccount,
		CreatesTokenAccount: createATA,
		AmountIn:            amountInLamports,
		MinimumOut:          minimumOut,
	}, nil
}

// BuildSell assembles a sale of tokenAmount raw token units back to SOL
// at the quoted price. closeTokenAccount additionally closes the token
// account after the swap, reclaiming its rent; used when selling the
// full balance.
func (b *Builder) BuildSell(keys *amm.PoolKeys, price float64, tokenAmount uint64, slippageBps int, tokenAccount solana.Pubkey, closeTokenAccount bool, rentLamports uint64) (*SwapPlan, error) {
	if slippageBps < 0 || slippageBps >= 10000 {
		return nil, fmt.Errorf("%w: %d bps", ErrInvalidSlippage, slippageBps)
	}
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, fmt.Errorf("%w: price %g", ErrQuoteUnavailable, price)
	}

	decimals := keys.TokenDecimals()
	tokenUI := float64(tokenAmount) / math.Pow10(decimals)
	solOut := tokenUI * price
	minimumOut := applySlippage(solOut, slippageBps, 9)

	seed := b.seedFn()
	wsolAccount := solana.CreateWithSeed(b.owner, seed, solana.TokenProgram)

	instructions := []solana.Instruction{
		SetComputeUnitLimit(b.unitLimit),
		SetComputeUnitPrice(b.unitPrice),
		CreateAccountWithSeed(b.owner, wsolAccount, b.owner, seed, rentLamports, TokenAccountSize, solana.TokenProgram),
		InitializeTokenAccount(wsolAccount, solana.NativeMint, b.owner),
		Swap(keys, tokenAccount, wsolAccount, b.owner, tokenAmount, minimumOut),
		CloseTokenAccount(wsolAccount, b.owner, b.owner),
	}
	if closeTokenAccount {
		instructions = append(instructions, CloseTokenAccount(tokenAccount, b.owner, b.owner))
	}

	return &SwapPlan{
		Instructions: instructions,
		WSOLAccount:  wsolAccount,
		TokenAccount: tokenAccount,
		AmountIn:     tokenAmount,
		MinimumOut:   minimumOut,
	}, nil
}

// applySlippage converts a display amount to base units after shaving
// the slippage tolerance.
func applySlippage(amount float64, bps, decimals int) uint64 {
	adjusted := amount * (1 - float64(bps)/10000)
	return uint64(adjusted * math.Pow10(decimals))
}

// Compile serializes and signs the plan against a blockhash. Each call
// may use a fresh blockhash; the signature changes accordingly.
func (p *SwapPlan) Compile(signer *solana.Keypair, blockhash string) (*solana.SignedTransaction, error) {
	msg, err := solana.CompileMessage(signer.Pubkey(), p.Instructions, blockhash)
	if err != nil {
		return nil, fmt.Errorf("compile message: %w", err)
	}
	return solana.SignTransaction(msg, signer)
}
