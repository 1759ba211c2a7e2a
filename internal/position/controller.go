package position

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"solana-sniper/internal/amm"
	"solana-sniper/internal/confirm"
	"solana-sniper/internal/endpointpool"
	"solana-sniper/internal/notify"
	"solana-sniper/internal/observability"
	"solana-sniper/internal/oracle"
	"solana-sniper/internal/riskcheck"
	"solana-sniper/internal/solana"
	"solana-sniper/internal/storage"
	"solana-sniper/internal/txbuild"
)

// PnL samples outside these bounds come from partially-indexed
// transactions and are skipped, not acted on.
const (
	minReadablePnLPct = -90
	maxReadablePnLPct = 3000
)

// errZeroBalance signals the wallet no longer holds the token.
var errZeroBalance = errors.New("position: zero token balance")

// RiskChecker screens a mint before any funds move.
type RiskChecker interface {
	Check(ctx context.Context, mint string) (riskcheck.Result, error)
}

// PoolClient resolves pool keys and vault-ratio quotes.
type PoolClient interface {
	FetchPoolKeys(ctx context.Context, pair solana.Pubkey) (*amm.PoolKeys, error)
	QuotePrice(ctx context.Context, keys *amm.PoolKeys) (float64, error)
}

// PriceSource derives prices from on-chain transactions.
type PriceSource interface {
	PriceFromTransaction(ctx context.Context, signature string) (*oracle.Sample, error)
	LivePrice(ctx context.Context, pair solana.Pubkey) (float64, error)
}

// Confirmer drives a signed transaction to a terminal state.
type Confirmer interface {
	Submit(ctx context.Context, signed *solana.SignedTransaction, lastValidBlockHeight uint64) (*confirm.SubmittedTransaction, error)
	Await(ctx context.Context, tx *confirm.SubmittedTransaction) error
}

// TradeLog appends one realized-PnL line per closed position.
type TradeLog interface {
	Record(pnlPct float64) error
}

var (
	_ RiskChecker = (*riskcheck.Client)(nil)
	_ PoolClient  = (*amm.Client)(nil)
	_ PriceSource = (*oracle.Oracle)(nil)
	_ Confirmer   = (*confirm.Confirmer)(nil)
)

// Config tunes one controller. Zero fields take defaults.
type Config struct {
	Ladder Ladder

	// BuyLamports is the SOL spent per snipe, excluding rent and fees.
	BuyLamports uint64

	// SlippageBps applies to both buys and sells.
	SlippageBps int

	// PartialSellFraction of the holding is sold on a non-final tier
	// cross. Default 0.6.
	PartialSellFraction float64

	// TickInterval between price samples. Default 4500ms.
	TickInterval time.Duration

	// BuyAttempts bounds buy submissions before abandoning. Default 4.
	BuyAttempts int

	// SellAttempts bounds sell submissions per exit. Default 3.
	SellAttempts int

	// StallLimit is the number of consecutive unreadable samples before
	// the position is abandoned. Default 40.
	StallLimit int

	// ResolveAttempts bounds entry-price reads after the buy confirms.
	// Default 10.
	ResolveAttempts int
}

func (c Config) withDefaults() Config {
	if c.Ladder == (Ladder{}) {
		c.Ladder = DefaultLadder()
	}
	if c.PartialSellFraction <= 0 || c.PartialSellFraction > 1 {
		c.PartialSellFraction = 0.6
	}
	if c.TickInterval <= 0 {
		c.TickInterval = 4500 * time.Millisecond
	}
	if c.BuyAttempts <= 0 {
		c.BuyAttempts = 4
	}
	if c.SellAttempts <= 0 {
		c.SellAttempts = 3
	}
	if c.StallLimit <= 0 {
		c.StallLimit = 40
	}
	if c.ResolveAttempts <= 0 {
		c.ResolveAttempts = 10
	}
	return c
}

// Deps are the controller's collaborators. Pool through Signer are
// required; the rest may be nil and are skipped.
type Deps struct {
	Pool      *endpointpool.Pool
	AMM       PoolClient
	Risk      RiskChecker
	Oracle    PriceSource
	Builder   *txbuild.Builder
	Confirmer Confirmer
	Signer    *solana.Keypair

	Notifier  notify.Notifier
	TradeLog  TradeLog
	Positions storage.PositionStore
	Samples   storage.PnLSampleStore
	Metrics   *observability.Metrics
	Logger    *log.Logger
}

// Controller runs one position per call to Run. A single controller may
// serve many concurrent positions; it holds no per-position state.
type Controller struct {
	cfg  Config
	deps Deps
	log  *log.Logger
	now  func() time.Time
}

// NewController builds a controller from its collaborators.
func NewController(cfg Config, deps Deps) *Controller {
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Controller{
		cfg:  cfg.withDefaults(),
		deps: deps,
		log:  logger,
		now:  time.Now,
	}
}

// Run drives one pool from discovery to a terminal state. The returned
// position is always terminal; the error is non-nil only for
// cancellation.
func (c *Controller) Run(ctx context.Context, mint, pair solana.Pubkey) (Position, error) {
	pos := New(mint, pair, c.cfg.Ladder)
	c.log.Printf("position %s: screening", mint)

	res, err := c.deps.Risk.Check(ctx, mint.String())
	if err != nil {
		return c.abandon(ctx, pos, "risk report unavailable"), nil
	}
	if !res.OK {
		c.countRisk("rejected")
		return c.abandon(ctx, pos, "risk rejected: "+strings.Join(res.Reasons, "; ")), nil
	}
	c.countRisk("passed")
	pos = Apply(pos, RiskPassed{TokenName: res.Token.Name, TokenSymbol: res.Token.Symbol})

	keys, err := c.deps.AMM.FetchPoolKeys(ctx, pair)
	if err != nil {
		return c.abandon(ctx, pos, "pool keys unavailable"), nil
	}

	signature, err := c.buy(ctx, keys)
	if err != nil {
		if ctx.Err() != nil {
			return c.abandon(ctx, pos, "cancelled"), ctx.Err()
		}
		c.log.Printf("position %s: buy failed: %v", mint, err)
		return c.abandon(ctx, pos, "buy failed"), nil
	}
	pos = Apply(pos, BuyConfirmed{Signature: signature, At: c.now()})
	if c.deps.Metrics != nil {
		c.deps.Metrics.PositionsOpened.Inc()
	}
	c.log.Printf("position %s: bought, signature %s", mint, signature)

	sample, err := c.resolveEntry(ctx, signature)
	if err != nil {
		if ctx.Err() != nil {
			return c.abandon(ctx, pos, "cancelled"), ctx.Err()
		}
		return c.abandon(ctx, pos, "entry price unresolved"), nil
	}
	pos = Apply(pos, PriceResolved{
		Price:       sample.Price,
		TokenAmount: sample.TokenAmount,
		CostSOL:     math.Abs(sample.CostWithFee),
	})
	c.log.Printf("position %s: entry price %.12f, amount %.4f, cost %.6f SOL",
		mint, pos.BoughtPrice, pos.TokenAmount, pos.CostSOL)

	return c.track(ctx, pos, keys)
}

// track is the sampling loop. Every decision flows through the ladder;
// only confirmed sells mutate the position.
func (c *Controller) track(ctx context.Context, pos Position, keys *amm.PoolKeys) (Position, error) {
	if c.deps.Metrics != nil {
		c.deps.Metrics.PositionsTracking.Inc()
		defer c.deps.Metrics.PositionsTracking.Dec()
	}

	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	stalled := 0
	for {
		select {
		case <-ctx.Done():
			return c.abandon(ctx, pos, "cancelled"), ctx.Err()
		case <-ticker.C:
		}

		live, err := c.deps.Oracle.LivePrice(ctx, pos.Pair)
		if err != nil {
			if errors.Is(err, endpointpool.ErrRPCExhausted) {
				return c.abandon(ctx, pos, "rpc exhausted"), nil
			}
			if !errors.Is(err, oracle.ErrNoSample) {
				c.log.Printf("position %s: price sample: %v", pos.Mint, err)
			}
			if stalled++; stalled >= c.cfg.StallLimit {
				return c.abandon(ctx, pos, "stalled"), nil
			}
			continue
		}

		pnl := oracle.PnLPct(live, pos.BoughtPrice)
		if pnl < minReadablePnLPct || pnl > maxReadablePnLPct {
			if stalled++; stalled >= c.cfg.StallLimit {
				return c.abandon(ctx, pos, "stalled"), nil
			}
			continue
		}
		stalled = 0

		pos = Apply(pos, Sampled{PnLPct: pnl})
		c.recordSample(ctx, pos, live, pnl)

		switch pos.Ladder.Decide(pnl) {
		case ActionHold:

		case ActionPartialSell:
			err := c.sell(ctx, keys, c.cfg.PartialSellFraction, false)
			switch {
			case errors.Is(err, errZeroBalance):
				return c.close(ctx, pos, pnl, "zero-balance"), nil
			case err != nil:
				if ctx.Err() != nil {
					return c.abandon(ctx, pos, "cancelled"), ctx.Err()
				}
				// Tier not ratcheted; the next sample above it retries.
				c.log.Printf("position %s: partial sell failed: %v", pos.Mint, err)
			default:
				pos = Apply(pos, PartiallySold{Fraction: c.cfg.PartialSellFraction})
				c.log.Printf("position %s: partial sell at %.2f%%, next tier %.0f, stop %.2f",
					pos.Mint, pnl, pos.Ladder.TakeProfitTier, pos.Ladder.StopLoss)
			}

		case ActionStopLoss:
			return c.exit(ctx, pos, keys, pnl, "stop-loss")

		case ActionFinalExit:
			return c.exit(ctx, pos, keys, pnl, "take-profit")
		}
	}
}

// exit sells the full remaining balance and closes the position.
func (c *Controller) exit(ctx context.Context, pos Position, keys *amm.PoolKeys, pnl float64, reason string) (Position, error) {
	err := c.sell(ctx, keys, 1, true)
	switch {
	case errors.Is(err, errZeroBalance):
		return c.close(ctx, pos, pnl, "zero-balance"), nil
	case err != nil:
		if ctx.Err() != nil {
			return c.abandon(ctx, pos, "cancelled"), ctx.Err()
		}
		c.log.Printf("position %s: exit sell failed: %v", pos.Mint, err)
		return c.abandon(ctx, pos, "sell failed"), nil
	}
	return c.close(ctx, pos, pnl, reason), nil
}

// buy submits the swap with a fresh blockhash per attempt until it
// confirms or the attempt budget runs out.
func (c *Controller) buy(ctx context.Context, keys *amm.PoolKeys) (string, error) {
	rent, err := c.rentExemption(ctx)
	if err != nil {
		return "", err
	}
	existing, err := c.tokenAccount(ctx, keys.TokenMint())
	if err != nil && !errors.Is(err, errZeroBalance) {
		return "", err
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.BuyAttempts; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		price, err := c.deps.AMM.QuotePrice(ctx, keys)
		if err != nil || price <= 0 {
			lastErr = fmt.Errorf("quote: %w", errOrUnavailable(err))
			continue
		}

		plan, err := c.deps.Builder.BuildBuy(keys, price, c.cfg.BuyLamports, c.cfg.SlippageBps, existing, rent)
		if err != nil {
			return "", err
		}

		signature, err := c.submit(ctx, plan, true)
		if err != nil {
			lastErr = err
			if retryableSubmit(err) {
				c.rotateOnExpiry(err)
				continue
			}
			return "", err
		}
		if plan.CreatesTokenAccount {
			existing = plan.TokenAccount
		}
		return signature, nil
	}
	return "", fmt.Errorf("buy not confirmed after %d attempts: %w", c.cfg.BuyAttempts, lastErr)
}

// sell disposes fraction of the current holding. A full sell also closes
// the token account, reclaiming its rent.
func (c *Controller) sell(ctx context.Context, keys *amm.PoolKeys, fraction float64, closeAccount bool) error {
	account, err := c.tokenAccount(ctx, keys.TokenMint())
	if err != nil {
		return err
	}

	raw, err := c.tokenBalance(ctx, account)
	if err != nil {
		return err
	}
	if raw == 0 {
		return errZeroBalance
	}

	amount := raw
	full := fraction >= 1
	if !full {
		amount = uint64(float64(raw) * fraction)
		if amount == 0 {
			return errZeroBalance
		}
	}

	rent, err := c.rentExemption(ctx)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.SellAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		price, err := c.deps.AMM.QuotePrice(ctx, keys)
		if err != nil || price <= 0 {
			lastErr = fmt.Errorf("quote: %w", errOrUnavailable(err))
			continue
		}

		plan, err := c.deps.Builder.BuildSell(keys, price, amount, c.cfg.SlippageBps, account, closeAccount && full, rent)
		if err != nil {
			return err
		}

		if _, err := c.submit(ctx, plan, false); err != nil {
			lastErr = err
			if retryableSubmit(err) {
				c.rotateOnExpiry(err)
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("sell not confirmed after %d attempts: %w", c.cfg.SellAttempts, lastErr)
}

// submit compiles the plan against a fresh blockhash and drives it to a
// terminal state. Cancellation does not interrupt an in-flight Sent
// transaction; the confirmer's ceiling bounds the wait instead.
func (c *Controller) submit(ctx context.Context, plan *txbuild.SwapPlan, isBuy bool) (string, error) {
	var blockhash *solana.LatestBlockhash
	err := c.deps.Pool.Execute(ctx, "getLatestBlockhash", func(ctx context.Context, rpc solana.RPCClient) error {
		var err error
		blockhash, err = rpc.GetLatestBlockhash(ctx)
		return err
	})
	if err != nil {
		return "", err
	}

	signed, err := plan.Compile(c.deps.Signer, blockhash.Blockhash)
	if err != nil {
		return "", err
	}

	tx, err := c.deps.Confirmer.Submit(ctx, signed, blockhash.LastValidBlockHeight)
	if err != nil {
		return "", err
	}
	c.countSubmit(isBuy, false)

	if err := c.deps.Confirmer.Await(context.WithoutCancel(ctx), tx); err != nil {
		return "", err
	}
	c.countSubmit(isBuy, true)
	return tx.Signature, nil
}

// resolveEntry reads the entry price from the confirmed buy. The node
// may index the transaction a few ticks after confirmation.
func (c *Controller) resolveEntry(ctx context.Context, signature string) (*oracle.Sample, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.ResolveAttempts; attempt++ {
		sample, err := c.deps.Oracle.PriceFromTransaction(ctx, signature)
		if err == nil && sample.Price > 0 {
			return sample, nil
		}
		lastErr = errOrUnavailable(err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.cfg.TickInterval):
		}
	}
	return nil, fmt.Errorf("entry price after %d attempts: %w", c.cfg.ResolveAttempts, lastErr)
}

func (c *Controller) tokenAccount(ctx context.Context, mint solana.Pubkey) (solana.Pubkey, error) {
	var accounts []string
	err := c.deps.Pool.Execute(ctx, "getTokenAccountsByOwner", func(ctx context.Context, rpc solana.RPCClient) error {
		var err error
		accounts, err = rpc.GetTokenAccountsByOwner(ctx, c.deps.Signer.Pubkey().String(), mint.String())
		return err
	})
	if err != nil {
		return solana.Pubkey{}, err
	}
	if len(accounts) == 0 {
		return solana.Pubkey{}, errZeroBalance
	}
	return solana.PubkeyFromString(accounts[0])
}

func (c *Controller) tokenBalance(ctx context.Context, account solana.Pubkey) (uint64, error) {
	var balance *solana.TokenAmount
	err := c.deps.Pool.Execute(ctx, "getTokenAccountBalance", func(ctx context.Context, rpc solana.RPCClient) error {
		var err error
		balance, err = rpc.GetTokenAccountBalance(ctx, account.String())
		return err
	})
	if err != nil {
		return 0, err
	}
	raw, err := strconv.ParseUint(balance.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse token balance %q: %w", balance.Amount, err)
	}
	return raw, nil
}

func (c *Controller) rentExemption(ctx context.Context) (uint64, error) {
	var rent uint64
	err := c.deps.Pool.Execute(ctx, "getMinimumBalanceForRentExemption", func(ctx context.Context, rpc solana.RPCClient) error {
		var err error
		rent, err = rpc.GetMinimumBalanceForRentExemption(ctx, txbuild.TokenAccountSize)
		return err
	})
	return rent, err
}

// close finalizes a clean exit: one notification, one trade-log line,
// one stored record.
func (c *Controller) close(ctx context.Context, pos Position, pnl float64, reason string) Position {
	pos = Apply(pos, Closed{PnLPct: pnl, Reason: reason, At: c.now()})
	c.log.Printf("position %s: closed (%s) at %.2f%%", pos.Mint, reason, pnl)
	if c.deps.Metrics != nil {
		c.deps.Metrics.PositionsClosed.WithLabelValues(reason).Inc()
		c.deps.Metrics.RealizedPnLPct.Observe(pnl)
	}
	c.finalize(ctx, pos, fmt.Sprintf("closed %s (%s): %+.2f%%", c.tokenLabel(pos), reason, pnl))
	return pos
}

// abandon finalizes a give-up: one notification, plus the stored record
// and trade-log line when a buy had already happened.
func (c *Controller) abandon(ctx context.Context, pos Position, reason string) Position {
	pos = Apply(pos, Abandoned{Reason: reason, At: c.now()})
	c.log.Printf("position %s: abandoned: %s", pos.Mint, reason)
	if c.deps.Metrics != nil {
		c.deps.Metrics.PositionsAbandoned.WithLabelValues(reason).Inc()
	}
	c.finalize(ctx, pos, fmt.Sprintf("abandoned %s: %s", c.tokenLabel(pos), reason))
	return pos
}

// finalize performs the terminal side effects. Failures are logged and
// swallowed; the position's fate is already decided.
func (c *Controller) finalize(ctx context.Context, pos Position, text string) {
	// Side effects must finish even when the terminal state was reached
	// through cancellation.
	ctx = context.WithoutCancel(ctx)

	if err := c.deps.Notifier.Send(ctx, text); err != nil {
		c.log.Printf("position %s: notify: %v", pos.Mint, err)
	}

	if pos.BuySignature == "" {
		return
	}

	if c.deps.TradeLog != nil {
		if err := c.deps.TradeLog.Record(pos.PnLPct); err != nil {
			c.log.Printf("position %s: trade log: %v", pos.Mint, err)
		}
	}

	if c.deps.Positions != nil {
		record := &storage.ClosedPosition{
			Signature:   pos.BuySignature,
			Mint:        pos.Mint.String(),
			Pair:        pos.Pair.String(),
			TokenName:   pos.TokenName,
			TokenSymbol: pos.TokenSymbol,
			BoughtPrice: pos.BoughtPrice,
			TokenAmount: pos.TokenAmount,
			CostSOL:     pos.CostSOL,
			PnLPct:      pos.PnLPct,
			Reason:      pos.Reason,
			OpenedAt:    pos.OpenedAt,
			ClosedAt:    pos.ClosedAt,
		}
		if err := c.deps.Positions.Insert(ctx, record); err != nil {
			c.log.Printf("position %s: store record: %v", pos.Mint, err)
		}
	}
}

// recordSample persists one tracking tick when a sample store is wired.
func (c *Controller) recordSample(ctx context.Context, pos Position, price, pnl float64) {
	if c.deps.Samples == nil {
		return
	}
	sample := &storage.PnLSample{
		Mint:        pos.Mint.String(),
		Pair:        pos.Pair.String(),
		TimestampMs: c.now().UnixMilli(),
		Price:       price,
		PnLPct:      pnl,
	}
	if err := c.deps.Samples.InsertBulk(ctx, []*storage.PnLSample{sample}); err != nil {
		c.log.Printf("position %s: store sample: %v", pos.Mint, err)
	}
}

func (c *Controller) countRisk(verdict string) {
	if c.deps.Metrics != nil {
		c.deps.Metrics.RiskChecksTotal.WithLabelValues(verdict).Inc()
	}
}

func (c *Controller) countSubmit(isBuy, confirmed bool) {
	if c.deps.Metrics == nil {
		return
	}
	switch {
	case isBuy && confirmed:
		c.deps.Metrics.BuysConfirmed.Inc()
	case isBuy:
		c.deps.Metrics.BuysSubmitted.Inc()
	case confirmed:
		c.deps.Metrics.SellsConfirmed.Inc()
	default:
		c.deps.Metrics.SellsSubmitted.Inc()
	}
}

func (c *Controller) tokenLabel(pos Position) string {
	if pos.TokenSymbol != "" {
		return pos.TokenSymbol + " (" + pos.Mint.String() + ")"
	}
	return pos.Mint.String()
}

// rotateOnExpiry moves to the next endpoint before a resubmission when
// the failure suggests the current node is lagging behind the chain. An
// on-chain failure is not the node's fault, and pool exhaustion already
// rotated internally, so neither rotates here.
func (c *Controller) rotateOnExpiry(err error) {
	if errors.Is(err, confirm.ErrExpired) || errors.Is(err, confirm.ErrCeiling) {
		c.deps.Pool.Rotate()
	}
}

// retryableSubmit reports whether a failed attempt may be rebuilt with a
// fresh blockhash and resubmitted.
func retryableSubmit(err error) bool {
	return errors.Is(err, confirm.ErrExpired) ||
		errors.Is(err, confirm.ErrFailed) ||
		errors.Is(err, confirm.ErrCeiling) ||
		errors.Is(err, endpointpool.ErrRPCExhausted)
}

func errOrUnavailable(err error) error {
	if err != nil {
		return err
	}
	return txbuild.ErrQuoteUnavailable
}
