package storage

import (
	"context"
	"time"
)

// ClosedPosition is the durable record of one finished position. A row is
// written exactly once, when the position reaches a terminal state.
type ClosedPosition struct {
	// Signature of the buy transaction, unique per position.
	Signature   string
	Mint        string
	Pair        string
	TokenName   string
	TokenSymbol string

	// BoughtPrice is the entry price in SOL per token derived from the
	// buy transaction's balance deltas.
	BoughtPrice float64
	TokenAmount float64

	// CostSOL is the total SOL spent on entry including fees.
	CostSOL float64

	// PnLPct is the realized profit or loss in percent at close.
	PnLPct float64

	// Reason names the terminal transition: take-profit, stop-loss,
	// stalled, risk-rejected.
	Reason string

	OpenedAt time.Time
	ClosedAt time.Time
}

// PnLSample is one tracking tick of an open position.
type PnLSample struct {
	Mint        string
	Pair        string
	TimestampMs int64
	Price       float64
	PnLPct      float64
}

// PositionStore provides access to closed position records.
type PositionStore interface {
	// Insert adds a closed position. Returns ErrDuplicateKey if the buy
	// signature was already recorded.
	Insert(ctx context.Context, p *ClosedPosition) error

	// GetBySignature retrieves a position by its buy signature.
	// Returns ErrNotFound if not exists.
	GetBySignature(ctx context.Context, signature string) (*ClosedPosition, error)

	// GetByMint retrieves all closed positions for a mint, ordered by
	// close time ASC.
	GetByMint(ctx context.Context, mint string) ([]*ClosedPosition, error)

	// GetAll retrieves all closed positions, ordered by close time ASC.
	GetAll(ctx context.Context) ([]*ClosedPosition, error)
}

// PnLSampleStore provides access to per-tick PnL samples.
type PnLSampleStore interface {
	// InsertBulk adds multiple samples. Fails the entire batch on a
	// duplicate (mint, timestamp_ms).
	InsertBulk(ctx context.Context, samples []*PnLSample) error

	// GetByMint retrieves all samples for a mint, ordered by timestamp ASC.
	GetByMint(ctx context.Context, mint string) ([]*PnLSample, error)
}
