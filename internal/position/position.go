// Package position drives one sniped pool from discovery to exit. The
// Position value is immutable; every transition is a pure function of the
// prior value and an event, and the controller owns the loop around it.
package position

import (
	"time"

	"solana-sniper/internal/solana"
)

// State is the lifecycle stage of a position.
type State int

const (
	// StateDiscovered means the pool event arrived but nothing was checked.
	StateDiscovered State = iota
	// StateRiskChecked means the risk screen passed.
	StateRiskChecked
	// StateBought means the buy transaction confirmed.
	StateBought
	// StateTracking means the entry price is resolved and the tick loop runs.
	StateTracking
	// StateClosed means the position exited through a sell or zero balance.
	StateClosed
	// StateAbandoned means the position was given up without a clean exit.
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateRiskChecked:
		return "risk-checked"
	case StateBought:
		return "bought"
	case StateTracking:
		return "tracking"
	case StateClosed:
		return "closed"
	case StateAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateAbandoned
}

// Position is one pool being sniped. Values are copied on transition,
// never mutated in place.
type Position struct {
	Mint solana.Pubkey
	Pair solana.Pubkey

	TokenName   string
	TokenSymbol string

	State  State
	Ladder Ladder

	// BuySignature is set once the buy confirms; it keys the stored record.
	BuySignature string

	// BoughtPrice is SOL per token derived from the buy's balance deltas.
	BoughtPrice float64

	// TokenAmount is the current holding in UI units.
	TokenAmount float64

	// CostSOL is the total entry cost including fees.
	CostSOL float64

	// PnLPct is the most recent sample, or the realized value once terminal.
	PnLPct float64

	// Reason names the terminal transition.
	Reason string

	OpenedAt time.Time
	ClosedAt time.Time
}

// New returns a fresh position in StateDiscovered.
func New(mint, pair solana.Pubkey, ladder Ladder) Position {
	return Position{Mint: mint, Pair: pair, State: StateDiscovered, Ladder: ladder}
}

// Event is a state-machine input.
type Event interface {
	isEvent()
}

// RiskPassed carries the token metadata from a passing risk report.
type RiskPassed struct {
	TokenName   string
	TokenSymbol string
}

// BuyConfirmed records the confirmed buy transaction.
type BuyConfirmed struct {
	Signature string
	At        time.Time
}

// PriceResolved carries the entry price derived from the buy transaction.
type PriceResolved struct {
	Price       float64
	TokenAmount float64
	CostSOL     float64
}

// Sampled is one tracking tick.
type Sampled struct {
	PnLPct float64
}

// PartiallySold records a partial exit; the ladder ratchets as part of
// the transition.
type PartiallySold struct {
	Fraction float64
}

// Closed is the clean terminal transition.
type Closed struct {
	PnLPct float64
	Reason string
	At     time.Time
}

// Abandoned is the give-up terminal transition.
type Abandoned struct {
	Reason string
	At     time.Time
}

func (RiskPassed) isEvent()    {}
func (BuyConfirmed) isEvent()  {}
func (PriceResolved) isEvent() {}
func (Sampled) isEvent()       {}
func (PartiallySold) isEvent() {}
func (Closed) isEvent()        {}
func (Abandoned) isEvent()     {}

// Apply returns the position after the event. Events on a terminal
// position are ignored.
func Apply(p Position, e Event) Position {
	if p.State.Terminal() {
		return p
	}

	switch ev := e.(type) {
	case RiskPassed:
		p.TokenName = ev.TokenName
		p.TokenSymbol = ev.TokenSymbol
		p.State = StateRiskChecked

	case BuyConfirmed:
		p.BuySignature = ev.Signature
		p.OpenedAt = ev.At
		p.State = StateBought

	case PriceResolved:
		p.BoughtPrice = ev.Price
		p.TokenAmount = ev.TokenAmount
		p.CostSOL = ev.CostSOL
		p.State = StateTracking

	case Sampled:
		p.PnLPct = ev.PnLPct

	case PartiallySold:
		p.TokenAmount *= 1 - ev.Fraction
		p.Ladder = p.Ladder.Ratchet()

	case Closed:
		p.PnLPct = ev.PnLPct
		p.Reason = ev.Reason
		p.ClosedAt = ev.At
		p.TokenAmount = 0
		p.State = StateClosed

	case Abandoned:
		p.Reason = ev.Reason
		p.ClosedAt = ev.At
		p.State = StateAbandoned
	}

	return p
}
