package position

// Action is the exit decision for one PnL sample.
type Action int

const (
	// ActionHold keeps the position unchanged.
	ActionHold Action = iota
	// ActionPartialSell sells a configured fraction and ratchets the ladder.
	ActionPartialSell
	// ActionStopLoss sells the full remaining balance below the stop bound.
	ActionStopLoss
	// ActionFinalExit sells the full remaining balance at or above the
	// final tier.
	ActionFinalExit
)

func (a Action) String() string {
	switch a {
	case ActionHold:
		return "hold"
	case ActionPartialSell:
		return "partial-sell"
	case ActionStopLoss:
		return "stop-loss"
	case ActionFinalExit:
		return "final-exit"
	default:
		return "unknown"
	}
}

// Ladder holds the ratcheting take-profit and stop-loss thresholds, all in
// PnL percent. The take-profit tier only ever moves up.
type Ladder struct {
	// TakeProfitTier triggers a partial sell when crossed below FinalTier.
	TakeProfitTier float64

	// StopLoss triggers a full exit when PnL falls to or below it.
	StopLoss float64

	// Increment is added to TakeProfitTier after each partial sell.
	Increment float64

	// FinalTier triggers a full exit.
	FinalTier float64

	// StopLossFromTier recomputes StopLoss as priorTier/3 after each
	// partial sell instead of keeping the absolute bound.
	StopLossFromTier bool
}

// DefaultLadder returns the stock ladder: partial sells from +70%,
// escalating by 80 points, full exit at +300% or -10%.
func DefaultLadder() Ladder {
	return Ladder{
		TakeProfitTier:   70,
		StopLoss:         -10,
		Increment:        80,
		FinalTier:        300,
		StopLossFromTier: true,
	}
}

// Decide maps a PnL sample to an exit action. The final tier and stop
// bound take precedence over the partial-sell tier.
func (l Ladder) Decide(pnlPct float64) Action {
	switch {
	case pnlPct >= l.FinalTier:
		return ActionFinalExit
	case pnlPct <= l.StopLoss:
		return ActionStopLoss
	case pnlPct >= l.TakeProfitTier:
		return ActionPartialSell
	default:
		return ActionHold
	}
}

// Ratchet advances the ladder after a partial sell. The stop bound is
// recomputed from the tier that was just crossed, then the tier moves up.
// TakeProfitTier never decreases.
func (l Ladder) Ratchet() Ladder {
	next := l
	if l.StopLossFromTier {
		next.StopLoss = l.TakeProfitTier / 3
	}
	if l.Increment > 0 {
		next.TakeProfitTier += l.Increment
	}
	return next
}
