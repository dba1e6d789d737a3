package domain

import "time"

// TradeState tracks a trade through its lifecycle. Backtest trades go
// PLACED -> RESOLVED in the same run; predict-mode trades stay PENDING until
// the target date has observed weather.
type TradeState string

const (
	TradeStatePlaced   TradeState = "PLACED"
	TradeStatePending  TradeState = "PENDING"
	TradeStateResolved TradeState = "RESOLVED"
)

// Outcome is the settled result of a trade. A trade that resolves with zero
// PnL counts as a loss.
type Outcome string

const (
	OutcomeWin     Outcome = "WIN"
	OutcomeLoss    Outcome = "LOSS"
	OutcomePending Outcome = "PENDING"
)

// Trade is a simulated position taken on one outcome bucket.
type Trade struct {
	ID               string
	PlacedAt         time.Time
	MarketID         string
	TokenID          string
	City             string
	Question         string
	Signal           Signal
	EntryPrice       float64
	PositionSize     float64 // shares = CapitalAllocated / EntryPrice
	CapitalAllocated float64
	FairPrice        float64
	EdgePct          float64 // relative edge at entry, as a percentage

	State           TradeState
	ResolvedAt      *time.Time
	ResolutionPrice float64 // settlement price, 1.0 or 0.0 once resolved
	Outcome         Outcome
	ExitPrice       float64
	PnL             float64
	PnLPct          float64
}
