package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	City   string
}

// RunRecord is the persisted summary of a completed run.
type RunRecord struct {
	ID             string
	City           string
	Mode           RunMode
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital float64
	FinalCapital   float64
	TotalPnL       float64
	ROIPct         float64
	WinRatePct     float64
	TradeCount     int
	DataGapCount   int
	CreatedAt      time.Time
}

// RunStore persists run summaries.
type RunStore interface {
	Insert(ctx context.Context, run RunRecord) error
	GetByID(ctx context.Context, id string) (RunRecord, error)
	List(ctx context.Context, opts ListOpts) ([]RunRecord, error)
}

// PendingTrade pairs an unresolved trade with the run that produced it.
// Trade IDs are only unique within a run.
type PendingTrade struct {
	RunID string
	Trade Trade
}

// TradeStore persists the trade ledger of each run.
type TradeStore interface {
	InsertBatch(ctx context.Context, runID string, trades []Trade) error
	ListByRun(ctx context.Context, runID string) ([]Trade, error)
	ListPending(ctx context.Context, city string) ([]PendingTrade, error)
	MarkResolved(ctx context.Context, runID string, trade Trade) error
}
