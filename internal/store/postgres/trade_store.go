package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mbrennan/weatheredge/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeCols = `trade_id, placed_at, market_id, token_id, city, question,
	signal, entry_price, position_size, capital_allocated, fair_price,
	edge_pct, state, resolved_at, resolution_price, outcome, exit_price,
	pnl, pnl_pct`

// InsertBatch persists a run's trades in one round trip.
func (s *TradeStore) InsertBatch(ctx context.Context, runID string, trades []domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	const query = `
		INSERT INTO trades (
			run_id, trade_id, placed_at, market_id, token_id, city, question,
			signal, entry_price, position_size, capital_allocated, fair_price,
			edge_pct, state, resolved_at, resolution_price, outcome,
			exit_price, pnl, pnl_pct
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20)`

	batch := &pgx.Batch{}
	for _, t := range trades {
		batch.Queue(query,
			runID, t.ID, t.PlacedAt, t.MarketID, t.TokenID, t.City,
			t.Question, string(t.Signal), t.EntryPrice, t.PositionSize,
			t.CapitalAllocated, t.FairPrice, t.EdgePct, string(t.State),
			t.ResolvedAt, t.ResolutionPrice, string(t.Outcome), t.ExitPrice,
			t.PnL, t.PnLPct,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range trades {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("postgres: insert trade %s: %w", trades[i].ID, err)
		}
	}
	return nil
}

// ListByRun returns all trades of one run in placement order.
func (s *TradeStore) ListByRun(ctx context.Context, runID string) ([]domain.Trade, error) {
	query := `SELECT ` + tradeCols + ` FROM trades WHERE run_id = $1 ORDER BY trade_id`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades for run %s: %w", runID, err)
	}
	defer rows.Close()

	return scanTradeRows(rows)
}

// ListPending returns unresolved trades for a city across all runs, oldest
// placement first. Each trade carries its run ID so it can be updated later.
func (s *TradeStore) ListPending(ctx context.Context, city string) ([]domain.PendingTrade, error) {
	query := `SELECT run_id, ` + tradeCols + ` FROM trades
		WHERE city = $1 AND state = $2 ORDER BY placed_at`

	rows, err := s.pool.Query(ctx, query, city, string(domain.TradeStatePending))
	if err != nil {
		return nil, fmt.Errorf("postgres: list pending trades %s: %w", city, err)
	}
	defer rows.Close()

	var pending []domain.PendingTrade
	for rows.Next() {
		var p domain.PendingTrade
		var signal, state, outcome string
		t := &p.Trade
		if err := rows.Scan(
			&p.RunID,
			&t.ID, &t.PlacedAt, &t.MarketID, &t.TokenID, &t.City, &t.Question,
			&signal, &t.EntryPrice, &t.PositionSize, &t.CapitalAllocated,
			&t.FairPrice, &t.EdgePct, &state, &t.ResolvedAt,
			&t.ResolutionPrice, &outcome, &t.ExitPrice, &t.PnL, &t.PnLPct,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan pending trade: %w", err)
		}
		t.Signal = domain.Signal(signal)
		t.State = domain.TradeState(state)
		t.Outcome = domain.Outcome(outcome)
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: scan pending trades: %w", err)
	}
	return pending, nil
}

// MarkResolved writes a trade's settlement fields. It returns
// domain.ErrTradeNotFound when the trade does not exist.
func (s *TradeStore) MarkResolved(ctx context.Context, runID string, trade domain.Trade) error {
	const query = `
		UPDATE trades SET
			state = $3, resolved_at = $4, resolution_price = $5, outcome = $6,
			exit_price = $7, pnl = $8, pnl_pct = $9
		WHERE run_id = $1 AND trade_id = $2`

	tag, err := s.pool.Exec(ctx, query,
		runID, trade.ID, string(trade.State), trade.ResolvedAt,
		trade.ResolutionPrice, string(trade.Outcome), trade.ExitPrice,
		trade.PnL, trade.PnLPct,
	)
	if err != nil {
		return fmt.Errorf("postgres: mark trade %s resolved: %w", trade.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTradeNotFound
	}
	return nil
}

func scanTradeRows(rows pgx.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var signal, state, outcome string
		if err := rows.Scan(
			&t.ID, &t.PlacedAt, &t.MarketID, &t.TokenID, &t.City, &t.Question,
			&signal, &t.EntryPrice, &t.PositionSize, &t.CapitalAllocated,
			&t.FairPrice, &t.EdgePct, &state, &t.ResolvedAt,
			&t.ResolutionPrice, &outcome, &t.ExitPrice, &t.PnL, &t.PnLPct,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		t.Signal = domain.Signal(signal)
		t.State = domain.TradeState(state)
		t.Outcome = domain.Outcome(outcome)
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: scan trades: %w", err)
	}
	return trades, nil
}

// Compile-time interface check.
var _ domain.TradeStore = (*TradeStore)(nil)
