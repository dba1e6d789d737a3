package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mbrennan/weatheredge/internal/domain"
)

// RunStore implements domain.RunStore using PostgreSQL.
type RunStore struct {
	pool *pgxpool.Pool
}

// NewRunStore creates a new RunStore backed by the given connection pool.
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

const runCols = `id, city, mode, start_date, end_date, initial_capital,
	final_capital, total_pnl, roi_pct, win_rate_pct, trade_count,
	data_gap_count, created_at`

// Insert persists a run summary.
func (s *RunStore) Insert(ctx context.Context, run domain.RunRecord) error {
	const query = `
		INSERT INTO runs (
			id, city, mode, start_date, end_date, initial_capital,
			final_capital, total_pnl, roi_pct, win_rate_pct, trade_count,
			data_gap_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.pool.Exec(ctx, query,
		run.ID, run.City, string(run.Mode), run.StartDate, run.EndDate,
		run.InitialCapital, run.FinalCapital, run.TotalPnL, run.ROIPct,
		run.WinRatePct, run.TradeCount, run.DataGapCount,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert run %s: %w", run.ID, err)
	}
	return nil
}

// GetByID retrieves one run. It returns domain.ErrNotFound when the run
// does not exist.
func (s *RunStore) GetByID(ctx context.Context, id string) (domain.RunRecord, error) {
	query := `SELECT ` + runCols + ` FROM runs WHERE id = $1`

	var run domain.RunRecord
	var mode string
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.City, &mode, &run.StartDate, &run.EndDate,
		&run.InitialCapital, &run.FinalCapital, &run.TotalPnL, &run.ROIPct,
		&run.WinRatePct, &run.TradeCount, &run.DataGapCount, &run.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RunRecord{}, domain.ErrNotFound
		}
		return domain.RunRecord{}, fmt.Errorf("postgres: get run %s: %w", id, err)
	}
	run.Mode = domain.RunMode(mode)
	return run, nil
}

// List returns run summaries, newest first, with optional city filtering
// and pagination.
func (s *RunStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.RunRecord, error) {
	query := `SELECT ` + runCols + ` FROM runs`
	args := []any{}
	argIdx := 1

	if opts.City != "" {
		query += fmt.Sprintf(" WHERE city = $%d", argIdx)
		args = append(args, opts.City)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunRecord
	for rows.Next() {
		var run domain.RunRecord
		var mode string
		if err := rows.Scan(
			&run.ID, &run.City, &mode, &run.StartDate, &run.EndDate,
			&run.InitialCapital, &run.FinalCapital, &run.TotalPnL, &run.ROIPct,
			&run.WinRatePct, &run.TradeCount, &run.DataGapCount, &run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan run: %w", err)
		}
		run.Mode = domain.RunMode(mode)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list runs: %w", err)
	}
	return runs, nil
}

// Compile-time interface check.
var _ domain.RunStore = (*RunStore)(nil)
