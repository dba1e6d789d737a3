package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/mbrennan/weatheredge/internal/domain"
)

// ledgerHeader is the column set of the trade ledger CSV.
var ledgerHeader = []string{
	"trade_id",
	"timestamp_placed",
	"market_id",
	"city",
	"market_question",
	"signal",
	"entry_price",
	"position_size",
	"capital_allocated",
	"fair_price",
	"edge_percentage",
	"timestamp_resolved",
	"resolution_price",
	"outcome",
	"exit_price",
	"pnl",
	"pnl_percentage",
}

// WriteLedgerCSV writes the run's trade ledger. Unresolved trades leave the
// resolution columns empty.
func WriteLedgerCSV(w io.Writer, trades []domain.Trade) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(ledgerHeader); err != nil {
		return fmt.Errorf("backtest: write csv header: %w", err)
	}

	for _, t := range trades {
		resolvedAt := ""
		resolutionPrice := ""
		exitPrice := ""
		pnl := ""
		pnlPct := ""
		if t.State == domain.TradeStateResolved {
			resolvedAt = fmtTime(*t.ResolvedAt)
			resolutionPrice = fmtFloat(t.ResolutionPrice)
			exitPrice = fmtFloat(t.ExitPrice)
			pnl = fmtFloat(t.PnL)
			pnlPct = fmtFloat(t.PnLPct)
		}

		row := []string{
			t.ID,
			fmtTime(t.PlacedAt),
			t.MarketID,
			t.City,
			t.Question,
			string(t.Signal),
			fmtFloat(t.EntryPrice),
			fmtFloat(t.PositionSize),
			fmtFloat(t.CapitalAllocated),
			fmtFloat(t.FairPrice),
			fmtFloat(t.EdgePct),
			resolvedAt,
			resolutionPrice,
			string(t.Outcome),
			exitPrice,
			pnl,
			pnlPct,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("backtest: write csv row %s: %w", t.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("backtest: flush csv: %w", err)
	}
	return nil
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
