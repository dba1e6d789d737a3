package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/mbrennan/weatheredge/internal/domain"
)

// Event types accepted by Notifier filtering.
const (
	EventRunComplete = "run_complete"
	EventOpportunity = "opportunity"
	EventDataGap     = "data_gap"
)

// NotifyRunComplete sends a summary of a finished run.
func (n *Notifier) NotifyRunComplete(ctx context.Context, report domain.Report) error {
	info := report.BacktestInfo
	res := report.TradingResults

	title := fmt.Sprintf("%s run complete: %s", info.Mode, strings.Join(info.CitiesCovered, ", "))
	message := fmt.Sprintf(
		"Run %s (%s to %s)\nTrades: %d | PnL: %.2f | ROI: %.2f%% | Win rate: %.1f%%\nData gaps: %d",
		info.RunID, info.StartDate, info.EndDate,
		res.TradesExecuted, res.TotalProfit, res.ROIPercentage, res.WinRate,
		len(report.DataPoints.DataGaps),
	)
	return n.Notify(ctx, EventRunComplete, title, message)
}

// NotifyDataGaps reports the days a run had to skip. Off by default; enable
// with the "data_gap" event.
func (n *Notifier) NotifyDataGaps(ctx context.Context, runID string, gaps []domain.DataGap) error {
	if len(gaps) == 0 {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run %s skipped %d day(s):", runID, len(gaps))
	for _, g := range gaps {
		fmt.Fprintf(&b, "\n%s: %s", g.Date.Format("2006-01-02"), g.Reason)
	}
	title := fmt.Sprintf("data gaps in run %s", runID)
	return n.Notify(ctx, EventDataGap, title, b.String())
}

// NotifyOpportunity alerts on an actionable mispricing found during a scan.
func (n *Notifier) NotifyOpportunity(ctx context.Context, opp domain.TradeOpportunity) error {
	title := fmt.Sprintf("%s signal: %s", opp.Signal, opp.City)
	message := fmt.Sprintf(
		"%s\nMarket %.4f vs fair %.4f (edge %.1f%%, confidence %.2f)",
		opp.Question, opp.MarketPrice, opp.FairPrice, opp.Edge*100, opp.Confidence,
	)
	return n.Notify(ctx, EventOpportunity, title, message)
}
