package backtest

import (
	"math"
	"time"

	"github.com/mbrennan/weatheredge/internal/domain"
	"github.com/mbrennan/weatheredge/internal/forecast"
	"github.com/mbrennan/weatheredge/internal/ledger"
	"github.com/mbrennan/weatheredge/internal/signal"
)

const dateLayout = "2006-01-02"

// buildReport assembles the run's report JSON from the ledger summary and
// the day-loop counters.
func (e *Engine) buildReport(runID string, start, end time.Time, s ledger.Summary, state *runState) domain.Report {
	sig := e.cfg.Signal
	if sig.MinLiquidity <= 0 {
		sig.MinLiquidity = signal.DefaultMinLiquidity
	}
	if sig.MinEdge <= 0 {
		sig.MinEdge = signal.DefaultMinEdge
	}
	if sig.MaxPrice <= 0 {
		sig.MaxPrice = signal.DefaultMaxPrice
	}
	if sig.MinConfidence <= 0 {
		sig.MinConfidence = signal.DefaultMinConfidence
	}

	band := e.cfg.Model.DeviationBand
	if band <= 0 {
		band = forecast.DefaultDeviationBand
	}
	decay := e.cfg.Model.DecayRate
	if decay <= 0 {
		decay = math.Ln2 / band
	}

	dataSource := e.cfg.DataSource
	if dataSource == "" {
		dataSource = "polymarket"
	}

	winRate := 0.0
	if s.ResolvedCount > 0 {
		winRate = s.WinRate * 100
	}

	return domain.Report{
		BacktestInfo: domain.BacktestInfo{
			RunID:           runID,
			Timestamp:       e.now(),
			DataSource:      dataSource,
			Mode:            e.cfg.Mode,
			StartDate:       start.Format(dateLayout),
			EndDate:         end.AddDate(0, 0, -1).Format(dateLayout),
			MarketsAnalyzed: state.marketsAnalyzed,
			CitiesCovered:   []string{e.cfg.City},
		},
		DataPoints: domain.DataPoints{
			MarketsAnalyzed:         state.marketsAnalyzed,
			OpportunitiesIdentified: state.opportunities,
			BuySignals:              state.buySignals,
			DataGaps:                state.gaps,
		},
		TradingResults: domain.TradingResults{
			TradesExecuted: s.TradeCount,
			InitialCapital: s.InitialCapital,
			FinalCapital:   s.FinalCapital,
			TotalProfit:    s.TotalPnL,
			ROIPercentage:  s.ROI * 100,
			WinningTrades:  s.Wins,
			LosingTrades:   s.Losses,
			WinRate:        winRate,
			BiggestWin:     s.BiggestWin,
			BiggestLoss:    s.BiggestLoss,
		},
		StrategyParameters: domain.StrategyParameters{
			MinLiquidity:    sig.MinLiquidity,
			MinEdge:         sig.MinEdge,
			MaxPrice:        sig.MaxPrice,
			MinConfidence:   sig.MinConfidence,
			CapitalPerTrade: e.cfg.CapitalPerTrade,
			DeviationBand:   band,
			DecayRate:       decay,
		},
	}
}
