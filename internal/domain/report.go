package domain

import "time"

// RunMode selects how the engine walks the day range.
type RunMode string

const (
	ModeBacktest RunMode = "backtest"
	ModePredict  RunMode = "predict"
)

// DataGap records a day the engine had to skip for lack of data. The run
// continues; gaps surface in the report instead of failing it.
type DataGap struct {
	ID     string    `json:"id"`
	Date   time.Time `json:"date"`
	Reason string    `json:"reason"`
}

// BacktestInfo identifies a run.
type BacktestInfo struct {
	RunID           string    `json:"run_id"`
	Timestamp       time.Time `json:"timestamp"`
	DataSource      string    `json:"data_source"`
	Mode            RunMode   `json:"mode"`
	StartDate       string    `json:"start_date"`
	EndDate         string    `json:"end_date"`
	MarketsAnalyzed int       `json:"markets_analyzed"`
	CitiesCovered   []string  `json:"cities_covered"`
}

// DataPoints summarises what the run saw before trading on it.
type DataPoints struct {
	MarketsAnalyzed         int       `json:"markets_analyzed"`
	OpportunitiesIdentified int       `json:"opportunities_identified"`
	BuySignals              int       `json:"buy_signals"`
	DataGaps                []DataGap `json:"data_gaps"`
}

// TradingResults aggregates the portfolio outcome of a run.
type TradingResults struct {
	TradesExecuted int     `json:"trades_executed"`
	InitialCapital float64 `json:"initial_capital"`
	FinalCapital   float64 `json:"final_capital"`
	TotalProfit    float64 `json:"total_profit"`
	ROIPercentage  float64 `json:"roi_percentage"`
	WinningTrades  int     `json:"winning_trades"`
	LosingTrades   int     `json:"losing_trades"`
	WinRate        float64 `json:"win_rate"`
	BiggestWin     float64 `json:"biggest_win"`
	BiggestLoss    float64 `json:"biggest_loss"`
}

// StrategyParameters echoes the thresholds the run was executed with so a
// report is reproducible on its own.
type StrategyParameters struct {
	MinLiquidity    float64 `json:"min_liquidity"`
	MinEdge         float64 `json:"min_edge"`
	MaxPrice        float64 `json:"max_price"`
	MinConfidence   float64 `json:"min_confidence"`
	CapitalPerTrade float64 `json:"capital_per_trade"`
	DeviationBand   float64 `json:"deviation_band"`
	DecayRate       float64 `json:"decay_rate"`
}

// Report is the JSON artifact emitted at the end of a run, alongside the
// trade ledger CSV.
type Report struct {
	BacktestInfo       BacktestInfo       `json:"backtest_info"`
	DataPoints         DataPoints         `json:"data_points"`
	TradingResults     TradingResults     `json:"trading_results"`
	StrategyParameters StrategyParameters `json:"strategy_parameters"`
}
