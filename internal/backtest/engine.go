// Package backtest walks a day range, pricing each day's weather markets
// against the probability model and trading the best mispricing.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mbrennan/weatheredge/internal/book"
	"github.com/mbrennan/weatheredge/internal/domain"
	"github.com/mbrennan/weatheredge/internal/forecast"
	"github.com/mbrennan/weatheredge/internal/ledger"
	"github.com/mbrennan/weatheredge/internal/signal"
)

// MarketProvider supplies the markets settling on a given day.
type MarketProvider interface {
	MarketsForDay(ctx context.Context, city string, date time.Time) ([]domain.Market, error)
}

// WeatherProvider supplies observed and forecast weather.
type WeatherProvider interface {
	Observed(ctx context.Context, city string, date time.Time) (domain.WeatherRecord, error)
	Forecast(ctx context.Context, city string, date time.Time) (domain.WeatherRecord, error)
}

// BookProvider supplies order book state nearest a decision instant.
type BookProvider interface {
	SnapshotAt(ctx context.Context, tokenID string, t time.Time) (domain.OrderbookSnapshot, error)
	Stability(ctx context.Context, tokenID string, t time.Time) float64
}

// Config parameterises one run. Validation failures here are the only fatal
// errors a run can produce; everything after start degrades to data gaps.
type Config struct {
	City            string
	Mode            domain.RunMode
	StartDate       time.Time // backtest mode: first day of the window
	Days            int
	InitialCapital  float64
	CapitalPerTrade float64
	HollowTolerance float64
	DataSource      string

	Model  forecast.ModelConfig
	Signal signal.Config
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var errs []error
	if c.City == "" {
		errs = append(errs, errors.New("city is required"))
	}
	if c.Mode != domain.ModeBacktest && c.Mode != domain.ModePredict {
		errs = append(errs, fmt.Errorf("mode must be %q or %q, got %q", domain.ModeBacktest, domain.ModePredict, c.Mode))
	}
	if c.Days <= 0 {
		errs = append(errs, fmt.Errorf("days must be positive, got %d", c.Days))
	}
	if c.InitialCapital <= 0 {
		errs = append(errs, fmt.Errorf("initial capital must be positive, got %v", c.InitialCapital))
	}
	if c.CapitalPerTrade <= 0 {
		errs = append(errs, fmt.Errorf("capital per trade must be positive, got %v", c.CapitalPerTrade))
	}
	if c.Model.DeviationBand < 0 {
		errs = append(errs, fmt.Errorf("deviation band must not be negative, got %v", c.Model.DeviationBand))
	}
	if c.Mode == domain.ModeBacktest && c.StartDate.IsZero() {
		errs = append(errs, errors.New("backtest mode requires a start date"))
	}
	return errors.Join(errs...)
}

// Result is everything a finished run produced.
type Result struct {
	RunID   string
	Report  domain.Report
	Trades  []domain.Trade
	Summary ledger.Summary
}

// Engine runs backtest and predict windows over one city.
type Engine struct {
	cfg     Config
	markets MarketProvider
	weather WeatherProvider
	books   BookProvider
	logger  *slog.Logger
	now     func() time.Time
}

// New creates an Engine. It fails only on invalid configuration.
func New(cfg Config, markets MarketProvider, weather WeatherProvider, books BookProvider, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("backtest: config: %w", err)
	}
	return &Engine{
		cfg:     cfg,
		markets: markets,
		weather: weather,
		books:   books,
		logger:  logger.With(slog.String("component", "backtest"), slog.String("city", cfg.City)),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// runState accumulates per-day bookkeeping across the window.
type runState struct {
	marketsAnalyzed int
	opportunities   int
	buySignals      int
	gaps            []domain.DataGap
	buckets         map[string]domain.OutcomeBucket // token ID -> bucket
}

// Run walks the configured day range. Cancelling ctx abandons the run and
// its partially built ledger.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	led, err := ledger.New(e.cfg.InitialCapital)
	if err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}

	runID := uuid.NewString()
	state := &runState{buckets: make(map[string]domain.OutcomeBucket)}

	start, end := e.window()
	e.logger.InfoContext(ctx, "run starting",
		slog.String("run_id", runID),
		slog.String("mode", string(e.cfg.Mode)),
		slog.Time("start", start),
		slog.Int("days", e.cfg.Days),
	)

	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest: run cancelled: %w", err)
		}
		e.runDay(ctx, day, led, state)
	}

	summary := led.Summary()
	trades := led.Trades()
	report := e.buildReport(runID, start, end, summary, state)

	e.logger.InfoContext(ctx, "run finished",
		slog.String("run_id", runID),
		slog.Int("trades", summary.TradeCount),
		slog.Float64("total_pnl", summary.TotalPnL),
		slog.Float64("final_capital", summary.FinalCapital),
		slog.Int("data_gaps", len(state.gaps)),
	)

	return &Result{
		RunID:   runID,
		Report:  report,
		Trades:  trades,
		Summary: summary,
	}, nil
}

// window returns the [start, end) day range in UTC. Backtest replays
// history from the configured start; predict walks forward from tomorrow.
func (e *Engine) window() (time.Time, time.Time) {
	if e.cfg.Mode == domain.ModePredict {
		start := e.now().Truncate(24 * time.Hour).AddDate(0, 0, 1)
		return start, start.AddDate(0, 0, e.cfg.Days)
	}
	start := e.cfg.StartDate.UTC().Truncate(24 * time.Hour)
	return start, start.AddDate(0, 0, e.cfg.Days)
}

// runDay evaluates one day. Missing data records a gap and moves on; only a
// no-trade day leaves no trace beyond the counters.
func (e *Engine) runDay(ctx context.Context, day time.Time, led *ledger.Ledger, state *runState) {
	markets, err := e.markets.MarketsForDay(ctx, e.cfg.City, day)
	if err != nil || len(markets) == 0 {
		e.recordGap(ctx, state, day, "no market data", err)
		return
	}
	state.marketsAnalyzed += len(markets)

	weather, err := e.dayWeather(ctx, day)
	if err != nil {
		e.recordGap(ctx, state, day, "no weather data", err)
		return
	}

	opps := e.evaluateDay(ctx, day, markets, weather, state)
	if len(opps) == 0 {
		e.recordGap(ctx, state, day, "no valid buckets", nil)
		return
	}

	best, ok := pickBest(opps)
	if !ok {
		e.logger.DebugContext(ctx, "no actionable opportunity",
			slog.Time("day", day),
			slog.Int("evaluated", len(opps)),
		)
		return
	}

	trade, err := led.Execute(best, e.cfg.CapitalPerTrade)
	if err != nil {
		// InsufficientCapital discards the opportunity without state change.
		e.logger.WarnContext(ctx, "execute rejected",
			slog.Time("day", day),
			slog.String("market_id", best.MarketID),
			slog.String("error", err.Error()),
		)
		return
	}

	e.logger.InfoContext(ctx, "trade placed",
		slog.String("trade_id", trade.ID),
		slog.Time("day", day),
		slog.String("signal", string(trade.Signal)),
		slog.Float64("entry_price", trade.EntryPrice),
		slog.Float64("fair_price", trade.FairPrice),
	)

	if e.cfg.Mode == domain.ModePredict {
		if err := led.MarkPending(trade.ID); err != nil {
			e.logger.WarnContext(ctx, "mark pending failed",
				slog.String("trade_id", trade.ID),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	e.resolveTrade(ctx, day, trade, led, state)
}

// dayWeather returns observed weather in backtest mode, forecast in predict.
func (e *Engine) dayWeather(ctx context.Context, day time.Time) (domain.WeatherRecord, error) {
	if e.cfg.Mode == domain.ModePredict {
		return e.weather.Forecast(ctx, e.cfg.City, day)
	}
	return e.weather.Observed(ctx, e.cfg.City, day)
}

// evaluateDay prices every bucket of every market against the model at the
// canonical 00:00 UTC decision instant.
func (e *Engine) evaluateDay(ctx context.Context, day time.Time, markets []domain.Market, weather domain.WeatherRecord, state *runState) []domain.TradeOpportunity {
	decisionAt := day // already midnight UTC

	var opps []domain.TradeOpportunity
	for _, m := range markets {
		for _, b := range m.Buckets {
			state.buckets[b.TokenID] = b

			in := signal.Input{
				MarketID:       m.ID,
				TokenID:        b.TokenID,
				City:           m.City,
				Question:       m.Question,
				FairPrice:      forecast.BucketProbability(b, weather.HighF, e.cfg.Model),
				Liquidity:      m.Liquidity,
				PriceStability: 0.5,
				MarketPrice:    b.Price,
			}

			snap, err := e.books.SnapshotAt(ctx, b.TokenID, decisionAt)
			if err == nil {
				val := book.Valuate(snap, e.cfg.HollowTolerance)
				in.Hollow = val.Hollow
				if in.MarketPrice == 0 {
					in.MarketPrice = val.FairMid
				}
				in.PriceStability = e.books.Stability(ctx, b.TokenID, decisionAt)
			}

			opp := signal.Evaluate(in, e.cfg.Signal)
			state.opportunities++
			if opp.Signal == domain.SignalBuy {
				state.buySignals++
			}
			opps = append(opps, opp)
		}
	}
	return opps
}

// pickBest returns the highest-ranked actionable opportunity, if any.
func pickBest(opps []domain.TradeOpportunity) (domain.TradeOpportunity, bool) {
	for _, o := range signal.Rank(opps) {
		if o.Actionable() {
			return o, true
		}
	}
	return domain.TradeOpportunity{}, false
}

// resolveTrade settles a backtest trade against the day's observed weather.
func (e *Engine) resolveTrade(ctx context.Context, day time.Time, trade domain.Trade, led *ledger.Ledger, state *runState) {
	observed, err := e.weather.Observed(ctx, e.cfg.City, day)
	if err != nil {
		e.recordGap(ctx, state, day, "no resolution weather", err)
		if pendErr := led.MarkPending(trade.ID); pendErr != nil {
			e.logger.WarnContext(ctx, "mark pending failed",
				slog.String("trade_id", trade.ID),
				slog.String("error", pendErr.Error()),
			)
		}
		return
	}

	bucket, ok := state.buckets[trade.TokenID]
	if !ok {
		e.recordGap(ctx, state, day, "unknown bucket at resolution", nil)
		return
	}

	settle := settlementValue(bucket, observed.HighF)
	resolved, err := led.Resolve(trade.ID, settle)
	if err != nil {
		e.logger.WarnContext(ctx, "resolve failed",
			slog.String("trade_id", trade.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	e.logger.InfoContext(ctx, "trade resolved",
		slog.String("trade_id", resolved.ID),
		slog.String("outcome", string(resolved.Outcome)),
		slog.Float64("pnl", resolved.PnL),
	)
}

// settlementValue maps observed weather onto the bucket's binary payout.
func settlementValue(b domain.OutcomeBucket, observedHigh float64) float64 {
	exceeded := observedHigh >= b.Threshold
	if b.Direction == domain.BucketBelow {
		exceeded = !exceeded
	}
	if exceeded {
		return 1.0
	}
	return 0.0
}

func (e *Engine) recordGap(ctx context.Context, state *runState, day time.Time, reason string, cause error) {
	gap := domain.DataGap{
		ID:     uuid.NewString(),
		Date:   day,
		Reason: reason,
	}
	state.gaps = append(state.gaps, gap)

	attrs := []any{
		slog.Time("day", day),
		slog.String("reason", reason),
	}
	if cause != nil {
		attrs = append(attrs, slog.String("error", cause.Error()))
	}
	e.logger.WarnContext(ctx, "data gap", attrs...)
}
