package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mbrennan/weatheredge/internal/backtest"
	"github.com/mbrennan/weatheredge/internal/book"
	"github.com/mbrennan/weatheredge/internal/domain"
	"github.com/mbrennan/weatheredge/internal/feed"
	"github.com/mbrennan/weatheredge/internal/forecast"
	"github.com/mbrennan/weatheredge/internal/ledger"
	"github.com/mbrennan/weatheredge/internal/platform/tomorrowio"
	"github.com/mbrennan/weatheredge/internal/signal"
)

// scanInterval is how often scan mode re-evaluates the live markets.
const scanInterval = 5 * time.Minute

// engineConfig maps the strategy section onto a run configuration.
func (a *App) engineConfig(cmd Command, mode domain.RunMode) backtest.Config {
	s := a.cfg.Strategy
	return backtest.Config{
		City:            cmd.City,
		Mode:            mode,
		StartDate:       cmd.StartDate,
		Days:            cmd.Days,
		InitialCapital:  s.InitialCapital,
		CapitalPerTrade: s.CapitalPerTrade,
		HollowTolerance: s.HollowTolerance,
		DataSource:      a.cfg.Weather.DataSource,
		Model: forecast.ModelConfig{
			DeviationBand: s.DeviationBand,
			DecayRate:     s.DecayRate,
		},
		Signal: signal.Config{
			MinLiquidity:  s.MinLiquidity,
			MinEdge:       s.MinEdge,
			MaxPrice:      s.MaxPrice,
			MinConfidence: s.MinConfidence,
		},
	}
}

// RunWindow executes a backtest or predict window and persists the artifacts.
func (a *App) RunWindow(ctx context.Context, deps *Dependencies, cmd Command, mode domain.RunMode) error {
	eng, err := backtest.New(a.engineConfig(cmd, mode), deps.Markets, deps.Weather, deps.Books, a.logger)
	if err != nil {
		return err
	}

	// Warm the weather cache with one ranged call; the engine falls back to
	// per-day fetches for anything this misses.
	if mode == domain.ModeBacktest {
		end := cmd.StartDate.AddDate(0, 0, cmd.Days-1)
		if _, err := deps.Weather.ObservedHistory(ctx, cmd.City, end, cmd.Days); err != nil {
			a.logger.WarnContext(ctx, "observed weather prefetch failed",
				slog.String("error", err.Error()),
			)
		}
	}

	result, err := eng.Run(ctx)
	if err != nil {
		return err
	}

	if err := a.writeArtifacts(result); err != nil {
		return err
	}

	a.persistRun(ctx, deps, result)
	a.archiveRun(ctx, deps, result)

	if err := deps.Notifier.NotifyRunComplete(ctx, result.Report); err != nil {
		a.logger.WarnContext(ctx, "run notification failed", slog.String("error", err.Error()))
	}
	if err := deps.Notifier.NotifyDataGaps(ctx, result.RunID, result.Report.DataPoints.DataGaps); err != nil {
		a.logger.WarnContext(ctx, "gap notification failed", slog.String("error", err.Error()))
	}
	return nil
}

// writeArtifacts writes the report JSON and trade ledger CSV to the output
// directory. These are the canonical run outputs; stores and S3 are copies.
func (a *App) writeArtifacts(result *backtest.Result) error {
	dir := filepath.Join(a.cfg.Strategy.OutputDir, "run_"+result.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("app: create output dir: %w", err)
	}

	reportPath := filepath.Join(dir, "report.json")
	data, err := json.MarshalIndent(result.Report, "", "  ")
	if err != nil {
		return fmt.Errorf("app: marshal report: %w", err)
	}
	if err := os.WriteFile(reportPath, data, 0o644); err != nil {
		return fmt.Errorf("app: write report: %w", err)
	}

	ledgerPath := filepath.Join(dir, "trades.csv")
	f, err := os.Create(ledgerPath)
	if err != nil {
		return fmt.Errorf("app: create ledger file: %w", err)
	}
	defer f.Close()
	if err := backtest.WriteLedgerCSV(f, result.Trades); err != nil {
		return err
	}

	a.logger.Info("artifacts written",
		slog.String("report", reportPath),
		slog.String("ledger", ledgerPath),
	)
	return nil
}

// persistRun stores the run summary and trades when Postgres is wired.
// Persistence failures are logged; the on-disk artifacts already exist.
func (a *App) persistRun(ctx context.Context, deps *Dependencies, result *backtest.Result) {
	if deps.RunStore == nil || deps.TradeStore == nil {
		return
	}

	info := result.Report.BacktestInfo
	rec := domain.RunRecord{
		ID:             result.RunID,
		City:           firstOrEmpty(info.CitiesCovered),
		Mode:           info.Mode,
		StartDate:      parseDay(info.StartDate),
		EndDate:        parseDay(info.EndDate),
		InitialCapital: result.Summary.InitialCapital,
		FinalCapital:   result.Summary.FinalCapital,
		TotalPnL:       result.Summary.TotalPnL,
		ROIPct:         result.Summary.ROI * 100,
		WinRatePct:     result.Summary.WinRate * 100,
		TradeCount:     result.Summary.TradeCount,
		DataGapCount:   len(result.Report.DataPoints.DataGaps),
	}

	if err := deps.RunStore.Insert(ctx, rec); err != nil {
		a.logger.WarnContext(ctx, "run persist failed", slog.String("error", err.Error()))
		return
	}
	if err := deps.TradeStore.InsertBatch(ctx, result.RunID, result.Trades); err != nil {
		a.logger.WarnContext(ctx, "trade persist failed", slog.String("error", err.Error()))
	}
}

// archiveRun pushes the run artifacts to S3 when blob storage is wired.
func (a *App) archiveRun(ctx context.Context, deps *Dependencies, result *backtest.Result) {
	if deps.Archiver == nil {
		return
	}

	reportKey, err := deps.Archiver.ArchiveReport(ctx, result.Report)
	if err != nil {
		a.logger.WarnContext(ctx, "report archive failed", slog.String("error", err.Error()))
		return
	}
	ledgerKey, err := deps.Archiver.ArchiveLedger(ctx, result.RunID, result.Trades)
	if err != nil {
		a.logger.WarnContext(ctx, "ledger archive failed", slog.String("error", err.Error()))
		return
	}
	a.logger.InfoContext(ctx, "run archived",
		slog.String("report_key", reportKey),
		slog.String("ledger_key", ledgerKey),
	)
}

// ResolveMode settles pending predict-mode trades whose markets have closed.
// Markets still open stay pending for a later pass.
func (a *App) ResolveMode(ctx context.Context, deps *Dependencies, cmd Command) error {
	if deps.TradeStore == nil {
		return errors.New("app: resolve requires postgres.enabled")
	}

	pending, err := deps.TradeStore.ListPending(ctx, cmd.City)
	if err != nil {
		return fmt.Errorf("app: list pending trades: %w", err)
	}
	if len(pending) == 0 {
		a.logger.InfoContext(ctx, "no pending trades", slog.String("city", cmd.City))
		return nil
	}

	resolved := 0
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := deps.Markets.Resolution(ctx, p.Trade.MarketID)
		if err != nil {
			a.logger.WarnContext(ctx, "resolution lookup failed",
				slog.String("trade_id", p.Trade.ID),
				slog.String("market_id", p.Trade.MarketID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !res.Closed {
			continue
		}

		settle := 0.0
		if res.WinningToken == p.Trade.TokenID {
			settle = 1.0
		}

		t := ledger.Settle(p.Trade, settle, time.Now().UTC())
		if err := deps.TradeStore.MarkResolved(ctx, p.RunID, t); err != nil {
			a.logger.WarnContext(ctx, "mark resolved failed",
				slog.String("trade_id", t.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		resolved++

		a.logger.InfoContext(ctx, "trade resolved",
			slog.String("trade_id", t.ID),
			slog.String("outcome", string(t.Outcome)),
			slog.Float64("pnl", t.PnL),
		)
	}

	a.logger.InfoContext(ctx, "resolve pass complete",
		slog.String("city", cmd.City),
		slog.Int("pending", len(pending)),
		slog.Int("resolved", resolved),
	)
	return nil
}

// ListRuns prints the most recent persisted runs, newest first.
func (a *App) ListRuns(ctx context.Context, deps *Dependencies, cmd Command) error {
	if deps.RunStore == nil {
		return errors.New("app: runs requires postgres.enabled")
	}

	runs, err := deps.RunStore.List(ctx, domain.ListOpts{City: cmd.City, Limit: 20})
	if err != nil {
		return fmt.Errorf("app: list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tCITY\tMODE\tWINDOW\tTRADES\tPNL\tROI%\tGAPS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s..%s\t%d\t%.2f\t%.2f\t%d\n",
			r.ID, r.City, r.Mode,
			r.StartDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02"),
			r.TradeCount, r.TotalPnL, r.ROIPct, r.DataGapCount,
		)
	}
	return tw.Flush()
}

// ShowRun prints one persisted run's summary and its trade ledger as CSV.
func (a *App) ShowRun(ctx context.Context, deps *Dependencies, cmd Command) error {
	if deps.RunStore == nil || deps.TradeStore == nil {
		return errors.New("app: show requires postgres.enabled")
	}

	run, err := deps.RunStore.GetByID(ctx, cmd.RunID)
	if err != nil {
		return fmt.Errorf("app: get run %s: %w", cmd.RunID, err)
	}
	trades, err := deps.TradeStore.ListByRun(ctx, cmd.RunID)
	if err != nil {
		return fmt.Errorf("app: list trades for run %s: %w", cmd.RunID, err)
	}

	fmt.Printf("run %s: %s %s, %s..%s\n", run.ID, run.City, run.Mode,
		run.StartDate.Format("2006-01-02"), run.EndDate.Format("2006-01-02"))
	fmt.Printf("capital %.2f -> %.2f, pnl %.2f, roi %.2f%%, win rate %.1f%%, %d trade(s), %d gap(s)\n",
		run.InitialCapital, run.FinalCapital, run.TotalPnL, run.ROIPct,
		run.WinRatePct, run.TradeCount, run.DataGapCount,
	)
	if len(trades) == 0 {
		return nil
	}
	fmt.Println()
	return backtest.WriteLedgerCSV(os.Stdout, trades)
}

// ScanMode watches tomorrow's markets across all supported cities and alerts
// on actionable mispricings. No trades are simulated.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")

	cities := supportedCities()
	target := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)

	markets, assetIDs := a.discoverMarkets(ctx, deps, cities, target)
	if len(markets) == 0 {
		return fmt.Errorf("app: scan found no markets settling %s", target.Format("2006-01-02"))
	}

	g, ctx := errgroup.WithContext(ctx)

	// Keep the book cache warm while scanning.
	if deps.BookCache != nil && a.cfg.Polymarket.WsHost != "" && len(assetIDs) > 0 {
		bookFeed := feed.NewBookFeed(a.cfg.Polymarket.WsHost, assetIDs, deps.BookCache, a.logger)
		g.Go(func() error {
			defer bookFeed.Close()
			return bookFeed.Run(ctx)
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(scanInterval)
		defer ticker.Stop()

		a.scanOnce(ctx, deps, markets, target)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				a.scanOnce(ctx, deps, markets, target)
			}
		}
	})

	return g.Wait()
}

// discoverMarkets collects each city's markets settling on the target day,
// plus the union of their outcome token IDs.
func (a *App) discoverMarkets(ctx context.Context, deps *Dependencies, cities []string, target time.Time) (map[string][]domain.Market, []string) {
	byCity := make(map[string][]domain.Market)
	seen := make(map[string]bool)
	var assetIDs []string

	for _, city := range cities {
		markets, err := deps.Markets.MarketsForDay(ctx, city, target)
		if err != nil {
			a.logger.WarnContext(ctx, "scan discovery failed",
				slog.String("city", city),
				slog.String("error", err.Error()),
			)
			continue
		}
		if len(markets) == 0 {
			continue
		}
		byCity[city] = markets
		for _, m := range markets {
			for _, b := range m.Buckets {
				if b.TokenID != "" && !seen[b.TokenID] {
					seen[b.TokenID] = true
					assetIDs = append(assetIDs, b.TokenID)
				}
			}
		}
	}

	a.logger.InfoContext(ctx, "scan discovery complete",
		slog.Int("cities", len(byCity)),
		slog.Int("assets", len(assetIDs)),
	)
	return byCity, assetIDs
}

// scanOnce evaluates every bucket against the latest forecasts and notifies
// the actionable opportunities, best first.
func (a *App) scanOnce(ctx context.Context, deps *Dependencies, byCity map[string][]domain.Market, target time.Time) {
	cities := make([]string, 0, len(byCity))
	for city := range byCity {
		cities = append(cities, city)
	}
	sort.Strings(cities)

	forecasts, err := deps.Weather.ForecastCities(ctx, cities, target)
	if err != nil {
		a.logger.WarnContext(ctx, "scan forecast failed", slog.String("error", err.Error()))
		return
	}

	model := forecast.ModelConfig{
		DeviationBand: a.cfg.Strategy.DeviationBand,
		DecayRate:     a.cfg.Strategy.DecayRate,
	}
	sigCfg := signal.Config{
		MinLiquidity:  a.cfg.Strategy.MinLiquidity,
		MinEdge:       a.cfg.Strategy.MinEdge,
		MaxPrice:      a.cfg.Strategy.MaxPrice,
		MinConfidence: a.cfg.Strategy.MinConfidence,
	}
	now := time.Now().UTC()

	var opps []domain.TradeOpportunity
	for _, city := range cities {
		weather, ok := forecasts[city]
		if !ok {
			continue
		}
		for _, m := range byCity[city] {
			for _, b := range m.Buckets {
				in := signal.Input{
					MarketID:       m.ID,
					TokenID:        b.TokenID,
					City:           m.City,
					Question:       m.Question,
					FairPrice:      forecast.BucketProbability(b, weather.HighF, model),
					Liquidity:      m.Liquidity,
					PriceStability: 0.5,
					MarketPrice:    b.Price,
				}

				snap, err := deps.Books.SnapshotAt(ctx, b.TokenID, now)
				if err == nil {
					val := book.Valuate(snap, a.cfg.Strategy.HollowTolerance)
					in.Hollow = val.Hollow
					if in.MarketPrice == 0 {
						in.MarketPrice = val.FairMid
					}
					in.PriceStability = deps.Books.Stability(ctx, b.TokenID, now)
				}

				opps = append(opps, signal.Evaluate(in, sigCfg))
			}
		}
	}

	actionable := signal.Filter(signal.Rank(opps))
	for _, opp := range actionable {
		if err := deps.Notifier.NotifyOpportunity(ctx, opp); err != nil {
			a.logger.WarnContext(ctx, "opportunity notification failed",
				slog.String("market_id", opp.MarketID),
				slog.String("error", err.Error()),
			)
		}
	}

	a.logger.InfoContext(ctx, "scan cycle complete",
		slog.Int("evaluated", len(opps)),
		slog.Int("actionable", len(actionable)),
	)
}

// supportedCities returns the cities the weather providers cover, in stable
// order.
func supportedCities() []string {
	cities := make([]string, 0, len(tomorrowio.CityCoordinates))
	for city := range tomorrowio.CityCoordinates {
		cities = append(cities, city)
	}
	sort.Strings(cities)
	return cities
}

func parseDay(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func firstOrEmpty(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}
