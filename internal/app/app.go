// Package app provides the top-level application lifecycle for weatheredge.
// It wires together the platform clients, caches, stores, blob storage and
// notifications, then runs the requested command.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mbrennan/weatheredge/internal/config"
	"github.com/mbrennan/weatheredge/internal/domain"
)

// Command is the parsed CLI invocation.
type Command struct {
	// Mode is one of "backtest", "predict", "resolve", "runs", "show", "scan".
	Mode string
	// City is required for backtest, predict and resolve.
	City string
	// Days is the window length for backtest and predict.
	Days int
	// StartDate is the first day of a backtest window.
	StartDate time.Time
	// RunID selects a persisted run for show.
	RunID string
}

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, dispatches on the
// command, and blocks until the command finishes or the context is cancelled.
func (a *App) Run(ctx context.Context, cmd Command) error {
	a.logger.InfoContext(ctx, "starting",
		slog.String("mode", cmd.Mode),
		slog.String("city", cmd.City),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	switch strings.ToLower(cmd.Mode) {
	case "backtest":
		return a.RunWindow(ctx, deps, cmd, domain.ModeBacktest)
	case "predict":
		return a.RunWindow(ctx, deps, cmd, domain.ModePredict)
	case "resolve":
		return a.ResolveMode(ctx, deps, cmd)
	case "runs":
		return a.ListRuns(ctx, deps, cmd)
	case "show":
		return a.ShowRun(ctx, deps, cmd)
	case "scan":
		return a.ScanMode(ctx, deps)
	default:
		return fmt.Errorf("app: unsupported mode %q", cmd.Mode)
	}
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
