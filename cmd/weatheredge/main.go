// Command weatheredge finds mispriced Polymarket temperature markets. It
// loads configuration, validates it, wires dependencies, sets up signal
// handling, and runs the requested command:
//
//	weatheredge backtest <city> <days> [-start YYYY-MM-DD]
//	weatheredge predict <city> <days>
//	weatheredge resolve <city>
//	weatheredge runs [city]
//	weatheredge show <run-id>
//	weatheredge scan
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mbrennan/weatheredge/internal/app"
	"github.com/mbrennan/weatheredge/internal/config"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage:
  weatheredge [-config config.toml] backtest <city> <days> [-start YYYY-MM-DD]
  weatheredge [-config config.toml] predict <city> <days>
  weatheredge [-config config.toml] resolve <city>
  weatheredge [-config config.toml] runs [city]
  weatheredge [-config config.toml] show <run-id>
  weatheredge [-config config.toml] scan
`)
	os.Exit(2)
}

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	flag.Usage = usage
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cmd, err := parseCommand(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		usage()
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// Set log level from config.
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Debug("configuration loaded", slog.Any("config", config.RedactedConfig(cfg)))

	logger.Info("weatheredge starting",
		slog.String("mode", cmd.Mode),
		slog.String("config", *configPath),
	)

	application := app.New(cfg, logger)
	defer application.Close()

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx, cmd); err != nil {
		// context.Canceled is expected on clean shutdown.
		if errors.Is(err, context.Canceled) {
			logger.Info("shut down gracefully")
		} else {
			logger.Error("exited with error", slog.String("error", err.Error()))
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
	}

	logger.Info("weatheredge stopped")
}

// parseCommand interprets the positional arguments after the global flags.
func parseCommand(args []string) (app.Command, error) {
	if len(args) == 0 {
		return app.Command{}, errors.New("a command is required")
	}

	cmd := app.Command{Mode: args[0]}
	switch cmd.Mode {
	case "scan":
		if len(args) != 1 {
			return app.Command{}, errors.New("scan takes no arguments")
		}
		return cmd, nil

	case "resolve":
		if len(args) != 2 {
			return app.Command{}, errors.New("resolve requires <city>")
		}
		cmd.City = args[1]
		return cmd, nil

	case "runs":
		if len(args) > 2 {
			return app.Command{}, errors.New("runs takes at most [city]")
		}
		if len(args) == 2 {
			cmd.City = args[1]
		}
		return cmd, nil

	case "show":
		if len(args) != 2 {
			return app.Command{}, errors.New("show requires <run-id>")
		}
		cmd.RunID = args[1]
		return cmd, nil

	case "backtest", "predict":
		fs := flag.NewFlagSet(cmd.Mode, flag.ContinueOnError)
		start := fs.String("start", "", "first day of a backtest window (YYYY-MM-DD)")

		if len(args) < 3 {
			return app.Command{}, fmt.Errorf("%s requires <city> <days>", cmd.Mode)
		}
		cmd.City = args[1]

		days, err := strconv.Atoi(args[2])
		if err != nil || days <= 0 {
			return app.Command{}, fmt.Errorf("days must be a positive integer, got %q", args[2])
		}
		cmd.Days = days

		if err := fs.Parse(args[3:]); err != nil {
			return app.Command{}, err
		}

		if cmd.Mode == "backtest" {
			if *start == "" {
				// Default to replaying the window ending yesterday.
				cmd.StartDate = time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -days)
			} else {
				t, err := time.Parse("2006-01-02", *start)
				if err != nil {
					return app.Command{}, fmt.Errorf("invalid -start date %q: %w", *start, err)
				}
				cmd.StartDate = t.UTC()
			}
		}
		return cmd, nil

	default:
		return app.Command{}, fmt.Errorf("unknown command %q", cmd.Mode)
	}
}
