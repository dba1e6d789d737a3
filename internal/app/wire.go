package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/mbrennan/weatheredge/internal/blob/s3"
	"github.com/mbrennan/weatheredge/internal/cache/redis"
	"github.com/mbrennan/weatheredge/internal/config"
	"github.com/mbrennan/weatheredge/internal/domain"
	"github.com/mbrennan/weatheredge/internal/notify"
	"github.com/mbrennan/weatheredge/internal/platform/polymarket"
	"github.com/mbrennan/weatheredge/internal/platform/tomorrowio"
	"github.com/mbrennan/weatheredge/internal/platform/visualcrossing"
	"github.com/mbrennan/weatheredge/internal/service"
	"github.com/mbrennan/weatheredge/internal/store/postgres"
)

// Base URLs of the weather providers. Overriding these is not a deployment
// concern, so they are not configurable.
const (
	visualCrossingBaseURL = "https://weather.visualcrossing.com"
	tomorrowIOBaseURL     = "https://api.tomorrow.io"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Services
	Markets *service.MarketService
	Weather *service.WeatherService
	Books   *service.BookService

	// Persistence (nil unless postgres.enabled)
	RunStore   domain.RunStore
	TradeStore domain.TradeStore

	// Caches (nil unless redis.enabled)
	BookCache domain.OrderbookCache

	// Cold storage (nil unless s3.enabled)
	Archiver domain.ReportArchiver

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Caches ---
	var (
		marketCache  domain.MarketCache
		weatherCache domain.WeatherCache
	)
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		marketCache = redis.NewMarketCache(redisClient)
		weatherCache = redis.NewWeatherCache(redisClient)
		deps.BookCache = redis.NewOrderbookCache(redisClient)
	}

	// --- Platform clients and services ---
	gamma := polymarket.NewGammaClient(cfg.Polymarket.GammaHost)
	clob := polymarket.NewClobClient(cfg.Polymarket.ClobHost)

	vc := visualcrossing.NewClient(visualCrossingBaseURL, cfg.Weather.VisualCrossingAPIKey)
	var forecaster service.Forecaster = vc
	if strings.ToLower(cfg.Weather.DataSource) == "tomorrowio" {
		forecaster = tomorrowio.NewClient(tomorrowIOBaseURL, cfg.Weather.TomorrowIOAPIKey)
	}

	deps.Markets = service.NewMarketService(gamma, marketCache, logger)
	deps.Weather = service.NewWeatherService(forecaster, vc, weatherCache, logger)
	deps.Books = service.NewBookService(clob, deps.BookCache, logger)

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.RunStore = postgres.NewRunStore(pool)
		deps.TradeStore = postgres.NewTradeStore(pool)
	}

	// --- S3 blob storage ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		if err := s3Client.Health(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client))
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
