// Package service coordinates the platform clients, caches and stores behind
// the engine's data needs.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mbrennan/weatheredge/internal/domain"
	"github.com/mbrennan/weatheredge/internal/platform/polymarket"
)

// MarketSource is the discovery surface of the Gamma client.
type MarketSource interface {
	SearchWeatherMarkets(ctx context.Context, city string, limit int) ([]domain.Market, error)
	GetMarketResolution(ctx context.Context, marketID string) (polymarket.MarketResolution, error)
}

// MarketService handles weather-market discovery and filtering.
type MarketService struct {
	source MarketSource
	cache  domain.MarketCache // optional
	logger *slog.Logger
}

// NewMarketService creates a MarketService. cache may be nil.
func NewMarketService(source MarketSource, cache domain.MarketCache, logger *slog.Logger) *MarketService {
	return &MarketService{
		source: source,
		cache:  cache,
		logger: logger.With(slog.String("component", "market_service")),
	}
}

// MarketsForDay returns the city's temperature markets that settle on the
// given day, cache first. Malformed markets (no parseable buckets) are
// dropped with a warning rather than failing the day.
func (s *MarketService) MarketsForDay(ctx context.Context, city string, date time.Time) ([]domain.Market, error) {
	day := date.UTC().Truncate(24 * time.Hour)

	if s.cache != nil {
		if cached, err := s.cache.GetMarkets(ctx, city, day); err == nil && len(cached) > 0 {
			return cached, nil
		}
	}

	all, err := s.source.SearchWeatherMarkets(ctx, city, 200)
	if err != nil {
		return nil, fmt.Errorf("market_service: discover %s: %w", city, err)
	}

	var markets []domain.Market
	for _, m := range all {
		if !m.TargetDate().Equal(day) {
			continue
		}
		if len(m.Buckets) == 0 {
			s.logger.WarnContext(ctx, "dropping market without buckets",
				slog.String("market_id", m.ID),
				slog.String("question", m.Question),
			)
			continue
		}
		markets = append(markets, m)
	}

	if s.cache != nil && len(markets) > 0 {
		if cacheErr := s.cache.SetMarkets(ctx, city, day, markets); cacheErr != nil {
			s.logger.WarnContext(ctx, "market cache set failed",
				slog.String("city", city),
				slog.String("error", cacheErr.Error()),
			)
			// Non-fatal: the cache will eventually be repopulated.
		}
	}

	return markets, nil
}

// Resolution reports whether a market has settled and which token won.
func (s *MarketService) Resolution(ctx context.Context, marketID string) (polymarket.MarketResolution, error) {
	res, err := s.source.GetMarketResolution(ctx, marketID)
	if err != nil {
		return polymarket.MarketResolution{}, fmt.Errorf("market_service: resolution %s: %w", marketID, err)
	}
	return res, nil
}
