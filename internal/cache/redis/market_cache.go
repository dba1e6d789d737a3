package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mbrennan/weatheredge/internal/domain"
)

// marketTTL keeps discovered market lists fresh enough for same-day reruns
// without hammering the Gamma API.
const marketTTL = 15 * time.Minute

// MarketCache implements domain.MarketCache with one JSON blob per
// city+target-date market list.
//
// Key schema:
//
//	markets:{city}:{YYYY-MM-DD} - JSON array of domain.Market
type MarketCache struct {
	rdb *redis.Client
}

// NewMarketCache creates a MarketCache backed by the given Client.
func NewMarketCache(c *Client) *MarketCache {
	return &MarketCache{rdb: c.Underlying()}
}

func marketsKey(city string, date time.Time) string {
	return "markets:" + city + ":" + date.UTC().Format("2006-01-02")
}

// SetMarkets stores a city/day market list with a TTL.
func (mc *MarketCache) SetMarkets(ctx context.Context, city string, date time.Time, markets []domain.Market) error {
	data, err := json.Marshal(markets)
	if err != nil {
		return fmt.Errorf("redis: marshal markets %s: %w", city, err)
	}
	if err := mc.rdb.Set(ctx, marketsKey(city, date), data, marketTTL).Err(); err != nil {
		return fmt.Errorf("redis: set markets %s: %w", city, err)
	}
	return nil
}

// GetMarkets retrieves a city/day market list. It returns domain.ErrNotFound
// when nothing is cached.
func (mc *MarketCache) GetMarkets(ctx context.Context, city string, date time.Time) ([]domain.Market, error) {
	data, err := mc.rdb.Get(ctx, marketsKey(city, date)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get markets %s: %w", city, err)
	}

	var markets []domain.Market
	if err := json.Unmarshal(data, &markets); err != nil {
		return nil, fmt.Errorf("redis: unmarshal markets %s: %w", city, err)
	}
	return markets, nil
}

// Compile-time interface check.
var _ domain.MarketCache = (*MarketCache)(nil)
