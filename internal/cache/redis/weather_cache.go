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

// Observed weather is immutable once the day has passed; forecasts go stale
// quickly.
const (
	observedTTL = 7 * 24 * time.Hour
	forecastTTL = 1 * time.Hour
)

// WeatherCache implements domain.WeatherCache with one JSON blob per
// city+day+variant record.
//
// Key schema:
//
//	weather:{variant}:{city}:{YYYY-MM-DD} - JSON domain.WeatherRecord
type WeatherCache struct {
	rdb *redis.Client
}

// NewWeatherCache creates a WeatherCache backed by the given Client.
func NewWeatherCache(c *Client) *WeatherCache {
	return &WeatherCache{rdb: c.Underlying()}
}

func weatherKey(city string, date time.Time, variant domain.WeatherVariant) string {
	return "weather:" + string(variant) + ":" + city + ":" + date.UTC().Format("2006-01-02")
}

// Set stores a weather record under its city/day/variant key.
func (wc *WeatherCache) Set(ctx context.Context, rec domain.WeatherRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis: marshal weather %s: %w", rec.City, err)
	}

	ttl := forecastTTL
	if rec.Variant == domain.WeatherObserved {
		ttl = observedTTL
	}

	key := weatherKey(rec.City, rec.Date, rec.Variant)
	if err := wc.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set weather %s: %w", rec.City, err)
	}
	return nil
}

// Get retrieves a weather record. It returns domain.ErrNotFound on a miss.
func (wc *WeatherCache) Get(ctx context.Context, city string, date time.Time, variant domain.WeatherVariant) (domain.WeatherRecord, error) {
	data, err := wc.rdb.Get(ctx, weatherKey(city, date, variant)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.WeatherRecord{}, domain.ErrNotFound
		}
		return domain.WeatherRecord{}, fmt.Errorf("redis: get weather %s: %w", city, err)
	}

	var rec domain.WeatherRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.WeatherRecord{}, fmt.Errorf("redis: unmarshal weather %s: %w", city, err)
	}
	return rec, nil
}

// Compile-time interface check.
var _ domain.WeatherCache = (*WeatherCache)(nil)
