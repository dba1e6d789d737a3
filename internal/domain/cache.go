package domain

import (
	"context"
	"time"
)

// MarketCache caches discovered markets keyed by city and target date so
// repeated runs over the same window skip the Gamma API.
type MarketCache interface {
	SetMarkets(ctx context.Context, city string, date time.Time, markets []Market) error
	GetMarkets(ctx context.Context, city string, date time.Time) ([]Market, error)
}

// WeatherCache caches daily weather records per city and day.
type WeatherCache interface {
	Set(ctx context.Context, rec WeatherRecord) error
	Get(ctx context.Context, city string, date time.Time, variant WeatherVariant) (WeatherRecord, error)
}

// OrderbookCache stores book snapshots keyed by asset.
type OrderbookCache interface {
	SetSnapshot(ctx context.Context, assetID string, snap OrderbookSnapshot) error
	GetSnapshot(ctx context.Context, assetID string) (OrderbookSnapshot, error)
	UpdateLevel(ctx context.Context, assetID string, side string, price, size float64) error
}
