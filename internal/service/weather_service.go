package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mbrennan/weatheredge/internal/domain"
)

// Forecaster produces forward-looking weather records.
type Forecaster interface {
	ForecastDay(ctx context.Context, city string, date time.Time) (domain.WeatherRecord, error)
}

// Observer produces observed (ground truth) weather records.
type Observer interface {
	ObservedDay(ctx context.Context, city string, date time.Time) (domain.WeatherRecord, error)
	ObservedRange(ctx context.Context, city string, endDate time.Time, days int) ([]domain.WeatherRecord, error)
}

// WeatherService fronts the forecast and observation providers with a cache.
type WeatherService struct {
	forecaster Forecaster
	observer   Observer
	cache      domain.WeatherCache // optional
	logger     *slog.Logger
}

// NewWeatherService creates a WeatherService. cache may be nil.
func NewWeatherService(forecaster Forecaster, observer Observer, cache domain.WeatherCache, logger *slog.Logger) *WeatherService {
	return &WeatherService{
		forecaster: forecaster,
		observer:   observer,
		cache:      cache,
		logger:     logger.With(slog.String("component", "weather_service")),
	}
}

// Observed returns the observed record for a city and day, cache first.
func (s *WeatherService) Observed(ctx context.Context, city string, date time.Time) (domain.WeatherRecord, error) {
	return s.get(ctx, city, date, domain.WeatherObserved)
}

// Forecast returns the forecast record for a city and day, cache first.
func (s *WeatherService) Forecast(ctx context.Context, city string, date time.Time) (domain.WeatherRecord, error) {
	return s.get(ctx, city, date, domain.WeatherForecast)
}

func (s *WeatherService) get(ctx context.Context, city string, date time.Time, variant domain.WeatherVariant) (domain.WeatherRecord, error) {
	day := date.UTC().Truncate(24 * time.Hour)

	if s.cache != nil {
		if rec, err := s.cache.Get(ctx, city, day, variant); err == nil {
			return rec, nil
		}
	}

	var (
		rec domain.WeatherRecord
		err error
	)
	if variant == domain.WeatherObserved {
		rec, err = s.observer.ObservedDay(ctx, city, day)
	} else {
		rec, err = s.forecaster.ForecastDay(ctx, city, day)
	}
	if err != nil {
		return domain.WeatherRecord{}, fmt.Errorf("weather_service: %s %s %s: %w",
			variant, city, day.Format("2006-01-02"), err)
	}

	if s.cache != nil {
		if cacheErr := s.cache.Set(ctx, rec); cacheErr != nil {
			s.logger.WarnContext(ctx, "weather cache set failed",
				slog.String("city", city),
				slog.String("error", cacheErr.Error()),
			)
		}
	}
	return rec, nil
}

// ObservedHistory prefetches the observed records for the `days` days ending
// at endDate and warms the cache. Failures on individual days are logged and
// skipped; the engine records them as data gaps when it reaches those days.
func (s *WeatherService) ObservedHistory(ctx context.Context, city string, endDate time.Time, days int) ([]domain.WeatherRecord, error) {
	records, err := s.observer.ObservedRange(ctx, city, endDate, days)
	if err != nil {
		return nil, fmt.Errorf("weather_service: observed history %s: %w", city, err)
	}

	if s.cache != nil {
		for _, rec := range records {
			if cacheErr := s.cache.Set(ctx, rec); cacheErr != nil {
				s.logger.WarnContext(ctx, "weather cache set failed",
					slog.String("city", rec.City),
					slog.String("error", cacheErr.Error()),
				)
				break
			}
		}
	}
	return records, nil
}

// ForecastCities fetches tomorrow-and-beyond forecasts for several cities
// concurrently. Cities with no data are omitted from the result; the first
// transport-level error cancels the rest.
func (s *WeatherService) ForecastCities(ctx context.Context, cities []string, date time.Time) (map[string]domain.WeatherRecord, error) {
	var mu sync.Mutex
	out := make(map[string]domain.WeatherRecord, len(cities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, city := range cities {
		city := city
		g.Go(func() error {
			rec, err := s.Forecast(gctx, city, date)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.WarnContext(gctx, "forecast unavailable",
					slog.String("city", city),
					slog.String("error", err.Error()),
				)
				return nil
			}
			mu.Lock()
			out[city] = rec
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("weather_service: forecast cities: %w", err)
	}
	return out, nil
}
