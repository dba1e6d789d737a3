package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mbrennan/weatheredge/internal/domain"
)

type fakeWeatherProvider struct {
	records map[string]domain.WeatherRecord // key city:date:variant
	err     error
	calls   int
}

func weatherKey(city string, date time.Time, variant domain.WeatherVariant) string {
	return city + ":" + date.UTC().Format("2006-01-02") + ":" + string(variant)
}

func (f *fakeWeatherProvider) lookup(city string, date time.Time, variant domain.WeatherVariant) (domain.WeatherRecord, error) {
	f.calls++
	if f.err != nil {
		return domain.WeatherRecord{}, f.err
	}
	rec, ok := f.records[weatherKey(city, date, variant)]
	if !ok {
		return domain.WeatherRecord{}, domain.ErrDataUnavailable
	}
	return rec, nil
}

func (f *fakeWeatherProvider) ForecastDay(_ context.Context, city string, date time.Time) (domain.WeatherRecord, error) {
	return f.lookup(city, date, domain.WeatherForecast)
}

func (f *fakeWeatherProvider) ObservedDay(_ context.Context, city string, date time.Time) (domain.WeatherRecord, error) {
	return f.lookup(city, date, domain.WeatherObserved)
}

func (f *fakeWeatherProvider) ObservedRange(_ context.Context, city string, endDate time.Time, days int) ([]domain.WeatherRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.WeatherRecord
	for d := days - 1; d >= 0; d-- {
		day := endDate.UTC().Truncate(24 * time.Hour).AddDate(0, 0, -d)
		if rec, ok := f.records[weatherKey(city, day, domain.WeatherObserved)]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fakeWeatherCache struct {
	stored map[string]domain.WeatherRecord
}

func newFakeWeatherCache() *fakeWeatherCache {
	return &fakeWeatherCache{stored: make(map[string]domain.WeatherRecord)}
}

func (f *fakeWeatherCache) Set(_ context.Context, rec domain.WeatherRecord) error {
	f.stored[weatherKey(rec.City, rec.Date, rec.Variant)] = rec
	return nil
}

func (f *fakeWeatherCache) Get(_ context.Context, city string, date time.Time, variant domain.WeatherVariant) (domain.WeatherRecord, error) {
	rec, ok := f.stored[weatherKey(city, date, variant)]
	if !ok {
		return domain.WeatherRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func newWeatherFake(city string, date time.Time, variant domain.WeatherVariant, high float64) *fakeWeatherProvider {
	day := date.UTC().Truncate(24 * time.Hour)
	return &fakeWeatherProvider{records: map[string]domain.WeatherRecord{
		weatherKey(city, day, variant): {
			City: city, Date: day, HighF: high, Variant: variant,
		},
	}}
}

func TestObservedCachesAfterFirstFetch(t *testing.T) {
	day := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	provider := newWeatherFake("Austin", day, domain.WeatherObserved, 91.2)
	cache := newFakeWeatherCache()

	svc := NewWeatherService(provider, provider, cache, testLogger())

	for i := 0; i < 2; i++ {
		rec, err := svc.Observed(context.Background(), "Austin", day)
		if err != nil {
			t.Fatal(err)
		}
		if rec.HighF != 91.2 {
			t.Fatalf("HighF = %v, want 91.2", rec.HighF)
		}
	}
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1", provider.calls)
	}
}

func TestForecastUsesForecaster(t *testing.T) {
	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	forecaster := newWeatherFake("Austin", day, domain.WeatherForecast, 88.5)
	observer := &fakeWeatherProvider{}

	svc := NewWeatherService(forecaster, observer, nil, testLogger())

	rec, err := svc.Forecast(context.Background(), "Austin", day)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Variant != domain.WeatherForecast || rec.HighF != 88.5 {
		t.Errorf("rec = %+v, want forecast 88.5", rec)
	}
	if observer.calls != 0 {
		t.Error("forecast read hit the observer")
	}
}

func TestObservedPropagatesProviderError(t *testing.T) {
	provider := &fakeWeatherProvider{err: domain.ErrRateLimited}
	svc := NewWeatherService(provider, provider, nil, testLogger())

	_, err := svc.Observed(context.Background(), "Austin", time.Now())
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
}

func TestObservedHistoryWarmsCache(t *testing.T) {
	end := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	provider := &fakeWeatherProvider{records: map[string]domain.WeatherRecord{}}
	for d := 0; d < 3; d++ {
		day := end.AddDate(0, 0, -d)
		provider.records[weatherKey("Austin", day, domain.WeatherObserved)] = domain.WeatherRecord{
			City: "Austin", Date: day, HighF: 90 + float64(d), Variant: domain.WeatherObserved,
		}
	}
	cache := newFakeWeatherCache()

	svc := NewWeatherService(provider, provider, cache, testLogger())

	records, err := svc.ObservedHistory(context.Background(), "Austin", end, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}

	// Subsequent per-day reads come from the cache.
	before := provider.calls
	if _, err := svc.Observed(context.Background(), "Austin", end); err != nil {
		t.Fatal(err)
	}
	if provider.calls != before {
		t.Error("Observed after ObservedHistory hit the provider")
	}
}

func TestForecastCitiesSkipsUnavailable(t *testing.T) {
	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	provider := newWeatherFake("Austin", day, domain.WeatherForecast, 88)

	svc := NewWeatherService(provider, provider, nil, testLogger())

	got, err := svc.ForecastCities(context.Background(), []string{"Austin", "Chicago"}, day)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1 (Chicago has no data)", len(got))
	}
	if _, ok := got["Austin"]; !ok {
		t.Error("Austin missing from result")
	}
}
