package domain

import "time"

// WeatherVariant distinguishes ground truth from model output.
type WeatherVariant string

const (
	WeatherObserved WeatherVariant = "observed"
	WeatherForecast WeatherVariant = "forecast"
)

// WeatherRecord is one day of temperature data for a city. HighF is the field
// markets settle on; Low and Avg are carried for reporting.
type WeatherRecord struct {
	City          string
	Date          time.Time // UTC midnight of the day described
	HighF         float64
	LowF          float64
	AvgF          float64
	ConditionCode int
	Condition     string
	Variant       WeatherVariant
	FetchedAt     time.Time
}
