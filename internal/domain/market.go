package domain

import "time"

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusActive   MarketStatus = "active"
	MarketStatusClosed   MarketStatus = "closed"
	MarketStatusResolved MarketStatus = "resolved"
)

// BucketDirection says which side of the threshold a bucket pays out on.
type BucketDirection string

const (
	BucketExceeds BucketDirection = "exceeds" // pays if the daily high >= threshold
	BucketBelow   BucketDirection = "below"   // pays if the daily high < threshold
)

// OutcomeBucket is a single tradeable outcome of a weather market, defined by
// a temperature threshold and a direction. Polymarket temperature markets
// expose one bucket per threshold question ("Will the high exceed 85°F?").
type OutcomeBucket struct {
	TokenID   string
	Label     string
	Threshold float64 // °F
	Direction BucketDirection
	Price     float64 // last traded/quoted price in [0,1]
}

// Market represents a Polymarket weather prediction market.
type Market struct {
	ID        string
	Question  string
	Slug      string
	City      string
	Buckets   []OutcomeBucket
	Liquidity float64
	Volume    float64
	Status    MarketStatus
	EndDate   time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TargetDate returns the calendar day (UTC) the market settles on.
func (m Market) TargetDate() time.Time {
	return m.EndDate.UTC().Truncate(24 * time.Hour)
}
