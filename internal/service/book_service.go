package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/mbrennan/weatheredge/internal/domain"
	"github.com/mbrennan/weatheredge/internal/platform/polymarket"
)

// liveSkew is how close to now a requested snapshot time must be before the
// live book is used instead of traded history.
const liveSkew = 15 * time.Minute

// stabilityWindow is the span of traded history used for the price
// stability estimate.
const stabilityWindow = 24 * time.Hour

// BookSource is the order book surface of the CLOB client.
type BookSource interface {
	GetOrderBook(ctx context.Context, tokenID string) (domain.OrderbookSnapshot, error)
	GetPriceHistory(ctx context.Context, tokenID string, startTs, endTs time.Time) ([]polymarket.PricePoint, error)
	PriceAt(ctx context.Context, tokenID string, t time.Time, window time.Duration) (polymarket.PricePoint, error)
}

// BookService resolves the order book state nearest a decision instant. For
// live instants it serves the real book (cache first); for historical ones
// the CLOB keeps no book history, so the last traded price stands in as a
// single-level book.
type BookService struct {
	source BookSource
	cache  domain.OrderbookCache // optional
	logger *slog.Logger
}

// NewBookService creates a BookService. cache may be nil.
func NewBookService(source BookSource, cache domain.OrderbookCache, logger *slog.Logger) *BookService {
	return &BookService{
		source: source,
		cache:  cache,
		logger: logger.With(slog.String("component", "book_service")),
	}
}

// SnapshotAt returns the book state at or before t.
func (s *BookService) SnapshotAt(ctx context.Context, tokenID string, t time.Time) (domain.OrderbookSnapshot, error) {
	if time.Since(t).Abs() <= liveSkew {
		return s.liveSnapshot(ctx, tokenID)
	}

	point, err := s.source.PriceAt(ctx, tokenID, t, stabilityWindow)
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("book_service: snapshot %s at %s: %w",
			tokenID, t.Format(time.RFC3339), err)
	}

	// Synthetic single-level book at the last traded price.
	level := domain.PriceLevel{Price: point.Price, Size: 1}
	return domain.OrderbookSnapshot{
		AssetID:   tokenID,
		Bids:      []domain.PriceLevel{level},
		Asks:      []domain.PriceLevel{level},
		BestBid:   point.Price,
		BestAsk:   point.Price,
		Timestamp: point.Timestamp,
	}, nil
}

func (s *BookService) liveSnapshot(ctx context.Context, tokenID string) (domain.OrderbookSnapshot, error) {
	if s.cache != nil {
		if snap, err := s.cache.GetSnapshot(ctx, tokenID); err == nil && len(snap.Bids)+len(snap.Asks) > 0 {
			return snap, nil
		}
	}

	snap, err := s.source.GetOrderBook(ctx, tokenID)
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("book_service: live book %s: %w", tokenID, err)
	}

	if s.cache != nil {
		if cacheErr := s.cache.SetSnapshot(ctx, tokenID, snap); cacheErr != nil {
			s.logger.WarnContext(ctx, "orderbook cache set failed",
				slog.String("token_id", tokenID),
				slog.String("error", cacheErr.Error()),
			)
		}
	}
	return snap, nil
}

// Stability estimates price stability in [0,1] from the traded prices in the
// day before t: 1 means flat, 0 means a standard deviation of 10 cents or
// more. Tokens with under two samples score a neutral 0.5.
func (s *BookService) Stability(ctx context.Context, tokenID string, t time.Time) float64 {
	points, err := s.source.GetPriceHistory(ctx, tokenID, t.Add(-stabilityWindow), t)
	if err != nil || len(points) < 2 {
		return 0.5
	}

	var sum float64
	for _, p := range points {
		sum += p.Price
	}
	mean := sum / float64(len(points))

	var varSum float64
	for _, p := range points {
		d := p.Price - mean
		varSum += d * d
	}
	stddev := math.Sqrt(varSum / float64(len(points)))

	stability := 1 - stddev/0.10
	if stability < 0 {
		return 0
	}
	if stability > 1 {
		return 1
	}
	return stability
}
