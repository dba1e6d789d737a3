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

const bookTTL = 2 * time.Minute

// OrderbookCache implements domain.OrderbookCache with one JSON snapshot per
// asset. Snapshots are small (weather books rarely exceed a few dozen
// levels), so whole-snapshot replace beats per-level bookkeeping.
//
// Key schema:
//
//	book:{assetID} - JSON domain.OrderbookSnapshot
type OrderbookCache struct {
	rdb *redis.Client
}

// NewOrderbookCache creates an OrderbookCache backed by the given Client.
func NewOrderbookCache(c *Client) *OrderbookCache {
	return &OrderbookCache{rdb: c.Underlying()}
}

func bookKey(assetID string) string { return "book:" + assetID }

// SetSnapshot replaces the cached snapshot for an asset.
func (oc *OrderbookCache) SetSnapshot(ctx context.Context, assetID string, snap domain.OrderbookSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot %s: %w", assetID, err)
	}
	if err := oc.rdb.Set(ctx, bookKey(assetID), data, bookTTL).Err(); err != nil {
		return fmt.Errorf("redis: set snapshot %s: %w", assetID, err)
	}
	return nil
}

// GetSnapshot retrieves the cached snapshot for an asset. It returns
// domain.ErrNotFound on a miss.
func (oc *OrderbookCache) GetSnapshot(ctx context.Context, assetID string) (domain.OrderbookSnapshot, error) {
	data, err := oc.rdb.Get(ctx, bookKey(assetID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.OrderbookSnapshot{}, domain.ErrNotFound
		}
		return domain.OrderbookSnapshot{}, fmt.Errorf("redis: get snapshot %s: %w", assetID, err)
	}

	var snap domain.OrderbookSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("redis: unmarshal snapshot %s: %w", assetID, err)
	}
	return snap, nil
}

// UpdateLevel applies an incremental level update to the cached snapshot.
// A size of 0 removes the level. Updates against a missing snapshot are a
// no-op; the next full snapshot repopulates the key.
func (oc *OrderbookCache) UpdateLevel(ctx context.Context, assetID string, side string, price, size float64) error {
	snap, err := oc.GetSnapshot(ctx, assetID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	switch side {
	case "BUY", "bids":
		snap.Bids = applyLevel(snap.Bids, price, size)
		snap.BestBid = 0
		for _, lvl := range snap.Bids {
			if lvl.Price > snap.BestBid {
				snap.BestBid = lvl.Price
			}
		}
	case "SELL", "asks":
		snap.Asks = applyLevel(snap.Asks, price, size)
		snap.BestAsk = 0
		for _, lvl := range snap.Asks {
			if snap.BestAsk == 0 || lvl.Price < snap.BestAsk {
				snap.BestAsk = lvl.Price
			}
		}
	default:
		return fmt.Errorf("redis: update level: unknown side %q", side)
	}

	snap.Timestamp = time.Now().UTC()
	return oc.SetSnapshot(ctx, assetID, snap)
}

func applyLevel(levels []domain.PriceLevel, price, size float64) []domain.PriceLevel {
	out := levels[:0]
	replaced := false
	for _, lvl := range levels {
		if lvl.Price == price {
			replaced = true
			if size > 0 {
				out = append(out, domain.PriceLevel{Price: price, Size: size})
			}
			continue
		}
		out = append(out, lvl)
	}
	if !replaced && size > 0 {
		out = append(out, domain.PriceLevel{Price: price, Size: size})
	}
	return out
}

// Compile-time interface check.
var _ domain.OrderbookCache = (*OrderbookCache)(nil)
