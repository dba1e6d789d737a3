// Package feed keeps the orderbook cache warm from the Polymarket CLOB
// real-time market feed while a live scan is running.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mbrennan/weatheredge/internal/domain"
	"github.com/mbrennan/weatheredge/internal/platform/polymarket"
)

// BookFeed subscribes to book and price_change events for a set of outcome
// tokens and mirrors them into the orderbook cache, so valuation reads hit
// Redis instead of the REST API.
type BookFeed struct {
	wsURL    string
	assetIDs []string
	books    domain.OrderbookCache
	logger   *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewBookFeed creates a feed for the given asset IDs.
func NewBookFeed(wsURL string, assetIDs []string, books domain.OrderbookCache, logger *slog.Logger) *BookFeed {
	return &BookFeed{
		wsURL:    wsURL,
		assetIDs: assetIDs,
		books:    books,
		logger:   logger.With(slog.String("component", "book_feed")),
		done:     make(chan struct{}),
	}
}

// Run connects, subscribes, and mirrors events into the cache until ctx is
// cancelled or Close is called. The underlying client reconnects with
// backoff and restores the subscription on its own.
func (f *BookFeed) Run(ctx context.Context) error {
	if len(f.assetIDs) == 0 {
		f.logger.Info("no assets to watch, feed idle")
		return nil
	}

	client := polymarket.NewWSClient(f.wsURL)
	defer client.Close()

	client.OnBookUpdate(func(snap domain.OrderbookSnapshot) {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := f.books.SetSnapshot(cctx, snap.AssetID, snap); err != nil {
			f.logger.Warn("cache snapshot failed",
				slog.String("asset_id", snap.AssetID),
				slog.String("error", err.Error()),
			)
		}
	})
	client.OnPriceChange(func(change domain.PriceChange) {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := f.books.UpdateLevel(cctx, change.AssetID, change.Side, change.Price, change.Size); err != nil {
			f.logger.Warn("cache level update failed",
				slog.String("asset_id", change.AssetID),
				slog.String("error", err.Error()),
			)
		}
	})

	connCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	err := client.Connect(connCtx)
	cancel()
	if err != nil {
		return err
	}
	if err := client.Subscribe(f.assetIDs); err != nil {
		return err
	}
	f.logger.Info("book feed subscribed", slog.Int("assets", len(f.assetIDs)))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.done:
		return nil
	}
}

// Close stops the feed.
func (f *BookFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}
