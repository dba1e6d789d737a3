// Package ledger tracks simulated capital and the append-only trade list of
// a single run.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/mbrennan/weatheredge/internal/domain"
)

// Summary is the aggregate view of a ledger after (or during) a run.
type Summary struct {
	InitialCapital float64
	FinalCapital   float64
	TotalPnL       float64
	ROI            float64
	TradeCount     int
	ResolvedCount  int
	Wins           int
	Losses         int
	WinRate        float64
	BiggestWin     float64
	BiggestLoss    float64
}

// Ledger is the only mutable state of a run. Days mutate it strictly in
// order; independent runs get independent ledgers.
type Ledger struct {
	mu      sync.Mutex
	initial float64
	capital float64
	trades  []domain.Trade
	byID    map[string]int
	seq     int
	now     func() time.Time
}

// New creates a ledger. Initial capital must be positive.
func New(initialCapital float64) (*Ledger, error) {
	if initialCapital <= 0 {
		return nil, fmt.Errorf("ledger: initial capital must be positive, got %v", initialCapital)
	}
	return &Ledger{
		initial: initialCapital,
		capital: initialCapital,
		byID:    make(map[string]int),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Execute opens a position on an opportunity, deducting amount from capital.
// Fails with domain.ErrInsufficientCapital without touching state when the
// allocation would overdraw; capital never goes negative.
func (l *Ledger) Execute(opp domain.TradeOpportunity, amount float64) (domain.Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount <= 0 {
		return domain.Trade{}, fmt.Errorf("ledger: allocation must be positive, got %v", amount)
	}
	if amount > l.capital {
		return domain.Trade{}, fmt.Errorf("ledger: allocate %.2f with %.2f available: %w",
			amount, l.capital, domain.ErrInsufficientCapital)
	}
	if opp.MarketPrice <= 0 {
		return domain.Trade{}, fmt.Errorf("ledger: entry price %v: %w", opp.MarketPrice, domain.ErrZeroPrice)
	}

	l.seq++
	trade := domain.Trade{
		ID:               fmt.Sprintf("TRADE_%04d", l.seq),
		PlacedAt:         l.now(),
		MarketID:         opp.MarketID,
		TokenID:          opp.TokenID,
		City:             opp.City,
		Question:         opp.Question,
		Signal:           opp.Signal,
		EntryPrice:       opp.MarketPrice,
		PositionSize:     amount / opp.MarketPrice,
		CapitalAllocated: amount,
		FairPrice:        opp.FairPrice,
		EdgePct:          opp.Edge * 100,
		State:            domain.TradeStatePlaced,
		Outcome:          domain.OutcomePending,
	}

	l.capital -= amount
	l.byID[trade.ID] = len(l.trades)
	l.trades = append(l.trades, trade)
	return trade, nil
}

// Settle returns the resolved copy of a trade at the given settlement price
// (1.0/0.0 for a binary resolution, or an observed exit price). Zero PnL
// counts as a loss: no edge captured.
func Settle(t domain.Trade, settle float64, at time.Time) domain.Trade {
	pnl := (settle - t.EntryPrice) * t.PositionSize

	t.State = domain.TradeStateResolved
	t.ResolvedAt = &at
	t.ResolutionPrice = settle
	t.ExitPrice = settle
	t.PnL = pnl
	t.PnLPct = pnl / t.CapitalAllocated * 100
	if pnl > 0 {
		t.Outcome = domain.OutcomeWin
	} else {
		t.Outcome = domain.OutcomeLoss
	}
	return t
}

// Resolve settles a trade at the given settlement price. PnL is credited back
// along with the original allocation.
func (l *Ledger) Resolve(tradeID string, settle float64) (domain.Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx, ok := l.byID[tradeID]
	if !ok {
		return domain.Trade{}, fmt.Errorf("ledger: resolve %s: %w", tradeID, domain.ErrTradeNotFound)
	}
	t := l.trades[idx]
	if t.State == domain.TradeStateResolved {
		return domain.Trade{}, fmt.Errorf("ledger: resolve %s: %w", tradeID, domain.ErrAlreadyResolved)
	}

	t = Settle(t, settle, l.now())
	l.capital += t.CapitalAllocated + t.PnL
	l.trades[idx] = t
	return t, nil
}

// MarkPending flags a forward-dated trade as awaiting resolution.
func (l *Ledger) MarkPending(tradeID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx, ok := l.byID[tradeID]
	if !ok {
		return fmt.Errorf("ledger: mark pending %s: %w", tradeID, domain.ErrTradeNotFound)
	}
	if l.trades[idx].State == domain.TradeStateResolved {
		return fmt.Errorf("ledger: mark pending %s: %w", tradeID, domain.ErrAlreadyResolved)
	}
	l.trades[idx].State = domain.TradeStatePending
	return nil
}

// Capital returns the currently available (unallocated) capital.
func (l *Ledger) Capital() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.capital
}

// Trades returns a copy of the trade list in placement order.
func (l *Ledger) Trades() []domain.Trade {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// Summary reduces the trade list to aggregate results. Final capital includes
// the allocations still tied up in unresolved trades at their entry value.
func (l *Ledger) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Summary{
		InitialCapital: l.initial,
		TradeCount:     len(l.trades),
	}

	unresolved := 0.0
	for _, t := range l.trades {
		if t.State != domain.TradeStateResolved {
			unresolved += t.CapitalAllocated
			continue
		}
		s.ResolvedCount++
		s.TotalPnL += t.PnL
		switch t.Outcome {
		case domain.OutcomeWin:
			s.Wins++
			if t.PnL > s.BiggestWin {
				s.BiggestWin = t.PnL
			}
		case domain.OutcomeLoss:
			s.Losses++
			if t.PnL < s.BiggestLoss {
				s.BiggestLoss = t.PnL
			}
		}
	}

	s.FinalCapital = l.capital + unresolved
	s.ROI = (s.FinalCapital - s.InitialCapital) / s.InitialCapital
	if s.ResolvedCount > 0 {
		s.WinRate = float64(s.Wins) / float64(s.ResolvedCount)
	}
	return s
}
