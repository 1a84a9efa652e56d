package paper

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"egx-trading-bot/internal/events"
)

// Ledger owns all position and portfolio state. Every mutation runs
// under one mutex so the check-then-write sequences (duplicate check,
// capital debit) are atomic across concurrent callers.
type Ledger struct {
	mu sync.RWMutex

	initialCapital float64
	currentCapital float64
	positions      []*Position
	open           map[string]*Position
	nextID         int64

	store Store
	bus   *events.EventBus
	log   zerolog.Logger
}

// NewLedger creates a ledger with the given starting capital
func NewLedger(initialCapital float64, store Store, bus *events.EventBus, log zerolog.Logger) *Ledger {
	return &Ledger{
		initialCapital: initialCapital,
		currentCapital: initialCapital,
		open:           make(map[string]*Position),
		nextID:         1,
		store:          store,
		bus:            bus,
		log:            log.With().Str("component", "ledger").Logger(),
	}
}

// Restore rebuilds the in-memory ledger from the durable store,
// re-indexing open positions by ticker
func (l *Ledger) Restore(ctx context.Context) error {
	port, err := l.store.LoadPortfolio(ctx)
	if err != nil {
		return fmt.Errorf("failed to load portfolio: %w", err)
	}

	positions, err := l.store.LoadPositions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load positions: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if port != nil {
		l.initialCapital = port.InitialCapital
		l.currentCapital = port.CurrentCapital
	}

	l.positions = positions
	l.open = make(map[string]*Position)
	l.nextID = 1
	for _, pos := range positions {
		if pos.Status == StatusOpen {
			l.open[pos.Ticker] = pos
		}
		if pos.ID >= l.nextID {
			l.nextID = pos.ID + 1
		}
	}

	l.log.Info().
		Int("positions", len(l.positions)).
		Int("open", len(l.open)).
		Float64("capital", l.currentCapital).
		Msg("ledger restored")
	return nil
}

// OpenParams carries everything needed to open a position
type OpenParams struct {
	Ticker     string
	Direction  Direction
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	Investment float64
	Confidence float64
	Reasons    []string
}

// Open creates a new position, debiting capital by the amount actually
// committed after flooring to whole shares
func (l *Ledger) Open(ctx context.Context, p OpenParams) (*Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if p.EntryPrice <= 0 {
		return nil, fmt.Errorf("%w: %.2f", ErrInvalidPrice, p.EntryPrice)
	}
	if _, exists := l.open[p.Ticker]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePosition, p.Ticker)
	}
	if p.Investment > l.currentCapital {
		return nil, fmt.Errorf("%w: requested %.2f, available %.2f", ErrInsufficientCapital, p.Investment, l.currentCapital)
	}

	quantity := int64(p.Investment / p.EntryPrice)
	if quantity < 1 {
		return nil, fmt.Errorf("%w: %.2f at price %.2f", ErrZeroQuantity, p.Investment, p.EntryPrice)
	}
	committed := round2(float64(quantity) * p.EntryPrice)

	pos := &Position{
		ID:               l.nextID,
		Ticker:           p.Ticker,
		Direction:        p.Direction,
		EntryPrice:       round2(p.EntryPrice),
		CurrentPrice:     round2(p.EntryPrice),
		StopLoss:         round2(p.StopLoss),
		TakeProfit:       round2(p.TakeProfit),
		Quantity:         quantity,
		InvestmentAmount: committed,
		Status:           StatusOpen,
		Confidence:       p.Confidence,
		EntryReasons:     append([]string(nil), p.Reasons...),
		OpenedAt:         time.Now(),
	}

	l.nextID++
	l.positions = append(l.positions, pos)
	l.open[p.Ticker] = pos
	l.currentCapital -= committed

	if err := l.store.SavePosition(ctx, pos, l.portfolioLocked()); err != nil {
		// Roll back so memory and store stay in step
		l.nextID--
		l.positions = l.positions[:len(l.positions)-1]
		delete(l.open, p.Ticker)
		l.currentCapital += committed
		return nil, fmt.Errorf("failed to persist position: %w", err)
	}

	l.log.Info().
		Str("ticker", pos.Ticker).
		Str("direction", string(pos.Direction)).
		Float64("entry", pos.EntryPrice).
		Int64("quantity", pos.Quantity).
		Float64("invested", pos.InvestmentAmount).
		Msg("position opened")

	l.publish(events.EventPositionOpened, pos)
	l.publishPortfolio()
	return pos.clone(), nil
}

// UpdatePrice applies a fresh price to the open position for a ticker.
// Returns (nil, nil) when no open position exists. When the price
// crosses the stop or target the position is closed in the same call
// and the closed record is returned; callers inspect Status.
func (l *Ledger) UpdatePrice(ctx context.Context, ticker string, price float64) (*Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.open[ticker]
	if !ok {
		return nil, nil
	}

	price = round2(price)
	pos.CurrentPrice = price
	pos.PnL, pos.PnLPercent = pnl(pos.Direction, pos.EntryPrice, price, pos.Quantity)

	if pos.Direction == Long {
		if price <= pos.StopLoss {
			return l.closeLocked(ctx, pos, price, ReasonStopLoss)
		}
		if price >= pos.TakeProfit {
			return l.closeLocked(ctx, pos, price, ReasonTakeProfit)
		}
	} else {
		if price >= pos.StopLoss {
			return l.closeLocked(ctx, pos, price, ReasonStopLoss)
		}
		if price <= pos.TakeProfit {
			return l.closeLocked(ctx, pos, price, ReasonTakeProfit)
		}
	}

	if err := l.store.SavePosition(ctx, pos, l.portfolioLocked()); err != nil {
		return pos.clone(), fmt.Errorf("failed to persist price update: %w", err)
	}

	l.publish(events.EventPositionUpdated, pos)
	return pos.clone(), nil
}

// Close closes the open position for a ticker at the given price.
// Returns (nil, nil) when no open position exists.
func (l *Ledger) Close(ctx context.Context, ticker string, exitPrice float64, reason CloseReason) (*Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.open[ticker]
	if !ok {
		return nil, nil
	}
	return l.closeLocked(ctx, pos, round2(exitPrice), reason)
}

// closeLocked finalizes a position. Caller holds the mutex.
func (l *Ledger) closeLocked(ctx context.Context, pos *Position, exitPrice float64, reason CloseReason) (*Position, error) {
	pos.ExitPrice = exitPrice
	pos.CurrentPrice = exitPrice
	pos.PnL, pos.PnLPercent = pnl(pos.Direction, pos.EntryPrice, exitPrice, pos.Quantity)
	pos.CloseReason = reason

	// Reason-driven closes keep their label even at break-even; only a
	// manual close inspects the pnl sign
	switch {
	case reason == ReasonStopLoss:
		pos.Status = StatusClosedLoss
	case reason == ReasonTakeProfit:
		pos.Status = StatusClosedProfit
	case pos.PnL > 0:
		pos.Status = StatusClosedProfit
	case pos.PnL < 0:
		pos.Status = StatusClosedLoss
	default:
		pos.Status = StatusClosedManual
	}

	now := time.Now()
	pos.ClosedAt = &now

	delete(l.open, pos.Ticker)
	l.currentCapital += pos.InvestmentAmount + pos.PnL

	if err := l.store.SavePosition(ctx, pos, l.portfolioLocked()); err != nil {
		return pos.clone(), fmt.Errorf("position closed but persistence failed: %w", err)
	}

	l.log.Info().
		Str("ticker", pos.Ticker).
		Str("reason", string(reason)).
		Str("status", string(pos.Status)).
		Float64("exit", exitPrice).
		Float64("pnl", pos.PnL).
		Msg("position closed")

	l.publish(events.EventPositionClosed, pos)
	l.publishPortfolio()
	return pos.clone(), nil
}

// Reset wipes all positions and history and restarts with fresh capital
func (l *Ledger) Reset(ctx context.Context, newCapital float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	port := Portfolio{
		InitialCapital: newCapital,
		CurrentCapital: newCapital,
		LastUpdated:    time.Now(),
	}
	if err := l.store.Reset(ctx, port); err != nil {
		return fmt.Errorf("failed to reset store: %w", err)
	}

	l.initialCapital = newCapital
	l.currentCapital = newCapital
	l.positions = nil
	l.open = make(map[string]*Position)
	l.nextID = 1

	l.log.Warn().Float64("capital", newCapital).Msg("ledger reset")
	l.bus.Publish(events.Event{
		Type: events.EventPortfolioReset,
		Data: map[string]interface{}{"initial_capital": newCapital},
	})
	return nil
}

// Stats aggregates the current ledger state
func (l *Ledger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var (
		winning, losing, closed    int
		realizedPnL, unrealizedPnL float64
		openWithGains              float64
	)

	for _, pos := range l.positions {
		if pos.Status == StatusOpen {
			unrealizedPnL += pos.PnL
			openWithGains += pos.InvestmentAmount + pos.PnL
			continue
		}
		closed++
		realizedPnL += pos.PnL
		if pos.PnL > 0 {
			winning++
		} else if pos.PnL < 0 {
			losing++
		}
	}

	equity := l.currentCapital + openWithGains
	winRate := 0.0
	if closed > 0 {
		winRate = float64(winning) / float64(closed) * 100
	}

	return Stats{
		InitialCapital:     l.initialCapital,
		CurrentCapital:     round2(l.currentCapital),
		TotalEquity:        round2(equity),
		OpenPositions:      len(l.open),
		ClosedPositions:    closed,
		WinningTrades:      winning,
		LosingTrades:       losing,
		WinRate:            math.Round(winRate*10) / 10,
		TotalRealizedPnL:   round2(realizedPnL),
		TotalUnrealizedPnL: round2(unrealizedPnL),
		TotalPnL:           round2(realizedPnL + unrealizedPnL),
		TotalReturnPercent: round2((equity - l.initialCapital) / l.initialCapital * 100),
	}
}

// OpenPositions returns copies of all open positions ordered by id
func (l *Ledger) OpenPositions() []*Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*Position, 0, len(l.open))
	for _, pos := range l.open {
		out = append(out, pos.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// History returns copies of every position, open and closed, by id
func (l *Ledger) History() []*Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*Position, 0, len(l.positions))
	for _, pos := range l.positions {
		out = append(out, pos.clone())
	}
	return out
}

// OpenPosition returns a copy of the open position for a ticker
func (l *Ledger) OpenPosition(ticker string) (*Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	pos, ok := l.open[ticker]
	if !ok {
		return nil, false
	}
	return pos.clone(), true
}

// OpenCount returns the number of open positions
func (l *Ledger) OpenCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.open)
}

func (l *Ledger) portfolioLocked() Portfolio {
	return Portfolio{
		InitialCapital: l.initialCapital,
		CurrentCapital: l.currentCapital,
		LastUpdated:    time.Now(),
	}
}

func (l *Ledger) publish(t events.EventType, pos *Position) {
	l.bus.Publish(events.Event{
		Type: t,
		Data: map[string]interface{}{
			"id":          pos.ID,
			"ticker":      pos.Ticker,
			"direction":   string(pos.Direction),
			"status":      string(pos.Status),
			"entry_price": pos.EntryPrice,
			"price":       pos.CurrentPrice,
			"quantity":    pos.Quantity,
			"pnl":         pos.PnL,
			"pnl_percent": pos.PnLPercent,
			"reason":      string(pos.CloseReason),
		},
	})
}

func (l *Ledger) publishPortfolio() {
	l.bus.Publish(events.Event{
		Type: events.EventPortfolioUpdated,
		Data: map[string]interface{}{
			"current_capital": round2(l.currentCapital),
		},
	})
}

// pnl computes direction-aware profit and percent for a position
func pnl(dir Direction, entry, price float64, qty int64) (float64, float64) {
	var raw float64
	if dir == Long {
		raw = (price - entry) * float64(qty)
	} else {
		raw = (entry - price) * float64(qty)
	}
	pct := 0.0
	if entry > 0 {
		if dir == Long {
			pct = (price - entry) / entry * 100
		} else {
			pct = (entry - price) / entry * 100
		}
	}
	return round2(raw), round2(pct)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
