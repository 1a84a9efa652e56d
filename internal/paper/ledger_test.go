package paper

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"egx-trading-bot/internal/events"
)

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

// memStore is an in-memory Store for tests
type memStore struct {
	mu        sync.Mutex
	positions map[int64]*Position
	portfolio *Portfolio
	failNext  bool
}

func newMemStore() *memStore {
	return &memStore{positions: make(map[int64]*Position)}
}

func (m *memStore) SavePosition(_ context.Context, pos *Position, port Portfolio) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return errors.New("store unavailable")
	}
	cp := *pos
	m.positions[pos.ID] = &cp
	p := port
	m.portfolio = &p
	return nil
}

func (m *memStore) LoadPositions(_ context.Context) ([]*Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Position, 0, len(m.positions))
	for _, pos := range m.positions {
		cp := *pos
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) LoadPortfolio(_ context.Context) (*Portfolio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.portfolio == nil {
		return nil, nil
	}
	p := *m.portfolio
	return &p, nil
}

func (m *memStore) Reset(_ context.Context, port Portfolio) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions = make(map[int64]*Position)
	p := port
	m.portfolio = &p
	return nil
}

func newTestLedger(capital float64) (*Ledger, *memStore) {
	store := newMemStore()
	return NewLedger(capital, store, events.NewEventBus(), zerolog.Nop()), store
}

func longParams(ticker string, entry float64) OpenParams {
	return OpenParams{
		Ticker:     ticker,
		Direction:  Long,
		EntryPrice: entry,
		StopLoss:   entry * 0.95,
		TakeProfit: entry * 1.10,
		Investment: 1000,
		Confidence: 80,
		Reasons:    []string{"test entry"},
	}
}

func TestOpenDebitsCommittedAmount(t *testing.T) {
	ledger, _ := newTestLedger(100000)
	ctx := context.Background()

	// 1000 EGP at 30 buys 33 shares, committing 990
	pos, err := ledger.Open(ctx, longParams("COMI", 30))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if pos.Quantity != 33 {
		t.Errorf("expected 33 shares, got %d", pos.Quantity)
	}
	if !floatEquals(pos.InvestmentAmount, 990) {
		t.Errorf("expected committed 990, got %f", pos.InvestmentAmount)
	}

	stats := ledger.Stats()
	if !floatEquals(stats.CurrentCapital, 99010) {
		t.Errorf("expected capital 99010, got %f", stats.CurrentCapital)
	}
	if pos.ID != 1 {
		t.Errorf("expected first id 1, got %d", pos.ID)
	}
}

func TestOpenDuplicateRejected(t *testing.T) {
	ledger, _ := newTestLedger(100000)
	ctx := context.Background()

	if _, err := ledger.Open(ctx, longParams("COMI", 30)); err != nil {
		t.Fatalf("first open failed: %v", err)
	}
	_, err := ledger.Open(ctx, longParams("COMI", 31))
	if !errors.Is(err, ErrDuplicatePosition) {
		t.Errorf("expected ErrDuplicatePosition, got %v", err)
	}
}

func TestOpenRejectsNonPositivePrice(t *testing.T) {
	ledger, _ := newTestLedger(100000)
	ctx := context.Background()

	for _, price := range []float64{0, -12.5} {
		params := longParams("COMI", price)
		_, err := ledger.Open(ctx, params)
		if !errors.Is(err, ErrInvalidPrice) {
			t.Errorf("price %.2f: expected ErrInvalidPrice, got %v", price, err)
		}
	}
	if ledger.OpenCount() != 0 {
		t.Error("rejected open must not create a position")
	}
}

func TestOpenInsufficientCapital(t *testing.T) {
	ledger, _ := newTestLedger(500)

	_, err := ledger.Open(context.Background(), longParams("COMI", 30))
	if !errors.Is(err, ErrInsufficientCapital) {
		t.Errorf("expected ErrInsufficientCapital, got %v", err)
	}
}

func TestOpenZeroQuantity(t *testing.T) {
	ledger, _ := newTestLedger(100000)

	params := longParams("COMI", 1500)
	_, err := ledger.Open(context.Background(), params)
	if !errors.Is(err, ErrZeroQuantity) {
		t.Errorf("expected ErrZeroQuantity, got %v", err)
	}
	if ledger.OpenCount() != 0 {
		t.Error("rejected open must not create a position")
	}
}

func TestOpenPersistenceFailureRollsBack(t *testing.T) {
	ledger, store := newTestLedger(100000)
	store.failNext = true

	_, err := ledger.Open(context.Background(), longParams("COMI", 30))
	if err == nil {
		t.Fatal("expected persistence error")
	}

	if ledger.OpenCount() != 0 {
		t.Error("failed open must not leave a position behind")
	}
	stats := ledger.Stats()
	if !floatEquals(stats.CurrentCapital, 100000) {
		t.Errorf("capital not rolled back: %f", stats.CurrentCapital)
	}

	// Next open reuses the sequence id
	pos, err := ledger.Open(context.Background(), longParams("COMI", 30))
	if err != nil {
		t.Fatalf("open after rollback failed: %v", err)
	}
	if pos.ID != 1 {
		t.Errorf("expected id 1 after rollback, got %d", pos.ID)
	}
}

func TestUpdatePriceUnrealizedPnL(t *testing.T) {
	ledger, _ := newTestLedger(100000)
	ctx := context.Background()

	if _, err := ledger.Open(ctx, longParams("COMI", 100)); err != nil {
		t.Fatalf("open failed: %v", err)
	}

	pos, err := ledger.UpdatePrice(ctx, "COMI", 103)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if pos.Status != StatusOpen {
		t.Fatalf("expected still open, got %s", pos.Status)
	}
	// 10 shares, 3 EGP gain each
	if !floatEquals(pos.PnL, 30) {
		t.Errorf("expected pnl 30, got %f", pos.PnL)
	}
	if !floatEquals(pos.PnLPercent, 3) {
		t.Errorf("expected pnl percent 3, got %f", pos.PnLPercent)
	}
}

func TestUpdatePriceAbsentTicker(t *testing.T) {
	ledger, _ := newTestLedger(100000)

	pos, err := ledger.UpdatePrice(context.Background(), "GHOST", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos != nil {
		t.Error("expected absent result for unknown ticker")
	}
}

func TestStopLossAutoClose(t *testing.T) {
	ledger, _ := newTestLedger(100000)
	ctx := context.Background()

	// Entry 100, stop 95; a print at 94 closes as a loss
	if _, err := ledger.Open(ctx, longParams("COMI", 100)); err != nil {
		t.Fatalf("open failed: %v", err)
	}

	pos, err := ledger.UpdatePrice(ctx, "COMI", 94)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if pos.Status != StatusClosedLoss {
		t.Errorf("expected CLOSED_LOSS, got %s", pos.Status)
	}
	if pos.CloseReason != ReasonStopLoss {
		t.Errorf("expected STOP_LOSS reason, got %s", pos.CloseReason)
	}
	if !floatEquals(pos.PnL, -60) {
		t.Errorf("expected pnl -60, got %f", pos.PnL)
	}
	if ledger.OpenCount() != 0 {
		t.Error("closed position still indexed as open")
	}

	// Capital: 100000 - 1000 + 1000 - 60
	stats := ledger.Stats()
	if !floatEquals(stats.CurrentCapital, 99940) {
		t.Errorf("expected capital 99940, got %f", stats.CurrentCapital)
	}
}

func TestTakeProfitAutoClose(t *testing.T) {
	ledger, _ := newTestLedger(100000)
	ctx := context.Background()

	if _, err := ledger.Open(ctx, longParams("COMI", 100)); err != nil {
		t.Fatalf("open failed: %v", err)
	}

	pos, err := ledger.UpdatePrice(ctx, "COMI", 111)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if pos.Status != StatusClosedProfit {
		t.Errorf("expected CLOSED_PROFIT, got %s", pos.Status)
	}
	if pos.CloseReason != ReasonTakeProfit {
		t.Errorf("expected TAKE_PROFIT reason, got %s", pos.CloseReason)
	}
	if !floatEquals(pos.PnL, 110) {
		t.Errorf("expected pnl 110, got %f", pos.PnL)
	}
}

func TestShortPositionMirroredExits(t *testing.T) {
	ledger, _ := newTestLedger(100000)
	ctx := context.Background()

	params := OpenParams{
		Ticker:     "SWDY",
		Direction:  Short,
		EntryPrice: 100,
		StopLoss:   105,
		TakeProfit: 90,
		Investment: 1000,
	}
	if _, err := ledger.Open(ctx, params); err != nil {
		t.Fatalf("open failed: %v", err)
	}

	// A falling price is a gain for a short
	pos, err := ledger.UpdatePrice(ctx, "SWDY", 95)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if pos.Status != StatusOpen {
		t.Fatalf("expected still open, got %s", pos.Status)
	}
	if !floatEquals(pos.PnL, 50) {
		t.Errorf("expected pnl 50, got %f", pos.PnL)
	}

	// Rising through the stop closes as a loss
	pos, err = ledger.UpdatePrice(ctx, "SWDY", 106)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if pos.Status != StatusClosedLoss || pos.CloseReason != ReasonStopLoss {
		t.Errorf("expected stop loss close, got %s / %s", pos.Status, pos.CloseReason)
	}
}

func TestManualCloseStatusPolicy(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name      string
		exitPrice float64
		want      Status
	}{
		{"profit", 105, StatusClosedProfit},
		{"loss", 98, StatusClosedLoss},
		{"break even", 100, StatusClosedManual},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ledger, _ := newTestLedger(100000)
			if _, err := ledger.Open(ctx, longParams("COMI", 100)); err != nil {
				t.Fatalf("open failed: %v", err)
			}
			pos, err := ledger.Close(ctx, "COMI", tc.exitPrice, ReasonManual)
			if err != nil {
				t.Fatalf("close failed: %v", err)
			}
			if pos.Status != tc.want {
				t.Errorf("exit at %f: expected %s, got %s", tc.exitPrice, tc.want, pos.Status)
			}
		})
	}
}

func TestCloseTwiceIsAbsent(t *testing.T) {
	ledger, _ := newTestLedger(100000)
	ctx := context.Background()

	if _, err := ledger.Open(ctx, longParams("COMI", 100)); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if _, err := ledger.Close(ctx, "COMI", 105, ReasonManual); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	pos, err := ledger.Close(ctx, "COMI", 110, ReasonManual)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos != nil {
		t.Error("second close must be absent")
	}
}

func TestEquityInvariantAcrossOperations(t *testing.T) {
	ledger, _ := newTestLedger(100000)
	ctx := context.Background()

	checkInvariant := func(step string) {
		t.Helper()
		stats := ledger.Stats()
		want := stats.InitialCapital + stats.TotalRealizedPnL + stats.TotalUnrealizedPnL
		if math.Abs(stats.TotalEquity-want) > 0.01 {
			t.Errorf("%s: equity %f, expected %f", step, stats.TotalEquity, want)
		}
	}

	ledger.Open(ctx, longParams("COMI", 100))
	checkInvariant("after open")

	ledger.UpdatePrice(ctx, "COMI", 104)
	checkInvariant("after gain")

	ledger.Open(ctx, longParams("SWDY", 50))
	checkInvariant("after second open")

	ledger.UpdatePrice(ctx, "SWDY", 48)
	checkInvariant("after drawdown")

	ledger.Close(ctx, "COMI", 104, ReasonManual)
	checkInvariant("after manual close")

	ledger.UpdatePrice(ctx, "SWDY", 47.4)
	checkInvariant("after stop loss")
}

func TestConcurrentOpensSingleWinner(t *testing.T) {
	ledger, _ := newTestLedger(100000)
	ctx := context.Background()

	const attempts = 20
	var wg sync.WaitGroup
	errs := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Open(ctx, longParams("COMI", 30))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var successes, duplicates int
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrDuplicatePosition):
			duplicates++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if successes != 1 {
		t.Errorf("expected exactly one successful open, got %d", successes)
	}
	if duplicates != attempts-1 {
		t.Errorf("expected %d duplicate rejections, got %d", attempts-1, duplicates)
	}
}

func TestWinRateAndStats(t *testing.T) {
	ledger, _ := newTestLedger(100000)
	ctx := context.Background()

	// Two winners, one loser
	ledger.Open(ctx, longParams("COMI", 100))
	ledger.Close(ctx, "COMI", 110, ReasonTakeProfit)

	ledger.Open(ctx, longParams("SWDY", 50))
	ledger.Close(ctx, "SWDY", 52, ReasonManual)

	ledger.Open(ctx, longParams("HRHO", 20))
	ledger.Close(ctx, "HRHO", 19, ReasonManual)

	stats := ledger.Stats()
	if stats.ClosedPositions != 3 {
		t.Fatalf("expected 3 closed, got %d", stats.ClosedPositions)
	}
	if stats.WinningTrades != 2 || stats.LosingTrades != 1 {
		t.Errorf("expected 2 winners 1 loser, got %d/%d", stats.WinningTrades, stats.LosingTrades)
	}
	if !floatEquals(stats.WinRate, 66.7) {
		t.Errorf("expected win rate 66.7, got %f", stats.WinRate)
	}
}

func TestResetWipesEverything(t *testing.T) {
	ledger, store := newTestLedger(100000)
	ctx := context.Background()

	ledger.Open(ctx, longParams("COMI", 100))
	ledger.Close(ctx, "COMI", 105, ReasonManual)
	ledger.Open(ctx, longParams("SWDY", 50))

	if err := ledger.Reset(ctx, 200000); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	stats := ledger.Stats()
	if !floatEquals(stats.InitialCapital, 200000) || !floatEquals(stats.CurrentCapital, 200000) {
		t.Errorf("capital not reset: initial %f current %f", stats.InitialCapital, stats.CurrentCapital)
	}
	if len(ledger.History()) != 0 || ledger.OpenCount() != 0 {
		t.Error("positions survived reset")
	}
	if len(store.positions) != 0 {
		t.Error("store not wiped on reset")
	}

	// Ids restart from 1
	pos, err := ledger.Open(ctx, longParams("COMI", 100))
	if err != nil {
		t.Fatalf("open after reset failed: %v", err)
	}
	if pos.ID != 1 {
		t.Errorf("expected id 1 after reset, got %d", pos.ID)
	}
}

func TestRestoreRebuildsOpenIndex(t *testing.T) {
	store := newMemStore()
	bus := events.NewEventBus()
	ctx := context.Background()

	first := NewLedger(100000, store, bus, zerolog.Nop())
	first.Open(ctx, longParams("COMI", 100))
	first.Open(ctx, longParams("SWDY", 50))
	first.Close(ctx, "SWDY", 55, ReasonManual)

	second := NewLedger(100000, store, bus, zerolog.Nop())
	if err := second.Restore(ctx); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	if second.OpenCount() != 1 {
		t.Fatalf("expected 1 open position after restore, got %d", second.OpenCount())
	}
	if _, ok := second.OpenPosition("COMI"); !ok {
		t.Error("COMI not re-indexed as open")
	}

	firstStats := first.Stats()
	secondStats := second.Stats()
	if !floatEquals(firstStats.CurrentCapital, secondStats.CurrentCapital) {
		t.Errorf("capital mismatch after restore: %f vs %f", firstStats.CurrentCapital, secondStats.CurrentCapital)
	}

	// New ids continue the sequence
	pos, err := second.Open(ctx, longParams("HRHO", 20))
	if err != nil {
		t.Fatalf("open after restore failed: %v", err)
	}
	if pos.ID != 3 {
		t.Errorf("expected id 3 after restore, got %d", pos.ID)
	}
}
