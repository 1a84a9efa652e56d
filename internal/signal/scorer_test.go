package signal

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"egx-trading-bot/internal/indicators"
	"egx-trading-bot/internal/marketdata"
)

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func newTestScorer(p marketdata.Provider) *Scorer {
	return NewScorer(p, indicators.DefaultConfig(), DefaultScorerParams(), zerolog.Nop())
}

// strongBuySnapshot yields oversold RSI, a confirmed bullish MACD, a
// lower band breakout, agreeing up trends and a volume spike.
func strongBuySnapshot() *indicators.Snapshot {
	return &indicators.Snapshot{
		Ticker:             "COMI",
		Price:              10.00,
		PrevClose:          10.20,
		RSI:                25,
		MACD:               0.5,
		MACDSignal:         0.2,
		MACDHistogram:      0.3,
		BBUpper:            13.00,
		BBMiddle:           12.00,
		BBLower:            11.00,
		SMAShort:           11.50,
		SMALong:            11.00,
		EMAShort:           11.40,
		EMALong:            11.10,
		SMATrendUp:         true,
		EMATrendUp:         true,
		PriceAboveSMAShort: false,
		PriceAboveSMALong:  true,
		CurrentVolume:      200000,
		AverageVolume:      100000,
		VolumeRatio:        2.0,
		VolumeSpike:        true,
	}
}

func TestScoreSnapshotStrongBuy(t *testing.T) {
	sig := newTestScorer(nil).ScoreSnapshot(strongBuySnapshot())

	// 20 (oversold) + 15 (MACD) + 10 (histogram) + 15 (band) + 15
	// (trend) + 15 (volume) = 90 against a sell score of 0
	if sig.Direction != StrongBuy {
		t.Errorf("expected STRONG_BUY, got %s", sig.Direction)
	}
	if !floatEquals(sig.Confidence, 100) {
		t.Errorf("expected confidence 100, got %f", sig.Confidence)
	}
	if len(sig.Reasons) != 6 {
		t.Errorf("expected 6 reasons, got %d: %v", len(sig.Reasons), sig.Reasons)
	}
}

func TestScoreSnapshotDeterministic(t *testing.T) {
	s := newTestScorer(nil)
	snap := strongBuySnapshot()

	first := s.ScoreSnapshot(snap)
	second := s.ScoreSnapshot(snap)

	if first.Direction != second.Direction {
		t.Errorf("direction differs: %s vs %s", first.Direction, second.Direction)
	}
	if !floatEquals(first.Confidence, second.Confidence) {
		t.Errorf("confidence differs: %f vs %f", first.Confidence, second.Confidence)
	}
	if len(first.Reasons) != len(second.Reasons) {
		t.Fatalf("reason count differs: %d vs %d", len(first.Reasons), len(second.Reasons))
	}
	for i := range first.Reasons {
		if first.Reasons[i] != second.Reasons[i] {
			t.Errorf("reason %d differs: %q vs %q", i, first.Reasons[i], second.Reasons[i])
		}
	}
}

func TestScoreSnapshotBalancedHold(t *testing.T) {
	// Bullish MACD against agreeing down trends splits the scores 15/15
	snap := &indicators.Snapshot{
		Ticker:             "SWDY",
		Price:              20.00,
		RSI:                50,
		MACD:               0.1,
		MACDSignal:         0.05,
		MACDHistogram:      -0.02,
		BBUpper:            22.00,
		BBLower:            18.00,
		SMATrendUp:         false,
		EMATrendUp:         false,
		PriceAboveSMAShort: true,
		PriceAboveSMALong:  false,
	}

	sig := newTestScorer(nil).ScoreSnapshot(snap)

	if sig.Direction != Hold {
		t.Errorf("expected HOLD on balanced scores, got %s", sig.Direction)
	}
	if !floatEquals(sig.Confidence, 50) {
		t.Errorf("expected confidence 50, got %f", sig.Confidence)
	}
}

func TestVolumeSpikeTieGoesToBuy(t *testing.T) {
	// Balanced 15/15 before the volume bonus; the tie routes to buy
	snap := &indicators.Snapshot{
		Ticker:             "HRHO",
		Price:              20.00,
		RSI:                50,
		MACD:               0.1,
		MACDSignal:         0.05,
		MACDHistogram:      -0.02,
		BBUpper:            22.00,
		BBLower:            18.00,
		SMATrendUp:         false,
		EMATrendUp:         false,
		PriceAboveSMAShort: true,
		PriceAboveSMALong:  false,
		VolumeRatio:        2.1,
		VolumeSpike:        true,
	}

	sig := newTestScorer(nil).ScoreSnapshot(snap)

	// buy 30 vs sell 15 gives 66.7 confidence on the buy side
	if sig.Direction != Buy {
		t.Errorf("expected BUY after tie-break, got %s", sig.Direction)
	}
	if !floatEquals(sig.Confidence, 66.7) {
		t.Errorf("expected confidence 66.7, got %f", sig.Confidence)
	}
}

func TestStopLossTakeProfitDerivation(t *testing.T) {
	s := newTestScorer(nil)

	buySnap := strongBuySnapshot()
	buySnap.Price = 100.00
	buySig := s.ScoreSnapshot(buySnap)
	if !buySig.Direction.IsBuy() {
		t.Fatalf("expected buy class, got %s", buySig.Direction)
	}
	if !floatEquals(buySig.StopLoss, 95) || !floatEquals(buySig.TakeProfit, 110) {
		t.Errorf("buy levels wrong: SL %f TP %f", buySig.StopLoss, buySig.TakeProfit)
	}

	// Mirror everything bearish
	sellSnap := &indicators.Snapshot{
		Ticker:             "COMI",
		Price:              100.00,
		RSI:                80,
		MACD:               -0.5,
		MACDSignal:         -0.2,
		MACDHistogram:      -0.3,
		BBUpper:            95.00,
		BBLower:            85.00,
		SMATrendUp:         false,
		EMATrendUp:         false,
		PriceAboveSMAShort: false,
		PriceAboveSMALong:  false,
	}
	sellSig := s.ScoreSnapshot(sellSnap)
	if !sellSig.Direction.IsSell() {
		t.Fatalf("expected sell class, got %s", sellSig.Direction)
	}
	if !floatEquals(sellSig.StopLoss, 105) || !floatEquals(sellSig.TakeProfit, 90) {
		t.Errorf("sell levels wrong: SL %f TP %f", sellSig.StopLoss, sellSig.TakeProfit)
	}
}

// shortHistoryProvider returns fewer bars than any indicator needs
type shortHistoryProvider struct{}

func (shortHistoryProvider) GetCandles(_ context.Context, _ string, _ int) ([]marketdata.Candle, error) {
	candles := make([]marketdata.Candle, 10)
	for i := range candles {
		candles[i] = marketdata.Candle{
			Timestamp: time.Now().AddDate(0, 0, i-10),
			Close:     10,
			Volume:    1000,
		}
	}
	return candles, nil
}

func (shortHistoryProvider) GetQuote(_ context.Context, ticker string) (*marketdata.Quote, error) {
	return &marketdata.Quote{Ticker: ticker, Price: 10}, nil
}

func TestScoreAbsentOnShortHistory(t *testing.T) {
	s := newTestScorer(shortHistoryProvider{})

	sig, err := s.Score(context.Background(), "COMI")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig != nil {
		t.Error("expected absent signal on short history")
	}
}

func TestScanAllSortsByConfidence(t *testing.T) {
	s := newTestScorer(marketdata.NewMockProvider(zerolog.Nop()))

	signals := s.ScanAll(context.Background(), []string{"COMI", "SWDY", "HRHO", "ETEL"})
	if len(signals) == 0 {
		t.Fatal("expected at least one signal")
	}
	for i := 1; i < len(signals); i++ {
		if signals[i].Confidence > signals[i-1].Confidence {
			t.Errorf("signals not sorted: %f before %f", signals[i-1].Confidence, signals[i].Confidence)
		}
	}
}

func TestBuySellSignalFilters(t *testing.T) {
	signals := []*Signal{
		{Ticker: "A", Direction: StrongBuy, Confidence: 90},
		{Ticker: "B", Direction: Buy, Confidence: 60},
		{Ticker: "C", Direction: Hold, Confidence: 50},
		{Ticker: "D", Direction: Sell, Confidence: 70},
		{Ticker: "E", Direction: StrongSell, Confidence: 80},
	}

	buys := BuySignals(signals, 65)
	if len(buys) != 1 || buys[0].Ticker != "A" {
		t.Errorf("expected only A above 65, got %d signals", len(buys))
	}

	sells := SellSignals(signals, 65)
	if len(sells) != 2 {
		t.Errorf("expected 2 sell signals, got %d", len(sells))
	}
}
