package signal

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"egx-trading-bot/internal/indicators"
	"egx-trading-bot/internal/marketdata"
)

// Scorer converts indicator snapshots into trading signals using
// additive buy and sell accumulators.
type Scorer struct {
	provider marketdata.Provider
	cfg      indicators.Config

	rsiOversold   float64
	rsiOverbought float64
	stopLossPct   float64
	takeProfitPct float64
	historyBars   int

	log zerolog.Logger
}

// ScorerParams configures signal generation thresholds
type ScorerParams struct {
	RSIOversold   float64
	RSIOverbought float64
	StopLossPct   float64
	TakeProfitPct float64
	HistoryBars   int
}

// DefaultScorerParams returns the standard scoring thresholds
func DefaultScorerParams() ScorerParams {
	return ScorerParams{
		RSIOversold:   30,
		RSIOverbought: 70,
		StopLossPct:   5,
		TakeProfitPct: 10,
		HistoryBars:   130,
	}
}

// NewScorer creates a signal scorer backed by a market data provider
func NewScorer(provider marketdata.Provider, cfg indicators.Config, params ScorerParams, log zerolog.Logger) *Scorer {
	return &Scorer{
		provider:      provider,
		cfg:           cfg,
		rsiOversold:   params.RSIOversold,
		rsiOverbought: params.RSIOverbought,
		stopLossPct:   params.StopLossPct,
		takeProfitPct: params.TakeProfitPct,
		historyBars:   params.HistoryBars,
		log:           log.With().Str("component", "scorer").Logger(),
	}
}

// ScoreSnapshot scores an indicator snapshot. Pure and deterministic:
// identical snapshots always yield identical signals.
func (s *Scorer) ScoreSnapshot(snap *indicators.Snapshot) *Signal {
	var buyScore, sellScore int
	reasons := make([]string, 0, 8)

	// RSI zones
	switch {
	case snap.RSI < s.rsiOversold:
		buyScore += 20
		reasons = append(reasons, fmt.Sprintf("RSI (%.1f) in oversold territory, buying opportunity", snap.RSI))
	case snap.RSI > s.rsiOverbought:
		sellScore += 20
		reasons = append(reasons, fmt.Sprintf("RSI (%.1f) in overbought territory, selling opportunity", snap.RSI))
	case snap.RSI < 45:
		buyScore += 10
		reasons = append(reasons, fmt.Sprintf("RSI (%.1f) leaning downward", snap.RSI))
	case snap.RSI > 55:
		sellScore += 10
		reasons = append(reasons, fmt.Sprintf("RSI (%.1f) leaning upward", snap.RSI))
	}

	// MACD crossover state with histogram confirmation
	if snap.MACD > snap.MACDSignal {
		buyScore += 15
		reasons = append(reasons, "MACD gives a bullish signal")
		if snap.MACDHistogram > 0 {
			buyScore += 10
			reasons = append(reasons, "positive histogram confirms the uptrend")
		}
	} else {
		sellScore += 15
		reasons = append(reasons, "MACD gives a bearish signal")
		if snap.MACDHistogram < 0 {
			sellScore += 10
			reasons = append(reasons, "negative histogram confirms the downtrend")
		}
	}

	// Bollinger band breakouts
	if snap.Price < snap.BBLower {
		buyScore += 15
		reasons = append(reasons, fmt.Sprintf("price (%.2f) below lower Bollinger band (%.2f), rebound opportunity", snap.Price, snap.BBLower))
	} else if snap.Price > snap.BBUpper {
		sellScore += 15
		reasons = append(reasons, fmt.Sprintf("price (%.2f) above upper Bollinger band (%.2f), correction likely", snap.Price, snap.BBUpper))
	}

	// Moving average trend agreement
	if snap.SMATrendUp && snap.EMATrendUp {
		buyScore += 15
		reasons = append(reasons, "moving averages point to a strong uptrend")
	} else if !snap.SMATrendUp && !snap.EMATrendUp {
		sellScore += 15
		reasons = append(reasons, "moving averages point to a strong downtrend")
	}

	if snap.PriceAboveSMAShort && snap.PriceAboveSMALong {
		buyScore += 10
		reasons = append(reasons, "price above the 20 and 50 moving averages")
	} else if !snap.PriceAboveSMAShort && !snap.PriceAboveSMALong {
		sellScore += 10
		reasons = append(reasons, "price below the 20 and 50 moving averages")
	}

	// Volume spike reinforces the currently leading side; ties go to buy
	if snap.VolumeSpike {
		if buyScore >= sellScore {
			buyScore += 15
			reasons = append(reasons, fmt.Sprintf("elevated volume (%.1fx) confirms buying", snap.VolumeRatio))
		} else {
			sellScore += 15
			reasons = append(reasons, fmt.Sprintf("elevated volume (%.1fx) confirms selling", snap.VolumeRatio))
		}
	}

	total := buyScore + sellScore
	confidence := 50.0
	direction := Hold

	if total == 0 {
		reasons = append(reasons, "no clear signal, better to wait")
	} else if buyScore > sellScore {
		confidence = float64(buyScore) / float64(total) * 100
		switch {
		case confidence >= 75:
			direction = StrongBuy
		case confidence >= 55:
			direction = Buy
		}
	} else {
		confidence = float64(sellScore) / float64(total) * 100
		switch {
		case confidence >= 75:
			direction = StrongSell
		case confidence >= 55:
			direction = Sell
		}
	}

	sig := &Signal{
		Ticker:         snap.Ticker,
		Direction:      direction,
		Confidence:     round1(confidence),
		ReferencePrice: snap.Price,
		SuggestedEntry: snap.Price,
		Reasons:        reasons,
		Snapshot:       snap,
		GeneratedAt:    time.Now(),
	}

	// Sell class mirrors the stop and target; HOLD keeps the buy convention
	if direction.IsSell() {
		sig.StopLoss = round2(snap.Price * (1 + s.stopLossPct/100))
		sig.TakeProfit = round2(snap.Price * (1 - s.takeProfitPct/100))
	} else {
		sig.StopLoss = round2(snap.Price * (1 - s.stopLossPct/100))
		sig.TakeProfit = round2(snap.Price * (1 + s.takeProfitPct/100))
	}

	return sig
}

// Score fetches history for a ticker and scores it. Returns (nil, nil)
// when the series is too short to compute indicators.
func (s *Scorer) Score(ctx context.Context, ticker string) (*Signal, error) {
	candles, err := s.provider.GetCandles(ctx, ticker, s.historyBars)
	if err != nil {
		if errors.Is(err, marketdata.ErrNoData) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch candles for %s: %w", ticker, err)
	}

	snap, ok := indicators.Compute(ticker, candles, s.cfg)
	if !ok {
		s.log.Debug().Str("ticker", ticker).Int("bars", len(candles)).Msg("insufficient history for indicators")
		return nil, nil
	}

	return s.ScoreSnapshot(snap), nil
}

// ScanAll scores every ticker in the universe and returns the results
// sorted by confidence, highest first. Tickers that fail or lack data
// are skipped.
func (s *Scorer) ScanAll(ctx context.Context, tickers []string) []*Signal {
	signals := make([]*Signal, 0, len(tickers))

	for _, ticker := range tickers {
		select {
		case <-ctx.Done():
			return signals
		default:
		}

		sig, err := s.Score(ctx, ticker)
		if err != nil {
			s.log.Warn().Err(err).Str("ticker", ticker).Msg("failed to score ticker")
			continue
		}
		if sig == nil {
			continue
		}
		signals = append(signals, sig)
	}

	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Confidence > signals[j].Confidence
	})

	return signals
}

// BuySignals filters for buy class signals at or above the confidence floor
func BuySignals(signals []*Signal, minConfidence float64) []*Signal {
	out := make([]*Signal, 0, len(signals))
	for _, sig := range signals {
		if sig.Direction.IsBuy() && sig.Confidence >= minConfidence {
			out = append(out, sig)
		}
	}
	return out
}

// SellSignals filters for sell class signals at or above the confidence floor
func SellSignals(signals []*Signal, minConfidence float64) []*Signal {
	out := make([]*Signal, 0, len(signals))
	for _, sig := range signals {
		if sig.Direction.IsSell() && sig.Confidence >= minConfidence {
			out = append(out, sig)
		}
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
