package marketdata

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// MockProvider generates deterministic synthetic price data for
// development and testing without hitting the real data source.
type MockProvider struct {
	mu     sync.Mutex
	prices map[string]float64
	log    zerolog.Logger
}

// NewMockProvider creates a mock market data provider
func NewMockProvider(log zerolog.Logger) *MockProvider {
	return &MockProvider{
		prices: make(map[string]float64),
		log:    log.With().Str("component", "mock_provider").Logger(),
	}
}

// basePrice derives a stable starting price from the ticker symbol
func basePrice(ticker string) float64 {
	h := fnv.New32a()
	h.Write([]byte(ticker))
	// Spread base prices across a realistic EGX range of 5 to 105 EGP
	return 5 + float64(h.Sum32()%10000)/100
}

// GetCandles returns a deterministic random walk for the ticker
func (m *MockProvider) GetCandles(_ context.Context, ticker string, bars int) ([]Candle, error) {
	if bars <= 0 {
		bars = 130
	}

	h := fnv.New64a()
	h.Write([]byte(ticker))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	price := basePrice(ticker)
	candles := make([]Candle, 0, bars)
	// Daily bars ending today, skipping Fridays and Saturdays
	day := time.Now().AddDate(0, 0, -bars*7/5-4)

	for len(candles) < bars {
		day = day.AddDate(0, 0, 1)
		if wd := day.Weekday(); wd == time.Friday || wd == time.Saturday {
			continue
		}

		drift := (rng.Float64() - 0.48) * 0.02
		open := price
		price = math.Max(0.5, price*(1+drift))

		high := math.Max(open, price) * (1 + rng.Float64()*0.01)
		low := math.Min(open, price) * (1 - rng.Float64()*0.01)
		volume := 100000 + rng.Float64()*900000

		candles = append(candles, Candle{
			Timestamp: time.Date(day.Year(), day.Month(), day.Day(), 14, 30, 0, 0, cairoTZ),
			Open:      round2(open),
			High:      round2(high),
			Low:       round2(low),
			Close:     round2(price),
			Volume:    math.Round(volume),
		})
	}

	m.mu.Lock()
	m.prices[ticker] = price
	m.mu.Unlock()

	return candles, nil
}

// GetQuote returns the latest mock price with a small random move
func (m *MockProvider) GetQuote(ctx context.Context, ticker string) (*Quote, error) {
	m.mu.Lock()
	last, ok := m.prices[ticker]
	m.mu.Unlock()

	if !ok {
		if _, err := m.GetCandles(ctx, ticker, 130); err != nil {
			return nil, err
		}
		m.mu.Lock()
		last = m.prices[ticker]
		m.mu.Unlock()
	}

	move := (rand.Float64() - 0.5) * 0.01
	price := round2(math.Max(0.5, last*(1+move)))

	m.mu.Lock()
	m.prices[ticker] = price
	m.mu.Unlock()

	return &Quote{
		Ticker:        ticker,
		Price:         price,
		Change:        round2(price - last),
		ChangePercent: round2((price - last) / last * 100),
		Timestamp:     time.Now(),
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
