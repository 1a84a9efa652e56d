package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func cairo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Africa/Cairo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	return loc
}

func TestIsMarketOpenWeekdaySession(t *testing.T) {
	loc := cairo(t)

	// Sunday 2026-08-23 at 11:00 Cairo time is inside the session
	open := time.Date(2026, 8, 23, 11, 0, 0, 0, loc)
	if !IsMarketOpen(open) {
		t.Error("expected market open on Sunday 11:00")
	}

	// Thursday at 14:29 is still open, 14:30 is closed
	lastMinute := time.Date(2026, 8, 27, 14, 29, 0, 0, loc)
	if !IsMarketOpen(lastMinute) {
		t.Error("expected market open at 14:29")
	}
	closeBell := time.Date(2026, 8, 27, 14, 30, 0, 0, loc)
	if IsMarketOpen(closeBell) {
		t.Error("expected market closed at 14:30")
	}
}

func TestIsMarketOpenWeekend(t *testing.T) {
	loc := cairo(t)

	// Friday and Saturday are the EGX weekend
	friday := time.Date(2026, 8, 28, 12, 0, 0, 0, loc)
	if IsMarketOpen(friday) {
		t.Error("expected market closed on Friday")
	}
	saturday := time.Date(2026, 8, 29, 12, 0, 0, 0, loc)
	if IsMarketOpen(saturday) {
		t.Error("expected market closed on Saturday")
	}
}

func TestIsMarketOpenBeforeBell(t *testing.T) {
	loc := cairo(t)

	early := time.Date(2026, 8, 24, 9, 59, 0, 0, loc)
	if IsMarketOpen(early) {
		t.Error("expected market closed at 09:59")
	}
	bell := time.Date(2026, 8, 24, 10, 0, 0, 0, loc)
	if !IsMarketOpen(bell) {
		t.Error("expected market open at 10:00")
	}
}

func TestMockProviderDeterministicCandles(t *testing.T) {
	m := NewMockProvider(zerolog.Nop())
	ctx := context.Background()

	first, err := m.GetCandles(ctx, "COMI", 130)
	if err != nil {
		t.Fatalf("GetCandles failed: %v", err)
	}
	if len(first) != 130 {
		t.Fatalf("expected 130 candles, got %d", len(first))
	}

	second, err := m.GetCandles(ctx, "COMI", 130)
	if err != nil {
		t.Fatalf("GetCandles failed: %v", err)
	}
	for i := range first {
		if first[i].Close != second[i].Close {
			t.Fatalf("candle %d not deterministic: %f vs %f", i, first[i].Close, second[i].Close)
		}
	}
}

func TestMockProviderCandleSanity(t *testing.T) {
	m := NewMockProvider(zerolog.Nop())

	candles, err := m.GetCandles(context.Background(), "HRHO", 60)
	if err != nil {
		t.Fatalf("GetCandles failed: %v", err)
	}

	for i, c := range candles {
		if c.High < c.Low {
			t.Errorf("candle %d: high %f below low %f", i, c.High, c.Low)
		}
		if c.Close <= 0 || c.Open <= 0 {
			t.Errorf("candle %d: non-positive price", i)
		}
		if wd := c.Timestamp.Weekday(); wd == time.Friday || wd == time.Saturday {
			t.Errorf("candle %d: falls on EGX weekend (%s)", i, wd)
		}
		if i > 0 && !candles[i-1].Timestamp.Before(c.Timestamp) {
			t.Errorf("candle %d: timestamps not strictly increasing", i)
		}
	}
}

func TestMockProviderQuote(t *testing.T) {
	m := NewMockProvider(zerolog.Nop())

	q, err := m.GetQuote(context.Background(), "SWDY")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if q.Ticker != "SWDY" {
		t.Errorf("expected ticker SWDY, got %s", q.Ticker)
	}
	if q.Price <= 0 {
		t.Errorf("expected positive price, got %f", q.Price)
	}
}
