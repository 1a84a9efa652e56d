package marketdata

import (
	"context"
	"errors"
	"time"
)

// ErrNoData indicates the provider has no price history for a ticker
var ErrNoData = errors.New("no market data available for ticker")

// Provider fetches price data for EGX-listed equities
type Provider interface {
	// GetCandles returns up to bars daily candles, oldest first
	GetCandles(ctx context.Context, ticker string, bars int) ([]Candle, error)
	// GetQuote returns the latest traded price for a ticker
	GetQuote(ctx context.Context, ticker string) (*Quote, error)
}

var cairoTZ = mustLoadCairo()

func mustLoadCairo() *time.Location {
	loc, err := time.LoadLocation("Africa/Cairo")
	if err != nil {
		// Fall back to a fixed offset; Egypt has observed DST in recent
		// years so this is only a safety net when tzdata is missing.
		return time.FixedZone("EET", 2*60*60)
	}
	return loc
}

// IsMarketOpen reports whether the EGX trading session is active.
// The exchange trades Sunday through Thursday, 10:00 to 14:30 Cairo time.
func IsMarketOpen(now time.Time) bool {
	return isMarketOpenIn(now, cairoTZ)
}

func isMarketOpenIn(now time.Time, loc *time.Location) bool {
	t := now.In(loc)

	switch t.Weekday() {
	case time.Friday, time.Saturday:
		return false
	}

	minutes := t.Hour()*60 + t.Minute()
	sessionOpen := 10 * 60
	sessionClose := 14*60 + 30

	return minutes >= sessionOpen && minutes < sessionClose
}
