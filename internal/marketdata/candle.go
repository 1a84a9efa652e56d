package marketdata

import "time"

// Candle represents a single OHLCV bar
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Quote represents the latest traded price for a ticker
type Quote struct {
	Ticker        string    `json:"ticker"`
	Price         float64   `json:"price"`
	Volume        float64   `json:"volume"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Timestamp     time.Time `json:"timestamp"`
}
