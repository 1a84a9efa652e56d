package signal

import (
	"time"

	"egx-trading-bot/internal/indicators"
)

// Direction is the recommendation attached to a signal
type Direction string

const (
	StrongBuy  Direction = "STRONG_BUY"
	Buy        Direction = "BUY"
	Hold       Direction = "HOLD"
	Sell       Direction = "SELL"
	StrongSell Direction = "STRONG_SELL"
)

// IsBuy reports whether the direction recommends entering long
func (d Direction) IsBuy() bool {
	return d == Buy || d == StrongBuy
}

// IsSell reports whether the direction recommends exiting or shorting
func (d Direction) IsSell() bool {
	return d == Sell || d == StrongSell
}

// Signal is the scored recommendation for one ticker. Signals are
// recreated on every scan and never mutated or persisted.
type Signal struct {
	Ticker         string               `json:"ticker"`
	Direction      Direction            `json:"direction"`
	Confidence     float64              `json:"confidence"`
	ReferencePrice float64              `json:"reference_price"`
	SuggestedEntry float64              `json:"suggested_entry"`
	StopLoss       float64              `json:"stop_loss"`
	TakeProfit     float64              `json:"take_profit"`
	Reasons        []string             `json:"reasons"`
	Snapshot       *indicators.Snapshot `json:"snapshot,omitempty"`
	GeneratedAt    time.Time            `json:"generated_at"`
}
