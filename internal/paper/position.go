package paper

import (
	"errors"
	"time"
)

// Direction of a paper position
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Status of a paper position. Closed statuses are terminal.
type Status string

const (
	StatusOpen         Status = "OPEN"
	StatusClosedProfit Status = "CLOSED_PROFIT"
	StatusClosedLoss   Status = "CLOSED_LOSS"
	StatusClosedManual Status = "CLOSED_MANUAL"
)

// IsClosed reports whether the status is terminal
func (s Status) IsClosed() bool {
	return s != StatusOpen
}

// CloseReason describes why a position was closed
type CloseReason string

const (
	ReasonStopLoss   CloseReason = "STOP_LOSS"
	ReasonTakeProfit CloseReason = "TAKE_PROFIT"
	ReasonManual     CloseReason = "MANUAL"
)

// Open-time business rule violations
var (
	ErrDuplicatePosition   = errors.New("an open position already exists for this ticker")
	ErrInsufficientCapital = errors.New("investment amount exceeds available capital")
	ErrZeroQuantity        = errors.New("investment amount buys less than one share")
	ErrInvalidPrice        = errors.New("entry price must be positive")
)

// Position is one paper trade, open or closed. Closed positions are
// immutable history.
type Position struct {
	ID               int64       `json:"id"`
	Ticker           string      `json:"ticker"`
	Direction        Direction   `json:"direction"`
	EntryPrice       float64     `json:"entry_price"`
	CurrentPrice     float64     `json:"current_price"`
	StopLoss         float64     `json:"stop_loss"`
	TakeProfit       float64     `json:"take_profit"`
	Quantity         int64       `json:"quantity"`
	InvestmentAmount float64     `json:"investment_amount"`
	Status           Status      `json:"status"`
	PnL              float64     `json:"pnl"`
	PnLPercent       float64     `json:"pnl_percent"`
	Confidence       float64     `json:"confidence"`
	EntryReasons     []string    `json:"entry_reasons"`
	CloseReason      CloseReason `json:"close_reason,omitempty"`
	ExitPrice        float64     `json:"exit_price,omitempty"`
	OpenedAt         time.Time   `json:"opened_at"`
	ClosedAt         *time.Time  `json:"closed_at,omitempty"`
}

// clone returns a copy safe to hand to callers while the ledger keeps
// mutating its own record
func (p *Position) clone() *Position {
	cp := *p
	cp.EntryReasons = append([]string(nil), p.EntryReasons...)
	if p.ClosedAt != nil {
		t := *p.ClosedAt
		cp.ClosedAt = &t
	}
	return &cp
}

// Stats is a read-only aggregate of the ledger state
type Stats struct {
	InitialCapital     float64 `json:"initial_capital"`
	CurrentCapital     float64 `json:"current_capital"`
	TotalEquity        float64 `json:"total_equity"`
	OpenPositions      int     `json:"open_positions"`
	ClosedPositions    int     `json:"closed_positions"`
	WinningTrades      int     `json:"winning_trades"`
	LosingTrades       int     `json:"losing_trades"`
	WinRate            float64 `json:"win_rate"`
	TotalRealizedPnL   float64 `json:"total_realized_pnl"`
	TotalUnrealizedPnL float64 `json:"total_unrealized_pnl"`
	TotalPnL           float64 `json:"total_pnl"`
	TotalReturnPercent float64 `json:"total_return_percent"`
}
