package paper

import (
	"context"
	"time"
)

// Portfolio is the durable capital record
type Portfolio struct {
	InitialCapital float64   `json:"initial_capital"`
	CurrentCapital float64   `json:"current_capital"`
	LastUpdated    time.Time `json:"last_updated"`
}

// Store persists positions and the portfolio record. SavePosition
// writes the position and the portfolio in one transaction so a crash
// cannot leave capital out of step with the position set.
type Store interface {
	SavePosition(ctx context.Context, pos *Position, port Portfolio) error
	LoadPositions(ctx context.Context) ([]*Position, error)
	LoadPortfolio(ctx context.Context) (*Portfolio, error)
	Reset(ctx context.Context, port Portfolio) error
}
