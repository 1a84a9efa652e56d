package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"egx-trading-bot/internal/paper"
)

// Repository implements paper.Store on top of PostgreSQL
type Repository struct {
	db  *DB
	log zerolog.Logger
}

// NewRepository creates a position repository
func NewRepository(db *DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("component", "repository").Logger(),
	}
}

// SavePosition upserts a position and the portfolio record in one
// transaction so capital never drifts from the position set on a crash
func (r *Repository) SavePosition(ctx context.Context, pos *paper.Position, port paper.Portfolio) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	reasons, err := json.Marshal(pos.EntryReasons)
	if err != nil {
		return fmt.Errorf("failed to encode entry reasons: %w", err)
	}

	var closeReason *string
	if pos.CloseReason != "" {
		s := string(pos.CloseReason)
		closeReason = &s
	}
	var exitPrice *float64
	if pos.Status.IsClosed() {
		p := pos.ExitPrice
		exitPrice = &p
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO positions (
			id, ticker, direction, entry_price, current_price, stop_loss,
			take_profit, quantity, investment_amount, status, pnl,
			pnl_percent, confidence, entry_reasons, close_reason,
			exit_price, opened_at, closed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		ON CONFLICT (id) DO UPDATE SET
			current_price = EXCLUDED.current_price,
			status = EXCLUDED.status,
			pnl = EXCLUDED.pnl,
			pnl_percent = EXCLUDED.pnl_percent,
			close_reason = EXCLUDED.close_reason,
			exit_price = EXCLUDED.exit_price,
			closed_at = EXCLUDED.closed_at`,
		pos.ID, pos.Ticker, string(pos.Direction), pos.EntryPrice,
		pos.CurrentPrice, pos.StopLoss, pos.TakeProfit, pos.Quantity,
		pos.InvestmentAmount, string(pos.Status), pos.PnL, pos.PnLPercent,
		pos.Confidence, reasons, closeReason, exitPrice, pos.OpenedAt,
		pos.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save position: %w", err)
	}

	if err := upsertPortfolio(ctx, tx, port); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func upsertPortfolio(ctx context.Context, tx pgx.Tx, port paper.Portfolio) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO portfolio (id, initial_capital, current_capital, last_updated)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			initial_capital = EXCLUDED.initial_capital,
			current_capital = EXCLUDED.current_capital,
			last_updated = EXCLUDED.last_updated`,
		port.InitialCapital, port.CurrentCapital, port.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to save portfolio: %w", err)
	}
	return nil
}

// LoadPositions returns the full trade history ordered by id
func (r *Repository) LoadPositions(ctx context.Context) ([]*paper.Position, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, ticker, direction, entry_price, current_price,
			stop_loss, take_profit, quantity, investment_amount, status,
			pnl, pnl_percent, confidence, entry_reasons, close_reason,
			exit_price, opened_at, closed_at
		FROM positions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []*paper.Position
	for rows.Next() {
		var (
			pos         paper.Position
			direction   string
			status      string
			reasons     []byte
			closeReason *string
			exitPrice   *float64
		)
		err := rows.Scan(
			&pos.ID, &pos.Ticker, &direction, &pos.EntryPrice,
			&pos.CurrentPrice, &pos.StopLoss, &pos.TakeProfit,
			&pos.Quantity, &pos.InvestmentAmount, &status, &pos.PnL,
			&pos.PnLPercent, &pos.Confidence, &reasons, &closeReason,
			&exitPrice, &pos.OpenedAt, &pos.ClosedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}

		pos.Direction = paper.Direction(direction)
		pos.Status = paper.Status(status)
		if closeReason != nil {
			pos.CloseReason = paper.CloseReason(*closeReason)
		}
		if exitPrice != nil {
			pos.ExitPrice = *exitPrice
		}
		if err := json.Unmarshal(reasons, &pos.EntryReasons); err != nil {
			r.log.Warn().Err(err).Int64("id", pos.ID).Msg("bad entry reasons payload")
		}

		positions = append(positions, &pos)
	}
	return positions, rows.Err()
}

// LoadPortfolio returns the portfolio record, nil when none exists yet
func (r *Repository) LoadPortfolio(ctx context.Context) (*paper.Portfolio, error) {
	var port paper.Portfolio
	err := r.db.Pool.QueryRow(ctx,
		`SELECT initial_capital, current_capital, last_updated FROM portfolio WHERE id = 1`,
	).Scan(&port.InitialCapital, &port.CurrentCapital, &port.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}
	return &port, nil
}

// Reset wipes all positions and rewrites the portfolio record
func (r *Repository) Reset(ctx context.Context, port paper.Portfolio) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM positions`); err != nil {
		return fmt.Errorf("failed to delete positions: %w", err)
	}
	if err := upsertPortfolio(ctx, tx, port); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}
	return nil
}

// SettingsRecord is the persisted runtime settings row
type SettingsRecord struct {
	AutoTradeEnabled bool
	MinConfidence    float64
	MaxOpenTrades    int
	TradeAmount      float64
	UpdatedAt        time.Time
}

// LoadSettings returns the settings row, nil when none has been saved
func (r *Repository) LoadSettings(ctx context.Context) (*SettingsRecord, error) {
	var rec SettingsRecord
	err := r.db.Pool.QueryRow(ctx, `
		SELECT auto_trade_enabled, min_confidence, max_open_trades,
			trade_amount, updated_at
		FROM settings WHERE id = 1`,
	).Scan(&rec.AutoTradeEnabled, &rec.MinConfidence, &rec.MaxOpenTrades,
		&rec.TradeAmount, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return &rec, nil
}

// SaveSettings upserts the settings row
func (r *Repository) SaveSettings(ctx context.Context, rec SettingsRecord) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO settings (id, auto_trade_enabled, min_confidence,
			max_open_trades, trade_amount, updated_at)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			auto_trade_enabled = EXCLUDED.auto_trade_enabled,
			min_confidence = EXCLUDED.min_confidence,
			max_open_trades = EXCLUDED.max_open_trades,
			trade_amount = EXCLUDED.trade_amount,
			updated_at = EXCLUDED.updated_at`,
		rec.AutoTradeEnabled, rec.MinConfidence, rec.MaxOpenTrades,
		rec.TradeAmount, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
