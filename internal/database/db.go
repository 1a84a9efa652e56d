package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// DB wraps the pgx connection pool
type DB struct {
	Pool *pgxpool.Pool
	log  zerolog.Logger
}

// Connect establishes a connection pool to PostgreSQL
func Connect(ctx context.Context, connString string, log zerolog.Logger) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("database connected")
	return &DB{Pool: pool, log: log.With().Str("component", "database").Logger()}, nil
}

// Close shuts down the connection pool
func (db *DB) Close() {
	db.Pool.Close()
}

// Migrate creates the schema if it does not exist
func (db *DB) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS positions (
			id BIGINT PRIMARY KEY,
			ticker VARCHAR(20) NOT NULL,
			direction VARCHAR(10) NOT NULL,
			entry_price DOUBLE PRECISION NOT NULL,
			current_price DOUBLE PRECISION NOT NULL,
			stop_loss DOUBLE PRECISION NOT NULL,
			take_profit DOUBLE PRECISION NOT NULL,
			quantity BIGINT NOT NULL,
			investment_amount DOUBLE PRECISION NOT NULL,
			status VARCHAR(20) NOT NULL,
			pnl DOUBLE PRECISION NOT NULL DEFAULT 0,
			pnl_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			entry_reasons JSONB NOT NULL DEFAULT '[]',
			close_reason VARCHAR(20),
			exit_price DOUBLE PRECISION,
			opened_at TIMESTAMPTZ NOT NULL,
			closed_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_positions_ticker ON positions(ticker)`,
		`CREATE INDEX IF NOT EXISTS idx_positions_status ON positions(status)`,
		`CREATE TABLE IF NOT EXISTS portfolio (
			id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			initial_capital DOUBLE PRECISION NOT NULL,
			current_capital DOUBLE PRECISION NOT NULL,
			last_updated TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			auto_trade_enabled BOOLEAN NOT NULL,
			min_confidence DOUBLE PRECISION NOT NULL,
			max_open_trades INT NOT NULL,
			trade_amount DOUBLE PRECISION NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
	}

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	db.log.Info().Int("migrations", len(migrations)).Msg("schema migrations applied")
	return nil
}
