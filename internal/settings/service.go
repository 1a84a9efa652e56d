package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"egx-trading-bot/internal/database"
	"egx-trading-bot/internal/events"
)

const cacheKey = "settings:runtime"

// Settings are the runtime trading controls, adjustable without a restart
type Settings struct {
	AutoTradeEnabled bool    `json:"auto_trade_enabled"`
	MinConfidence    float64 `json:"min_confidence"`
	MaxOpenTrades    int     `json:"max_open_trades"`
	TradeAmount      float64 `json:"trade_amount"`
}

// Validate checks the settings ranges
func (s Settings) Validate() error {
	if s.MinConfidence < 0 || s.MinConfidence > 100 {
		return fmt.Errorf("min_confidence must be between 0 and 100, got %.1f", s.MinConfidence)
	}
	if s.MaxOpenTrades < 1 {
		return fmt.Errorf("max_open_trades must be at least 1, got %d", s.MaxOpenTrades)
	}
	if s.TradeAmount <= 0 {
		return fmt.Errorf("trade_amount must be positive, got %.2f", s.TradeAmount)
	}
	return nil
}

// Store persists settings between restarts
type Store interface {
	LoadSettings(ctx context.Context) (*database.SettingsRecord, error)
	SaveSettings(ctx context.Context, rec database.SettingsRecord) error
}

// Service owns the runtime settings. Reads return a copy so each
// trading cycle works from a stable snapshot.
type Service struct {
	mu      sync.RWMutex
	current Settings

	store Store
	rdb   *redis.Client
	bus   *events.EventBus
	log   zerolog.Logger
}

// New creates a settings service seeded with defaults. Pass a nil rdb
// to run without the cache.
func New(defaults Settings, store Store, rdb *redis.Client, bus *events.EventBus, log zerolog.Logger) *Service {
	return &Service{
		current: defaults,
		store:   store,
		rdb:     rdb,
		bus:     bus,
		log:     log.With().Str("component", "settings").Logger(),
	}
}

// Load restores persisted settings, keeping defaults when none exist
func (s *Service) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	rec, err := s.store.LoadSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if rec == nil {
		return nil
	}

	s.mu.Lock()
	s.current = Settings{
		AutoTradeEnabled: rec.AutoTradeEnabled,
		MinConfidence:    rec.MinConfidence,
		MaxOpenTrades:    rec.MaxOpenTrades,
		TradeAmount:      rec.TradeAmount,
	}
	s.mu.Unlock()

	s.cacheWrite(ctx)
	s.log.Info().Msg("settings restored")
	return nil
}

// Get returns a copy of the current settings
func (s *Service) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update validates, persists and applies new settings
func (s *Service) Update(ctx context.Context, next Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}

	if s.store != nil {
		rec := database.SettingsRecord{
			AutoTradeEnabled: next.AutoTradeEnabled,
			MinConfidence:    next.MinConfidence,
			MaxOpenTrades:    next.MaxOpenTrades,
			TradeAmount:      next.TradeAmount,
			UpdatedAt:        time.Now(),
		}
		if err := s.store.SaveSettings(ctx, rec); err != nil {
			return fmt.Errorf("failed to persist settings: %w", err)
		}
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()

	s.cacheWrite(ctx)

	s.log.Info().
		Bool("auto_trade", next.AutoTradeEnabled).
		Float64("min_confidence", next.MinConfidence).
		Int("max_open_trades", next.MaxOpenTrades).
		Float64("trade_amount", next.TradeAmount).
		Msg("settings updated")

	if s.bus != nil {
		s.bus.Publish(events.Event{
			Type: events.EventSettingsUpdated,
			Data: map[string]interface{}{
				"auto_trade_enabled": next.AutoTradeEnabled,
				"min_confidence":     next.MinConfidence,
				"max_open_trades":    next.MaxOpenTrades,
				"trade_amount":       next.TradeAmount,
			},
		})
	}
	return nil
}

// cacheWrite mirrors the settings into Redis for other consumers.
// Cache failures are logged, never surfaced.
func (s *Service) cacheWrite(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	data, err := json.Marshal(s.Get())
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, cacheKey, data, 0).Err(); err != nil {
		s.log.Debug().Err(err).Msg("settings cache write failed")
	}
}
