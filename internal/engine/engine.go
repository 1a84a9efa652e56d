package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"egx-trading-bot/internal/events"
	"egx-trading-bot/internal/marketdata"
	"egx-trading-bot/internal/paper"
	"egx-trading-bot/internal/settings"
	"egx-trading-bot/internal/signal"
)

// Config holds the scheduling intervals
type Config struct {
	PriceInterval time.Duration
	ScanInterval  time.Duration
	Warmup        time.Duration
}

// DefaultConfig returns the standard loop intervals
func DefaultConfig() Config {
	return Config{
		PriceInterval: 60 * time.Second,
		ScanInterval:  300 * time.Second,
		Warmup:        10 * time.Second,
	}
}

// Engine drives the two periodic tasks: applying fresh prices to open
// positions and rescanning the universe for new entries. It holds no
// trading state of its own beyond the cached last scan.
type Engine struct {
	cfg      Config
	universe []string
	provider marketdata.Provider
	scorer   *signal.Scorer
	ledger   *paper.Ledger
	settings *settings.Service
	bus      *events.EventBus
	log      zerolog.Logger

	// Injectable for tests; defaults to the EGX session gate
	marketOpen func(time.Time) bool

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup

	scanMu     sync.RWMutex
	lastScan   []*signal.Signal
	lastScanAt time.Time
}

// New creates the trading engine
func New(cfg Config, universe []string, provider marketdata.Provider, scorer *signal.Scorer, ledger *paper.Ledger, svc *settings.Service, bus *events.EventBus, log zerolog.Logger) *Engine {
	return &Engine{
		cfg:        cfg,
		universe:   universe,
		provider:   provider,
		scorer:     scorer,
		ledger:     ledger,
		settings:   svc,
		bus:        bus,
		log:        log.With().Str("component", "engine").Logger(),
		marketOpen: marketdata.IsMarketOpen,
	}
}

// Start launches the periodic tasks after the warmup delay
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	e.running = true
	e.stopChan = make(chan struct{})

	e.wg.Add(2)
	go e.priceLoop()
	go e.scanLoop()

	e.log.Info().
		Dur("price_interval", e.cfg.PriceInterval).
		Dur("scan_interval", e.cfg.ScanInterval).
		Int("universe", len(e.universe)).
		Msg("engine started")
	e.bus.Publish(events.Event{Type: events.EventEngineStarted, Data: map[string]interface{}{}})
}

// Stop halts both loops and waits for in-flight cycles to finish
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stopChan)
	e.mu.Unlock()

	e.wg.Wait()
	e.log.Info().Msg("engine stopped")
	e.bus.Publish(events.Event{Type: events.EventEngineStopped, Data: map[string]interface{}{}})
}

func (e *Engine) priceLoop() {
	defer e.wg.Done()

	select {
	case <-time.After(e.cfg.Warmup):
	case <-e.stopChan:
		return
	}

	ticker := time.NewTicker(e.cfg.PriceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.UpdateOpenPositions(context.Background())
		case <-e.stopChan:
			return
		}
	}
}

func (e *Engine) scanLoop() {
	defer e.wg.Done()

	select {
	case <-time.After(e.cfg.Warmup):
	case <-e.stopChan:
		return
	}

	ticker := time.NewTicker(e.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.ScanOnce(context.Background())
		case <-e.stopChan:
			return
		}
	}
}

// UpdateOpenPositions fetches a fresh quote for every open position and
// applies it to the ledger. Quotes are fetched outside the ledger lock.
// A provider failure on one ticker never aborts the cycle.
func (e *Engine) UpdateOpenPositions(ctx context.Context) {
	for _, pos := range e.ledger.OpenPositions() {
		quote, err := e.provider.GetQuote(ctx, pos.Ticker)
		if err != nil {
			e.log.Warn().Err(err).Str("ticker", pos.Ticker).Msg("failed to fetch quote")
			continue
		}

		updated, err := e.ledger.UpdatePrice(ctx, pos.Ticker, quote.Price)
		if err != nil {
			e.log.Error().Err(err).Str("ticker", pos.Ticker).Msg("failed to apply price")
			continue
		}
		if updated != nil && updated.Status.IsClosed() {
			e.log.Info().
				Str("ticker", updated.Ticker).
				Str("status", string(updated.Status)).
				Float64("pnl", updated.PnL).
				Msg("position auto closed")
		}
	}
}

// ScanOnce runs one full scan cycle: score the universe, cache the
// results, and open positions for qualifying buy signals. Settings are
// snapshotted once at the start of the cycle. The whole cycle is skipped
// when auto trading is disabled, the market is closed, or the open trade
// limit is already reached; on-demand API scans are unaffected.
func (e *Engine) ScanOnce(ctx context.Context) {
	st := e.settings.Get()
	scanID := uuid.New().String()
	log := e.log.With().Str("scan_id", scanID).Logger()

	if !st.AutoTradeEnabled {
		log.Debug().Msg("auto trading disabled, skipping scan")
		return
	}
	if !e.marketGate()(time.Now()) {
		log.Debug().Msg("market closed, skipping scan")
		return
	}
	if open := e.ledger.OpenCount(); open >= st.MaxOpenTrades {
		log.Info().Int("open", open).Int("max", st.MaxOpenTrades).Msg("open trade limit reached, skipping scan")
		return
	}

	signals := e.scorer.ScanAll(ctx, e.universe)

	e.scanMu.Lock()
	e.lastScan = signals
	e.lastScanAt = time.Now()
	e.scanMu.Unlock()

	opened := e.openFromSignals(ctx, signals, st, log)

	log.Info().
		Int("scanned", len(e.universe)).
		Int("signals", len(signals)).
		Int("opened", opened).
		Msg("scan cycle completed")
	e.bus.PublishScanCompleted(scanID, len(e.universe), len(signals), opened)
}

func (e *Engine) openFromSignals(ctx context.Context, signals []*signal.Signal, st settings.Settings, log zerolog.Logger) int {
	opened := 0
	for _, sig := range signal.BuySignals(signals, st.MinConfidence) {
		if e.ledger.OpenCount() >= st.MaxOpenTrades {
			log.Info().Int("max", st.MaxOpenTrades).Msg("open trade limit reached")
			break
		}
		if _, exists := e.ledger.OpenPosition(sig.Ticker); exists {
			continue
		}

		pos, err := e.ledger.Open(ctx, paper.OpenParams{
			Ticker:     sig.Ticker,
			Direction:  paper.Long,
			EntryPrice: sig.SuggestedEntry,
			StopLoss:   sig.StopLoss,
			TakeProfit: sig.TakeProfit,
			Investment: st.TradeAmount,
			Confidence: sig.Confidence,
			Reasons:    sig.Reasons,
		})
		if err != nil {
			log.Warn().Err(err).Str("ticker", sig.Ticker).Msg("failed to open position")
			continue
		}

		opened++
		log.Info().
			Str("ticker", pos.Ticker).
			Float64("confidence", sig.Confidence).
			Float64("entry", pos.EntryPrice).
			Msg("opened position from signal")
	}
	return opened
}

// LastScan returns the cached signals from the most recent scan cycle
func (e *Engine) LastScan() ([]*signal.Signal, time.Time) {
	e.scanMu.RLock()
	defer e.scanMu.RUnlock()
	return e.lastScan, e.lastScanAt
}

// SetMarketGate replaces the market-hours check. Safe to call while the
// loops are running.
func (e *Engine) SetMarketGate(gate func(time.Time) bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.marketOpen = gate
}

func (e *Engine) marketGate() func(time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.marketOpen
}
