package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"egx-trading-bot/config"
	"egx-trading-bot/internal/api"
	"egx-trading-bot/internal/auth"
	"egx-trading-bot/internal/database"
	"egx-trading-bot/internal/engine"
	"egx-trading-bot/internal/events"
	"egx-trading-bot/internal/indicators"
	"egx-trading-bot/internal/logging"
	"egx-trading-bot/internal/marketdata"
	"egx-trading-bot/internal/notification"
	"egx-trading-bot/internal/paper"
	"egx-trading-bot/internal/settings"
	sig "egx-trading-bot/internal/signal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(logging.Config{
		Level:  cfg.LoggingConfig.Level,
		Pretty: cfg.LoggingConfig.Pretty,
	})
	log.Info().Msg("starting EGX paper trading bot")

	ctx := context.Background()
	bus := events.NewEventBus()

	// Durable store
	db, err := database.Connect(ctx, connString(cfg), log)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}
	repo := database.NewRepository(db, log)

	// Optional Redis cache
	var rdb *redis.Client
	if cfg.RedisConfig.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
			PoolSize: cfg.RedisConfig.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, running without cache")
			rdb = nil
		}
	}

	// Market data provider
	var provider marketdata.Provider
	if cfg.MarketConfig.MockMode {
		log.Warn().Msg("mock mode enabled, using simulated market data")
		provider = marketdata.NewMockProvider(log)
	} else {
		provider = marketdata.NewYahooClient(cfg.MarketConfig.Range, cfg.MarketConfig.Interval, log)
	}
	if rdb != nil {
		provider = marketdata.NewCachedProvider(provider, rdb,
			time.Duration(cfg.MarketConfig.QuoteCacheTTL)*time.Second,
			time.Duration(cfg.MarketConfig.SeriesCacheTTL)*time.Second,
			log)
	}

	// Paper ledger
	ledger := paper.NewLedger(cfg.TradingConfig.InitialCapital, repo, bus, log)
	if err := ledger.Restore(ctx); err != nil {
		log.Fatal().Err(err).Msg("ledger restore failed")
	}

	// Runtime settings, seeded from config on first start
	settingsSvc := settings.New(settings.Settings{
		AutoTradeEnabled: cfg.TradingConfig.AutoTradeEnabled,
		MinConfidence:    float64(cfg.TradingConfig.MinConfidence),
		MaxOpenTrades:    cfg.TradingConfig.MaxOpenTrades,
		TradeAmount:      cfg.TradingConfig.TradeAmount,
	}, repo, rdb, bus, log)
	if err := settingsSvc.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("settings load failed")
	}

	// Notifications
	var notifiers []notification.Notifier
	if cfg.NotificationConfig.Enabled {
		if tg := cfg.NotificationConfig.Telegram; tg.Enabled && tg.BotToken != "" {
			notifiers = append(notifiers, notification.NewTelegramNotifier(tg.BotToken, tg.ChatID))
		}
		if dc := cfg.NotificationConfig.Discord; dc.Enabled && dc.WebhookURL != "" {
			notifiers = append(notifiers, notification.NewDiscordNotifier(dc.WebhookURL))
		}
	}
	notification.NewManager(log, notifiers...).AttachBus(bus)

	// Scoring and orchestration
	scorer := sig.NewScorer(provider, indicatorConfig(cfg), sig.ScorerParams{
		RSIOversold:   cfg.StrategyConfig.RSIOversold,
		RSIOverbought: cfg.StrategyConfig.RSIOverbought,
		StopLossPct:   cfg.StrategyConfig.StopLossPercent,
		TakeProfitPct: cfg.StrategyConfig.TakeProfitPercent,
		HistoryBars:   cfg.MarketConfig.HistoryBars,
	}, log)

	eng := engine.New(engine.Config{
		PriceInterval: time.Duration(cfg.TradingConfig.UpdateIntervalSeconds) * time.Second,
		ScanInterval:  time.Duration(cfg.TradingConfig.ScanIntervalSeconds) * time.Second,
		Warmup:        time.Duration(cfg.TradingConfig.ScanWarmupSeconds) * time.Second,
	}, cfg.MarketConfig.Tickers(), provider, scorer, ledger, settingsSvc, bus, log)
	eng.Start()
	defer eng.Stop()

	// API
	var authSvc *auth.Service
	if cfg.AuthConfig.Enabled {
		if cfg.AuthConfig.PasswordHash == "" || cfg.AuthConfig.JWTSecret == "" {
			log.Fatal().Msg("auth enabled but password_hash or jwt_secret missing")
		}
		authSvc = auth.New(cfg.AuthConfig.PasswordHash, cfg.AuthConfig.JWTSecret,
			time.Duration(cfg.AuthConfig.TokenTTLMins)*time.Minute)
	}

	server := api.NewServer(api.Deps{
		Config:   cfg,
		Hub:      api.NewWSHub(bus, log),
		Engine:   eng,
		Ledger:   ledger,
		Scorer:   scorer,
		Provider: provider,
		Settings: settingsSvc,
		Auth:     authSvc,
	}, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("api server failed")
		}
	case s := <-stop:
		log.Info().Str("signal", s.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}

func connString(cfg *config.Config) string {
	db := cfg.DatabaseConfig
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		db.User, db.Password, db.Host, db.Port, db.Database, db.SSLMode)
}

func indicatorConfig(cfg *config.Config) indicators.Config {
	strat := cfg.StrategyConfig
	return indicators.Config{
		RSIPeriod:        strat.RSIPeriod,
		MACDFast:         strat.MACDFast,
		MACDSlow:         strat.MACDSlow,
		MACDSignal:       strat.MACDSignal,
		BBPeriod:         strat.BBPeriod,
		BBStdDev:         strat.BBStdDev,
		SMAShort:         strat.SMAShort,
		SMALong:          strat.SMALong,
		EMAShort:         strat.EMAShort,
		EMALong:          strat.EMALong,
		VolumeMAPeriod:   strat.VolumePeriod,
		VolumeSpikeRatio: strat.VolumeSpikeThreshold,
	}
}
