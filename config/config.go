package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	MarketConfig       MarketConfig       `json:"market"`
	StrategyConfig     StrategyConfig     `json:"strategy"`
	TradingConfig      TradingConfig      `json:"trading"`
	ServerConfig       ServerConfig       `json:"server"`
	AuthConfig         AuthConfig         `json:"auth"`
	DatabaseConfig     DatabaseConfig     `json:"database"`
	RedisConfig        RedisConfig        `json:"redis"`
	LoggingConfig      LoggingConfig      `json:"logging"`
	NotificationConfig NotificationConfig `json:"notification"`
}

// Company is one instrument in the fixed trading universe.
type Company struct {
	Ticker     string `json:"ticker"`
	Name       string `json:"name"`
	ArabicName string `json:"arabic_name"`
	Sector     string `json:"sector"`
}

// MarketConfig holds the instrument universe and data-fetch settings
type MarketConfig struct {
	Companies      []Company `json:"companies"`
	HistoryBars    int       `json:"history_bars"`     // Bars to fetch for indicator computation
	Range          string    `json:"range"`            // Provider range parameter, e.g. "6mo"
	Interval       string    `json:"interval"`         // Bar interval, e.g. "1d"
	SeriesCacheTTL int       `json:"series_cache_ttl"` // Seconds to cache a fetched series
	QuoteCacheTTL  int       `json:"quote_cache_ttl"`  // Seconds to cache a latest quote
	MockMode       bool      `json:"mock_mode"`        // Use simulated data instead of the live provider
}

// StrategyConfig holds indicator periods and scoring thresholds
type StrategyConfig struct {
	RSIPeriod     int     `json:"rsi_period"`
	RSIOverbought float64 `json:"rsi_overbought"`
	RSIOversold   float64 `json:"rsi_oversold"`

	MACDFast   int `json:"macd_fast"`
	MACDSlow   int `json:"macd_slow"`
	MACDSignal int `json:"macd_signal"`

	BBPeriod int     `json:"bb_period"`
	BBStdDev float64 `json:"bb_std"`

	SMAShort int `json:"sma_short"`
	SMALong  int `json:"sma_long"`
	EMAShort int `json:"ema_short"`
	EMALong  int `json:"ema_long"`

	VolumePeriod         int     `json:"volume_ma_period"`
	VolumeSpikeThreshold float64 `json:"volume_spike_threshold"`

	StopLossPercent   float64 `json:"stop_loss_percent"`
	TakeProfitPercent float64 `json:"take_profit_percent"`
}

// TradingConfig holds paper-portfolio and auto-trade defaults. The runtime
// auto-trade settings live in the settings store; these values seed it on
// first start.
type TradingConfig struct {
	InitialCapital        float64 `json:"initial_capital"`
	AutoTradeEnabled      bool    `json:"auto_trade_enabled"`
	MinConfidence         int     `json:"min_confidence"`
	MaxOpenTrades         int     `json:"max_open_trades"`
	TradeAmount           float64 `json:"trade_amount"`
	UpdateIntervalSeconds int     `json:"update_interval_seconds"`
	ScanIntervalSeconds   int     `json:"scan_interval_seconds"`
	ScanWarmupSeconds     int     `json:"scan_warmup_seconds"`
}

type ServerConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	ProductionMode bool   `json:"production_mode"`
}

type AuthConfig struct {
	Enabled      bool   `json:"enabled"`
	PasswordHash string `json:"password_hash"` // bcrypt hash of the dashboard password
	JWTSecret    string `json:"jwt_secret"`
	TokenTTLMins int    `json:"token_ttl_minutes"`
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig holds Redis configuration for quote/series and settings caching
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Pretty bool   `json:"pretty"` // Human-readable console output instead of JSON
}

type NotificationConfig struct {
	Enabled  bool           `json:"enabled"`
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
}

type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

type DiscordConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhook_url"`
}

func Load() (*Config, error) {
	// First try to load base config from file
	cfg, err := loadFromFile("config.json")
	if err != nil {
		// If no config file, start from defaults
		cfg = &Config{}
	}

	applyDefaults(cfg)

	// Environment variable overrides take precedence
	applyEnvOverrides(cfg)

	return cfg, nil
}

func loadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filename, err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if len(cfg.MarketConfig.Companies) == 0 {
		cfg.MarketConfig.Companies = DefaultCompanies()
	}
	if cfg.MarketConfig.HistoryBars == 0 {
		cfg.MarketConfig.HistoryBars = 130 // roughly six months of daily bars
	}
	if cfg.MarketConfig.Range == "" {
		cfg.MarketConfig.Range = "6mo"
	}
	if cfg.MarketConfig.Interval == "" {
		cfg.MarketConfig.Interval = "1d"
	}
	if cfg.MarketConfig.SeriesCacheTTL == 0 {
		cfg.MarketConfig.SeriesCacheTTL = 900
	}
	if cfg.MarketConfig.QuoteCacheTTL == 0 {
		cfg.MarketConfig.QuoteCacheTTL = 120
	}

	s := &cfg.StrategyConfig
	if s.RSIPeriod == 0 {
		s.RSIPeriod = 14
	}
	if s.RSIOverbought == 0 {
		s.RSIOverbought = 70
	}
	if s.RSIOversold == 0 {
		s.RSIOversold = 30
	}
	if s.MACDFast == 0 {
		s.MACDFast = 12
	}
	if s.MACDSlow == 0 {
		s.MACDSlow = 26
	}
	if s.MACDSignal == 0 {
		s.MACDSignal = 9
	}
	if s.BBPeriod == 0 {
		s.BBPeriod = 20
	}
	if s.BBStdDev == 0 {
		s.BBStdDev = 2.0
	}
	if s.SMAShort == 0 {
		s.SMAShort = 20
	}
	if s.SMALong == 0 {
		s.SMALong = 50
	}
	if s.EMAShort == 0 {
		s.EMAShort = 12
	}
	if s.EMALong == 0 {
		s.EMALong = 26
	}
	if s.VolumePeriod == 0 {
		s.VolumePeriod = 20
	}
	if s.VolumeSpikeThreshold == 0 {
		s.VolumeSpikeThreshold = 1.5
	}
	if s.StopLossPercent == 0 {
		s.StopLossPercent = 5
	}
	if s.TakeProfitPercent == 0 {
		s.TakeProfitPercent = 10
	}

	t := &cfg.TradingConfig
	if t.InitialCapital == 0 {
		t.InitialCapital = 100000
	}
	if t.MinConfidence == 0 {
		t.MinConfidence = 65
	}
	if t.MaxOpenTrades == 0 {
		t.MaxOpenTrades = 100
	}
	if t.TradeAmount == 0 {
		t.TradeAmount = 1000
	}
	if t.UpdateIntervalSeconds == 0 {
		t.UpdateIntervalSeconds = 60
	}
	if t.ScanIntervalSeconds == 0 {
		t.ScanIntervalSeconds = 300
	}
	if t.ScanWarmupSeconds == 0 {
		t.ScanWarmupSeconds = 10
	}

	if cfg.ServerConfig.Host == "" {
		cfg.ServerConfig.Host = "0.0.0.0"
	}
	if cfg.ServerConfig.Port == 0 {
		cfg.ServerConfig.Port = 8080
	}

	if cfg.AuthConfig.TokenTTLMins == 0 {
		cfg.AuthConfig.TokenTTLMins = 720
	}

	if cfg.DatabaseConfig.Host == "" {
		cfg.DatabaseConfig.Host = "localhost"
	}
	if cfg.DatabaseConfig.Port == 0 {
		cfg.DatabaseConfig.Port = 5432
	}
	if cfg.DatabaseConfig.SSLMode == "" {
		cfg.DatabaseConfig.SSLMode = "disable"
	}

	if cfg.RedisConfig.Address == "" {
		cfg.RedisConfig.Address = "localhost:6379"
	}
	if cfg.RedisConfig.PoolSize == 0 {
		cfg.RedisConfig.PoolSize = 10
	}

	if cfg.LoggingConfig.Level == "" {
		cfg.LoggingConfig.Level = "info"
	}
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	cfg.MarketConfig.MockMode = getEnvOrDefault("MOCK_MODE", boolStr(cfg.MarketConfig.MockMode)) == "true"
	cfg.MarketConfig.Range = getEnvOrDefault("MARKET_RANGE", cfg.MarketConfig.Range)

	cfg.TradingConfig.InitialCapital = getEnvFloatOrDefault("INITIAL_CAPITAL", cfg.TradingConfig.InitialCapital)
	cfg.TradingConfig.AutoTradeEnabled = getEnvOrDefault("AUTO_TRADE_ENABLED", "true") == "true"

	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", cfg.ServerConfig.Port)
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", cfg.ServerConfig.Host)
	cfg.ServerConfig.ProductionMode = getEnvOrDefault("PRODUCTION_MODE", boolStr(cfg.ServerConfig.ProductionMode)) == "true"

	cfg.AuthConfig.Enabled = getEnvOrDefault("AUTH_ENABLED", boolStr(cfg.AuthConfig.Enabled)) == "true"
	cfg.AuthConfig.PasswordHash = getEnvOrDefault("AUTH_PASSWORD_HASH", cfg.AuthConfig.PasswordHash)
	cfg.AuthConfig.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.AuthConfig.JWTSecret)

	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", cfg.DatabaseConfig.Host)
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", cfg.DatabaseConfig.Port)
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", cfg.DatabaseConfig.User)
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", cfg.DatabaseConfig.Database)
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", cfg.DatabaseConfig.SSLMode)

	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", boolStr(cfg.RedisConfig.Enabled)) == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)

	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.Pretty = getEnvOrDefault("LOG_PRETTY", boolStr(cfg.LoggingConfig.Pretty)) == "true"

	cfg.NotificationConfig.Enabled = getEnvOrDefault("NOTIFICATIONS_ENABLED", boolStr(cfg.NotificationConfig.Enabled)) == "true"
	cfg.NotificationConfig.Telegram.Enabled = getEnvOrDefault("TELEGRAM_ENABLED", boolStr(cfg.NotificationConfig.Telegram.Enabled)) == "true"
	cfg.NotificationConfig.Telegram.BotToken = getEnvOrDefault("TELEGRAM_BOT_TOKEN", cfg.NotificationConfig.Telegram.BotToken)
	cfg.NotificationConfig.Telegram.ChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", cfg.NotificationConfig.Telegram.ChatID)
	cfg.NotificationConfig.Discord.Enabled = getEnvOrDefault("DISCORD_ENABLED", boolStr(cfg.NotificationConfig.Discord.Enabled)) == "true"
	cfg.NotificationConfig.Discord.WebhookURL = getEnvOrDefault("DISCORD_WEBHOOK_URL", cfg.NotificationConfig.Discord.WebhookURL)
}

// Tickers returns the tickers of the configured universe, in order.
func (m MarketConfig) Tickers() []string {
	tickers := make([]string, 0, len(m.Companies))
	for _, c := range m.Companies {
		tickers = append(tickers, c.Ticker)
	}
	return tickers
}

// Company returns the universe entry for a ticker, if present.
func (m MarketConfig) Company(ticker string) (Company, bool) {
	for _, c := range m.Companies {
		if c.Ticker == ticker {
			return c, true
		}
	}
	return Company{}, false
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// GenerateSampleConfig creates a sample configuration file
func GenerateSampleConfig(filename string) error {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.AuthConfig = AuthConfig{
		Enabled:      false,
		PasswordHash: "",
		JWTSecret:    "change_me",
		TokenTTLMins: 720,
	}
	cfg.DatabaseConfig = DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "egx_bot",
		Password: "egx_bot_password",
		Database: "egx_bot",
		SSLMode:  "disable",
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}
