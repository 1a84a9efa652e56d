package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"egx-trading-bot/config"
	"egx-trading-bot/internal/auth"
	"egx-trading-bot/internal/engine"
	"egx-trading-bot/internal/marketdata"
	"egx-trading-bot/internal/paper"
	"egx-trading-bot/internal/settings"
	"egx-trading-bot/internal/signal"
)

// Server exposes the REST and WebSocket API for the dashboard
type Server struct {
	cfg      *config.Config
	router   *gin.Engine
	http     *http.Server
	hub      *WSHub
	engine   *engine.Engine
	ledger   *paper.Ledger
	scorer   *signal.Scorer
	provider marketdata.Provider
	settings *settings.Service
	auth     *auth.Service
	log      zerolog.Logger
}

// Deps collects the server's collaborators
type Deps struct {
	Config   *config.Config
	Hub      *WSHub
	Engine   *engine.Engine
	Ledger   *paper.Ledger
	Scorer   *signal.Scorer
	Provider marketdata.Provider
	Settings *settings.Service
	Auth     *auth.Service
}

// NewServer creates the API server and registers all routes
func NewServer(deps Deps, log zerolog.Logger) *Server {
	if deps.Config.ServerConfig.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:      deps.Config,
		hub:      deps.Hub,
		engine:   deps.Engine,
		ledger:   deps.Ledger,
		scorer:   deps.Scorer,
		provider: deps.Provider,
		settings: deps.Settings,
		auth:     deps.Auth,
		log:      log.With().Str("component", "api").Logger(),
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsCfg))

	s.router = router
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/api/health", s.handleHealth)
	s.router.GET("/ws", s.handleWebSocket)

	api := s.router.Group("/api")
	{
		api.POST("/auth/login", s.handleLogin)

		api.GET("/companies", s.handleCompanies)
		api.GET("/market/summary", s.handleMarketSummary)
		api.GET("/stock/:ticker", s.handleStock)

		api.GET("/signals", s.handleSignals)
		api.GET("/signals/buy", s.handleBuySignals)
		api.GET("/signals/sell", s.handleSellSignals)

		api.GET("/trades", s.handleTrades)
		api.GET("/portfolio", s.handlePortfolio)
		api.GET("/settings", s.handleGetSettings)
	}

	// Mutations require a token when auth is configured
	protected := s.router.Group("/api")
	if s.auth != nil {
		protected.Use(s.auth.Middleware())
	}
	{
		protected.POST("/trades/open", s.handleOpenTrade)
		protected.POST("/trades/close/:ticker", s.handleCloseTrade)
		protected.POST("/trades/reset", s.handleResetPortfolio)
		protected.POST("/settings", s.handleUpdateSettings)
	}
}

// Start begins serving; blocks until the listener fails or closes
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.ServerConfig.Host, s.cfg.ServerConfig.Port)
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.log.Info().Str("addr", addr).Msg("api server listening")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Router exposes the handler for tests
func (s *Server) Router() http.Handler {
	return s.router
}
