package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"egx-trading-bot/internal/auth"
	"egx-trading-bot/internal/indicators"
	"egx-trading-bot/internal/marketdata"
	"egx-trading-bot/internal/paper"
	"egx-trading-bot/internal/settings"
	"egx-trading-bot/internal/signal"
)

func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

func (s *Server) handleHealth(c *gin.Context) {
	successResponse(c, gin.H{
		"status":      "ok",
		"market_open": marketdata.IsMarketOpen(time.Now()),
		"ws_clients":  s.hub.ClientCount(),
		"time":        time.Now(),
	})
}

func (s *Server) handleLogin(c *gin.Context) {
	if s.auth == nil {
		errorResponse(c, http.StatusNotFound, "authentication is not enabled")
		return
	}

	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "password is required")
		return
	}

	token, err := s.auth.Login(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			errorResponse(c, http.StatusUnauthorized, "invalid credentials")
			return
		}
		errorResponse(c, http.StatusInternalServerError, "login failed")
		return
	}
	successResponse(c, gin.H{"token": token})
}

func (s *Server) handleCompanies(c *gin.Context) {
	companies := make([]gin.H, 0, len(s.cfg.MarketConfig.Companies))
	for _, co := range s.cfg.MarketConfig.Companies {
		companies = append(companies, gin.H{
			"ticker":      co.Ticker,
			"name":        co.Name,
			"arabic_name": co.ArabicName,
			"sector":      co.Sector,
		})
	}
	successResponse(c, companies)
}

func (s *Server) handleMarketSummary(c *gin.Context) {
	signals := s.cachedSignals(c)
	_, scannedAt := s.engine.LastScan()

	var buys, sells, holds int
	tickers := make([]gin.H, 0, len(signals))
	for _, sig := range signals {
		switch {
		case sig.Direction.IsBuy():
			buys++
		case sig.Direction.IsSell():
			sells++
		default:
			holds++
		}

		entry := gin.H{
			"ticker":     sig.Ticker,
			"price":      sig.ReferencePrice,
			"direction":  sig.Direction,
			"confidence": sig.Confidence,
		}
		if co, ok := s.cfg.MarketConfig.Company(sig.Ticker); ok {
			entry["arabic_name"] = co.ArabicName
		}
		tickers = append(tickers, entry)
	}

	stats := s.ledger.Stats()
	successResponse(c, gin.H{
		"market_open":    marketdata.IsMarketOpen(time.Now()),
		"universe_size":  len(s.cfg.MarketConfig.Companies),
		"last_scan_at":   scannedAt,
		"buy_signals":    buys,
		"sell_signals":   sells,
		"hold_signals":   holds,
		"tickers":        tickers,
		"open_positions": stats.OpenPositions,
		"total_equity":   stats.TotalEquity,
	})
}

func (s *Server) handleStock(c *gin.Context) {
	ticker := c.Param("ticker")
	company, ok := s.cfg.MarketConfig.Company(ticker)
	if !ok {
		errorResponse(c, http.StatusNotFound, "unknown ticker")
		return
	}

	sig, err := s.scorer.Score(c.Request.Context(), ticker)
	if err != nil {
		errorResponse(c, http.StatusBadGateway, "failed to fetch market data")
		return
	}
	if sig == nil {
		errorResponse(c, http.StatusNotFound, "not enough price history for this ticker")
		return
	}

	payload := s.signalJSON(sig)
	payload["name"] = company.Name
	payload["arabic_name"] = company.ArabicName
	payload["sector"] = company.Sector
	payload["indicators"] = sig.Snapshot
	successResponse(c, payload)
}

func (s *Server) cachedSignals(c *gin.Context) []*signal.Signal {
	signals, _ := s.engine.LastScan()
	if len(signals) == 0 || c.Query("refresh") == "true" {
		signals = s.scorer.ScanAll(c.Request.Context(), s.cfg.MarketConfig.Tickers())
	}
	return signals
}

func (s *Server) handleSignals(c *gin.Context) {
	signals := s.cachedSignals(c)
	out := make([]gin.H, 0, len(signals))
	for _, sig := range signals {
		out = append(out, s.signalJSON(sig))
	}
	successResponse(c, out)
}

func (s *Server) handleBuySignals(c *gin.Context) {
	minConf := s.settings.Get().MinConfidence
	if v, err := strconv.ParseFloat(c.Query("min_confidence"), 64); err == nil {
		minConf = v
	}

	filtered := signal.BuySignals(s.cachedSignals(c), minConf)
	out := make([]gin.H, 0, len(filtered))
	for _, sig := range filtered {
		out = append(out, s.signalJSON(sig))
	}
	successResponse(c, out)
}

func (s *Server) handleSellSignals(c *gin.Context) {
	minConf := s.settings.Get().MinConfidence
	if v, err := strconv.ParseFloat(c.Query("min_confidence"), 64); err == nil {
		minConf = v
	}

	filtered := signal.SellSignals(s.cachedSignals(c), minConf)
	out := make([]gin.H, 0, len(filtered))
	for _, sig := range filtered {
		out = append(out, s.signalJSON(sig))
	}
	successResponse(c, out)
}

func (s *Server) handleTrades(c *gin.Context) {
	var positions []*paper.Position
	switch c.Query("type") {
	case "open":
		positions = s.ledger.OpenPositions()
	case "closed":
		for _, pos := range s.ledger.History() {
			if pos.Status.IsClosed() {
				positions = append(positions, pos)
			}
		}
	default:
		positions = s.ledger.History()
	}

	out := make([]gin.H, 0, len(positions))
	for _, pos := range positions {
		out = append(out, s.positionJSON(pos))
	}
	successResponse(c, out)
}

func (s *Server) handlePortfolio(c *gin.Context) {
	successResponse(c, s.ledger.Stats())
}

func (s *Server) handleOpenTrade(c *gin.Context) {
	var req struct {
		Ticker string  `json:"ticker" binding:"required"`
		Amount float64 `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "ticker is required")
		return
	}
	if _, ok := s.cfg.MarketConfig.Company(req.Ticker); !ok {
		errorResponse(c, http.StatusNotFound, "unknown ticker")
		return
	}

	amount := req.Amount
	if amount <= 0 {
		amount = s.settings.Get().TradeAmount
	}

	price, err := s.currentPrice(c, req.Ticker)
	if err != nil {
		errorResponse(c, http.StatusBadGateway, "no price available for this ticker")
		return
	}

	strat := s.cfg.StrategyConfig
	pos, err := s.ledger.Open(c.Request.Context(), paper.OpenParams{
		Ticker:     req.Ticker,
		Direction:  paper.Long,
		EntryPrice: price,
		StopLoss:   price * (1 - strat.StopLossPercent/100),
		TakeProfit: price * (1 + strat.TakeProfitPercent/100),
		Investment: amount,
		Reasons:    []string{"manual entry"},
	})
	if err != nil {
		switch {
		case errors.Is(err, paper.ErrDuplicatePosition):
			errorResponse(c, http.StatusConflict, "an open position already exists for this ticker")
		case errors.Is(err, paper.ErrInsufficientCapital):
			errorResponse(c, http.StatusBadRequest, "insufficient capital")
		case errors.Is(err, paper.ErrZeroQuantity):
			errorResponse(c, http.StatusBadRequest, "amount buys less than one share")
		case errors.Is(err, paper.ErrInvalidPrice):
			errorResponse(c, http.StatusBadRequest, "no valid price for ticker")
		default:
			errorResponse(c, http.StatusInternalServerError, "failed to open position")
		}
		return
	}
	successResponse(c, s.positionJSON(pos))
}

func (s *Server) handleCloseTrade(c *gin.Context) {
	ticker := c.Param("ticker")

	var req struct {
		Price float64 `json:"price"`
	}
	// Body is optional; a missing price falls back to the live quote
	_ = c.ShouldBindJSON(&req)

	price := req.Price
	if price <= 0 {
		var err error
		if price, err = s.currentPrice(c, ticker); err != nil {
			errorResponse(c, http.StatusBadGateway, "no price available for this ticker")
			return
		}
	}

	pos, err := s.ledger.Close(c.Request.Context(), ticker, price, paper.ReasonManual)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to close position")
		return
	}
	if pos == nil {
		errorResponse(c, http.StatusNotFound, "no open position for this ticker")
		return
	}
	successResponse(c, s.positionJSON(pos))
}

func (s *Server) handleResetPortfolio(c *gin.Context) {
	var req struct {
		Capital float64 `json:"capital"`
	}
	_ = c.ShouldBindJSON(&req)

	capital := req.Capital
	if capital <= 0 {
		capital = s.cfg.TradingConfig.InitialCapital
	}

	if err := s.ledger.Reset(c.Request.Context(), capital); err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to reset portfolio")
		return
	}
	successResponse(c, s.ledger.Stats())
}

func (s *Server) handleGetSettings(c *gin.Context) {
	successResponse(c, s.settings.Get())
}

func (s *Server) handleUpdateSettings(c *gin.Context) {
	var req settings.Settings
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid settings payload")
		return
	}

	if err := s.settings.Update(c.Request.Context(), req); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	successResponse(c, s.settings.Get())
}

// currentPrice fetches the latest quote, falling back to the last
// daily close when no live quote is available
func (s *Server) currentPrice(c *gin.Context, ticker string) (float64, error) {
	ctx := c.Request.Context()

	quote, err := s.provider.GetQuote(ctx, ticker)
	if err == nil && quote.Price > 0 {
		return quote.Price, nil
	}

	candles, err := s.provider.GetCandles(ctx, ticker, indicators.DefaultConfig().SMALong)
	if err != nil || len(candles) == 0 {
		return 0, marketdata.ErrNoData
	}
	return candles[len(candles)-1].Close, nil
}

func (s *Server) signalJSON(sig *signal.Signal) gin.H {
	payload := gin.H{
		"ticker":          sig.Ticker,
		"direction":       sig.Direction,
		"direction_label": signalLabel(sig.Direction),
		"confidence":      sig.Confidence,
		"price":           sig.ReferencePrice,
		"suggested_entry": sig.SuggestedEntry,
		"stop_loss":       sig.StopLoss,
		"take_profit":     sig.TakeProfit,
		"reasons":         sig.Reasons,
		"generated_at":    sig.GeneratedAt,
	}
	if co, ok := s.cfg.MarketConfig.Company(sig.Ticker); ok {
		payload["name"] = co.Name
		payload["arabic_name"] = co.ArabicName
	}
	return payload
}

func (s *Server) positionJSON(pos *paper.Position) gin.H {
	payload := gin.H{
		"id":                pos.ID,
		"ticker":            pos.Ticker,
		"direction":         pos.Direction,
		"direction_label":   directionLabel(pos.Direction),
		"status":            pos.Status,
		"status_label":      statusLabel(pos.Status),
		"entry_price":       pos.EntryPrice,
		"current_price":     pos.CurrentPrice,
		"stop_loss":         pos.StopLoss,
		"take_profit":       pos.TakeProfit,
		"quantity":          pos.Quantity,
		"investment_amount": pos.InvestmentAmount,
		"pnl":               pos.PnL,
		"pnl_percent":       pos.PnLPercent,
		"confidence":        pos.Confidence,
		"entry_reasons":     pos.EntryReasons,
		"opened_at":         pos.OpenedAt,
	}
	if pos.Status.IsClosed() {
		payload["close_reason"] = pos.CloseReason
		payload["exit_price"] = pos.ExitPrice
		payload["closed_at"] = pos.ClosedAt
	}
	if co, ok := s.cfg.MarketConfig.Company(pos.Ticker); ok {
		payload["name"] = co.Name
		payload["arabic_name"] = co.ArabicName
	}
	return payload
}
