package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooClient fetches EGX price data from the Yahoo Finance chart API.
// EGX tickers are suffixed with .CA (Cairo) on Yahoo.
type YahooClient struct {
	baseURL    string
	rng        string
	interval   string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewYahooClient creates a Yahoo Finance market data client. rng and
// interval are the chart window for history fetches, e.g. "6mo"/"1d".
func NewYahooClient(rng, interval string, log zerolog.Logger) *YahooClient {
	if rng == "" {
		rng = "6mo"
	}
	if interval == "" {
		interval = "1d"
	}
	return &YahooClient{
		baseURL:  yahooBaseURL,
		rng:      rng,
		interval: interval,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log.With().Str("component", "yahoo").Logger(),
	}
}

// chartResponse mirrors the subset of the v8 chart payload we consume
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (c *YahooClient) fetchChart(ctx context.Context, ticker, rng, interval string) (*chartResponse, error) {
	// Universe tickers already carry the .CA suffix; accept bare ones too
	symbol := ticker
	if !strings.HasSuffix(symbol, ".CA") {
		symbol += ".CA"
	}
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s", c.baseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	q := req.URL.Query()
	q.Set("range", rng)
	q.Set("interval", interval)
	req.URL.RawQuery = q.Encode()

	// Yahoo rejects requests without a browser-like user agent
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoData
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart request returned status %d: %s", resp.StatusCode, string(body))
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("failed to decode chart response: %w", err)
	}

	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error %s: %s", chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, ErrNoData
	}

	return &chart, nil
}

// GetCandles returns up to bars daily candles for an EGX ticker, oldest first
func (c *YahooClient) GetCandles(ctx context.Context, ticker string, bars int) ([]Candle, error) {
	chart, err := c.fetchChart(ctx, ticker, c.rng, c.interval)
	if err != nil {
		return nil, err
	}

	result := chart.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil, ErrNoData
	}

	quote := result.Indicators.Quote[0]
	candles := make([]Candle, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		// Yahoo pads missing sessions with nulls; skip incomplete bars
		if i >= len(quote.Close) || quote.Close[i] == nil ||
			quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil {
			continue
		}
		var vol float64
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			vol = *quote.Volume[i]
		}
		candles = append(candles, Candle{
			Timestamp: time.Unix(ts, 0).In(cairoTZ),
			Open:      *quote.Open[i],
			High:      *quote.High[i],
			Low:       *quote.Low[i],
			Close:     *quote.Close[i],
			Volume:    vol,
		})
	}

	if len(candles) == 0 {
		return nil, ErrNoData
	}
	if bars > 0 && len(candles) > bars {
		candles = candles[len(candles)-bars:]
	}

	c.log.Debug().Str("ticker", ticker).Int("bars", len(candles)).Msg("fetched candles")
	return candles, nil
}

// GetQuote returns the latest traded price for an EGX ticker
func (c *YahooClient) GetQuote(ctx context.Context, ticker string) (*Quote, error) {
	chart, err := c.fetchChart(ctx, ticker, "1d", "1m")
	if err != nil {
		return nil, err
	}

	meta := chart.Chart.Result[0].Meta
	if meta.RegularMarketPrice == 0 {
		return nil, ErrNoData
	}

	q := &Quote{
		Ticker:    ticker,
		Price:     meta.RegularMarketPrice,
		Timestamp: time.Unix(meta.RegularMarketTime, 0).In(cairoTZ),
	}
	if meta.ChartPreviousClose > 0 {
		q.Change = meta.RegularMarketPrice - meta.ChartPreviousClose
		q.ChangePercent = q.Change / meta.ChartPreviousClose * 100
	}

	return q, nil
}
