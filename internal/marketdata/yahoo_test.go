package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

// minimal valid chart payload with three daily bars
const chartFixture = `{
  "chart": {
    "result": [{
      "meta": {"regularMarketPrice": 52.5, "regularMarketTime": 1767168000, "chartPreviousClose": 51.0},
      "timestamp": [1766995200, 1767081600, 1767168000],
      "indicators": {"quote": [{
        "open":   [50.0, 51.0, 52.0],
        "high":   [50.5, 51.5, 52.5],
        "low":    [49.5, 50.5, 51.5],
        "close":  [50.2, 51.2, 52.2],
        "volume": [100000, 120000, 110000]
      }]}
    }],
    "error": null
  }
}`

func newChartServer(t *testing.T, paths *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*paths = append(*paths, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, chartFixture)
	}))
}

func TestYahooRequestsTickerSymbolOnce(t *testing.T) {
	var paths []string
	srv := newChartServer(t, &paths)
	defer srv.Close()

	client := NewYahooClient("", "", zerolog.Nop())
	client.baseURL = srv.URL

	if _, err := client.GetCandles(context.Background(), "COMI.CA", 60); err != nil {
		t.Fatalf("GetCandles failed: %v", err)
	}

	want := "/v8/finance/chart/COMI.CA"
	if len(paths) != 1 || paths[0] != want {
		t.Errorf("expected request path %q, got %v", want, paths)
	}
}

func TestYahooSuffixesBareTicker(t *testing.T) {
	var paths []string
	srv := newChartServer(t, &paths)
	defer srv.Close()

	client := NewYahooClient("", "", zerolog.Nop())
	client.baseURL = srv.URL

	if _, err := client.GetQuote(context.Background(), "COMI"); err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}

	want := "/v8/finance/chart/COMI.CA"
	if len(paths) != 1 || paths[0] != want {
		t.Errorf("expected request path %q, got %v", want, paths)
	}
}

func TestYahooGetCandlesParsesBars(t *testing.T) {
	var paths []string
	srv := newChartServer(t, &paths)
	defer srv.Close()

	client := NewYahooClient("", "", zerolog.Nop())
	client.baseURL = srv.URL

	candles, err := client.GetCandles(context.Background(), "SWDY.CA", 60)
	if err != nil {
		t.Fatalf("GetCandles failed: %v", err)
	}
	if len(candles) != 3 {
		t.Fatalf("expected 3 candles, got %d", len(candles))
	}
	if candles[2].Close != 52.2 || candles[2].Volume != 110000 {
		t.Errorf("unexpected last candle: %+v", candles[2])
	}
}
