package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stocktribe/stocktribe/config"
)

// TrackedSymbols are the tickers every prediction covers. Order matters only
// for presentation; scoring compares per symbol.
var TrackedSymbols = []string{"AAPL", "MSFT", "GOOGL"}

// StockClient resolves whether each tracked ticker closed higher than it
// opened today, using the chart endpoint of the configured market API.
type StockClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewStockClient builds a client from configuration with a bounded timeout.
func NewStockClient() *StockClient {
	cfg := config.Get()
	return &StockClient{
		BaseURL:    cfg.MarketAPIBase,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Indicators struct {
				Quote []struct {
					Open  []float64 `json:"open"`
					Close []float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

// FetchStockResults returns symbol -> (close > open) for all tracked symbols.
// All-or-nothing: the first failing symbol aborts the whole resolution.
// Results are cached per calendar day in Redis, best-effort, so a retried
// scoring run does not refetch.
func (c *StockClient) FetchStockResults(ctx context.Context) (map[string]bool, error) {
	cacheKey := "stocks:outcome:" + time.Now().Format("2006-01-02")
	if b, ok := CacheGetBytes(cacheKey); ok {
		var cached map[string]bool
		if err := json.Unmarshal(b, &cached); err == nil && len(cached) == len(TrackedSymbols) {
			return cached, nil
		}
	}

	results := make(map[string]bool, len(TrackedSymbols))
	for _, symbol := range TrackedSymbols {
		up, err := c.fetchDirection(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", symbol, err)
		}
		results[symbol] = up
	}

	CacheSetJSON(cacheKey, results, 4*time.Hour)
	return results, nil
}

func (c *StockClient) fetchDirection(ctx context.Context, symbol string) (bool, error) {
	url := c.BaseURL + "/v8/finance/chart/" + symbol
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("User-Agent", "stocktribe/1.0")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("chart api returned status %d", resp.StatusCode)
	}

	var body chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, err
	}
	if len(body.Chart.Result) == 0 || len(body.Chart.Result[0].Indicators.Quote) == 0 {
		return false, errors.New("chart api response missing quote data")
	}
	quote := body.Chart.Result[0].Indicators.Quote[0]
	if len(quote.Open) == 0 || len(quote.Close) == 0 {
		return false, errors.New("chart api response missing open/close series")
	}
	return quote.Close[0] > quote.Open[0], nil
}
