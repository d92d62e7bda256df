package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/config"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/dataset"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/pipeline"
)

// MarketDataExtractor pulls daily OHLCV series from an Alpha Vantage
// style HTTP API.
type MarketDataExtractor struct {
	client *resty.Client
	apiKey string
}

// NewMarketDataExtractor creates an extractor for the market data API.
//
// Parameters:
//   - cfg: base URL, API key and request timeout
//
// Returns:
//   - *MarketDataExtractor: configured extractor
func NewMarketDataExtractor(cfg *config.MarketDataConfig) *MarketDataExtractor {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetTimeout(cfg.Timeout)
	client.SetRetryCount(3)
	client.SetRetryWaitTime(2 * time.Second)

	return &MarketDataExtractor{
		client: client,
		apiKey: cfg.APIKey,
	}
}

func (e *MarketDataExtractor) Name() string {
	return "market_data_api"
}

// dailySeriesResponse mirrors the TIME_SERIES_DAILY payload.
type dailySeriesResponse struct {
	ErrorMessage string                       `json:"Error Message,omitempty"`
	Note         string                       `json:"Note,omitempty"`
	Series       map[string]map[string]string `json:"Time Series (Daily)"`
}

// Extract fetches the daily series for every symbol in params and
// concatenates them into a single dataset.
//
// Params:
//   - symbols: []string of ticker symbols, required
func (e *MarketDataExtractor) Extract(ctx context.Context, params pipeline.Params) (*dataset.Dataset, error) {
	symbols, err := symbolList(params)
	if err != nil {
		return nil, err
	}

	columns := []string{"symbol", "trade_date", "open_price", "high_price", "low_price", "close_price", "volume"}
	rows := make([]map[string]interface{}, 0)

	for _, symbol := range symbols {
		series, err := e.fetchDailySeries(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("symbol %s: %w", symbol, err)
		}
		rows = append(rows, series...)
	}

	return dataset.FromRows(columns, rows)
}

func (e *MarketDataExtractor) fetchDailySeries(ctx context.Context, symbol string) ([]map[string]interface{}, error) {
	resp, err := e.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function": "TIME_SERIES_DAILY",
			"symbol":   symbol,
			"apikey":   e.apiKey,
		}).
		Get("/query")

	if err != nil {
		return nil, fmt.Errorf("failed to call market data API: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("market data API error: status %d", resp.StatusCode())
	}

	return parseDailySeries(symbol, resp.Body())
}

// parseDailySeries decodes a TIME_SERIES_DAILY body into row maps
// sorted ascending by trade date.
func parseDailySeries(symbol string, body []byte) ([]map[string]interface{}, error) {
	var payload dailySeriesResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode market data response: %w", err)
	}
	if payload.ErrorMessage != "" {
		return nil, fmt.Errorf("market data API error: %s", payload.ErrorMessage)
	}
	if payload.Note != "" {
		return nil, fmt.Errorf("market data API throttled: %s", payload.Note)
	}
	if len(payload.Series) == 0 {
		return nil, fmt.Errorf("market data API returned no daily series")
	}

	dates := make([]string, 0, len(payload.Series))
	for date := range payload.Series {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	rows := make([]map[string]interface{}, 0, len(dates))
	for _, date := range dates {
		bar := payload.Series[date]
		rows = append(rows, map[string]interface{}{
			"symbol":      symbol,
			"trade_date":  date,
			"open_price":  parseBarField(bar["1. open"]),
			"high_price":  parseBarField(bar["2. high"]),
			"low_price":   parseBarField(bar["3. low"]),
			"close_price": parseBarField(bar["4. close"]),
			"volume":      parseBarVolume(bar["5. volume"]),
		})
	}
	return rows, nil
}

func parseBarField(s string) interface{} {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return f
}

func parseBarVolume(s string) interface{} {
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return n
}

func symbolList(params pipeline.Params) ([]string, error) {
	raw, ok := params["symbols"]
	if !ok {
		return nil, fmt.Errorf("missing required param: symbols")
	}
	switch v := raw.(type) {
	case []string:
		if len(v) == 0 {
			return nil, fmt.Errorf("param symbols must not be empty")
		}
		return v, nil
	case string:
		return []string{v}, nil
	case []interface{}:
		// JSON request bodies decode lists this way.
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("param symbols must contain strings, got %T", item)
			}
			out = append(out, s)
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("param symbols must not be empty")
		}
		return out, nil
	default:
		return nil, fmt.Errorf("param symbols has unsupported type %T", raw)
	}
}
