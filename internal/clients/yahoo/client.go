package yahoo

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfolio/pulse/internal/domain"
	"github.com/quantfolio/pulse/internal/modules/schema"
)

// Client is a Yahoo Finance API client
type Client struct {
	client  *http.Client
	baseURL string
	log     zerolog.Logger
}

// NewClient creates a new Yahoo Finance client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: "https://query1.finance.yahoo.com",
		log:     log.With().Str("client", "yahoo").Logger(),
	}
}

// NewClientWithBaseURL creates a client against a custom endpoint, used in tests.
func NewClientWithBaseURL(baseURL string, log zerolog.Logger) *Client {
	c := NewClient(log)
	c.baseURL = baseURL
	return c
}

// GetYahooSymbol converts an exchange-suffixed ticker to its Yahoo Finance symbol.
// Examples: AAPL.US -> AAPL, 7203.JP -> 7203.T, BASF.DE stays as-is.
func GetYahooSymbol(symbol string) string {
	if strings.HasSuffix(symbol, ".US") {
		return strings.TrimSuffix(symbol, ".US")
	}
	if strings.HasSuffix(symbol, ".JP") {
		// Japanese stocks use .T suffix on Yahoo
		return strings.TrimSuffix(symbol, ".JP") + ".T"
	}
	return symbol
}

// GetHistoricalPrices fetches daily OHLCV data from the Yahoo chart API.
//
// Supports ranges: 1d, 5d, 1mo, 3mo, 6mo, 1y, 2y, 5y, 10y, ytd, max.
// Rows where every OHLC field is zero are Yahoo nulls and are skipped.
func (c *Client) GetHistoricalPrices(symbol string, period string) ([]HistoricalPrice, error) {
	yfSymbol := GetYahooSymbol(symbol)

	params := url.Values{}
	params.Add("interval", "1d")
	params.Add("range", period)

	reqURL := c.baseURL + "/v8/finance/chart/" + url.QueryEscape(yfSymbol) + "?" + params.Encode()

	req, err := http.NewRequest("GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers to mimic browser
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch historical data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Yahoo Finance API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var result chartResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Chart.Error != nil {
		return nil, fmt.Errorf("Yahoo Finance API error: %v", result.Chart.Error)
	}

	if len(result.Chart.Result) == 0 {
		c.log.Warn().Str("symbol", symbol).Msg("No historical data returned")
		return []HistoricalPrice{}, nil
	}

	chartData := result.Chart.Result[0]
	timestamps := chartData.Timestamp
	if len(chartData.Indicators.Quote) == 0 {
		c.log.Warn().Str("symbol", symbol).Msg("No quote data in response")
		return []HistoricalPrice{}, nil
	}

	quote := chartData.Indicators.Quote[0]

	var adjCloseData []float64
	if len(chartData.Indicators.AdjClose) > 0 {
		adjCloseData = chartData.Indicators.AdjClose[0].AdjClose
	}

	var prices []HistoricalPrice
	for i := range timestamps {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) || i >= len(quote.Close) {
			continue
		}

		// Yahoo sometimes returns null values
		if quote.Open[i] == 0 && quote.High[i] == 0 && quote.Low[i] == 0 && quote.Close[i] == 0 {
			continue
		}

		adjClose := quote.Close[i]
		if i < len(adjCloseData) && adjCloseData[i] != 0 {
			adjClose = adjCloseData[i]
		}

		volume := int64(0)
		if i < len(quote.Volume) {
			volume = quote.Volume[i]
		}

		prices = append(prices, HistoricalPrice{
			Date:     time.Unix(timestamps[i], 0).UTC(),
			Open:     quote.Open[i],
			High:     quote.High[i],
			Low:      quote.Low[i],
			Close:    quote.Close[i],
			Volume:   volume,
			AdjClose: adjClose,
		})
	}

	c.log.Info().
		Str("symbol", symbol).
		Str("period", period).
		Int("count", len(prices)).
		Msg("Fetched historical prices")

	return prices, nil
}

// GetRawTable fetches daily prices for one symbol as an untyped raw table
// for the normalization pipeline. The ticker column carries the requested
// symbol, not the Yahoo one, so downstream keys stay stable.
func (c *Client) GetRawTable(symbol string, period string) (domain.RawTable, error) {
	prices, err := c.GetHistoricalPrices(symbol, period)
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("failed to fetch prices for %s: %w", symbol, err)
	}

	table := domain.RawTable{
		Columns: []string{
			schema.ColTicker, schema.ColDate,
			schema.ColOpen, schema.ColHigh, schema.ColLow, schema.ColClose,
			schema.ColVolume,
		},
		Rows: make([]domain.RawRecord, 0, len(prices)),
	}
	for _, p := range prices {
		table.Rows = append(table.Rows, domain.RawRecord{
			schema.ColTicker: symbol,
			schema.ColDate:   p.Date,
			schema.ColOpen:   p.Open,
			schema.ColHigh:   p.High,
			schema.ColLow:    p.Low,
			schema.ColClose:  p.Close,
			schema.ColVolume: p.Volume,
		})
	}
	return table, nil
}
