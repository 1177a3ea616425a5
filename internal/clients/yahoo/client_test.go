package yahoo

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/pulse/internal/modules/schema"
	"github.com/quantfolio/pulse/pkg/logger"
)

func TestGetYahooSymbol(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"AAPL.US", "AAPL"},
		{"GOOGL.US", "GOOGL"},
		{"7203.JP", "7203.T"},
		{"BASF.DE", "BASF.DE"},
		{"^GSPC", "^GSPC"},
	}
	for _, tt := range tests {
		if got := GetYahooSymbol(tt.in); got != tt.want {
			t.Errorf("GetYahooSymbol(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

const chartPayload = `{
	"chart": {
		"result": [{
			"timestamp": [1704153600, 1704240000, 1704326400],
			"indicators": {
				"quote": [{
					"open":   [100, 102, 0],
					"high":   [105, 106, 0],
					"low":    [99, 101, 0],
					"close":  [104, 103, 0],
					"volume": [1000, 1100, 0]
				}],
				"adjclose": [{"adjclose": [104, 103, 0]}]
			}
		}],
		"error": null
	}
}`

func TestGetHistoricalPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v8/finance/chart/AAPL")
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.Equal(t, "5y", r.URL.Query().Get("range"))
		w.Write([]byte(chartPayload))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL(srv.URL, logger.New(logger.Config{Level: "error"}))
	prices, err := c.GetHistoricalPrices("AAPL.US", "5y")
	require.NoError(t, err)

	// The all-zero third row is a Yahoo null and must be dropped.
	require.Len(t, prices, 2)
	assert.Equal(t, 104.0, prices[0].Close)
	assert.Equal(t, int64(1100), prices[1].Volume)
	assert.True(t, prices[0].Date.Before(prices[1].Date))
}

func TestGetHistoricalPricesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart": {"result": null, "error": {"code": "Not Found"}}}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL(srv.URL, logger.New(logger.Config{Level: "error"}))
	_, err := c.GetHistoricalPrices("GHOST.US", "1y")
	assert.Error(t, err)
}

func TestGetHistoricalPricesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL(srv.URL, logger.New(logger.Config{Level: "error"}))
	_, err := c.GetHistoricalPrices("AAPL.US", "1y")
	assert.Error(t, err)
}

func TestGetRawTableKeepsRequestedSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chartPayload))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL(srv.URL, logger.New(logger.Config{Level: "error"}))
	table, err := c.GetRawTable("AAPL.US", "5y")
	require.NoError(t, err)

	require.Len(t, table.Rows, 2)
	assert.Equal(t, "AAPL.US", table.Rows[0][schema.ColTicker],
		"rows carry the requested symbol, not the Yahoo one")
	assert.Equal(t, 104.0, table.Rows[0][schema.ColClose])
}
