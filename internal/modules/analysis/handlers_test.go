package analysis

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/pulse/internal/modules/charts"
	"github.com/quantfolio/pulse/pkg/logger"
)

func testRouter(t *testing.T) *chi.Mux {
	t.Helper()
	log := logger.New(logger.Config{Level: "error"})
	h := NewHandlers(testService(testConfig()), charts.NewService(log), log)

	r := chi.NewRouter()
	r.Route("/api/analysis", h.Routes)
	return r
}

func get(t *testing.T, router http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleMetrics(t *testing.T) {
	router := testRouter(t)

	w := get(t, router, "/api/analysis/metrics?tickers=A,B&start=2024-01-01&end=2024-01-05")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Comparison struct {
			Metrics map[string]struct {
				CumulativeReturn float64 `json:"cumulative_return"`
			} `json:"metrics"`
		} `json:"comparison"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.InDelta(t, 0.155, body.Comparison.Metrics["portfolio"].CumulativeReturn, 1e-9)
	assert.Contains(t, body.Comparison.Metrics, "benchmark")
}

func TestHandleMetricsBadSelection(t *testing.T) {
	router := testRouter(t)

	w := get(t, router, "/api/analysis/metrics?tickers=A,B,C,D")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleMetricsBadDate(t *testing.T) {
	router := testRouter(t)

	w := get(t, router, "/api/analysis/metrics?tickers=A&start=01/02/2024")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleMetricsEmptyWindow(t *testing.T) {
	router := testRouter(t)

	w := get(t, router, "/api/analysis/metrics?tickers=A&start=2030-01-01&end=2030-02-01")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandlePriceChart(t *testing.T) {
	router := testRouter(t)

	w := get(t, router, "/api/analysis/charts/prices?tickers=A&start=2024-01-01&end=2024-01-05&sma=2")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Series []struct {
			Label  string     `json:"label"`
			Values []*float64 `json:"values"`
		} `json:"series"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Series, 4, "price + overlay for ticker and benchmark")
	assert.Equal(t, "A", body.Series[0].Label)
	assert.Equal(t, "A SMA2", body.Series[1].Label)
}

func TestHandlePriceChartRejectsBadSMA(t *testing.T) {
	router := testRouter(t)

	w := get(t, router, "/api/analysis/charts/prices?tickers=A&sma=nope")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleCumulativeChart(t *testing.T) {
	router := testRouter(t)

	w := get(t, router, "/api/analysis/charts/cumulative?tickers=A&start=2024-01-01&end=2024-01-05")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestHandleListTickers(t *testing.T) {
	router := testRouter(t)

	w := get(t, router, "/api/analysis/tickers")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Tickers []string `json:"tickers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.ElementsMatch(t, []string{"A", "B"}, body.Tickers)
}
