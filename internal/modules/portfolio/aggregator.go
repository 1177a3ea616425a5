package portfolio

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/quantfolio/pulse/internal/config"
	"github.com/quantfolio/pulse/internal/domain"
	"github.com/quantfolio/pulse/internal/modules/metrics"
)

// Comparison packages the analysis output for tabular or chart display:
// one record per selected ticker, the synthetic portfolio, the benchmark,
// and the portfolio-minus-benchmark gap.
type Comparison struct {
	Metrics domain.MetricsResult `json:"metrics"`
	Gap     domain.MetricsRecord `json:"gap"`
}

// Aggregator combines per-ticker return series into a single portfolio
// view and packages the benchmark-relative comparison.
type Aggregator struct {
	engine *metrics.Engine
	log    zerolog.Logger
}

// New creates a new portfolio aggregator backed by the given engine.
// Portfolio-level metrics are recomputed from the combined return series
// through the same engine; compounding and volatility are not linear, so
// averaging the per-ticker metric values would be wrong.
func New(engine *metrics.Engine, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		engine: engine,
		log:    log.With().Str("component", "portfolio").Logger(),
	}
}

// EqualWeights builds the default weighting scheme over the tickers.
func EqualWeights(tickers []string) map[string]float64 {
	weights := make(map[string]float64, len(tickers))
	for _, t := range tickers {
		weights[t] = 1.0 / float64(len(tickers))
	}
	return weights
}

// Aggregate builds the portfolio return column from the per-ticker
// periodic returns, computes metrics for every column plus the synthetic
// portfolio, and returns the comparison against the benchmark.
//
// Weights must cover every requested ticker and sum to 1 within floating
// tolerance; a nil map means equal weight. At dates where some tickers
// have no valid return (not yet listed), the remaining weights are
// renormalized so the listed part of the portfolio carries the day; a
// date with no valid constituent return stays missing.
func (a *Aggregator) Aggregate(rs *domain.ReturnSeries, tickers []string, weights map[string]float64) (*Comparison, error) {
	if len(tickers) == 0 {
		return nil, &domain.ConfigError{Field: "tickers", Reason: "at least one ticker is required"}
	}
	if weights == nil {
		weights = EqualWeights(tickers)
	}
	if err := validateWeights(tickers, weights); err != nil {
		return nil, err
	}

	n := len(rs.Dates)
	portfolio := make([]domain.Cell, n)
	for t := 0; t < n; t++ {
		weighted, coverage := 0.0, 0.0
		for _, ticker := range tickers {
			cell := rs.Periodic[ticker][t]
			if !cell.Valid {
				continue
			}
			weighted += weights[ticker] * cell.Value
			coverage += weights[ticker]
		}
		if coverage == 0 {
			portfolio[t] = domain.Missing
			continue
		}
		portfolio[t] = domain.Obs(weighted / coverage)
	}

	result := make(domain.MetricsResult, len(tickers)+2)
	for _, ticker := range tickers {
		result[ticker] = a.engine.Compute(rs.Periodic[ticker])
	}
	result[domain.PortfolioKey] = a.engine.Compute(portfolio)
	result[domain.BenchmarkKey] = a.engine.Compute(rs.Periodic[domain.BenchmarkKey])

	comparison := &Comparison{
		Metrics: result,
		Gap:     result[domain.PortfolioKey].Sub(result[domain.BenchmarkKey]),
	}

	a.log.Info().
		Int("tickers", len(tickers)).
		Float64("portfolio_cumulative", result[domain.PortfolioKey].CumulativeReturn).
		Float64("benchmark_cumulative", result[domain.BenchmarkKey].CumulativeReturn).
		Msg("Aggregated portfolio metrics")

	return comparison, nil
}

// PortfolioReturns exposes the combined return column on its own, for
// chart consumers that plot the portfolio line next to the benchmark.
func (a *Aggregator) PortfolioReturns(rs *domain.ReturnSeries, tickers []string, weights map[string]float64) ([]domain.Cell, error) {
	if weights == nil {
		weights = EqualWeights(tickers)
	}
	if err := validateWeights(tickers, weights); err != nil {
		return nil, err
	}

	cells := make([]domain.Cell, len(rs.Dates))
	for t := range rs.Dates {
		weighted, coverage := 0.0, 0.0
		for _, ticker := range tickers {
			cell := rs.Periodic[ticker][t]
			if !cell.Valid {
				continue
			}
			weighted += weights[ticker] * cell.Value
			coverage += weights[ticker]
		}
		if coverage == 0 {
			cells[t] = domain.Missing
			continue
		}
		cells[t] = domain.Obs(weighted / coverage)
	}
	return cells, nil
}

func validateWeights(tickers []string, weights map[string]float64) error {
	sum := 0.0
	for _, ticker := range tickers {
		w, ok := weights[ticker]
		if !ok {
			return &domain.ConfigError{Field: "weights", Reason: "no weight for ticker " + ticker}
		}
		if w < 0 {
			return &domain.ConfigError{Field: "weights", Reason: "negative weight for ticker " + ticker}
		}
		sum += w
	}
	if math.Abs(sum-1) > config.WeightTolerance {
		return &domain.ConfigError{
			Field:  "weights",
			Reason: fmt.Sprintf("weights sum to %g, want 1", sum),
		}
	}
	return nil
}
