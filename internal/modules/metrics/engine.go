package metrics

import (
	"github.com/rs/zerolog"

	"github.com/quantfolio/pulse/internal/domain"
	"github.com/quantfolio/pulse/pkg/formulas"
)

// Engine computes the performance record for one return column. It works
// on valid observations only; missing cells never enter a sample.
type Engine struct {
	riskFreeRate       float64
	tradingDaysPerYear int
	log                zerolog.Logger
}

// New creates a metrics engine with the given annualized risk-free rate
// and trading-days-per-year constant.
func New(riskFreeRate float64, tradingDaysPerYear int, log zerolog.Logger) *Engine {
	return &Engine{
		riskFreeRate:       riskFreeRate,
		tradingDaysPerYear: tradingDaysPerYear,
		log:                log.With().Str("component", "metrics").Logger(),
	}
}

// RiskFreeRate returns the configured annualized risk-free rate.
func (e *Engine) RiskFreeRate() float64 { return e.riskFreeRate }

// TradingDaysPerYear returns the configured annualization constant.
func (e *Engine) TradingDaysPerYear() int { return e.tradingDaysPerYear }

// Compute derives the metrics record from one column of periodic returns.
//
// Volatility needs at least two valid observations and Sharpe needs a
// non-zero volatility; otherwise the record carries the insufficient-data
// flag with zeroed values so consumers can render "N/A" instead of
// crashing on a NaN. Cumulative return and max drawdown are still
// reported from whatever valid history exists.
func (e *Engine) Compute(cells []domain.Cell) domain.MetricsRecord {
	valid := make([]float64, 0, len(cells))
	for _, c := range cells {
		if c.Valid {
			valid = append(valid, c.Value)
		}
	}

	record := domain.MetricsRecord{
		CumulativeReturn: formulas.CompoundReturn(valid),
		MaxDrawdown:      formulas.MaxDrawdown(formulas.EquityCurve(valid)),
	}

	if len(valid) < 2 {
		record.InsufficientData = true
		return record
	}

	vol := formulas.AnnualizedVolatility(valid, e.tradingDaysPerYear)
	if vol == 0 {
		record.InsufficientData = true
		return record
	}
	record.AnnualizedVolatility = vol

	annualizedMean := formulas.Mean(valid) * float64(e.tradingDaysPerYear)
	record.SharpeRatio = (annualizedMean - e.riskFreeRate) / vol

	return record
}

// ComputeAll derives one record per column of a return series.
func (e *Engine) ComputeAll(rs *domain.ReturnSeries) domain.MetricsResult {
	result := make(domain.MetricsResult, len(rs.Tickers))
	for _, ticker := range rs.Tickers {
		record := e.Compute(rs.Periodic[ticker])
		if !record.Finite() {
			// Degenerate inputs (astronomical prices) could overflow the
			// compounding; surface that as insufficient data, not Inf.
			record = domain.MetricsRecord{InsufficientData: true}
		}
		result[ticker] = record

		e.log.Debug().
			Str("ticker", ticker).
			Float64("cumulative_return", record.CumulativeReturn).
			Float64("annualized_volatility", record.AnnualizedVolatility).
			Float64("max_drawdown", record.MaxDrawdown).
			Float64("sharpe_ratio", record.SharpeRatio).
			Bool("insufficient_data", record.InsufficientData).
			Msg("Computed metrics")
	}
	return result
}
