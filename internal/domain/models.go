package domain

import (
	"math"
	"sort"
	"time"
)

// Column keys reserved for the synthetic series in analysis output.
const (
	PortfolioKey = "portfolio"
	BenchmarkKey = "benchmark"
)

// DateLayout is the canonical wire format for trading dates.
const DateLayout = "2006-01-02"

// Day normalizes a timestamp to its UTC trading day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// RawRecord is one row of source data before normalization. Values are
// whatever the extractor produced (strings from CSV, floats and timestamps
// from API responses); the schema normalizer gives them a type.
type RawRecord map[string]any

// RawTable is a set of raw rows sharing a column set.
type RawTable struct {
	Columns []string
	Rows    []RawRecord
}

// PricePoint is one canonical OHLCV observation.
type PricePoint struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// CanonicalSeries is the normalized price history for a single entity
// (an instrument ticker or the benchmark index). Points are strictly
// ascending by date with no duplicates; the normalizer enforces this
// before handing the series out, and nothing mutates it afterwards.
type CanonicalSeries struct {
	Ticker string       `json:"ticker"`
	Points []PricePoint `json:"points"`
}

// Window returns the points observed inside [start, end], bounds inclusive.
func (s CanonicalSeries) Window(start, end time.Time) []PricePoint {
	lo := sort.Search(len(s.Points), func(i int) bool { return !s.Points[i].Date.Before(start) })
	hi := sort.Search(len(s.Points), func(i int) bool { return s.Points[i].Date.After(end) })
	return s.Points[lo:hi]
}

// SecurityInfo holds the descriptive attributes attached to a ticker.
// Display and grouping only, never used in computation.
type SecurityInfo struct {
	Ticker  string `json:"ticker"`
	Sector  string `json:"sector"`
	Country string `json:"country"`
}

// Metadata maps tickers to their descriptive attributes.
type Metadata map[string]SecurityInfo

// Cell is a single value in an aligned matrix or return series. Valid is
// false for an explicit "no observation" marker; consumers must skip
// invalid cells rather than read a zero out of them.
type Cell struct {
	Value float64
	Valid bool
}

// Missing is the explicit no-observation marker.
var Missing = Cell{}

// Obs wraps a value into a valid cell.
func Obs(v float64) Cell { return Cell{Value: v, Valid: true} }

// AlignedMatrix holds close prices for every requested ticker plus the
// benchmark on a common ascending date index. Every column has exactly
// len(Dates) cells; gaps are Missing cells, never dropped rows.
type AlignedMatrix struct {
	Dates   []time.Time
	Tickers []string // column order: requested tickers, then BenchmarkKey
	Columns map[string][]Cell
}

// Column returns the cells for one ticker, or nil if absent.
func (m *AlignedMatrix) Column(ticker string) []Cell { return m.Columns[ticker] }

// ReturnSeries holds periodic and cumulative returns per column. Its date
// index is the aligned index minus the first row: a return needs two
// consecutive prices. A Missing periodic cell breaks the cumulative chain;
// compounding restarts at the next valid return.
type ReturnSeries struct {
	Dates      []time.Time
	Tickers    []string
	Periodic   map[string][]Cell
	Cumulative map[string][]Cell
}

// ValidReturns extracts the valid periodic observations for one column,
// in date order.
func (r *ReturnSeries) ValidReturns(ticker string) []float64 {
	cells := r.Periodic[ticker]
	out := make([]float64, 0, len(cells))
	for _, c := range cells {
		if c.Valid {
			out = append(out, c.Value)
		}
	}
	return out
}

// MetricsRecord is the performance summary for one column over the full
// requested window. When InsufficientData is set, AnnualizedVolatility and
// SharpeRatio are not meaningful (fewer than two valid returns, or zero
// volatility) and consumers should render "N/A" instead of the zeros.
type MetricsRecord struct {
	CumulativeReturn     float64 `json:"cumulative_return"`
	AnnualizedVolatility float64 `json:"annualized_volatility"`
	MaxDrawdown          float64 `json:"max_drawdown"`
	SharpeRatio          float64 `json:"sharpe_ratio"`
	InsufficientData     bool    `json:"insufficient_data"`
}

// Sub returns the per-field gap between two records. The gap inherits the
// insufficient-data flag from either side.
func (m MetricsRecord) Sub(o MetricsRecord) MetricsRecord {
	return MetricsRecord{
		CumulativeReturn:     m.CumulativeReturn - o.CumulativeReturn,
		AnnualizedVolatility: m.AnnualizedVolatility - o.AnnualizedVolatility,
		MaxDrawdown:          m.MaxDrawdown - o.MaxDrawdown,
		SharpeRatio:          m.SharpeRatio - o.SharpeRatio,
		InsufficientData:     m.InsufficientData || o.InsufficientData,
	}
}

// Finite reports whether every value in the record is a finite float.
func (m MetricsRecord) Finite() bool {
	for _, v := range []float64{m.CumulativeReturn, m.AnnualizedVolatility, m.MaxDrawdown, m.SharpeRatio} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// MetricsResult maps tickers (including the synthetic PortfolioKey and
// BenchmarkKey entries) to their metrics records.
type MetricsResult map[string]MetricsRecord
