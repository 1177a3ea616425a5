package portfolio

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/quantfolio/pulse/internal/domain"
	"github.com/quantfolio/pulse/internal/modules/metrics"
	"github.com/quantfolio/pulse/pkg/logger"
)

func testEngine() *metrics.Engine {
	return metrics.New(0.0, 252, logger.New(logger.Config{Level: "error"}))
}

func series(columns map[string][]domain.Cell, n int) *domain.ReturnSeries {
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = time.Date(2024, 1, i+2, 0, 0, 0, 0, time.UTC)
	}
	tickers := make([]string, 0, len(columns))
	for t := range columns {
		tickers = append(tickers, t)
	}
	return &domain.ReturnSeries{Dates: dates, Tickers: tickers, Periodic: columns}
}

func obs(vs ...float64) []domain.Cell {
	cells := make([]domain.Cell, len(vs))
	for i, v := range vs {
		cells[i] = domain.Obs(v)
	}
	return cells
}

func TestAggregateTwoTickerPortfolio(t *testing.T) {
	a := New(testEngine(), logger.New(logger.Config{Level: "error"}))

	// A: 100 -> 110 -> 121, B: 50 -> 50 -> 55.
	rs := series(map[string][]domain.Cell{
		"A":                 obs(0.10, 0.10),
		"B":                 obs(0.00, 0.10),
		domain.BenchmarkKey: obs(0.02, 0.03),
	}, 2)

	got, err := a.Aggregate(rs, []string{"A", "B"}, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	cells, err := a.PortfolioReturns(rs, []string{"A", "B"}, nil)
	if err != nil {
		t.Fatalf("PortfolioReturns: %v", err)
	}
	if math.Abs(cells[0].Value-0.05) > 1e-12 || math.Abs(cells[1].Value-0.10) > 1e-12 {
		t.Errorf("portfolio returns = [%v %v], want [0.05 0.10]", cells[0].Value, cells[1].Value)
	}

	record := got.Metrics[domain.PortfolioKey]
	if math.Abs(record.CumulativeReturn-0.155) > 1e-12 {
		t.Errorf("portfolio cumulative = %v, want 0.155", record.CumulativeReturn)
	}

	for _, key := range []string{"A", "B", domain.PortfolioKey, domain.BenchmarkKey} {
		if _, ok := got.Metrics[key]; !ok {
			t.Errorf("comparison missing record for %q", key)
		}
	}

	wantGap := record.CumulativeReturn - got.Metrics[domain.BenchmarkKey].CumulativeReturn
	if math.Abs(got.Gap.CumulativeReturn-wantGap) > 1e-12 {
		t.Errorf("gap cumulative = %v, want %v", got.Gap.CumulativeReturn, wantGap)
	}
}

func TestAggregateSingleTickerMatchesTickerMetrics(t *testing.T) {
	a := New(testEngine(), logger.New(logger.Config{Level: "error"}))

	rs := series(map[string][]domain.Cell{
		"A":                 obs(0.10, -0.05, 0.02),
		domain.BenchmarkKey: obs(0.01, 0.01, 0.01),
	}, 3)

	got, err := a.Aggregate(rs, []string{"A"}, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if got.Metrics[domain.PortfolioKey] != got.Metrics["A"] {
		t.Errorf("single-ticker equal-weight portfolio must equal the ticker record:\n%+v\n%+v",
			got.Metrics[domain.PortfolioKey], got.Metrics["A"])
	}
}

func TestAggregateRenormalizesOverValidTickers(t *testing.T) {
	a := New(testEngine(), logger.New(logger.Config{Level: "error"}))

	// B is not yet listed on the first two dates; the portfolio return
	// there is A's return alone, not half of it.
	rs := series(map[string][]domain.Cell{
		"A":                 obs(0.10, 0.20, 0.30),
		"B":                 {domain.Missing, domain.Missing, domain.Obs(0.10)},
		domain.BenchmarkKey: obs(0.01, 0.01, 0.01),
	}, 3)

	cells, err := a.PortfolioReturns(rs, []string{"A", "B"}, nil)
	if err != nil {
		t.Fatalf("PortfolioReturns: %v", err)
	}

	if math.Abs(cells[0].Value-0.10) > 1e-12 || math.Abs(cells[1].Value-0.20) > 1e-12 {
		t.Errorf("pre-listing returns = [%v %v], want A's returns [0.10 0.20]", cells[0].Value, cells[1].Value)
	}
	if math.Abs(cells[2].Value-0.20) > 1e-12 {
		t.Errorf("post-listing return = %v, want equal-weight 0.20", cells[2].Value)
	}
}

func TestAggregateAllMissingDateStaysMissing(t *testing.T) {
	a := New(testEngine(), logger.New(logger.Config{Level: "error"}))

	rs := series(map[string][]domain.Cell{
		"A":                 {domain.Missing, domain.Obs(0.10)},
		"B":                 {domain.Missing, domain.Obs(0.20)},
		domain.BenchmarkKey: obs(0.01, 0.01),
	}, 2)

	cells, err := a.PortfolioReturns(rs, []string{"A", "B"}, nil)
	if err != nil {
		t.Fatalf("PortfolioReturns: %v", err)
	}
	if cells[0].Valid {
		t.Error("date with no valid constituent must stay missing, not become zero")
	}
	if math.Abs(cells[1].Value-0.15) > 1e-12 {
		t.Errorf("combined return = %v, want 0.15", cells[1].Value)
	}
}

func TestAggregateExplicitWeights(t *testing.T) {
	a := New(testEngine(), logger.New(logger.Config{Level: "error"}))

	rs := series(map[string][]domain.Cell{
		"A":                 obs(0.10, 0.10),
		"B":                 obs(0.00, 0.00),
		domain.BenchmarkKey: obs(0.01, 0.01),
	}, 2)

	cells, err := a.PortfolioReturns(rs, []string{"A", "B"}, map[string]float64{"A": 0.75, "B": 0.25})
	if err != nil {
		t.Fatalf("PortfolioReturns: %v", err)
	}
	if math.Abs(cells[0].Value-0.075) > 1e-12 {
		t.Errorf("weighted return = %v, want 0.075", cells[0].Value)
	}
}

func TestAggregateWeightValidation(t *testing.T) {
	a := New(testEngine(), logger.New(logger.Config{Level: "error"}))

	rs := series(map[string][]domain.Cell{
		"A":                 obs(0.10),
		"B":                 obs(0.20),
		domain.BenchmarkKey: obs(0.01),
	}, 1)

	tests := []struct {
		name    string
		tickers []string
		weights map[string]float64
	}{
		{"weights do not sum to one", []string{"A", "B"}, map[string]float64{"A": 0.7, "B": 0.7}},
		{"negative weight", []string{"A", "B"}, map[string]float64{"A": 1.5, "B": -0.5}},
		{"missing ticker weight", []string{"A", "B"}, map[string]float64{"A": 1.0}},
		{"no tickers", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Aggregate(rs, tt.tickers, tt.weights)
			var cfgErr *domain.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("err = %v, want *domain.ConfigError", err)
			}
		})
	}
}
