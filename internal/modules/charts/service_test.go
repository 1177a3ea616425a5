package charts

import (
	"testing"
	"time"

	"github.com/quantfolio/pulse/internal/domain"
	"github.com/quantfolio/pulse/pkg/logger"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func obs(vs ...float64) []domain.Cell {
	cells := make([]domain.Cell, len(vs))
	for i, v := range vs {
		cells[i] = domain.Obs(v)
	}
	return cells
}

func TestPriceSeriesKeepsGapsAsNulls(t *testing.T) {
	s := NewService(logger.New(logger.Config{Level: "error"}))

	m := &domain.AlignedMatrix{
		Dates:   []time.Time{day(2), day(3), day(4)},
		Tickers: []string{"A"},
		Columns: map[string][]domain.Cell{
			"A": {domain.Missing, domain.Obs(100), domain.Obs(110)},
		},
	}

	got := s.PriceSeries(m, 0)
	if len(got) != 1 {
		t.Fatalf("got %d series, want 1", len(got))
	}
	if got[0].Values[0] != nil {
		t.Error("leading gap must chart as null, not zero")
	}
	if got[0].Values[1] == nil || *got[0].Values[1] != 100 {
		t.Errorf("Values[1] = %v, want 100", got[0].Values[1])
	}
	if got[0].Dates[0] != "2024-01-02" {
		t.Errorf("Dates[0] = %q, want 2024-01-02", got[0].Dates[0])
	}
}

func TestPriceSeriesSMAOverlay(t *testing.T) {
	s := NewService(logger.New(logger.Config{Level: "error"}))

	m := &domain.AlignedMatrix{
		Dates:   []time.Time{day(2), day(3), day(4), day(5)},
		Tickers: []string{"A"},
		Columns: map[string][]domain.Cell{
			"A": obs(10, 20, 30, 40),
		},
	}

	got := s.PriceSeries(m, 2)
	if len(got) != 2 {
		t.Fatalf("got %d series, want price + overlay", len(got))
	}

	overlay := got[1]
	if overlay.Label != "A SMA2" {
		t.Errorf("overlay label = %q, want A SMA2", overlay.Label)
	}
	if overlay.Values[0] != nil {
		t.Error("warmup entries must stay null")
	}
	if overlay.Values[1] == nil || *overlay.Values[1] != 15 {
		t.Errorf("overlay[1] = %v, want 15", overlay.Values[1])
	}
}

func TestCumulativeSeries(t *testing.T) {
	s := NewService(logger.New(logger.Config{Level: "error"}))

	rs := &domain.ReturnSeries{
		Dates:   []time.Time{day(3), day(4)},
		Tickers: []string{"A", domain.BenchmarkKey},
		Cumulative: map[string][]domain.Cell{
			"A":                 obs(0.10, 0.21),
			domain.BenchmarkKey: obs(0.01, 0.02),
		},
	}

	got := s.CumulativeSeries(rs)
	if len(got) != 2 {
		t.Fatalf("got %d series, want 2", len(got))
	}
	if *got[0].Values[1] != 0.21 {
		t.Errorf("cumulative[1] = %v, want 0.21", *got[0].Values[1])
	}
}

func TestParseDateRange(t *testing.T) {
	tests := []struct {
		input    string
		wantOK   bool
		wantDays int // approximate days before now
	}{
		{"1M", true, 30},
		{"3M", true, 90},
		{"6M", true, 180},
		{"1Y", true, 365},
		{"5Y", true, 365 * 5},
		{"10Y", true, 365 * 10},
		{"all", false, 0},
		{"", false, 0},
		{"invalid", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			start, ok := ParseDateRange(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			days := time.Since(start).Hours() / 24
			// Month arithmetic wobbles a few days around the target.
			if days < float64(tt.wantDays)-5 || days > float64(tt.wantDays)+5 {
				t.Errorf("start %v is %.0f days back, want about %d", start, days, tt.wantDays)
			}
		})
	}
}
