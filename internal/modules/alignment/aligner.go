package alignment

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfolio/pulse/internal/domain"
)

// Aligner merges per-ticker canonical series and the benchmark series
// onto a unified date index for a requested window.
//
// Gap policy: the index is the union of all trading dates observed across
// the inputs within [start, end]. A date where one instrument did not
// trade (different exchange, local holiday) gets its close forward-filled
// from the most recent prior observation for that column. When no prior
// observation exists — the security listed after the window start — the
// cell stays missing and downstream consumers exclude it rather than
// reading a zero.
type Aligner struct {
	log zerolog.Logger
}

// New creates a new aligner.
func New(log zerolog.Logger) *Aligner {
	return &Aligner{
		log: log.With().Str("component", "alignment").Logger(),
	}
}

// Align builds the aligned close-price matrix for the selected tickers
// plus the benchmark over [start, end]. The benchmark column is keyed
// domain.BenchmarkKey regardless of the index's own ticker. Identical
// inputs always produce an identical matrix.
func (a *Aligner) Align(series []domain.CanonicalSeries, benchmark domain.CanonicalSeries, start, end time.Time) (*domain.AlignedMatrix, error) {
	start, end = domain.Day(start), domain.Day(end)

	type column struct {
		key    string
		points []domain.PricePoint
	}

	columns := make([]column, 0, len(series)+1)
	for _, s := range series {
		points := s.Window(start, end)
		if len(points) == 0 {
			return nil, &domain.AlignmentError{
				Ticker: s.Ticker,
				Reason: "no data in the requested window",
			}
		}
		columns = append(columns, column{key: s.Ticker, points: points})
	}
	columns = append(columns, column{key: domain.BenchmarkKey, points: benchmark.Window(start, end)})

	// Union of observed trading dates across all inputs.
	dateSet := make(map[time.Time]struct{})
	for _, c := range columns {
		for _, p := range c.points {
			dateSet[p.Date] = struct{}{}
		}
	}
	if len(dateSet) == 0 {
		return nil, &domain.AlignmentError{Reason: "no overlapping trading dates in the requested window"}
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	matrix := &domain.AlignedMatrix{
		Dates:   dates,
		Tickers: make([]string, 0, len(columns)),
		Columns: make(map[string][]domain.Cell, len(columns)),
	}

	for _, c := range columns {
		matrix.Tickers = append(matrix.Tickers, c.key)

		cells := make([]domain.Cell, len(dates))
		last := domain.Missing
		next := 0
		for i, d := range dates {
			for next < len(c.points) && c.points[next].Date.Equal(d) {
				last = domain.Obs(c.points[next].Close)
				next++
			}
			cells[i] = last // forward fill; Missing until the first observation
		}
		matrix.Columns[c.key] = cells
	}

	a.log.Debug().
		Int("dates", len(dates)).
		Int("columns", len(columns)).
		Time("start", start).
		Time("end", end).
		Msg("Aligned price matrix")

	return matrix, nil
}
