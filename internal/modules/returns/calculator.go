package returns

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfolio/pulse/internal/domain"
)

// Calculator derives periodic and cumulative return series from an
// aligned price matrix.
type Calculator struct {
	log zerolog.Logger
}

// New creates a new return calculator.
func New(log zerolog.Logger) *Calculator {
	return &Calculator{
		log: log.With().Str("component", "returns").Logger(),
	}
}

// Compute produces one simple return per column per date, excluding the
// first date of the matrix: r_t = price_t/price_{t-1} - 1.
//
// A zero or missing prior price leaves that single cell missing instead
// of failing; missing cells are excluded from later aggregation, never
// treated as zero. The cumulative series compounds (1+r) from the first
// valid return; a missing cell breaks the chain and compounding restarts
// at the next valid return with that return as its own base.
func (c *Calculator) Compute(m *domain.AlignedMatrix) *domain.ReturnSeries {
	var dates []time.Time
	if len(m.Dates) > 1 {
		dates = m.Dates[1:]
	}

	rs := &domain.ReturnSeries{
		Dates:      dates,
		Tickers:    m.Tickers,
		Periodic:   make(map[string][]domain.Cell, len(m.Tickers)),
		Cumulative: make(map[string][]domain.Cell, len(m.Tickers)),
	}

	for _, ticker := range m.Tickers {
		prices := m.Columns[ticker]
		periodic := make([]domain.Cell, len(dates))
		cumulative := make([]domain.Cell, len(dates))

		growth := 1.0
		chained := false
		for t := 1; t < len(prices); t++ {
			prev, cur := prices[t-1], prices[t]
			if !prev.Valid || !cur.Valid || prev.Value == 0 {
				periodic[t-1] = domain.Missing
				cumulative[t-1] = domain.Missing
				growth, chained = 1.0, false
				continue
			}

			r := cur.Value/prev.Value - 1
			periodic[t-1] = domain.Obs(r)

			if !chained {
				growth = 1.0
				chained = true
			}
			growth *= 1 + r
			cumulative[t-1] = domain.Obs(growth - 1)
		}

		rs.Periodic[ticker] = periodic
		rs.Cumulative[ticker] = cumulative
	}

	c.log.Debug().
		Int("dates", len(dates)).
		Int("columns", len(m.Tickers)).
		Msg("Computed return series")

	return rs
}
