package charts

import (
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfolio/pulse/internal/domain"
	"github.com/quantfolio/pulse/pkg/formulas"
)

// Series is one line-chart series. Values are pointers so missing cells
// serialize as JSON null and charting libraries leave a gap instead of
// drawing a zero.
type Series struct {
	Label  string     `json:"label"`
	Dates  []string   `json:"dates"`
	Values []*float64 `json:"values"`
}

// Service shapes aligned matrices and return series into chart-ready
// payloads.
type Service struct {
	log zerolog.Logger
}

// NewService creates a new chart service.
func NewService(log zerolog.Logger) *Service {
	return &Service{
		log: log.With().Str("component", "charts").Logger(),
	}
}

// PriceSeries returns one close-price line per column of the matrix. When
// smaPeriod > 0 each ticker also gets a simple-moving-average overlay,
// computed over the observed closes only.
func (s *Service) PriceSeries(m *domain.AlignedMatrix, smaPeriod int) []Series {
	dates := formatDates(m.Dates)

	out := make([]Series, 0, len(m.Tickers)*2)
	for _, ticker := range m.Tickers {
		cells := m.Columns[ticker]
		out = append(out, Series{Label: ticker, Dates: dates, Values: cellValues(cells)})

		if smaPeriod > 0 {
			out = append(out, Series{
				Label:  ticker + " SMA" + strconv.Itoa(smaPeriod),
				Dates:  dates,
				Values: smaOverlay(cells, smaPeriod),
			})
		}
	}
	return out
}

// CumulativeSeries returns one cumulative-return line per column.
func (s *Service) CumulativeSeries(rs *domain.ReturnSeries) []Series {
	dates := formatDates(rs.Dates)

	out := make([]Series, 0, len(rs.Tickers))
	for _, ticker := range rs.Tickers {
		out = append(out, Series{Label: ticker, Dates: dates, Values: cellValues(rs.Cumulative[ticker])})
	}
	return out
}

// ParseDateRange converts a chart range string (1M, 3M, 6M, 1Y, 5Y, 10Y)
// into a start date relative to now. "all" or anything unrecognized means
// no lower bound, reported by ok=false.
func ParseDateRange(rangeStr string) (time.Time, bool) {
	now := time.Now().UTC()
	switch strings.ToUpper(rangeStr) {
	case "1M":
		return now.AddDate(0, -1, 0), true
	case "3M":
		return now.AddDate(0, -3, 0), true
	case "6M":
		return now.AddDate(0, -6, 0), true
	case "1Y":
		return now.AddDate(-1, 0, 0), true
	case "5Y":
		return now.AddDate(-5, 0, 0), true
	case "10Y":
		return now.AddDate(-10, 0, 0), true
	default:
		return time.Time{}, false
	}
}

func formatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(domain.DateLayout)
	}
	return out
}

func cellValues(cells []domain.Cell) []*float64 {
	out := make([]*float64, len(cells))
	for i, c := range cells {
		if c.Valid {
			v := c.Value
			out[i] = &v
		}
	}
	return out
}

// smaOverlay computes the moving average over the valid closes and maps
// it back onto the full date index, so gaps in the input stay gaps in
// the overlay.
func smaOverlay(cells []domain.Cell, period int) []*float64 {
	observed := make([]float64, 0, len(cells))
	positions := make([]int, 0, len(cells))
	for i, c := range cells {
		if c.Valid {
			observed = append(observed, c.Value)
			positions = append(positions, i)
		}
	}

	out := make([]*float64, len(cells))
	for i, v := range formulas.SMA(observed, period) {
		out[positions[i]] = v
	}
	return out
}
