package schema

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfolio/pulse/internal/config"
	"github.com/quantfolio/pulse/internal/domain"
)

// Canonical column names every price table must expose after renaming.
const (
	ColTicker = "ticker"
	ColDate   = "date"
	ColOpen   = "open"
	ColHigh   = "high"
	ColLow    = "low"
	ColClose  = "close"
	ColVolume = "volume"

	ColSector  = "sector"
	ColCountry = "country"
)

// Accepted date formats, tried in order.
var dateLayouts = []string{
	domain.DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
}

// Report summarizes what the normalizer did to one table. Dropped rows
// are absorbed and counted here rather than failing the run, up to the
// configured drop-rate threshold.
type Report struct {
	Source      string
	RowsIn      int
	RowsDropped int
}

// DropRate returns the fraction of input rows that were discarded.
func (r Report) DropRate() float64 {
	if r.RowsIn == 0 {
		return 0
	}
	return float64(r.RowsDropped) / float64(r.RowsIn)
}

// Normalizer maps raw tabular records onto the canonical schema according
// to a per-source column mapping. It never mutates its input table.
type Normalizer struct {
	log zerolog.Logger
}

// NewNormalizer creates a new schema normalizer.
func NewNormalizer(log zerolog.Logger) *Normalizer {
	return &Normalizer{
		log: log.With().Str("component", "schema").Logger(),
	}
}

// NormalizeSeries turns a raw long-format price table (one row per ticker
// and date) into canonical per-ticker series. The mapping must rename the
// source columns onto ticker/date/open/high/low/close/volume.
func (n *Normalizer) NormalizeSeries(raw domain.RawTable, m config.ColumnMapping, source string) ([]domain.CanonicalSeries, Report, error) {
	table, report, err := n.normalize(raw, m, source)
	if err != nil {
		return nil, report, err
	}

	grouped := make(map[string][]domain.PricePoint)
	for _, row := range table.Rows {
		ticker, ok := row[ColTicker].(string)
		if !ok || ticker == "" {
			report.RowsDropped++
			continue
		}
		date, ok := row[ColDate].(time.Time)
		if !ok {
			report.RowsDropped++
			continue
		}

		point := domain.PricePoint{Date: domain.Day(date)}
		valid := true
		for _, f := range []struct {
			col string
			dst *float64
		}{
			{ColOpen, &point.Open},
			{ColHigh, &point.High},
			{ColLow, &point.Low},
			{ColClose, &point.Close},
		} {
			v, ok := row[f.col].(float64)
			if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
				valid = false
				break
			}
			*f.dst = v
		}
		if vol, ok := row[ColVolume].(float64); ok && vol >= 0 {
			point.Volume = int64(vol)
		} else if valid {
			valid = false
		}
		if !valid {
			report.RowsDropped++
			continue
		}

		grouped[ticker] = append(grouped[ticker], point)
	}

	if err := n.checkDropRate(report, m); err != nil {
		return nil, report, err
	}

	series := make([]domain.CanonicalSeries, 0, len(grouped))
	for ticker, points := range grouped {
		sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

		// Duplicate dates violate the canonical invariant; keep the first
		// observation and count the rest as dropped.
		deduped := points[:0]
		for i, p := range points {
			if i > 0 && p.Date.Equal(deduped[len(deduped)-1].Date) {
				report.RowsDropped++
				continue
			}
			deduped = append(deduped, p)
		}

		series = append(series, domain.CanonicalSeries{Ticker: ticker, Points: deduped})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Ticker < series[j].Ticker })

	n.log.Info().
		Str("source", source).
		Int("rows_in", report.RowsIn).
		Int("rows_dropped", report.RowsDropped).
		Int("tickers", len(series)).
		Msg("Normalized price table")

	return series, report, nil
}

// NormalizeMetadata turns a raw metadata table into the ticker map. The
// mapping must rename the source columns onto ticker/sector/country.
func (n *Normalizer) NormalizeMetadata(raw domain.RawTable, m config.ColumnMapping, source string) (domain.Metadata, Report, error) {
	table, report, err := n.normalize(raw, m, source)
	if err != nil {
		return nil, report, err
	}

	meta := make(domain.Metadata, len(table.Rows))
	for _, row := range table.Rows {
		ticker, ok := row[ColTicker].(string)
		if !ok || ticker == "" {
			report.RowsDropped++
			continue
		}
		if _, dup := meta[ticker]; dup {
			// Keys must stay unique; first row wins.
			report.RowsDropped++
			continue
		}
		info := domain.SecurityInfo{Ticker: ticker}
		if s, ok := row[ColSector].(string); ok {
			info.Sector = s
		}
		if c, ok := row[ColCountry].(string); ok {
			info.Country = c
		}
		meta[ticker] = info
	}

	if err := n.checkDropRate(report, m); err != nil {
		return nil, report, err
	}

	n.log.Info().
		Str("source", source).
		Int("rows_in", report.RowsIn).
		Int("rows_dropped", report.RowsDropped).
		Int("tickers", len(meta)).
		Msg("Normalized metadata table")

	return meta, report, nil
}

// normalize applies the column mapping to a raw table: drop, parse dates,
// cast numerics (recoverable per row), force strings, rename. The input
// table is left untouched.
func (n *Normalizer) normalize(raw domain.RawTable, m config.ColumnMapping, source string) (domain.RawTable, Report, error) {
	report := Report{Source: source, RowsIn: len(raw.Rows)}

	dropSet := make(map[string]bool, len(m.Drop))
	for _, col := range m.Drop {
		dropSet[col] = true
	}

	out := domain.RawTable{Rows: make([]domain.RawRecord, 0, len(raw.Rows))}
	for _, col := range raw.Columns {
		if dropSet[col] {
			continue
		}
		if renamed, ok := m.Rename[col]; ok {
			out.Columns = append(out.Columns, renamed)
		} else {
			out.Columns = append(out.Columns, col)
		}
	}

rows:
	for _, src := range raw.Rows {
		row := make(domain.RawRecord, len(src))
		for col, v := range src {
			if !dropSet[col] {
				row[col] = v
			}
		}

		// Unparsable dates poison the whole table: a source whose date
		// column cannot be read has the wrong schema, not a bad row.
		for _, col := range m.Date {
			v, present := row[col]
			if !present {
				continue
			}
			parsed, err := parseDate(v)
			if err != nil {
				return domain.RawTable{}, report, &domain.SchemaError{
					Source: source,
					Column: col,
					Reason: fmt.Sprintf("unparsable date %v", v),
				}
			}
			row[col] = parsed
		}

		// Numeric garbage is a per-row problem: drop the row and count it.
		for _, col := range m.Numeric {
			v, present := row[col]
			if !present {
				continue
			}
			f, err := parseNumeric(v)
			if err != nil {
				report.RowsDropped++
				continue rows
			}
			row[col] = f
		}

		for _, col := range m.String {
			if v, present := row[col]; present {
				row[col] = fmt.Sprintf("%v", v)
			}
		}

		for from, to := range m.Rename {
			if v, present := row[from]; present {
				delete(row, from)
				row[to] = v
			}
		}

		out.Rows = append(out.Rows, row)
	}

	if err := n.checkDropRate(report, m); err != nil {
		return domain.RawTable{}, report, err
	}

	return out, report, nil
}

func (n *Normalizer) checkDropRate(report Report, m config.ColumnMapping) error {
	if report.DropRate() > m.MaxDropRate {
		return &domain.SchemaError{
			Source: report.Source,
			Reason: fmt.Sprintf("dropped %d of %d rows (%.1f%%), above the %.1f%% threshold",
				report.RowsDropped, report.RowsIn, report.DropRate()*100, m.MaxDropRate*100),
		}
	}
	return nil
}

func parseDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return d, nil
	case string:
		s := strings.TrimSpace(d)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized date format %q", s)
	default:
		return time.Time{}, fmt.Errorf("unsupported date type %T", v)
	}
}

func parseNumeric(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, fmt.Errorf("non-finite value")
		}
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, fmt.Errorf("empty value")
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("not a number: %q", s)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", v)
	}
}
