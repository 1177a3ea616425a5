package repositories

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/quantfolio/pulse/internal/domain"
)

// PriceRepository persists canonical price series. Every load replaces the
// whole table inside one transaction, so readers see either the previous
// complete run or the new one, never a mix.
type PriceRepository struct {
	*BaseRepository
	table string
}

// NewPriceRepository creates a price repository writing to the given table.
func NewPriceRepository(db *sql.DB, table string, log zerolog.Logger) *PriceRepository {
	return &PriceRepository{
		BaseRepository: NewBase(db, log.With().Str("repo", "prices").Logger()),
		table:          table,
	}
}

// Replace writes the given series as the full new table contents.
func (r *PriceRepository) Replace(series []domain.CanonicalSeries) error {
	tx, err := r.DB().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DROP TABLE IF EXISTS ` + r.table); err != nil {
		return fmt.Errorf("failed to drop %s: %w", r.table, err)
	}
	if _, err := tx.Exec(`
		CREATE TABLE ` + r.table + ` (
			ticker TEXT NOT NULL,
			date   TEXT NOT NULL,
			open   REAL NOT NULL,
			high   REAL NOT NULL,
			low    REAL NOT NULL,
			close  REAL NOT NULL,
			volume INTEGER NOT NULL,
			PRIMARY KEY (ticker, date)
		)`); err != nil {
		return fmt.Errorf("failed to create %s: %w", r.table, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO ` + r.table + ` (ticker, date, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	total := 0
	for _, s := range series {
		for _, p := range s.Points {
			if _, err := stmt.Exec(s.Ticker, p.Date.Format(domain.DateLayout), p.Open, p.High, p.Low, p.Close, p.Volume); err != nil {
				return fmt.Errorf("failed to insert %s@%s: %w", s.Ticker, p.Date.Format(domain.DateLayout), err)
			}
			total++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	r.log.Info().Str("table", r.table).Int("tickers", len(series)).Int("rows", total).Msg("Replaced price table")
	return nil
}

// GetSeries reads one ticker's full canonical series, oldest first.
func (r *PriceRepository) GetSeries(ticker string) (domain.CanonicalSeries, error) {
	rows, err := r.DB().Query(`
		SELECT date, open, high, low, close, volume
		FROM `+r.table+`
		WHERE ticker = ?
		ORDER BY date ASC`, ticker)
	if err != nil {
		return domain.CanonicalSeries{}, fmt.Errorf("failed to query prices for %s: %w", ticker, err)
	}
	defer rows.Close()

	series := domain.CanonicalSeries{Ticker: ticker}
	for rows.Next() {
		var date string
		var p domain.PricePoint
		if err := rows.Scan(&date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume); err != nil {
			return domain.CanonicalSeries{}, fmt.Errorf("failed to scan price row: %w", err)
		}
		d, err := parseDate(date)
		if err != nil {
			return domain.CanonicalSeries{}, err
		}
		p.Date = d
		series.Points = append(series.Points, p)
	}
	if err := rows.Err(); err != nil {
		return domain.CanonicalSeries{}, fmt.Errorf("error iterating prices for %s: %w", ticker, err)
	}

	return series, nil
}

// ListTickers returns the distinct tickers present in the table.
func (r *PriceRepository) ListTickers() ([]string, error) {
	rows, err := r.DB().Query(`SELECT DISTINCT ticker FROM ` + r.table + ` ORDER BY ticker ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickers: %w", err)
	}
	return tickers, nil
}
