package archive

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog"

	"github.com/quantfolio/pulse/internal/domain"
	"github.com/quantfolio/pulse/internal/modules/schema"
)

// Store reads historical price data from per-symbol archive databases, one
// SQLite file per ticker with a daily_prices table. These archives come
// from an external downloader; the store treats them as read-only.
type Store struct {
	dir string
	log zerolog.Logger
}

// NewStore creates a new archive store rooted at dir.
func NewStore(dir string, log zerolog.Logger) *Store {
	return &Store{
		dir: dir,
		log: log.With().Str("component", "archive").Logger(),
	}
}

// DailyPrice represents a daily OHLCV price point as stored in the archive.
type DailyPrice struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume *int64  `json:"volume,omitempty"`
}

// GetDailyPrices fetches daily price data for a symbol, oldest first.
// A limit of 0 means no limit.
func (s *Store) GetDailyPrices(symbol string, limit int) ([]DailyPrice, error) {
	db, err := s.open(symbol)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	query := `
		SELECT date, open_price as open, high_price as high, low_price as low, close_price as close, volume
		FROM daily_prices
		ORDER BY date ASC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	var prices []DailyPrice
	for rows.Next() {
		var p DailyPrice
		var volume sql.NullInt64

		err := rows.Scan(&p.Date, &p.Open, &p.High, &p.Low, &p.Close, &volume)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}

		if volume.Valid {
			p.Volume = &volume.Int64
		}

		prices = append(prices, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	return prices, nil
}

// GetRawTable fetches one symbol's archive as an untyped raw table for the
// normalization pipeline. Archive dates stay strings; date parsing is the
// normalizer's job.
func (s *Store) GetRawTable(symbol string) (domain.RawTable, error) {
	prices, err := s.GetDailyPrices(symbol, 0)
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("failed to read archive for %s: %w", symbol, err)
	}

	table := domain.RawTable{
		Columns: []string{
			schema.ColTicker, schema.ColDate,
			schema.ColOpen, schema.ColHigh, schema.ColLow, schema.ColClose,
			schema.ColVolume,
		},
		Rows: make([]domain.RawRecord, 0, len(prices)),
	}
	for _, p := range prices {
		volume := int64(0)
		if p.Volume != nil {
			volume = *p.Volume
		}
		table.Rows = append(table.Rows, domain.RawRecord{
			schema.ColTicker: symbol,
			schema.ColDate:   p.Date,
			schema.ColOpen:   p.Open,
			schema.ColHigh:   p.High,
			schema.ColLow:    p.Low,
			schema.ColClose:  p.Close,
			schema.ColVolume: volume,
		})
	}

	s.log.Debug().Str("symbol", symbol).Int("rows", len(table.Rows)).Msg("Read archive table")
	return table, nil
}

// open opens the archive database for a symbol. AAPL.US maps to AAPL_US.db.
func (s *Store) open(symbol string) (*sql.DB, error) {
	dbSymbol := strings.ReplaceAll(symbol, ".", "_")
	dbPath := filepath.Join(s.dir, dbSymbol+".db")

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database for %s: %w", symbol, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping archive database for %s: %w", symbol, err)
	}

	return db, nil
}
