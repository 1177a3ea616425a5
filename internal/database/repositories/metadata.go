package repositories

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/quantfolio/pulse/internal/domain"
)

// MetadataRepository persists the per-ticker security metadata map with
// the same full-replace semantics as the price tables.
type MetadataRepository struct {
	*BaseRepository
	table string
}

// NewMetadataRepository creates a metadata repository writing to the given table.
func NewMetadataRepository(db *sql.DB, table string, log zerolog.Logger) *MetadataRepository {
	return &MetadataRepository{
		BaseRepository: NewBase(db, log.With().Str("repo", "metadata").Logger()),
		table:          table,
	}
}

// Replace writes the given metadata as the full new table contents.
func (r *MetadataRepository) Replace(meta domain.Metadata) error {
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
			ticker  TEXT PRIMARY KEY,
			sector  TEXT NOT NULL,
			country TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("failed to create %s: %w", r.table, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO ` + r.table + ` (ticker, sector, country) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, info := range meta {
		if _, err := stmt.Exec(info.Ticker, info.Sector, info.Country); err != nil {
			return fmt.Errorf("failed to insert metadata for %s: %w", info.Ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	r.log.Info().Str("table", r.table).Int("tickers", len(meta)).Msg("Replaced metadata table")
	return nil
}

// GetAll reads the full metadata map.
func (r *MetadataRepository) GetAll() (domain.Metadata, error) {
	rows, err := r.DB().Query(`SELECT ticker, sector, country FROM ` + r.table)
	if err != nil {
		return nil, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	meta := make(domain.Metadata)
	for rows.Next() {
		var info domain.SecurityInfo
		if err := rows.Scan(&info.Ticker, &info.Sector, &info.Country); err != nil {
			return nil, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		meta[info.Ticker] = info
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating metadata: %w", err)
	}
	return meta, nil
}

// Get reads one ticker's metadata; sql.ErrNoRows when absent.
func (r *MetadataRepository) Get(ticker string) (domain.SecurityInfo, error) {
	var info domain.SecurityInfo
	err := r.DB().QueryRow(`SELECT ticker, sector, country FROM `+r.table+` WHERE ticker = ?`, ticker).
		Scan(&info.Ticker, &info.Sector, &info.Country)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.SecurityInfo{}, err
		}
		return domain.SecurityInfo{}, fmt.Errorf("failed to query metadata for %s: %w", ticker, err)
	}
	return info, nil
}
