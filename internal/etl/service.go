package etl

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/quantfolio/pulse/internal/config"
	"github.com/quantfolio/pulse/internal/database/repositories"
	"github.com/quantfolio/pulse/internal/domain"
	"github.com/quantfolio/pulse/internal/modules/schema"
)

// PriceSource extracts one symbol's raw price history. Implemented by the
// Yahoo chart client and the local sqlite archive store.
type PriceSource interface {
	Fetch(symbol string) (domain.RawTable, error)
}

// PriceSourceFunc adapts a function to the PriceSource interface.
type PriceSourceFunc func(symbol string) (domain.RawTable, error)

// Fetch calls f.
func (f PriceSourceFunc) Fetch(symbol string) (domain.RawTable, error) { return f(symbol) }

// Service runs the extract -> normalize -> load pipeline that fills the
// versioned output database: instrument prices, benchmark prices and
// security metadata. Each table is fully replaced per run.
type Service struct {
	cfg        *config.Config
	source     PriceSource
	normalizer *schema.Normalizer
	prices     *repositories.PriceRepository
	benchmark  *repositories.PriceRepository
	metadata   *repositories.MetadataRepository
	log        zerolog.Logger
}

// NewService creates the ETL service.
func NewService(
	cfg *config.Config,
	source PriceSource,
	normalizer *schema.Normalizer,
	prices *repositories.PriceRepository,
	benchmark *repositories.PriceRepository,
	metadata *repositories.MetadataRepository,
	log zerolog.Logger,
) *Service {
	return &Service{
		cfg:        cfg,
		source:     source,
		normalizer: normalizer,
		prices:     prices,
		benchmark:  benchmark,
		metadata:   metadata,
		log:        log.With().Str("component", "etl").Logger(),
	}
}

// RunAll executes the full pipeline: metadata first (it decides which
// tickers to fetch), then instrument prices, then the benchmark.
func (s *Service) RunAll() error {
	meta, err := s.RunMetadata()
	if err != nil {
		return fmt.Errorf("metadata etl failed: %w", err)
	}

	tickers := s.tickersFrom(meta)
	if err := s.RunInstruments(tickers); err != nil {
		return fmt.Errorf("instrument etl failed: %w", err)
	}

	if err := s.RunBenchmark(); err != nil {
		return fmt.Errorf("benchmark etl failed: %w", err)
	}

	s.log.Info().Int("tickers", len(tickers)).Msg("ETL run complete")
	return nil
}

// RunMetadata loads the security metadata table from the configured CSV.
func (s *Service) RunMetadata() (domain.Metadata, error) {
	path := s.cfg.MetadataPath()
	raw, err := ReadCSVTable(path)
	if err != nil {
		return nil, err
	}

	meta, report, err := s.normalizer.NormalizeMetadata(raw, s.cfg.Metadata.Columns, path)
	if err != nil {
		return nil, err
	}
	if err := s.metadata.Replace(meta); err != nil {
		return nil, err
	}

	s.log.Info().
		Int("rows_in", report.RowsIn).
		Int("rows_dropped", report.RowsDropped).
		Int("tickers", len(meta)).
		Msg("Loaded metadata")
	return meta, nil
}

// RunInstruments extracts, normalizes and loads price history for the
// given tickers. A source failure for one ticker fails the run; a partial
// price table would silently skew every later comparison.
func (s *Service) RunInstruments(tickers []string) error {
	merged := domain.RawTable{}
	for _, ticker := range tickers {
		raw, err := s.source.Fetch(ticker)
		if err != nil {
			return fmt.Errorf("failed to extract %s: %w", ticker, err)
		}
		if len(merged.Columns) == 0 {
			merged.Columns = raw.Columns
		}
		merged.Rows = append(merged.Rows, raw.Rows...)
	}

	series, report, err := s.normalizer.NormalizeSeries(merged, s.cfg.Instruments.Columns, s.cfg.Instruments.Source)
	if err != nil {
		return err
	}
	if err := s.prices.Replace(series); err != nil {
		return err
	}

	s.log.Info().
		Int("rows_in", report.RowsIn).
		Int("rows_dropped", report.RowsDropped).
		Int("tickers", len(series)).
		Msg("Loaded instrument prices")
	return nil
}

// RunBenchmark extracts, normalizes and loads the benchmark price series.
func (s *Service) RunBenchmark() error {
	raw, err := s.source.Fetch(s.cfg.Benchmark.Symbol)
	if err != nil {
		return fmt.Errorf("failed to extract benchmark %s: %w", s.cfg.Benchmark.Symbol, err)
	}

	series, report, err := s.normalizer.NormalizeSeries(raw, s.cfg.Benchmark.Columns, "benchmark")
	if err != nil {
		return err
	}
	if len(series) != 1 {
		return &domain.SchemaError{
			Source: "benchmark",
			Reason: fmt.Sprintf("expected one benchmark series, got %d", len(series)),
		}
	}
	if err := s.benchmark.Replace(series); err != nil {
		return err
	}

	s.log.Info().
		Str("symbol", s.cfg.Benchmark.Symbol).
		Int("rows_in", report.RowsIn).
		Int("rows_dropped", report.RowsDropped).
		Msg("Loaded benchmark prices")
	return nil
}

// tickersFrom picks the fetch universe: every ticker in the metadata,
// falling back to the configured defaults when the metadata is empty.
func (s *Service) tickersFrom(meta domain.Metadata) []string {
	if len(meta) == 0 {
		return s.cfg.Performance.DefaultTickers
	}
	tickers := make([]string, 0, len(meta))
	for t := range meta {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers
}
