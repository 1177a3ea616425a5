package analysis

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfolio/pulse/internal/config"
	"github.com/quantfolio/pulse/internal/domain"
	"github.com/quantfolio/pulse/internal/modules/alignment"
	"github.com/quantfolio/pulse/internal/modules/metrics"
	"github.com/quantfolio/pulse/internal/modules/portfolio"
	"github.com/quantfolio/pulse/internal/modules/returns"
)

// Store reads canonical price series from the output database.
type Store interface {
	GetSeries(ticker string) (domain.CanonicalSeries, error)
	ListTickers() ([]string, error)
}

// Request selects what to analyze. Zero-value fields fall back to the
// configured defaults.
type Request struct {
	Tickers []string           `json:"tickers"`
	Start   time.Time          `json:"start"`
	End     time.Time          `json:"end"`
	Weights map[string]float64 `json:"weights,omitempty"`
}

// Result carries every derived stage of one analysis run, so the HTTP
// layer can shape tables and charts without recomputing anything.
type Result struct {
	Request    Request               `json:"request"`
	Matrix     *domain.AlignedMatrix `json:"-"`
	Returns    *domain.ReturnSeries  `json:"-"`
	Comparison *portfolio.Comparison `json:"comparison"`
}

// Service runs the stateless per-request pipeline: load canonical series,
// align, compute returns, aggregate against the benchmark. Each request
// derives fresh values; nothing is cached between calls.
type Service struct {
	perf       config.PerformanceConfig
	benchmark  config.BenchmarkConfig
	prices     Store
	benchmarks Store
	aligner    *alignment.Aligner
	calculator *returns.Calculator
	aggregator *portfolio.Aggregator
	log        zerolog.Logger
}

// NewService creates the analysis service.
func NewService(cfg *config.Config, prices, benchmarks Store, engine *metrics.Engine, log zerolog.Logger) *Service {
	return &Service{
		perf:       cfg.Performance,
		benchmark:  cfg.Benchmark,
		prices:     prices,
		benchmarks: benchmarks,
		aligner:    alignment.New(log),
		calculator: returns.New(log),
		aggregator: portfolio.New(engine, log),
		log:        log.With().Str("component", "analysis").Logger(),
	}
}

// Run executes one analysis request end to end.
func (s *Service) Run(req Request) (*Result, error) {
	req, err := s.applyDefaults(req)
	if err != nil {
		return nil, err
	}

	series := make([]domain.CanonicalSeries, 0, len(req.Tickers))
	for _, ticker := range req.Tickers {
		cs, err := s.prices.GetSeries(ticker)
		if err != nil {
			return nil, fmt.Errorf("failed to load series for %s: %w", ticker, err)
		}
		series = append(series, cs)
	}

	benchmark, err := s.benchmarks.GetSeries(s.benchmark.Symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load benchmark series: %w", err)
	}

	matrix, err := s.aligner.Align(series, benchmark, req.Start, req.End)
	if err != nil {
		return nil, err
	}

	rs := s.calculator.Compute(matrix)

	comparison, err := s.aggregator.Aggregate(rs, req.Tickers, req.Weights)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Strs("tickers", req.Tickers).
		Time("start", req.Start).
		Time("end", req.End).
		Msg("Analysis run complete")

	return &Result{
		Request:    req,
		Matrix:     matrix,
		Returns:    rs,
		Comparison: comparison,
	}, nil
}

// Tickers lists the tickers available for selection.
func (s *Service) Tickers() ([]string, error) {
	return s.prices.ListTickers()
}

// applyDefaults fills empty request fields and validates the selection.
func (s *Service) applyDefaults(req Request) (Request, error) {
	if len(req.Tickers) == 0 {
		req.Tickers = s.perf.DefaultTickers
	}
	if len(req.Tickers) == 0 {
		return req, &domain.ConfigError{Field: "tickers", Reason: "no tickers selected and no defaults configured"}
	}
	if len(req.Tickers) > s.perf.MaxTickers {
		return req, &domain.ConfigError{
			Field:  "tickers",
			Reason: fmt.Sprintf("%d tickers selected, at most %d allowed", len(req.Tickers), s.perf.MaxTickers),
		}
	}

	seen := make(map[string]bool, len(req.Tickers))
	for _, t := range req.Tickers {
		if t == "" {
			return req, &domain.ConfigError{Field: "tickers", Reason: "empty ticker in selection"}
		}
		if seen[t] {
			return req, &domain.ConfigError{Field: "tickers", Reason: "duplicate ticker " + t}
		}
		seen[t] = true
	}

	if req.End.IsZero() {
		req.End = domain.Day(time.Now().UTC())
	}
	if req.Start.IsZero() {
		req.Start = req.End.AddDate(-5, 0, 0)
	}
	if !req.Start.Before(req.End) {
		return req, &domain.ConfigError{
			Field:  "window",
			Reason: fmt.Sprintf("start %s is not before end %s", req.Start.Format(domain.DateLayout), req.End.Format(domain.DateLayout)),
		}
	}

	if req.Weights == nil && len(s.perf.Weights) > 0 {
		// Configured weights only apply when they cover the selection.
		covered := true
		for _, t := range req.Tickers {
			if _, ok := s.perf.Weights[t]; !ok {
				covered = false
				break
			}
		}
		if covered {
			req.Weights = s.perf.Weights
		}
	}

	return req, nil
}
