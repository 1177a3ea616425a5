package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/quantfolio/pulse/internal/domain"
)

// ColumnMapping describes how one source's raw columns become canonical
// columns: which to parse as dates, which to cast to numbers, which to
// force to strings, which to drop, and how survivors are renamed.
// Unmapped columns pass through unchanged.
type ColumnMapping struct {
	Date        []string          `yaml:"columns_date"`
	Numeric     []string          `yaml:"columns_numeric"`
	String      []string          `yaml:"columns_string"`
	Drop        []string          `yaml:"columns_to_drop"`
	Rename      map[string]string `yaml:"columns_new_names"`
	MaxDropRate float64           `yaml:"max_drop_rate"` // fatal when dropped/total exceeds this
}

// BenchmarkConfig identifies the reference index and its column profile.
type BenchmarkConfig struct {
	Name    string        `yaml:"name"`   // display name, e.g. "S&P 500"
	Symbol  string        `yaml:"symbol"` // data-source symbol, e.g. "^GSPC"
	Columns ColumnMapping `yaml:"columns"`
}

// MetadataConfig locates the instrument metadata CSV and its column profile.
type MetadataConfig struct {
	Dir          string        `yaml:"dir"`
	File         string        `yaml:"file"`
	TickerColumn string        `yaml:"ticker_column"`
	Columns      ColumnMapping `yaml:"columns"`
}

// InstrumentsConfig selects where instrument price history comes from.
type InstrumentsConfig struct {
	Source     string        `yaml:"source"`      // "yahoo" or "archive"
	Period     string        `yaml:"period"`      // yahoo chart range, e.g. "5y"
	ArchiveDir string        `yaml:"archive_dir"` // per-ticker sqlite archives when source=archive
	Columns    ColumnMapping `yaml:"columns"`
}

// DatabaseConfig locates the canonical store. File may contain a single
// %s verb which receives the output version, so each ETL run replaces a
// complete versioned database rather than upserting into a shared one.
type DatabaseConfig struct {
	Dir            string `yaml:"dir"`
	File           string `yaml:"file"`
	PricesTable    string `yaml:"prices_table"`
	BenchmarkTable string `yaml:"benchmark_table"`
	MetadataTable  string `yaml:"metadata_table"`
}

// PerformanceConfig carries the analysis constants and selection limits.
type PerformanceConfig struct {
	RiskFreeRate       float64            `yaml:"risk_free_rate"`
	TradingDaysPerYear int                `yaml:"trading_days_per_year"`
	MaxTickers         int                `yaml:"max_tickers"`
	DefaultTickers     []string           `yaml:"default_tickers"`
	Weights            map[string]float64 `yaml:"weights"` // empty means equal weight
}

// Config holds application configuration
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogDir    string `yaml:"log_dir"`
	LogPretty bool   `yaml:"log_pretty"`

	OutputVersion string `yaml:"output_version"`

	Port        int    `yaml:"port"`
	DevMode     bool   `yaml:"dev_mode"`
	RefreshCron string `yaml:"refresh_cron"` // empty disables the scheduled ETL refresh

	Database    DatabaseConfig    `yaml:"database"`
	Benchmark   BenchmarkConfig   `yaml:"benchmark"`
	Metadata    MetadataConfig    `yaml:"metadata"`
	Instruments InstrumentsConfig `yaml:"instruments"`
	Performance PerformanceConfig `yaml:"performance"`
}

// WeightTolerance is the floating tolerance for "weights sum to 1".
const WeightTolerance = 1e-6

// Load reads the YAML settings file, applies environment variable
// overrides, fills defaults and validates the result.
func Load(path string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOG_DIR"); v != "" {
		cfg.LogDir = v
	}
	if v := os.Getenv("OUTPUT_VERSION"); v != "" {
		cfg.OutputVersion = v
	}
	if v := os.Getenv("DATABASE_DIR"); v != "" {
		cfg.Database.Dir = v
	}
	cfg.Port = getEnvAsInt("PORT", cfg.Port)
	cfg.DevMode = getEnvAsBool("DEV_MODE", cfg.DevMode)
	if v := os.Getenv("REFRESH_CRON"); v != "" {
		cfg.RefreshCron = v
	}
	if v := os.Getenv("RISK_FREE_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Performance.RiskFreeRate = f
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.OutputVersion == "" {
		c.OutputVersion = "v1"
	}
	if c.Database.Dir == "" {
		c.Database.Dir = "./data"
	}
	if c.Database.File == "" {
		c.Database.File = "portfolio_%s.db"
	}
	if c.Database.PricesTable == "" {
		c.Database.PricesTable = "prices"
	}
	if c.Database.BenchmarkTable == "" {
		c.Database.BenchmarkTable = "benchmark"
	}
	if c.Database.MetadataTable == "" {
		c.Database.MetadataTable = "metadata"
	}
	if c.Instruments.Source == "" {
		c.Instruments.Source = "yahoo"
	}
	if c.Instruments.Period == "" {
		c.Instruments.Period = "5y"
	}
	if c.Performance.TradingDaysPerYear == 0 {
		c.Performance.TradingDaysPerYear = 252
	}
	if c.Performance.MaxTickers == 0 {
		c.Performance.MaxTickers = 3
	}
	for _, m := range []*ColumnMapping{&c.Benchmark.Columns, &c.Metadata.Columns, &c.Instruments.Columns} {
		if m.MaxDropRate == 0 {
			m.MaxDropRate = 0.05
		}
	}
}

// Validate checks the loaded configuration and returns a ConfigError on
// the first problem found, before any pipeline work starts.
func (c *Config) Validate() error {
	if c.Benchmark.Symbol == "" {
		return &domain.ConfigError{Field: "benchmark.symbol", Reason: "benchmark symbol is required"}
	}
	if c.Performance.MaxTickers < 1 {
		return &domain.ConfigError{Field: "performance.max_tickers", Reason: "must be at least 1"}
	}
	if c.Performance.TradingDaysPerYear < 1 {
		return &domain.ConfigError{Field: "performance.trading_days_per_year", Reason: "must be positive"}
	}
	if len(c.Performance.DefaultTickers) > c.Performance.MaxTickers {
		return &domain.ConfigError{
			Field:  "performance.default_tickers",
			Reason: fmt.Sprintf("%d default tickers exceed max_tickers=%d", len(c.Performance.DefaultTickers), c.Performance.MaxTickers),
		}
	}
	if len(c.Performance.Weights) > 0 {
		sum := 0.0
		for ticker, w := range c.Performance.Weights {
			if w < 0 {
				return &domain.ConfigError{Field: "performance.weights", Reason: "negative weight for " + ticker}
			}
			sum += w
		}
		if math.Abs(sum-1) > WeightTolerance {
			return &domain.ConfigError{
				Field:  "performance.weights",
				Reason: fmt.Sprintf("weights sum to %g, want 1", sum),
			}
		}
	}
	for _, src := range []struct {
		name string
		m    ColumnMapping
	}{
		{"benchmark", c.Benchmark.Columns},
		{"metadata", c.Metadata.Columns},
		{"instruments", c.Instruments.Columns},
	} {
		if src.m.MaxDropRate < 0 || src.m.MaxDropRate > 1 {
			return &domain.ConfigError{
				Field:  src.name + ".columns.max_drop_rate",
				Reason: "must be within [0, 1]",
			}
		}
	}
	if c.Instruments.Source != "yahoo" && c.Instruments.Source != "archive" {
		return &domain.ConfigError{Field: "instruments.source", Reason: "must be yahoo or archive"}
	}
	if c.Instruments.Source == "archive" && c.Instruments.ArchiveDir == "" {
		return &domain.ConfigError{Field: "instruments.archive_dir", Reason: "required when source is archive"}
	}
	return nil
}

// DatabasePath resolves the versioned database file path for this run.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Database.Dir, fmt.Sprintf(c.Database.File, c.OutputVersion))
}

// MetadataPath resolves the metadata CSV file path.
func (c *Config) MetadataPath() string {
	return filepath.Join(c.Metadata.Dir, c.Metadata.File)
}

// Helper functions
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
