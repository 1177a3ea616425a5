package etl

import (
	"github.com/rs/zerolog"

	"github.com/quantfolio/pulse/internal/archive"
	"github.com/quantfolio/pulse/internal/clients/yahoo"
	"github.com/quantfolio/pulse/internal/config"
	"github.com/quantfolio/pulse/internal/domain"
)

// NewSource builds the configured price source: the Yahoo chart API or
// local per-ticker sqlite archives.
func NewSource(cfg *config.Config, log zerolog.Logger) PriceSource {
	if cfg.Instruments.Source == "archive" {
		store := archive.NewStore(cfg.Instruments.ArchiveDir, log)
		return PriceSourceFunc(store.GetRawTable)
	}

	client := yahoo.NewClient(log)
	period := cfg.Instruments.Period
	return PriceSourceFunc(func(symbol string) (domain.RawTable, error) {
		return client.GetRawTable(symbol, period)
	})
}
