package main

import (
	"flag"
	"os"

	"github.com/quantfolio/pulse/internal/config"
	"github.com/quantfolio/pulse/internal/database"
	"github.com/quantfolio/pulse/internal/database/repositories"
	"github.com/quantfolio/pulse/internal/etl"
	"github.com/quantfolio/pulse/internal/modules/schema"
	"github.com/quantfolio/pulse/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/settings.yaml", "path to the settings file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New(logger.Config{Level: "info", Pretty: true})
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		Dir:    cfg.LogDir,
	})

	log.Info().Str("output_version", cfg.OutputVersion).Msg("Starting ETL run")

	db, err := database.New(cfg.DatabasePath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	svc := etl.NewService(
		cfg,
		etl.NewSource(cfg, log),
		schema.NewNormalizer(log),
		repositories.NewPriceRepository(db.Conn(), cfg.Database.PricesTable, log),
		repositories.NewPriceRepository(db.Conn(), cfg.Database.BenchmarkTable, log),
		repositories.NewMetadataRepository(db.Conn(), cfg.Database.MetadataTable, log),
		log,
	)

	if err := svc.RunAll(); err != nil {
		log.Error().Err(err).Msg("ETL run failed")
		os.Exit(1)
	}

	log.Info().Str("database", db.Path()).Msg("ETL run finished")
}
