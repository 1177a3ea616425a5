package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfolio/pulse/internal/config"
	"github.com/quantfolio/pulse/internal/database"
	"github.com/quantfolio/pulse/internal/database/repositories"
	"github.com/quantfolio/pulse/internal/etl"
	"github.com/quantfolio/pulse/internal/modules/analysis"
	"github.com/quantfolio/pulse/internal/modules/charts"
	"github.com/quantfolio/pulse/internal/modules/metrics"
	"github.com/quantfolio/pulse/internal/modules/schema"
	"github.com/quantfolio/pulse/internal/scheduler"
	"github.com/quantfolio/pulse/internal/server"
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

	log.Info().Str("output_version", cfg.OutputVersion).Msg("Starting pulse server")

	db, err := database.New(cfg.DatabasePath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	prices := repositories.NewPriceRepository(db.Conn(), cfg.Database.PricesTable, log)
	benchmark := repositories.NewPriceRepository(db.Conn(), cfg.Database.BenchmarkTable, log)
	metadata := repositories.NewMetadataRepository(db.Conn(), cfg.Database.MetadataTable, log)

	engine := metrics.New(cfg.Performance.RiskFreeRate, cfg.Performance.TradingDaysPerYear, log)
	analysisSvc := analysis.NewService(cfg, prices, benchmark, engine, log)
	handlers := analysis.NewHandlers(analysisSvc, charts.NewService(log), log)

	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	if err := registerJobs(sched, db, cfg, prices, benchmark, metadata, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}

	srv := server.New(server.Config{
		Port:     cfg.Port,
		Log:      log,
		DB:       db,
		Config:   cfg,
		Analysis: handlers,
		Metadata: metadata,
		DevMode:  cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func registerJobs(
	sched *scheduler.Scheduler,
	db *database.DB,
	cfg *config.Config,
	prices, benchmark *repositories.PriceRepository,
	metadata *repositories.MetadataRepository,
	log zerolog.Logger,
) error {
	if cfg.RefreshCron != "" {
		etlSvc := etl.NewService(cfg, etl.NewSource(cfg, log), schema.NewNormalizer(log), prices, benchmark, metadata, log)
		if err := sched.AddJob(cfg.RefreshCron, scheduler.NewRefreshJob(etlSvc, log)); err != nil {
			return err
		}
	}

	// Every 6 hours, offset from the top of the hour.
	return sched.AddJob("0 30 */6 * * *", scheduler.NewIntegrityJob(db, log))
}
