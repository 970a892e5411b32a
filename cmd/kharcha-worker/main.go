package main

import (
	"context"
	"errors"
	"os"

	"kharcha/internal/backend"
	"kharcha/internal/cli"
	"kharcha/internal/config"
	"kharcha/internal/log"
	"kharcha/internal/services"
	gsheet "kharcha/internal/sheets/google"
	"kharcha/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting kharcha-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate, (*config.Config).ValidateWorker)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	backendCfg.RequireEvents = true
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err)
		os.Exit(1)
	}

	opts, err := gsheet.CredentialsFromEnv(context.Background())
	if err != nil {
		logger.Error("Failed to load Google credentials", "error", err)
		os.Exit(1)
	}
	exporter, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, opts...)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets exporter initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	reports := services.NewReportService(res.Store, services.ReportOptions{
		DefaultColor:  cfg.DefaultCategoryColor,
		RecentLimit:   cfg.RecentLimit,
		CategoryLimit: cfg.CategoryLimit,
	})
	reportWorker := worker.NewReportWorker(res.Store, reports, exporter)

	// Snapshots run detached from the signal context; shutdown waits for a
	// running one before the store closes.
	scheduler, err := reportWorker.Schedule(context.Background(), cfg.SnapshotSchedule)
	if err != nil {
		logger.Error("Failed to schedule monthly snapshot", "error", err, "schedule", cfg.SnapshotSchedule)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(shutdownCtx context.Context) {
		select {
		case <-scheduler.Stop().Done():
		case <-shutdownCtx.Done():
			logger.Warn("Snapshot still running at shutdown")
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	scheduler.Start()
	logger.Info("Monthly snapshot scheduled", "schedule", cfg.SnapshotSchedule)

	go func() {
		if err := res.Events.ConsumeEvents(ctx, reportWorker.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Event consumption failed", "error", err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
