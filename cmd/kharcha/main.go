package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"kharcha/internal/backend"
	"kharcha/internal/cache"
	"kharcha/internal/cli"
	"kharcha/internal/core"
	apphttp "kharcha/internal/http"
	"kharcha/internal/identity"
	"kharcha/internal/log"
	"kharcha/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	// A nil *amqp.Client must not become a non-nil interface.
	var events services.EventPublisher
	if res.Events != nil {
		events = res.Events
	}

	// Identity webhooks evict entries; the TTL covers writes from elsewhere.
	users := cache.NewLRUCache[core.User](1000, time.Minute)
	caches := cache.NewManager()
	caches.Register(users)
	caches.StartCleanup(5 * time.Minute)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:    ":" + cfg.Port,
		Ledger:  services.NewLedgerService(res.Store, events, cfg.StrictPatchValidation),
		Reports: services.NewReportService(res.Store, services.ReportOptions{
			DefaultColor:  cfg.DefaultCategoryColor,
			RecentLimit:   cfg.RecentLimit,
			CategoryLimit: cfg.CategoryLimit,
		}),
		Resolver:           identity.NewResolver(res.Store).WithCache(users),
		Syncer:             identity.NewSyncer(res.Store).WithCache(users),
		WebhookSecret:      cfg.WebhookSecret,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})
	if cfg.WebhookSecret == "" {
		logger.Warn("WEBHOOK_SECRET not set, identity webhook will reject every call")
	}

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		caches.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	logger.Info("Starting kharcha server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", res.Events != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
