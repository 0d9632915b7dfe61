package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/denthub/credit-engine/internal/core/services"
	"github.com/denthub/credit-engine/internal/middleware"
	"github.com/denthub/credit-engine/internal/platform/config"
	"github.com/denthub/credit-engine/internal/popbill"
	"github.com/denthub/credit-engine/internal/repositories/database/pgsql"
	"github.com/denthub/credit-engine/internal/workers"
	"github.com/denthub/credit-engine/pkg/database"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dbPool, err := database.NewPgxPool(context.Background(), cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbPool.Close()

	hostname, _ := os.Hostname()
	workerID := hostname + "-" + uuid.New().String()[:8]
	logger = logger.With(slog.String("worker_id", workerID))

	repos := pgsql.NewRepositoryProvider(dbPool)
	serviceContainer := services.NewServiceContainer(cfg, repos)
	provider := popbill.NewClient(cfg)

	executor := workers.NewTaskExecutor(
		workerID,
		serviceContainer.Queue,
		serviceContainer.ChargeOrder,
		serviceContainer.Matching,
		provider,
		cfg.WorkerPollInterval,
		cfg.QueueBatchSize,
	)
	sweeper := workers.NewSweepRunner(
		workerID,
		serviceContainer.Matching,
		repos.JobLockRepo,
		cfg.SweepInterval,
		cfg.SweepLockTTL,
	)
	reaper := workers.NewReaper(serviceContainer.Queue, serviceContainer.Webhook, cfg.ReapInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = middleware.WithLogger(ctx, logger)

	// Metrics endpoint for the worker process.
	metricsServer := &http.Server{Addr: ":" + cfg.Port, Handler: promhttp.Handler()}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server failed", slog.String("error", err.Error()))
		}
	}()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		executor.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		reaper.Run(ctx)
	}()

	logger.Info("Worker started", slog.String("metrics_port", cfg.Port))
	<-ctx.Done()
	logger.Info("Shutdown signal received, draining workers")

	wg.Wait()
	if err := metricsServer.Shutdown(context.Background()); err != nil {
		logger.Error("Metrics server shutdown failed", slog.String("error", err.Error()))
	}
	logger.Info("Worker stopped")
}
