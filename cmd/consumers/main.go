package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loyaltix/cmd/consumers/jobs"
	"loyaltix/internal/clock"
	"loyaltix/internal/config"
	"loyaltix/internal/consumers"
	"loyaltix/internal/logger"
	"loyaltix/internal/metrics"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	slog.Info("Starting consumers service...")

	// Отдельный client ID, чтобы не конфликтовать с API
	cfg.NATS.ClientID = "loyaltix-consumers"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumerService, err := consumers.NewConsumerService(ctx, cfg, config.LoadElasticsearchConfig())
	if err != nil {
		logger.Fatal("Failed to create consumer service", "error", err)
	}

	if err := consumerService.Start(); err != nil {
		logger.Fatal("Failed to start consumers", "error", err)
	}

	m := metrics.New()
	if err := m.RegisterDB(consumerService.DB(), "loyaltix"); err != nil {
		slog.Warn("Failed to register DB pool metrics", "error", err)
	}

	auditJob := jobs.NewLedgerAuditJob(
		consumerService.Repositories(),
		consumerService.Publisher(),
		clock.NewSystem(),
		m,
		cfg.AuditInterval,
		cfg.AuditBatchSize,
	)
	auditJob.Start(ctx)

	metricsServer := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "error", err)
		}
	}()

	slog.Info("Consumers service started successfully", "metrics_port", cfg.MetricsPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down consumers service...")

	auditJob.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error stopping metrics server", "error", err)
	}
	if err := consumerService.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
	}

	slog.Info("Consumers service stopped")
}
