// Command etl runs the gauge data jobs as a long-lived service: live captures
// are merged into the raw store on a cron schedule, bulk exports are
// optionally re-ingested on a second schedule, and /healthz, /readyz, /jobs
// and /metrics are served over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/gauge-data-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/gauge-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/gauge-data-etl/internal/config"
	"github.com/couchcryptid/gauge-data-etl/internal/domain"
	"github.com/couchcryptid/gauge-data-etl/internal/observability"
	"github.com/couchcryptid/gauge-data-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Store update notifications are feature-flagged via KAFKA_BROKERS.
	var notifier pipeline.Notifier = pipeline.NopNotifier{}
	var kafkaNotifier *kafkaadapter.Notifier
	if cfg.NotificationsEnabled() {
		kafkaNotifier = kafkaadapter.NewNotifier(cfg, logger)
		notifier = kafkaNotifier
		logger.Info("store update notifications enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("store update notifications disabled")
	}

	ingestor := pipeline.NewIngestor(cfg, notifier, logger, metrics)
	migrator := pipeline.NewMigrator(cfg, notifier, logger, metrics)

	runner := pipeline.NewRunner(logger, metrics)
	if err := runner.Register(domain.JobMigrate, cfg.MigrateSchedule, func(ctx context.Context) error {
		_, err := migrator.Run(ctx)
		return err
	}); err != nil {
		logger.Error("failed to schedule migration", "error", err)
		os.Exit(1)
	}
	if err := runner.Register(domain.JobIngest, cfg.IngestSchedule, func(ctx context.Context) error {
		_, err := ingestor.Run(ctx)
		return err
	}); err != nil {
		logger.Error("failed to schedule ingestion", "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, runner, runner, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	runner.Start(ctx)

	// Merge pending captures right away instead of waiting for the first tick.
	go func() {
		_ = runner.Trigger(ctx, domain.JobMigrate)
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := runner.Stop(shutdownCtx); err != nil {
		logger.Error("scheduler shutdown error", "error", err)
	}
	if kafkaNotifier != nil {
		if err := kafkaNotifier.Close(); err != nil {
			logger.Error("kafka notifier close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
