// Command migrate merges the live captures of the last days into the raw
// Parquet stores, deduplicating on timestamp, and mirrors the result.
//
// Usage:
//
//	go run ./cmd/migrate -live-dir data/current -days 7
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

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

	flag.StringVar(&cfg.LiveDir, "live-dir", cfg.LiveDir, "directory holding the daily live-capture JSONL files")
	flag.StringVar(&cfg.OutRoot, "out-root", cfg.OutRoot, "output directory holding raw/")
	flag.StringVar(&cfg.PublishRoot, "sync-to-web-public", cfg.PublishRoot, "if set, mirror merged stores to this directory")
	flag.IntVar(&cfg.StationID, "station-id", cfg.StationID, "station id of the raw stores")
	flag.IntVar(&cfg.LiveWindowDays, "days", cfg.LiveWindowDays, "number of days to read, ending today")
	flag.BoolVar(&cfg.RecomputeDaily, "recompute-daily", cfg.RecomputeDaily, "rebuild daily aggregates from the merged raw store")
	flag.Parse()

	logger := observability.NewLogger(cfg)
	os.Exit(run(cfg, logger))
}

func run(cfg *config.Config, logger *slog.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var notifier pipeline.Notifier = pipeline.NopNotifier{}
	if cfg.NotificationsEnabled() {
		n := kafkaadapter.NewNotifier(cfg, logger)
		defer n.Close()
		notifier = n
	}

	metrics := observability.NewUnregisteredMetrics()
	migrator := pipeline.NewMigrator(cfg, notifier, logger, metrics)

	runner := pipeline.NewRunner(logger, metrics)
	var results []pipeline.MigrateResult
	if err := runner.Register(domain.JobMigrate, "", func(ctx context.Context) error {
		var err error
		results, err = migrator.Run(ctx)
		return err
	}); err != nil {
		logger.Error("register migrate job", "error", err)
		return 1
	}

	err := runner.Trigger(ctx, domain.JobMigrate)
	for _, r := range results {
		logger.Info("parameter summary",
			"parameter", r.Series.Parameter,
			"records", r.Stats.Final,
			"net_new", r.Stats.NetNew(),
			"first", r.First,
			"last", r.Last,
		)
	}
	if err != nil {
		return 1
	}
	return 0
}
