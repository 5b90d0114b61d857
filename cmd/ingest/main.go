// Command ingest converts every bulk export of the configured station into the
// raw and daily Parquet stores and publishes the station metadata document.
//
// Usage:
//
//	go run ./cmd/ingest -data-root data -out-root data/parquet \
//	  -sync-to-web-public web/public/data/parquet
//
// With -apply-updates, staged exports under <data-root>/updates are copied
// into the group directories first.
package main

import (
	"context"
	"errors"
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

	flag.StringVar(&cfg.DataRoot, "data-root", cfg.DataRoot, "directory holding fluesse-wasserstand/ and fluesse-wassertemperatur/")
	flag.StringVar(&cfg.OutRoot, "out-root", cfg.OutRoot, "output directory for raw/, daily/ and station_meta.json")
	flag.StringVar(&cfg.PublishRoot, "sync-to-web-public", cfg.PublishRoot, "if set, copy outputs to this directory")
	flag.IntVar(&cfg.StationID, "station-id", cfg.StationID, "station id prefix of the export files")
	flag.IntVar(&cfg.ChunkSize, "chunksize", cfg.ChunkSize, "rows per batch")
	applyUpdates := flag.Bool("apply-updates", false, "copy staged exports from <data-root>/updates before ingesting")
	flag.Parse()

	logger := observability.NewLogger(cfg)
	os.Exit(run(cfg, *applyUpdates, logger))
}

func run(cfg *config.Config, applyUpdates bool, logger *slog.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if applyUpdates {
		applied, err := pipeline.ApplyUpdates(cfg.DataRoot, logger)
		if err != nil && !errors.Is(err, pipeline.ErrNoUpdates) {
			logger.Error("apply updates failed", "error", err)
			return 1
		}
		logger.Info("staged updates processed", "files", len(applied))
	}

	var notifier pipeline.Notifier = pipeline.NopNotifier{}
	if cfg.NotificationsEnabled() {
		n := kafkaadapter.NewNotifier(cfg, logger)
		defer n.Close()
		notifier = n
	}

	metrics := observability.NewUnregisteredMetrics()
	ingestor := pipeline.NewIngestor(cfg, notifier, logger, metrics)

	runner := pipeline.NewRunner(logger, metrics)
	var report pipeline.IngestReport
	if err := runner.Register(domain.JobIngest, "", func(ctx context.Context) error {
		var err error
		report, err = ingestor.Run(ctx)
		return err
	}); err != nil {
		logger.Error("register ingest job", "error", err)
		return 1
	}

	err := runner.Trigger(ctx, domain.JobIngest)
	for _, g := range report.Groups {
		logger.Info("group summary",
			"parameter", g.Series.Parameter,
			"files", len(g.Files),
			"rows", g.Rows,
			"skipped", g.Skipped,
			"days", g.Days,
			"first", g.First,
			"last", g.Last,
		)
	}
	if err != nil {
		return 1
	}
	return 0
}
