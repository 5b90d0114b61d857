package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/couchcryptid/gauge-data-etl/internal/adapter/livecapture"
	"github.com/couchcryptid/gauge-data-etl/internal/adapter/parquetstore"
	"github.com/couchcryptid/gauge-data-etl/internal/config"
	"github.com/couchcryptid/gauge-data-etl/internal/domain"
	"github.com/couchcryptid/gauge-data-etl/internal/observability"
)

// MigrateResult summarizes the merge of one parameter.
type MigrateResult struct {
	Series domain.Series
	Live   livecapture.Report
	Stats  domain.MergeStats
	First  time.Time
	Last   time.Time
	// Days is the number of daily aggregates written, when recomputed.
	Days int
}

// Migrator merges the live captures of a rolling window into the raw store.
type Migrator struct {
	publisher
	live           *livecapture.Reader
	stationID      int
	windowDays     int
	recomputeDaily bool
}

// NewMigrator creates a Migrator from the configuration.
func NewMigrator(cfg *config.Config, notifier Notifier, logger *slog.Logger, metrics *observability.Metrics) *Migrator {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	logger = logger.With("job", domain.JobMigrate)
	return &Migrator{
		publisher: publisher{
			layout:      parquetstore.Layout{Root: cfg.OutRoot},
			publishRoot: cfg.PublishRoot,
			notifier:    notifier,
			logger:      logger,
			metrics:     metrics,
		},
		live:           livecapture.NewReader(cfg.LiveDir, cfg.StationID, logger),
		stationID:      cfg.StationID,
		windowDays:     cfg.LiveWindowDays,
		recomputeDaily: cfg.RecomputeDaily,
	}
}

// Run migrates every parameter for the window ending today. A parameter
// without live records is skipped; the run fails only if every parameter was
// skipped or any parameter failed otherwise.
func (m *Migrator) Run(ctx context.Context) ([]MigrateResult, error) {
	end := domain.Now()
	var (
		results []MigrateResult
		errs    []error
		updates []domain.StoreUpdate
		empty   int
	)
	for _, param := range domain.Parameters {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := m.MigrateParameter(ctx, param, end)
		if errors.Is(err, domain.ErrNoLiveRecords) {
			empty++
			m.logger.Warn("no live records, skipping parameter", "parameter", param, "window_days", m.windowDays)
			continue
		}
		if err != nil {
			m.logger.Error("migration failed", "parameter", param, "error", err)
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
		updates = append(updates, m.resultUpdates(res)...)
	}
	if empty == len(domain.Parameters) {
		errs = append(errs, fmt.Errorf("migrate station %d: %w", m.stationID, domain.ErrNoLiveRecords))
	}

	m.notify(ctx, updates)
	return results, errors.Join(errs...)
}

// MigrateParameter reads the live window ending on end, merges it into the
// raw store of the parameter and replaces the artifact. Records sharing a
// timestamp with the store replace the stored record.
func (m *Migrator) MigrateParameter(ctx context.Context, param domain.Parameter, end time.Time) (MigrateResult, error) {
	series := domain.Series{StationID: m.stationID, Parameter: param}
	res := MigrateResult{Series: series}
	logger := m.logger.With("parameter", param, "station_id", m.stationID)

	incoming, report, err := m.live.ReadWindow(param, end, m.windowDays)
	res.Live = report
	m.metrics.LiveLinesSkipped.WithLabelValues(string(param)).Add(float64(report.Skipped + report.Foreign))
	if err != nil {
		return res, err
	}
	if len(incoming) == 0 {
		return res, fmt.Errorf("migrate %s: %w", param, domain.ErrNoLiveRecords)
	}
	logger.Info("live window read", "files", len(report.Files), "records", len(incoming), "skipped", report.Skipped)

	path := m.layout.RawPath(series)
	existing, err := parquetstore.ReadRaw(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Info("raw store absent, creating", "path", path)
	case err != nil:
		return res, fmt.Errorf("migrate %s: %w", param, err)
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	merged, stats := domain.MergeRecords(existing, incoming)
	if err := parquetstore.ReplaceRaw(path, merged); err != nil {
		return res, fmt.Errorf("migrate %s: %w", param, err)
	}
	res.Stats = stats
	res.First, res.Last = domain.TimeRange(merged)

	m.metrics.RecordsMerged.WithLabelValues(string(param), "new").Add(float64(stats.NetNew()))
	m.metrics.RecordsMerged.WithLabelValues(string(param), "replaced").Add(float64(stats.Replaced))
	m.metrics.StoreRows.WithLabelValues(string(param)).Set(float64(stats.Final))

	if err := m.mirrorFile(path); err != nil {
		return res, err
	}

	if m.recomputeDaily {
		daily, err := RecomputeDaily(ctx, m.layout, series)
		if err != nil {
			return res, err
		}
		res.Days = len(daily)
		if err := m.mirrorFile(m.layout.DailyPath(series)); err != nil {
			return res, err
		}
	}

	logger.Info("live records merged",
		"existing", stats.Existing,
		"incoming", stats.Incoming,
		"final", stats.Final,
		"net_new", stats.NetNew(),
		"first", res.First,
		"last", res.Last,
	)
	return res, nil
}

func (m *Migrator) resultUpdates(res MigrateResult) []domain.StoreUpdate {
	at := domain.Now().UTC()
	updates := []domain.StoreUpdate{{
		Kind:      domain.UpdateRaw,
		StationID: res.Series.StationID,
		Parameter: res.Series.Parameter,
		Path:      m.relPath(m.layout.RawPath(res.Series)),
		Rows:      res.Stats.Final,
		First:     res.First,
		Last:      res.Last,
		At:        at,
	}}
	if m.recomputeDaily {
		updates = append(updates, domain.StoreUpdate{
			Kind:      domain.UpdateDaily,
			StationID: res.Series.StationID,
			Parameter: res.Series.Parameter,
			Path:      m.relPath(m.layout.DailyPath(res.Series)),
			Rows:      res.Days,
			At:        at,
		})
	}
	return updates
}
