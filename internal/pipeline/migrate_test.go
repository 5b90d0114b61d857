package pipeline_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/gauge-data-etl/internal/adapter/parquetstore"
	"github.com/couchcryptid/gauge-data-etl/internal/domain"
	"github.com/couchcryptid/gauge-data-etl/internal/pipeline"
)

var levelSeries = domain.Series{StationID: testStation, Parameter: domain.WaterLevel}

func seedStore(t *testing.T, path string, recs ...domain.RawRecord) {
	t.Helper()
	require.NoError(t, parquetstore.ReplaceRaw(path, recs))
}

func TestMigrator_MergesIntoExistingStore(t *testing.T) {
	freezeClock(t, time.Date(2026, 1, 26, 10, 0, 0, 0, time.UTC))
	cfg := testConfig(t)
	cfg.PublishRoot = filepath.Join(t.TempDir(), "public")
	layout := parquetstore.Layout{Root: cfg.OutRoot}
	path := layout.RawPath(levelSeries)

	seedStore(t, path,
		domain.RawRecord{StationID: testStation, Parameter: domain.WaterLevel, Timestamp: ts("2026-01-25 09:00"), Value: domain.Float(80), Status: domain.String("Geprueft")},
		domain.RawRecord{StationID: testStation, Parameter: domain.WaterLevel, Timestamp: ts("2026-01-25 09:15"), Value: domain.Float(81), Status: domain.String("Geprueft")},
	)
	writeLive(t, cfg, "water_level_2026-01-25.jsonl",
		`{"station_id":"16005701","timestamp":"2026-01-25T09:15:00","value_cm":82,"date":"2026-01-25","fetched_at":"2026-01-25T09:20:00"}`,
	)
	writeLive(t, cfg, "water_level_2026-01-26.jsonl",
		`{"station_id":"16005701","timestamp":"2026-01-26T09:30:00","value_cm":83}`,
		`{broken`,
	)

	notifier := &recordingNotifier{}
	metrics := newTestMetrics()
	m := pipeline.NewMigrator(cfg, notifier, discardLogger(), metrics)

	results, err := m.Run(context.Background())
	require.NoError(t, err, "temperature without live data is skipped")
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, domain.MergeStats{Existing: 2, Incoming: 2, Final: 3, Replaced: 1}, res.Stats)
	assert.Equal(t, 1, res.Live.Skipped)
	assert.Equal(t, ts("2026-01-25 09:00"), res.First)
	assert.Equal(t, ts("2026-01-26 09:30"), res.Last)

	got, err := parquetstore.ReadRaw(path)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 80.0, *got[0].Value)
	assert.Equal(t, 82.0, *got[1].Value, "live capture replaces the stored value")
	assert.Equal(t, domain.LiveStatus, *got[1].Status)
	assert.Equal(t, 83.0, *got[2].Value)

	mirrored, err := parquetstore.ReadRaw(filepath.Join(cfg.PublishRoot, "raw", "station_16005701_water_level_cm.parquet"))
	require.NoError(t, err)
	if diff := cmp.Diff(got, mirrored); diff != "" {
		t.Errorf("mirror mismatch (-store +mirror):\n%s", diff)
	}

	assert.Equal(t, []string{"raw:water_level_cm"}, notifier.kinds())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RecordsMerged.WithLabelValues("water_level_cm", "new")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RecordsMerged.WithLabelValues("water_level_cm", "replaced")))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.StoreRows.WithLabelValues("water_level_cm")))
}

func TestMigrator_Idempotent(t *testing.T) {
	freezeClock(t, time.Date(2026, 1, 26, 10, 0, 0, 0, time.UTC))
	cfg := testConfig(t)
	writeLive(t, cfg, "water_temperature_2026-01-26.jsonl",
		`{"station_id":16005701,"timestamp":"2026-01-26T09:30:00","value_c":3.9}`,
		`{"station_id":16005701,"timestamp":"2026-01-26T09:00:00","value_c":"3,8"}`,
	)
	m := pipeline.NewMigrator(cfg, nil, discardLogger(), newTestMetrics())
	path := parquetstore.Layout{Root: cfg.OutRoot}.RawPath(domain.Series{StationID: testStation, Parameter: domain.WaterTemperature})

	_, err := m.MigrateParameter(context.Background(), domain.WaterTemperature, domain.Now())
	require.NoError(t, err)
	first, err := parquetstore.ReadRaw(path)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, ts("2026-01-26 09:00"), first[0].Timestamp, "new store is sorted")

	res, err := m.MigrateParameter(context.Background(), domain.WaterTemperature, domain.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Stats.NetNew())
	second, err := parquetstore.ReadRaw(path)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second migration changed the store (-first +second):\n%s", diff)
	}
}

func TestMigrator_WindowExcludesOldFiles(t *testing.T) {
	freezeClock(t, time.Date(2026, 1, 26, 10, 0, 0, 0, time.UTC))
	cfg := testConfig(t)
	cfg.LiveWindowDays = 2
	writeLive(t, cfg, "water_level_2026-01-24.jsonl",
		`{"station_id":"16005701","timestamp":"2026-01-24T09:00:00","value_cm":70}`,
	)
	m := pipeline.NewMigrator(cfg, nil, discardLogger(), newTestMetrics())

	_, err := m.MigrateParameter(context.Background(), domain.WaterLevel, domain.Now())
	assert.ErrorIs(t, err, domain.ErrNoLiveRecords)
}

func TestMigrator_NoLiveRecordsAnywhere(t *testing.T) {
	freezeClock(t, time.Date(2026, 1, 26, 10, 0, 0, 0, time.UTC))
	cfg := testConfig(t)
	notifier := &recordingNotifier{}
	m := pipeline.NewMigrator(cfg, notifier, discardLogger(), newTestMetrics())

	results, err := m.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoLiveRecords)
	assert.Empty(t, results)
	assert.Empty(t, notifier.kinds())
}

func TestMigrator_RecomputeDaily(t *testing.T) {
	freezeClock(t, time.Date(2026, 1, 26, 10, 0, 0, 0, time.UTC))
	cfg := testConfig(t)
	cfg.RecomputeDaily = true
	layout := parquetstore.Layout{Root: cfg.OutRoot}

	seedStore(t, layout.RawPath(levelSeries),
		domain.RawRecord{StationID: testStation, Parameter: domain.WaterLevel, Timestamp: ts("2026-01-25 09:00"), Value: domain.Float(80), Status: domain.String("Geprueft")},
	)
	writeLive(t, cfg, "water_level_2026-01-26.jsonl",
		`{"station_id":"16005701","timestamp":"2026-01-26T09:00:00","value_cm":90}`,
		`{"station_id":"16005701","timestamp":"2026-01-26T09:15:00","value_cm":92}`,
	)
	notifier := &recordingNotifier{}
	m := pipeline.NewMigrator(cfg, notifier, discardLogger(), newTestMetrics())

	results, err := m.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].Days)

	daily, err := parquetstore.ReadDaily(layout.DailyPath(levelSeries))
	require.NoError(t, err)
	require.Len(t, daily, 2)
	assert.Equal(t, 1, daily[0].Count)
	assert.Equal(t, 2, daily[1].Count)
	assert.InDelta(t, 91.0, daily[1].Mean, 1e-9)
	assert.Equal(t, domain.LiveStatus, *daily[1].StatusMode)

	assert.Equal(t, []string{"raw:water_level_cm", "daily:water_level_cm"}, notifier.kinds())
}

func TestRecomputeDaily_MissingStore(t *testing.T) {
	layout := parquetstore.Layout{Root: t.TempDir()}
	_, err := pipeline.RecomputeDaily(context.Background(), layout, levelSeries)
	assert.Error(t, err)
}
