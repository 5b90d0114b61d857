package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/gauge-data-etl/internal/adapter/metadata"
	"github.com/couchcryptid/gauge-data-etl/internal/adapter/parquetstore"
	"github.com/couchcryptid/gauge-data-etl/internal/domain"
)

var level = domain.Series{StationID: 16005701, Parameter: domain.WaterLevel}

func rec(ts string, v float64) domain.RawRecord {
	t, err := time.Parse("2006-01-02 15:04", ts)
	if err != nil {
		panic(err)
	}
	return domain.RawRecord{StationID: level.StationID, Parameter: level.Parameter, Timestamp: t, Value: domain.Float(v), Status: domain.String("Geprueft")}
}

func writeStores(t *testing.T, layout parquetstore.Layout, raw []domain.RawRecord) {
	t.Helper()
	require.NoError(t, parquetstore.ReplaceRaw(layout.RawPath(level), raw))
	agg := domain.NewDailyAggregator()
	agg.AddBatch(raw)
	require.NoError(t, parquetstore.WriteDaily(layout.DailyPath(level), agg.Results(level)))
}

func TestRun_ConsistentStores(t *testing.T) {
	layout := parquetstore.Layout{Root: t.TempDir()}
	writeStores(t, layout, []domain.RawRecord{
		rec("2025-12-26 00:15", 87),
		rec("2025-12-26 00:30", 88),
		rec("2025-12-27 00:00", 91.5),
	})
	station := &domain.StationDescriptor{StationID: level.StationID, Name: "München"}
	require.NoError(t, metadata.Publish(layout.MetadataPath(), metadata.NewDocument(station, map[domain.Parameter][]string{
		domain.WaterLevel: {"16005701_a.csv"},
	})))

	since := time.Date(2025, 12, 26, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, run(layout, level.StationID, since))
}

func TestRun_NoStores(t *testing.T) {
	assert.Equal(t, 1, run(parquetstore.Layout{Root: t.TempDir()}, level.StationID, time.Time{}))
}

func TestValidateRawOrdering(t *testing.T) {
	sets := []dataset{{series: level, raw: []domain.RawRecord{
		rec("2025-12-26 00:30", 88),
		rec("2025-12-26 00:15", 87),
		rec("2025-12-26 00:15", 86),
	}}}

	p := validateRawOrdering(sets)
	require.Len(t, p.errors, 2)
	assert.Contains(t, p.errors[0], "before")
	assert.Contains(t, p.errors[1], "duplicate timestamp")
}

func TestValidateDailyConsistency_StaleDaily(t *testing.T) {
	raw := []domain.RawRecord{rec("2025-12-26 00:15", 87), rec("2025-12-26 00:30", 88)}
	agg := domain.NewDailyAggregator()
	agg.AddBatch(raw[:1])

	p := validateDailyConsistency([]dataset{{series: level, raw: raw, daily: agg.Results(level)}})
	require.Len(t, p.errors, 1)
	assert.Contains(t, p.errors[0], "count 1, want 2")

	p = validateDailyConsistency([]dataset{{series: level, raw: raw}})
	require.Len(t, p.errors, 1)
	assert.Contains(t, p.errors[0], "missing")
}

func TestValidateRecency(t *testing.T) {
	sets := []dataset{{series: level, raw: []domain.RawRecord{rec("2025-12-20 00:00", 80)}}}

	assert.True(t, validateRecency(sets, time.Time{}).passed())
	assert.False(t, validateRecency(sets, time.Date(2025, 12, 26, 0, 0, 0, 0, time.UTC)).passed())
}

func TestSummarize(t *testing.T) {
	raw := []domain.RawRecord{
		rec("2025-12-26 00:00", 10),
		rec("2025-12-26 00:15", 20),
		{StationID: level.StationID, Parameter: level.Parameter, Timestamp: time.Date(2025, 12, 26, 1, 15, 0, 0, time.UTC)},
		rec("2025-12-27 00:00", 30),
	}
	s := summarize(raw)

	assert.Equal(t, 3, s.n)
	assert.Equal(t, 1, s.nulls)
	assert.InDelta(t, 20.0, s.mean, 1e-9)
	assert.InDelta(t, 10.0, s.stddev, 1e-9)
	assert.Equal(t, 20.0, s.p50)
	assert.Equal(t, 2, s.daysCovered)
	assert.Equal(t, 30.0, *s.latest)
	assert.Equal(t, 22*time.Hour+45*time.Minute, s.maxGap)
}
