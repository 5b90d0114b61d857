package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/gauge-data-etl/internal/config"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &config.Config{LogLevel: "warn", LogFormat: "json"})

	logger.Info("hidden")
	logger.Warn("shown", "rows", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, float64(3), entry["rows"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &config.Config{LogLevel: "debug", LogFormat: "text"})

	logger.Debug("merged", "parameter", "water_level_cm")
	assert.Contains(t, buf.String(), "parameter=water_level_cm")
}

func TestMetrics_RegisterOnFreshRegistry(t *testing.T) {
	m := NewMetricsForTesting()
	reg := prometheus.NewRegistry()
	for _, c := range m.collectors() {
		require.NoError(t, reg.Register(c))
	}

	m.RowsIngested.WithLabelValues("water_level_cm").Add(5)
	m.JobRuns.WithLabelValues("migrate", "success").Inc()
	assert.Equal(t, 5.0, testutil.ToFloat64(m.RowsIngested.WithLabelValues("water_level_cm")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobRuns.WithLabelValues("migrate", "success")))
}

func TestNewUnregisteredMetrics_Repeatable(t *testing.T) {
	var first, second *Metrics
	assert.NotPanics(t, func() {
		first = NewUnregisteredMetrics()
		second = NewUnregisteredMetrics()
	})

	first.FilesIngested.WithLabelValues("water_level_cm").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(first.FilesIngested.WithLabelValues("water_level_cm")))
	assert.Equal(t, 0.0, testutil.ToFloat64(second.FilesIngested.WithLabelValues("water_level_cm")))

	for _, c := range first.collectors() {
		require.NoError(t, prometheus.DefaultRegisterer.Register(c), "not registered by the constructor")
		prometheus.DefaultRegisterer.Unregister(c)
	}
}
