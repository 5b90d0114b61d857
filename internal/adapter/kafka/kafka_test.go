package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/gauge-data-etl/internal/config"
	"github.com/couchcryptid/gauge-data-etl/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)
	update := domain.StoreUpdate{
		Kind:      domain.UpdateRaw,
		StationID: 16005701,
		Parameter: domain.WaterLevel,
		Path:      "raw/station_16005701_water_level_cm.parquet",
		Rows:      1200,
		First:     time.Date(2025, 12, 26, 0, 15, 0, 0, time.UTC),
		Last:      time.Date(2026, 1, 2, 2, 45, 0, 0, time.UTC),
		At:        now,
	}

	msg, err := serializeToMessage(update)
	require.NoError(t, err)

	assert.Equal(t, []byte("16005701/water_level_cm"), msg.Key)
	assert.Contains(t, string(msg.Value), `"kind":"raw"`)
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "kind", msg.Headers[0].Key)
	assert.Equal(t, []byte("raw"), msg.Headers[0].Value)
	assert.Equal(t, "processed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)

	var decoded domain.StoreUpdate
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, 1200, decoded.Rows)
	assert.True(t, update.Last.Equal(decoded.Last))
}

func TestSerializeToMessage_Metadata(t *testing.T) {
	msg, err := serializeToMessage(domain.StoreUpdate{Kind: domain.UpdateMetadata, StationID: 16005701, Path: "station_meta.json"})
	require.NoError(t, err)

	assert.Equal(t, []byte("16005701"), msg.Key)
	assert.NotContains(t, string(msg.Value), `"parameter"`)
	assert.NotContains(t, string(msg.Value), `"first"`)
}

func TestNotify_EmptyIsNoop(t *testing.T) {
	n := NewNotifier(&config.Config{KafkaBrokers: []string{"localhost:1"}, KafkaTopic: "t"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = n.Close() })

	assert.NoError(t, n.Notify(context.Background(), nil))
}
