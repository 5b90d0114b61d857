package pipeline_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/gauge-data-etl/internal/config"
	"github.com/couchcryptid/gauge-data-etl/internal/domain"
	"github.com/couchcryptid/gauge-data-etl/internal/observability"
)

const testStation = 16005701

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	return &config.Config{
		DataRoot:       filepath.Join(root, "data"),
		OutRoot:        filepath.Join(root, "data", "parquet"),
		LiveDir:        filepath.Join(root, "data", "current"),
		StationID:      testStation,
		ChunkSize:      2,
		LiveWindowDays: 7,
	}
}

func freezeClock(t *testing.T, at time.Time) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(at))
	t.Cleanup(func() { domain.SetClock(nil) })
}

// writeExport writes a bulk export in the LfU layout with the given table rows.
func writeExport(t *testing.T, cfg *config.Config, param domain.Parameter, name string, rows ...string) string {
	t.Helper()
	label := "Wasserstand [cm]"
	if param == domain.WaterTemperature {
		label = "Wassertemperatur [°C]"
	}
	lines := []string{
		"\ufeffQuelle:;Bayerisches Landesamt für Umwelt, www.nid.bayern.de",
		"Zeitbezug:;MEZ/MESZ",
		"Messstellen-Name:;München",
		"Messstellen-Nr.:;16005701",
		"Gewässer:;Isar",
		`Ostwert:;693161;Nordwert:;5335716;"ETRS89 / UTM Zone 32N"`,
		"Pegelnullpunktshöhe:;508,81 m NHN",
		"",
		`Datum;"` + label + `";Prüfstatus`,
	}
	lines = append(lines, rows...)
	path := filepath.Join(cfg.DataRoot, param.ExportDir(), name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\r\n")+"\r\n"), 0o644))
	return path
}

func writeLive(t *testing.T, cfg *config.Config, name string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(cfg.LiveDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.LiveDir, name), []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func ts(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

type recordingNotifier struct {
	mu      sync.Mutex
	updates []domain.StoreUpdate
	err     error
}

func (n *recordingNotifier) Notify(_ context.Context, updates []domain.StoreUpdate) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.updates = append(n.updates, updates...)
	return nil
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.updates))
	for i, u := range n.updates {
		out[i] = u.Kind + ":" + string(u.Parameter)
	}
	return out
}
