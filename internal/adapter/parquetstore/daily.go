package parquetstore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/couchcryptid/gauge-data-etl/internal/domain"
)

// WriteDaily replaces the daily aggregate artifact at path.
func WriteDaily(path string, aggregates []domain.DailyAggregate) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	rows := make([]dailyRow, len(aggregates))
	for i, a := range aggregates {
		rows[i] = toDailyRow(a)
	}

	partial := path + PartialSuffix
	if err := parquet.WriteFile(partial, rows, parquet.Compression(&parquet.Zstd)); err != nil {
		return fmt.Errorf("write daily store: %w", err)
	}
	if err := os.Rename(partial, path); err != nil {
		return fmt.Errorf("publish daily store: %w", err)
	}
	return nil
}

// ReadDaily loads a daily aggregate artifact.
func ReadDaily(path string) ([]domain.DailyAggregate, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open daily store: %w", err)
	}
	rows, err := parquet.ReadFile[dailyRow](path)
	if err != nil {
		return nil, fmt.Errorf("read daily store %s: %w", path, err)
	}
	out := make([]domain.DailyAggregate, len(rows))
	for i, r := range rows {
		out[i] = fromDailyRow(r)
	}
	return out, nil
}
