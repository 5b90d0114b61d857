package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/gauge-data-etl/internal/adapter/parquetstore"
	"github.com/couchcryptid/gauge-data-etl/internal/domain"
)

// RecomputeDaily rebuilds the daily aggregate artifact of a series from its
// raw store in a single streaming pass. It is idempotent and returns the
// aggregates written.
func RecomputeDaily(ctx context.Context, layout parquetstore.Layout, series domain.Series) ([]domain.DailyAggregate, error) {
	agg := domain.NewDailyAggregator()
	err := parquetstore.ScanRaw(layout.RawPath(series), parquetstore.DefaultScanBatch, func(batch []domain.RawRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		agg.AddBatch(batch)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("recompute daily %s: %w", series.Parameter, err)
	}
	results := agg.Results(series)
	if err := parquetstore.WriteDaily(layout.DailyPath(series), results); err != nil {
		return nil, fmt.Errorf("recompute daily %s: %w", series.Parameter, err)
	}
	return results, nil
}
