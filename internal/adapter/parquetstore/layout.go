package parquetstore

import (
	"fmt"
	"path/filepath"

	"github.com/couchcryptid/gauge-data-etl/internal/domain"
)

// MetadataFile is the name of the station metadata document under the root.
const MetadataFile = "station_meta.json"

// Layout maps series to artifact paths under an output root:
//
//	<root>/raw/station_<id>_<parameter>.parquet
//	<root>/daily/station_<id>_<parameter>_daily.parquet
//	<root>/station_meta.json
type Layout struct {
	Root string
}

// RawPath returns the raw store artifact of a series.
func (l Layout) RawPath(s domain.Series) string {
	return filepath.Join(l.Root, "raw", fmt.Sprintf("station_%d_%s.parquet", s.StationID, s.Parameter))
}

// DailyPath returns the daily aggregate artifact of a series.
func (l Layout) DailyPath(s domain.Series) string {
	return filepath.Join(l.Root, "daily", fmt.Sprintf("station_%d_%s_daily.parquet", s.StationID, s.Parameter))
}

// MetadataPath returns the station metadata document.
func (l Layout) MetadataPath() string {
	return filepath.Join(l.Root, MetadataFile)
}

// Rel returns path relative to the layout root, for mirroring.
func (l Layout) Rel(path string) (string, error) {
	return filepath.Rel(l.Root, path)
}
