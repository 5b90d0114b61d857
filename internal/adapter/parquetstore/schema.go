// Package parquetstore persists raw observations and daily aggregates as
// zstd-compressed Parquet files.
package parquetstore

import (
	"time"

	"github.com/couchcryptid/gauge-data-etl/internal/domain"
)

// rawRow is the on-disk schema of the raw store. Timestamps are naive wall
// clock values written as nanoseconds and annotated as not adjusted to UTC.
type rawRow struct {
	StationID int32     `parquet:"station_id"`
	Parameter string    `parquet:"parameter"`
	Ts        time.Time `parquet:"ts,timestamp(nanosecond:local)"`
	Value     *float64  `parquet:"value,optional"`
	Status    *string   `parquet:"status,optional"`
}

// dailyRow is the on-disk schema of the daily aggregate store. Date holds days
// since the Unix epoch.
type dailyRow struct {
	StationID  int32   `parquet:"station_id"`
	Parameter  string  `parquet:"parameter"`
	Date       int32   `parquet:"date,date"`
	Count      int32   `parquet:"count"`
	Mean       float64 `parquet:"mean"`
	Min        float64 `parquet:"min"`
	Max        float64 `parquet:"max"`
	StatusMode *string `parquet:"status_mode,optional"`
}

const secondsPerDay = 24 * 60 * 60

func toRawRow(r domain.RawRecord) rawRow {
	return rawRow{
		StationID: int32(r.StationID),
		Parameter: string(r.Parameter),
		Ts:        r.Timestamp,
		Value:     r.Value,
		Status:    r.Status,
	}
}

func fromRawRow(r rawRow) domain.RawRecord {
	return domain.RawRecord{
		StationID: int(r.StationID),
		Parameter: domain.ParseParameter(r.Parameter),
		Timestamp: r.Ts.UTC(),
		Value:     r.Value,
		Status:    r.Status,
	}
}

func toDailyRow(a domain.DailyAggregate) dailyRow {
	return dailyRow{
		StationID:  int32(a.StationID),
		Parameter:  string(a.Parameter),
		Date:       int32(domain.CalendarDate(a.Date).Unix() / secondsPerDay),
		Count:      int32(a.Count),
		Mean:       a.Mean,
		Min:        a.Min,
		Max:        a.Max,
		StatusMode: a.StatusMode,
	}
}

func fromDailyRow(r dailyRow) domain.DailyAggregate {
	return domain.DailyAggregate{
		StationID:  int(r.StationID),
		Parameter:  domain.ParseParameter(r.Parameter),
		Date:       time.Unix(int64(r.Date)*secondsPerDay, 0).UTC(),
		Count:      int(r.Count),
		Mean:       r.Mean,
		Min:        r.Min,
		Max:        r.Max,
		StatusMode: r.StatusMode,
	}
}
