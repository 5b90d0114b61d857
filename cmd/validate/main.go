// Command validate checks the Parquet outputs of a station for completeness
// and internal consistency: raw stores ordered and free of duplicate
// timestamps, daily aggregates matching a recomputation from raw, recent data
// present, and the metadata document in place.
//
// Usage:
//
//	go run ./cmd/validate -out-root data/parquet -since 2025-12-26
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"math"
	"os"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/gauge-data-etl/internal/adapter/metadata"
	"github.com/couchcryptid/gauge-data-etl/internal/adapter/parquetstore"
	"github.com/couchcryptid/gauge-data-etl/internal/domain"
)

// maxListed bounds the number of offending rows reported per check.
const maxListed = 5

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// dataset is what was loaded for one parameter.
type dataset struct {
	series domain.Series
	raw    []domain.RawRecord
	daily  []domain.DailyAggregate
}

func main() {
	outRoot := flag.String("out-root", "data/parquet", "output directory holding raw/, daily/ and station_meta.json")
	stationID := flag.Int("station-id", 16005701, "station id of the stores")
	sinceStr := flag.String("since", "", "require raw records at or after this day (YYYY-MM-DD)")
	flag.Parse()

	var since time.Time
	if *sinceStr != "" {
		d, err := time.Parse(time.DateOnly, *sinceStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -since: %v\n", err)
			os.Exit(1)
		}
		since = d
	}

	os.Exit(run(parquetstore.Layout{Root: *outRoot}, *stationID, since))
}

func run(layout parquetstore.Layout, stationID int, since time.Time) int {
	fmt.Println("=== Gauge Data Completeness Check ===")
	fmt.Println()

	sets, err := loadAll(layout, stationID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	if len(sets) == 0 {
		fmt.Fprintf(os.Stderr, "FATAL: no raw stores for station %d under %s\n", stationID, layout.Root)
		return 1
	}

	for _, ds := range sets {
		printSummary(ds)
	}

	phases := []*phase{
		validateRawOrdering(sets),
		validateDailyConsistency(sets),
		validateRecency(sets, since),
		validateMetadata(layout, stationID),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadAll(layout parquetstore.Layout, stationID int) ([]dataset, error) {
	var sets []dataset
	for _, param := range domain.Parameters {
		series := domain.Series{StationID: stationID, Parameter: param}
		raw, err := parquetstore.ReadRaw(layout.RawPath(series))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		daily, err := parquetstore.ReadDaily(layout.DailyPath(series))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		sets = append(sets, dataset{series: series, raw: raw, daily: daily})
	}
	return sets, nil
}

// ── Summary ──

// valueStats summarizes the non-null values of a raw store.
type valueStats struct {
	n             int
	nulls         int
	mean, stddev  float64
	p05, p50, p95 float64
	maxGap        time.Duration
	maxGapAfter   time.Time
	first, last   time.Time
	latest        *float64
	latestAt      time.Time
	daysCovered   int
}

func summarize(raw []domain.RawRecord) valueStats {
	var s valueStats
	if len(raw) == 0 {
		return s
	}
	values := make([]float64, 0, len(raw))
	for i, r := range raw {
		if r.Value == nil {
			s.nulls++
		} else {
			values = append(values, *r.Value)
			s.latest, s.latestAt = r.Value, r.Timestamp
		}
		if i > 0 {
			if gap := r.Timestamp.Sub(raw[i-1].Timestamp); gap > s.maxGap {
				s.maxGap, s.maxGapAfter = gap, raw[i-1].Timestamp
			}
		}
	}
	s.first, s.last = domain.TimeRange(raw)
	s.daysCovered = int(domain.CalendarDate(s.last).Sub(domain.CalendarDate(s.first)).Hours()/24) + 1
	s.n = len(values)
	if s.n == 0 {
		return s
	}
	s.mean, s.stddev = stat.MeanStdDev(values, nil)
	slices.Sort(values)
	s.p05 = stat.Quantile(0.05, stat.Empirical, values, nil)
	s.p50 = stat.Quantile(0.5, stat.Empirical, values, nil)
	s.p95 = stat.Quantile(0.95, stat.Empirical, values, nil)
	return s
}

func printSummary(ds dataset) {
	unit := ds.series.Parameter.Unit()
	s := summarize(ds.raw)
	fmt.Printf("%s (raw):\n", ds.series.Parameter)
	fmt.Printf("   Total records: %d (%d null values)\n", len(ds.raw), s.nulls)
	if len(ds.raw) == 0 {
		fmt.Println()
		return
	}
	fmt.Printf("   Date range: %s to %s\n", s.first.Format(time.DateTime), s.last.Format(time.DateTime))
	fmt.Printf("   Days covered: %d\n", s.daysCovered)
	if s.n > 1 {
		fmt.Printf("   Values: mean %.2f %s, stddev %.2f, p05 %.2f, median %.2f, p95 %.2f\n",
			s.mean, unit, s.stddev, s.p05, s.p50, s.p95)
	}
	if s.latest != nil {
		fmt.Printf("   Latest value: %s = %.1f %s\n", s.latestAt.Format(time.DateTime), *s.latest, unit)
	}
	if s.maxGap > 0 {
		fmt.Printf("   Largest gap: %s after %s\n", s.maxGap, s.maxGapAfter.Format(time.DateTime))
	}
	if n := len(ds.daily); n > 0 {
		latest := ds.daily[n-1]
		fmt.Printf("   Daily aggregates: %d days, %s to %s\n", n,
			ds.daily[0].Date.Format(time.DateOnly), latest.Date.Format(time.DateOnly))
		fmt.Printf("     Latest day %s: mean %.2f, min %.2f, max %.2f, count %d\n",
			latest.Date.Format(time.DateOnly), latest.Mean, latest.Min, latest.Max, latest.Count)
	}
	fmt.Println()
}

// ── Phases ──

func validateRawOrdering(sets []dataset) *phase {
	p := &phase{name: "Raw stores ordered and deduplicated"}
	for _, ds := range sets {
		listed := 0
		for i, r := range ds.raw {
			if r.StationID != ds.series.StationID || r.Parameter != ds.series.Parameter {
				if listed < maxListed {
					p.errorf("%s row %d: belongs to %d/%s", ds.series.Parameter, i, r.StationID, r.Parameter)
				}
				listed++
			}
			if r.Value != nil && (math.IsNaN(*r.Value) || math.IsInf(*r.Value, 0)) {
				if listed < maxListed {
					p.errorf("%s row %d: non-finite value", ds.series.Parameter, i)
				}
				listed++
			}
			if i == 0 {
				continue
			}
			switch prev := ds.raw[i-1].Timestamp; {
			case r.Timestamp.Equal(prev):
				if listed < maxListed {
					p.errorf("%s row %d: duplicate timestamp %s", ds.series.Parameter, i, r.Timestamp.Format(time.DateTime))
				}
				listed++
			case r.Timestamp.Before(prev):
				if listed < maxListed {
					p.errorf("%s row %d: %s before %s", ds.series.Parameter, i, r.Timestamp.Format(time.DateTime), prev.Format(time.DateTime))
				}
				listed++
			}
		}
		if listed > maxListed {
			p.errorf("%s: %d more problems", ds.series.Parameter, listed-maxListed)
		}
	}
	return p
}

func validateDailyConsistency(sets []dataset) *phase {
	p := &phase{name: "Daily aggregates match raw"}
	for _, ds := range sets {
		if ds.daily == nil {
			p.errorf("%s: daily aggregate store missing", ds.series.Parameter)
			continue
		}
		agg := domain.NewDailyAggregator()
		agg.AddBatch(ds.raw)
		want := agg.Results(ds.series)

		if len(want) != len(ds.daily) {
			p.errorf("%s: %d daily rows, raw yields %d", ds.series.Parameter, len(ds.daily), len(want))
			continue
		}
		listed := 0
		for i, got := range ds.daily {
			if msg := diffAggregate(want[i], got); msg != "" {
				if listed < maxListed {
					p.errorf("%s %s: %s", ds.series.Parameter, got.Date.Format(time.DateOnly), msg)
				}
				listed++
			}
		}
		if listed > maxListed {
			p.errorf("%s: %d more mismatching days", ds.series.Parameter, listed-maxListed)
		}
	}
	return p
}

func diffAggregate(want, got domain.DailyAggregate) string {
	const eps = 1e-9
	switch {
	case !want.Date.Equal(got.Date):
		return fmt.Sprintf("date %s, want %s", got.Date.Format(time.DateOnly), want.Date.Format(time.DateOnly))
	case want.Count != got.Count:
		return fmt.Sprintf("count %d, want %d", got.Count, want.Count)
	case math.Abs(want.Mean-got.Mean) > eps:
		return fmt.Sprintf("mean %.4f, want %.4f", got.Mean, want.Mean)
	case want.Min != got.Min || want.Max != got.Max:
		return fmt.Sprintf("range [%g, %g], want [%g, %g]", got.Min, got.Max, want.Min, want.Max)
	case !sameLabel(want.StatusMode, got.StatusMode):
		return fmt.Sprintf("status mode %s, want %s", label(got.StatusMode), label(want.StatusMode))
	case got.Min > got.Mean+eps || got.Mean > got.Max+eps:
		return fmt.Sprintf("mean %.4f outside [%g, %g]", got.Mean, got.Min, got.Max)
	}
	return ""
}

func sameLabel(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func label(s *string) string {
	if s == nil {
		return "<null>"
	}
	return *s
}

func validateRecency(sets []dataset, since time.Time) *phase {
	p := &phase{name: "Recent data present"}
	if since.IsZero() {
		return p
	}
	for _, ds := range sets {
		_, last := domain.TimeRange(ds.raw)
		if last.Before(since) {
			p.errorf("%s: latest record %s is before %s", ds.series.Parameter,
				last.Format(time.DateTime), since.Format(time.DateOnly))
		}
	}
	return p
}

func validateMetadata(layout parquetstore.Layout, stationID int) *phase {
	p := &phase{name: "Station metadata published"}
	doc, err := metadata.Load(layout.MetadataPath())
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	if doc.Station == nil {
		p.errorf("station descriptor missing")
		return p
	}
	if doc.Station.StationID != stationID {
		p.errorf("station id %d, want %d", doc.Station.StationID, stationID)
	}
	if doc.GeneratedAt.IsZero() {
		p.errorf("generated_at missing")
	}
	if len(doc.WaterLevelFiles) == 0 && len(doc.WaterTemperatureFiles) == 0 {
		p.errorf("no source files listed")
	}
	return p
}
