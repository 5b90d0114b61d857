package domain

import (
	"slices"
	"time"
)

// statusCount is one histogram bucket. Buckets keep first-encountered order.
type statusCount struct {
	label string
	count int
}

// DailyAccumulator holds the running statistics of one calendar date.
type DailyAccumulator struct {
	Sum   float64
	Count int
	Min   float64
	Max   float64

	statuses []statusCount
	index    map[string]int
}

// AddValue folds a non-null measurement into the running statistics.
func (a *DailyAccumulator) AddValue(v float64) {
	if a.Count == 0 {
		a.Min, a.Max = v, v
	} else {
		a.Min = min(a.Min, v)
		a.Max = max(a.Max, v)
	}
	a.Sum += v
	a.Count++
}

// AddStatus counts a non-null status label.
func (a *DailyAccumulator) AddStatus(label string) {
	if a.index == nil {
		a.index = make(map[string]int)
	}
	if i, ok := a.index[label]; ok {
		a.statuses[i].count++
		return
	}
	a.index[label] = len(a.statuses)
	a.statuses = append(a.statuses, statusCount{label: label, count: 1})
}

// Mean returns Sum/Count, or 0 for an empty accumulator.
func (a *DailyAccumulator) Mean() float64 {
	if a.Count == 0 {
		return 0
	}
	return a.Sum / float64(a.Count)
}

// StatusMode returns the most frequent status label. Ties go to the label
// encountered first. It returns nil if no status was counted.
func (a *DailyAccumulator) StatusMode() *string {
	best := -1
	for i, s := range a.statuses {
		if best < 0 || s.count > a.statuses[best].count {
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	label := a.statuses[best].label
	return &label
}

// DailyAggregator keeps one accumulator per calendar date. Memory is bounded by
// the number of distinct dates, not by the number of records.
type DailyAggregator struct {
	days map[time.Time]*DailyAccumulator
}

// NewDailyAggregator creates an empty aggregator.
func NewDailyAggregator() *DailyAggregator {
	return &DailyAggregator{days: make(map[time.Time]*DailyAccumulator)}
}

// Add folds a record into the accumulator of its calendar date.
func (g *DailyAggregator) Add(rec RawRecord) {
	day := CalendarDate(rec.Timestamp)
	acc, ok := g.days[day]
	if !ok {
		acc = &DailyAccumulator{}
		g.days[day] = acc
	}
	if rec.Value != nil {
		acc.AddValue(*rec.Value)
	}
	if rec.Status != nil {
		acc.AddStatus(*rec.Status)
	}
}

// AddBatch folds every record of a batch, in order.
func (g *DailyAggregator) AddBatch(batch []RawRecord) {
	for i := range batch {
		g.Add(batch[i])
	}
}

// Days returns the number of distinct dates seen so far.
func (g *DailyAggregator) Days() int {
	return len(g.days)
}

// Results materializes one DailyAggregate per date with at least one non-null
// value, ordered by date.
func (g *DailyAggregator) Results(series Series) []DailyAggregate {
	dates := make([]time.Time, 0, len(g.days))
	for d, acc := range g.days {
		if acc.Count > 0 {
			dates = append(dates, d)
		}
	}
	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })

	out := make([]DailyAggregate, 0, len(dates))
	for _, d := range dates {
		acc := g.days[d]
		out = append(out, DailyAggregate{
			StationID:  series.StationID,
			Parameter:  series.Parameter,
			Date:       d,
			Count:      acc.Count,
			Mean:       acc.Mean(),
			Min:        acc.Min,
			Max:        acc.Max,
			StatusMode: acc.StatusMode(),
		})
	}
	return out
}

// CalendarDate truncates a naive timestamp to midnight of its printed date.
func CalendarDate(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
