package domain

import (
	"slices"
	"time"
)

// MergeStats summarizes a merge of incoming records into an existing store.
type MergeStats struct {
	Existing int
	Incoming int
	Final    int
	Replaced int
}

// NetNew is the number of rows the merge added to the store.
func (s MergeStats) NetNew() int {
	return s.Final - s.Existing
}

// MergeRecords concatenates existing and incoming records, keeps one record per
// timestamp (the later one in concatenation order wins) and sorts the result by
// timestamp. The sort is stable, so merging the same input twice yields the
// same output.
func MergeRecords(existing, incoming []RawRecord) ([]RawRecord, MergeStats) {
	stats := MergeStats{Existing: len(existing), Incoming: len(incoming)}

	out := make([]RawRecord, 0, len(existing)+len(incoming))
	pos := make(map[int64]int, len(existing)+len(incoming))
	for _, batch := range [][]RawRecord{existing, incoming} {
		for _, rec := range batch {
			key := rec.Timestamp.UnixNano()
			if i, ok := pos[key]; ok {
				out[i] = rec
				stats.Replaced++
				continue
			}
			pos[key] = len(out)
			out = append(out, rec)
		}
	}

	slices.SortStableFunc(out, func(a, b RawRecord) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	stats.Final = len(out)
	return out, stats
}

// TimeRange returns the first and last timestamp of records sorted by time.
func TimeRange(records []RawRecord) (first, last time.Time) {
	if len(records) == 0 {
		return time.Time{}, time.Time{}
	}
	return records[0].Timestamp, records[len(records)-1].Timestamp
}
