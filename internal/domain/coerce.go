package domain

import (
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// timestampLayouts are tried in order. Current exports print ISO dates; older
// exports and the public web table use the German day-first form.
var timestampLayouts = []string{
	"2006-01-02 15:04",
	"02.01.2006 15:04",
	"2006-01-02 15:04:05",
	"02.01.2006 15:04:05",
}

// statusFolds maps known spelling variants of status labels to their
// canonical form. Labels are NFC-normalized before folding.
var statusFolds = strings.NewReplacer(
	"Geprüft", "Geprueft",
	"geprüft", "geprueft",
)

// ParseTimestamp parses a table timestamp as naive wall-clock time carried in
// time.UTC. It reports false if no known layout matches.
func ParseTimestamp(s string) (time.Time, bool) {
	s = unquote(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// ParseValue parses a measurement with either a decimal comma or period.
// Empty, non-numeric and non-finite inputs yield nil.
func ParseValue(s string) *float64 {
	s = unquote(s)
	if isNullToken(s) {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// NormalizeStatus trims a quality-status label and folds known spelling
// variants. Empty and "nan"-like labels yield nil.
func NormalizeStatus(s string) *string {
	s = unquote(s)
	if isNullToken(s) {
		return nil
	}
	s = statusFolds.Replace(norm.NFC.String(s))
	return &s
}

// CoerceRow converts the fields of one table row into a RawRecord. Rows with a
// missing or unparseable timestamp are reported as skipped. Invalid values and
// statuses are kept as nil.
func CoerceRow(series Series, line int, fields []string) (RawRecord, *SkippedRow) {
	if len(fields) == 0 {
		return RawRecord{}, &SkippedRow{Line: line, Reason: ReasonShortRow}
	}
	ts, ok := ParseTimestamp(fields[0])
	if !ok {
		return RawRecord{}, &SkippedRow{Line: line, Reason: ReasonBadTimestamp, Raw: fields[0]}
	}
	rec := RawRecord{
		StationID: series.StationID,
		Parameter: series.Parameter,
		Timestamp: ts,
	}
	if len(fields) > 1 {
		rec.Value = ParseValue(fields[1])
	}
	if len(fields) > 2 {
		rec.Status = NormalizeStatus(fields[2])
	}
	return rec, nil
}

func isNullToken(s string) bool {
	switch strings.ToLower(s) {
	case "", "nan", "none", "null", "na", "n/a":
		return true
	}
	return false
}
