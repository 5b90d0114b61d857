package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrHeaderNotFound means a file has no "Datum;" table header line. The file
	// cannot be ingested at all.
	ErrHeaderNotFound = errors.New("table header not found")
	// ErrStationIDMissing means no header line yielded a non-zero station id.
	ErrStationIDMissing = errors.New("station id missing")
	// ErrNoLiveRecords means the live-capture window held no usable records.
	ErrNoLiveRecords = errors.New("no live records in window")
)

// Kinds of fatal ingestion failures.
const (
	KindHeaderNotFound   = "header_not_found"
	KindStationIDMissing = "station_id_missing"
	KindIO               = "io"
)

// FatalIngestError aborts the ingestion of a file or group. Callers decide
// whether the run continues with other groups.
type FatalIngestError struct {
	Kind string
	File string
	Err  error
}

func (e *FatalIngestError) Error() string {
	return fmt.Sprintf("ingest %s: %s: %v", e.File, e.Kind, e.Err)
}

func (e *FatalIngestError) Unwrap() error { return e.Err }

// NewFatalIngestError classifies err by its sentinel and wraps it with the file.
func NewFatalIngestError(file string, err error) *FatalIngestError {
	kind := KindIO
	switch {
	case errors.Is(err, ErrHeaderNotFound):
		kind = KindHeaderNotFound
	case errors.Is(err, ErrStationIDMissing):
		kind = KindStationIDMissing
	}
	return &FatalIngestError{Kind: kind, File: file, Err: err}
}

// Reasons a row is skipped during coercion.
const (
	ReasonBadTimestamp = "bad_timestamp"
	ReasonShortRow     = "short_row"
)

// SkippedRow records a row that was dropped and why. Skipped rows never abort
// ingestion.
type SkippedRow struct {
	Line   int
	Reason string
	Raw    string
}

func (s SkippedRow) String() string {
	return fmt.Sprintf("line %d: %s (%q)", s.Line, s.Reason, s.Raw)
}
