package domain

import "time"

// LiveStatus marks records that come from live captures and were never
// quality-reviewed.
const LiveStatus = "Rohdaten"

// RawRecord is one observation at native granularity.
type RawRecord struct {
	StationID int
	Parameter Parameter
	// Timestamp is the naive wall-clock time as printed by the source, carried
	// in time.UTC.
	Timestamp time.Time
	Value     *float64
	Status    *string
}

// DailyAggregate summarizes the non-null values of one calendar date.
type DailyAggregate struct {
	StationID  int
	Parameter  Parameter
	Date       time.Time
	Count      int
	Mean       float64
	Min        float64
	Max        float64
	StatusMode *string
}

// Store update kinds.
const (
	UpdateRaw      = "raw"
	UpdateDaily    = "daily"
	UpdateMetadata = "metadata"
)

// StoreUpdate describes a completed write to one of the stores. It is
// published to downstream consumers after each job.
type StoreUpdate struct {
	Kind      string    `json:"kind"`
	StationID int       `json:"station_id"`
	Parameter Parameter `json:"parameter,omitempty"`
	Path      string    `json:"path"`
	Rows      int       `json:"rows"`
	First     time.Time `json:"first,omitzero"`
	Last      time.Time `json:"last,omitzero"`
	At        time.Time `json:"at"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// String returns a pointer to s.
func String(s string) *string { return &s }
