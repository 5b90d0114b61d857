package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// liveTimestampLayouts are tried in order. Offsets, if present, are ignored:
// only the printed wall clock is kept.
var liveTimestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// LiveCapture is one line of a live-capture file as written by the scraper.
type LiveCapture struct {
	StationID FlexInt          `json:"station_id"`
	Timestamp string           `json:"timestamp"`
	ValueCM   *json.RawMessage `json:"value_cm,omitempty"`
	ValueC    *json.RawMessage `json:"value_c,omitempty"`
	Date      string           `json:"date,omitempty"`
	FetchedAt string           `json:"fetched_at,omitempty"`
}

// FlexInt decodes a JSON number or a numeric string. The scraper writes the
// station id as a string.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(strings.TrimSpace(s))
	}
	v, err := strconv.Atoi(string(b))
	if err != nil {
		return fmt.Errorf("station id %q: %w", b, err)
	}
	*f = FlexInt(v)
	return nil
}

// ParseLiveCapture decodes one live-capture line and converts it into a
// RawRecord for the given parameter. The status is always LiveStatus.
func ParseLiveCapture(line []byte, param Parameter) (RawRecord, error) {
	var c LiveCapture
	if err := json.Unmarshal(line, &c); err != nil {
		return RawRecord{}, fmt.Errorf("parse live capture: %w", err)
	}
	if c.StationID == 0 {
		return RawRecord{}, errors.New("parse live capture: missing station_id")
	}
	ts, err := parseLiveTimestamp(c.Timestamp)
	if err != nil {
		return RawRecord{}, err
	}
	v, err := c.value(param)
	if err != nil {
		return RawRecord{}, err
	}
	return RawRecord{
		StationID: int(c.StationID),
		Parameter: param,
		Timestamp: ts,
		Value:     &v,
		Status:    String(LiveStatus),
	}, nil
}

func (c LiveCapture) value(param Parameter) (float64, error) {
	var raw *json.RawMessage
	field := ""
	switch param {
	case WaterLevel:
		raw, field = c.ValueCM, "value_cm"
	case WaterTemperature:
		raw, field = c.ValueC, "value_c"
	default:
		return 0, fmt.Errorf("parse live capture: unsupported parameter %q", param)
	}
	if raw == nil {
		return 0, fmt.Errorf("parse live capture: missing %s", field)
	}
	var v float64
	if err := json.Unmarshal(*raw, &v); err != nil {
		// Some captures carry the value as a string with a decimal comma.
		var s string
		if json.Unmarshal(*raw, &s) != nil {
			return 0, fmt.Errorf("parse live capture: %s: %w", field, err)
		}
		p := ParseValue(s)
		if p == nil {
			return 0, fmt.Errorf("parse live capture: %s: invalid value %q", field, s)
		}
		v = *p
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("parse live capture: %s: non-finite value", field)
	}
	return v, nil
}

func parseLiveTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range liveTimestampLayouts {
		ts, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		y, m, d := ts.Date()
		hh, mm, ss := ts.Clock()
		return time.Date(y, m, d, hh, mm, ss, ts.Nanosecond(), time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("parse live capture: invalid timestamp %q", s)
}
