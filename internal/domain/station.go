package domain

// StationDescriptor holds the identity and metadata of one gauge station as
// recovered from the header block of a bulk export.
type StationDescriptor struct {
	StationID int     `json:"station_id"`
	Name      string  `json:"station_name"`
	River     string  `json:"river"`
	TimeRef   string  `json:"time_ref"`
	Easting   *int    `json:"easting"`
	Northing  *int    `json:"northing"`
	CoordRef  *string `json:"coord_ref"`
	GaugeZero *string `json:"gauge_zero"`

	// RawMeta keeps every header key/value pair encountered, recognized or not.
	RawMeta map[string]string `json:"raw_meta"`
}

// Series identifies one raw-store table: a station and a parameter.
type Series struct {
	StationID int
	Parameter Parameter
}

// ExportHeader is everything learned from a single pass over the header block
// of a bulk export.
type ExportHeader struct {
	// LineIndex is the zero-based index of the table header line.
	LineIndex int
	Columns   []string
	Station   StationDescriptor
	Parameter Parameter
}
