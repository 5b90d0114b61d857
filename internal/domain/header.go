package domain

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	// FieldSeparator separates fields in both the metadata block and the table.
	FieldSeparator = ";"
	// tableMarker is the first column label of the table header line.
	tableMarker = "Datum" + FieldSeparator

	byteOrderMark = "\ufeff"
)

// Header keys with dedicated StationDescriptor fields.
const (
	keyStationID = "Messstellen-Nr."
	keyName      = "Messstellen-Name"
	keyRiver     = "Gewässer"
	keyTimeRef   = "Zeitbezug"
	keyEasting   = "Ostwert"
	keyNorthing  = "Nordwert"
	keyGaugeZero = "Pegelnullpunktshöhe"
)

// ScanHeader reads the header block of a bulk export in a single pass. It
// stops at the table header line and returns its index and column labels
// together with the station descriptor and the parameter of the file.
func ScanHeader(r io.Reader) (ExportHeader, error) {
	var b descriptorBuilder
	idx := 0
	err := eachLine(r, func(line string) bool {
		if isTableHeader(line) {
			return false
		}
		b.add(line)
		idx++
		return true
	}, func(line string) {
		b.header = line
	})
	if err != nil {
		return ExportHeader{}, err
	}
	if b.header == "" {
		return ExportHeader{}, ErrHeaderNotFound
	}

	station, err := b.build()
	if err != nil {
		return ExportHeader{}, err
	}
	columns := splitFields(b.header)
	return ExportHeader{
		LineIndex: idx,
		Columns:   columns,
		Station:   station,
		Parameter: classifyColumns(columns),
	}, nil
}

// FindTableHeader returns the zero-based index and the text of the first line
// that starts with the table marker. It returns ErrHeaderNotFound if the input
// has no such line.
func FindTableHeader(r io.Reader) (int, string, error) {
	idx := 0
	var header string
	err := eachLine(r, func(line string) bool {
		if isTableHeader(line) {
			return false
		}
		idx++
		return true
	}, func(line string) {
		header = line
	})
	if err != nil {
		return 0, "", err
	}
	if header == "" {
		return 0, "", ErrHeaderNotFound
	}
	return idx, header, nil
}

// ParseStationDescriptor builds a StationDescriptor from the metadata lines
// preceding the table header.
func ParseStationDescriptor(lines []string) (StationDescriptor, error) {
	var b descriptorBuilder
	for _, line := range lines {
		b.add(line)
	}
	return b.build()
}

// ClassifyParameter determines the parameter from the table header line by the
// label of its second column. Unrecognized labels yield UnknownParameter.
func ClassifyParameter(headerLine string) Parameter {
	return classifyColumns(splitFields(strings.TrimSpace(headerLine)))
}

func classifyColumns(columns []string) Parameter {
	if len(columns) < 2 {
		return UnknownParameter
	}
	label := columns[1]
	switch {
	case strings.Contains(label, "Wassertemperatur"):
		return WaterTemperature
	case strings.Contains(label, "Wasserstand"):
		return WaterLevel
	default:
		return UnknownParameter
	}
}

// eachLine calls fn for every line until fn returns false, in which case found
// receives the stopping line. Line terminators and surrounding whitespace are
// trimmed.
func eachLine(r io.Reader, fn func(string) bool, found func(string)) error {
	br := bufio.NewReader(r)
	for {
		raw, err := br.ReadString('\n')
		if raw != "" {
			line := strings.TrimSpace(strings.TrimPrefix(raw, byteOrderMark))
			if !fn(line) {
				found(line)
				return nil
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
	}
}

func isTableHeader(line string) bool {
	return strings.HasPrefix(strings.TrimPrefix(strings.TrimSpace(line), byteOrderMark), tableMarker)
}

// descriptorBuilder accumulates metadata lines into a StationDescriptor.
type descriptorBuilder struct {
	d      StationDescriptor
	header string
}

func (b *descriptorBuilder) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	parts := strings.Split(line, FieldSeparator)
	if len(parts) < 2 {
		return
	}
	key := normalizeKey(parts[0])
	if key == "" {
		return
	}
	value := unquote(parts[1])

	if b.d.RawMeta == nil {
		b.d.RawMeta = make(map[string]string)
	}
	b.d.RawMeta[key] = value

	switch key {
	case keyStationID:
		if id, ok := parseInt(value); ok && id != 0 {
			b.d.StationID = id
		}
	case keyName:
		b.d.Name = value
	case keyRiver:
		b.d.River = value
	case keyTimeRef:
		b.d.TimeRef = value
	case keyEasting:
		// Ostwert:;693161;Nordwert:;5335716;"ETRS89 / UTM Zone 32N"
		if v, ok := parseInt(value); ok {
			b.d.Easting = &v
		}
		if len(parts) >= 4 && normalizeKey(parts[2]) == keyNorthing {
			if v, ok := parseInt(unquote(parts[3])); ok {
				b.d.Northing = &v
			}
		}
		if len(parts) >= 5 {
			if ref := unquote(parts[4]); ref != "" {
				b.d.CoordRef = &ref
			}
		}
	case keyGaugeZero:
		if value != "" {
			b.d.GaugeZero = &value
		}
	}
}

func (b *descriptorBuilder) build() (StationDescriptor, error) {
	if b.d.StationID == 0 {
		return StationDescriptor{}, ErrStationIDMissing
	}
	d := b.d
	if d.Name == "" {
		d.Name = strconv.Itoa(d.StationID)
	}
	if d.RawMeta == nil {
		d.RawMeta = map[string]string{}
	}
	return d, nil
}

// normalizeKey trims whitespace, surrounding colons and byte-order marks.
func normalizeKey(key string) string {
	key = strings.ReplaceAll(key, byteOrderMark, "")
	key = strings.TrimSpace(key)
	key = strings.Trim(key, ":")
	return strings.TrimSpace(key)
}

func unquote(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"`)
}

func splitFields(line string) []string {
	parts := strings.Split(line, FieldSeparator)
	for i := range parts {
		parts[i] = unquote(parts[i])
	}
	return parts
}

func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}
