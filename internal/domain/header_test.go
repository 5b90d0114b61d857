package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleExport = "\ufeffQuelle:;Bayerisches Landesamt für Umwelt, www.nid.bayern.de\n" +
	"Messstellen-Name:;München\n" +
	"Messstellen-Nr.:;16005701\n" +
	"Gewässer:;Isar\n" +
	"Ostwert:;693161;Nordwert:;5335716;\"ETRS89 / UTM Zone 32N\"\n" +
	"Pegelnullpunktshöhe:;508,81 m NHN\n" +
	"Zeitbezug:;MEZ/MESZ\n" +
	"\n" +
	"Datum;\"Wasserstand [cm]\";Prüfstatus\n" +
	"\"2025-12-26 00:15\";87,00;Geprüft\n" +
	"\"2025-12-26 00:30\";88,00;Geprüft\n"

func TestScanHeader(t *testing.T) {
	h, err := ScanHeader(strings.NewReader(sampleExport))
	require.NoError(t, err)

	assert.Equal(t, 8, h.LineIndex)
	assert.Equal(t, []string{"Datum", "Wasserstand [cm]", "Prüfstatus"}, h.Columns)
	assert.Equal(t, WaterLevel, h.Parameter)

	s := h.Station
	assert.Equal(t, 16005701, s.StationID)
	assert.Equal(t, "München", s.Name)
	assert.Equal(t, "Isar", s.River)
	assert.Equal(t, "MEZ/MESZ", s.TimeRef)
	require.NotNil(t, s.Easting)
	assert.Equal(t, 693161, *s.Easting)
	require.NotNil(t, s.Northing)
	assert.Equal(t, 5335716, *s.Northing)
	require.NotNil(t, s.CoordRef)
	assert.Equal(t, "ETRS89 / UTM Zone 32N", *s.CoordRef)
	require.NotNil(t, s.GaugeZero)
	assert.Equal(t, "508,81 m NHN", *s.GaugeZero)
	assert.Equal(t, "Bayerisches Landesamt für Umwelt, www.nid.bayern.de", s.RawMeta["Quelle"])
	assert.Equal(t, "16005701", s.RawMeta["Messstellen-Nr."])
}

func TestScanHeader_HeaderNotFound(t *testing.T) {
	_, err := ScanHeader(strings.NewReader("Messstellen-Nr.:;16005701\n\"2025-12-26 00:15\";87,00;Geprüft\n"))
	require.ErrorIs(t, err, ErrHeaderNotFound)
}

func TestScanHeader_StationIDMissing(t *testing.T) {
	_, err := ScanHeader(strings.NewReader("Messstellen-Name:;München\nDatum;Wasserstand [cm];Prüfstatus\n"))
	require.ErrorIs(t, err, ErrStationIDMissing)
}

func TestFindTableHeader(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantIdx int
		wantErr error
	}{
		{"sample export", sampleExport, 8, nil},
		{"header first", "Datum;Wassertemperatur [°C];Prüfstatus\n", 0, nil},
		{"crlf line endings", "a:;b\r\nDatum;x;y\r\n", 1, nil},
		{"marker is case-sensitive", "datum;x;y\n", 0, ErrHeaderNotFound},
		{"marker needs separator", "Datum\nDatumX;y\n", 0, ErrHeaderNotFound},
		{"empty input", "", 0, ErrHeaderNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, line, err := FindTableHeader(strings.NewReader(tt.input))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantIdx, idx)
			assert.True(t, strings.HasPrefix(line, "Datum;"))
		})
	}
}

func TestParseStationDescriptor_IDIndependentOfOrder(t *testing.T) {
	lines := []string{
		"Zeitbezug:;MEZ",
		"Unbekannt:;x;y",
		"Messstellen-Nr.:;16005701",
		"kaputt",
		"Gewässer:;Isar",
	}
	for i := range lines {
		rotated := append(append([]string{}, lines[i:]...), lines[:i]...)
		d, err := ParseStationDescriptor(rotated)
		require.NoError(t, err)
		assert.Equal(t, 16005701, d.StationID)
	}
}

func TestParseStationDescriptor_NameFallsBackToID(t *testing.T) {
	d, err := ParseStationDescriptor([]string{"Messstellen-Nr.:;16005701"})
	require.NoError(t, err)
	assert.Equal(t, "16005701", d.Name)
	assert.Nil(t, d.Easting)
	assert.Nil(t, d.Northing)
	assert.Nil(t, d.CoordRef)
	assert.Nil(t, d.GaugeZero)
	assert.NotNil(t, d.RawMeta)
}

func TestParseStationDescriptor_InvalidIDs(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
	}{
		{"zero", []string{"Messstellen-Nr.:;0"}},
		{"not a number", []string{"Messstellen-Nr.:;abc"}},
		{"empty", []string{"Messstellen-Nr.:;"}},
		{"single field", []string{"Messstellen-Nr.:16005701"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStationDescriptor(tt.lines)
			require.ErrorIs(t, err, ErrStationIDMissing)
		})
	}
}

func TestParseStationDescriptor_LaterInvalidIDKeepsValid(t *testing.T) {
	d, err := ParseStationDescriptor([]string{"Messstellen-Nr.:;16005701", "Messstellen-Nr.:;"})
	require.NoError(t, err)
	assert.Equal(t, 16005701, d.StationID)
}

func TestParseStationDescriptor_EastingWithoutNorthing(t *testing.T) {
	d, err := ParseStationDescriptor([]string{"Messstellen-Nr.:;1", "Ostwert:;693161"})
	require.NoError(t, err)
	require.NotNil(t, d.Easting)
	assert.Equal(t, 693161, *d.Easting)
	assert.Nil(t, d.Northing)
	assert.Nil(t, d.CoordRef)
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "Messstellen-Nr.", normalizeKey(" Messstellen-Nr.: "))
	assert.Equal(t, "Quelle", normalizeKey("\ufeffQuelle:"))
	assert.Equal(t, "Nordwert", normalizeKey("Nordwert:"))
	assert.Equal(t, "", normalizeKey(" : "))
}

func TestClassifyParameter(t *testing.T) {
	tests := []struct {
		line string
		want Parameter
	}{
		{`Datum;"Wasserstand [cm]";Prüfstatus`, WaterLevel},
		{`Datum;Wassertemperatur [°C];Prüfstatus`, WaterTemperature},
		{`Datum;Abfluss [m³/s];Prüfstatus`, UnknownParameter},
		{`Datum`, UnknownParameter},
		{``, UnknownParameter},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyParameter(tt.line))
		})
	}
}
