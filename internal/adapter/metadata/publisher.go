// Package metadata writes the station metadata document that accompanies the
// Parquet stores.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/gauge-data-etl/internal/domain"
)

// Document is the JSON shape of station_meta.json. File lists are omitted for
// parameters that had no exports.
type Document struct {
	GeneratedAt           time.Time                 `json:"generated_at"`
	WaterLevelFiles       []string                  `json:"water_level_files,omitempty"`
	WaterTemperatureFiles []string                  `json:"water_temperature_files,omitempty"`
	Station               *domain.StationDescriptor `json:"station"`
}

// NewDocument stamps a document with the current time of the domain clock.
func NewDocument(station *domain.StationDescriptor, files map[domain.Parameter][]string) Document {
	return Document{
		GeneratedAt:           domain.Now().UTC(),
		WaterLevelFiles:       files[domain.WaterLevel],
		WaterTemperatureFiles: files[domain.WaterTemperature],
		Station:               station,
	}
}

// Publish writes doc to path as indented JSON, replacing any previous
// document through a temporary file in the same directory.
func Publish(path string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode station metadata: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metadata dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write station metadata: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("publish station metadata: %w", err)
	}
	return nil
}

// Load reads a previously published document.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read station metadata: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode station metadata: %w", err)
	}
	return doc, nil
}
