package domain

import "strings"

// Parameter identifies the physical quantity of a series.
type Parameter string

const (
	WaterLevel       Parameter = "water_level_cm"
	WaterTemperature Parameter = "water_temperature_c"
	UnknownParameter Parameter = "unknown"
)

// Parameters lists the supported parameters in processing order.
var Parameters = []Parameter{WaterLevel, WaterTemperature}

// Unit returns the measurement unit label of the parameter.
func (p Parameter) Unit() string {
	switch p {
	case WaterLevel:
		return "cm"
	case WaterTemperature:
		return "°C"
	default:
		return ""
	}
}

// Known reports whether p is one of the supported parameters.
func (p Parameter) Known() bool {
	return p == WaterLevel || p == WaterTemperature
}

// ExportDir is the directory name under the data root that holds bulk exports
// for the parameter.
func (p Parameter) ExportDir() string {
	switch p {
	case WaterLevel:
		return "fluesse-wasserstand"
	case WaterTemperature:
		return "fluesse-wassertemperatur"
	default:
		return ""
	}
}

// LivePrefix is the file name prefix of daily live-capture files.
func (p Parameter) LivePrefix() string {
	switch p {
	case WaterLevel:
		return "water_level"
	case WaterTemperature:
		return "water_temperature"
	default:
		return ""
	}
}

// ParseParameter maps a parameter key back to a Parameter. Unrecognized keys
// yield UnknownParameter.
func ParseParameter(s string) Parameter {
	switch Parameter(strings.TrimSpace(s)) {
	case WaterLevel:
		return WaterLevel
	case WaterTemperature:
		return WaterTemperature
	default:
		return UnknownParameter
	}
}
