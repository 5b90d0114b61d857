// Package domain models river gauge time series published by the Bavarian
// hydrological service (LfU / HND) for a single station.
//
// # Bulk Export Format
//
// Historical data is distributed as semicolon-delimited text files, one file per
// station, parameter and date range, e.g. "16005701_01.01.1975_25.12.2025_ezw_0.csv".
// Each file starts with a free-form metadata block of "Key:;Value" lines:
//
//	Messstellen-Name:;München
//	Messstellen-Nr.:;16005701
//	Gewässer:;Isar
//	Ostwert:;693161;Nordwert:;5335716;"ETRS89 / UTM Zone 32N"
//	Pegelnullpunktshöhe:;508,81 m NHN
//	Zeitbezug:;MEZ/MESZ
//
// The metadata block ends at the table header line, which always starts with
// the token "Datum" followed by the field separator:
//
//	Datum;"Wasserstand [cm]";Prüfstatus
//	"2025-12-26 00:15";87,00;Geprüft
//
// The table has exactly three columns: timestamp, measurement and quality
// status. Decimals use a comma. The parameter is identified by the label of the
// second column ("Wasserstand" = level in cm, "Wassertemperatur" = temperature
// in °C). See [ScanHeader] and [CoerceRow].
//
// # Timestamps
//
// Exports interleave standard and daylight time (MEZ/MESZ) without a per-row
// marker. Timestamps are therefore stored naively, exactly as printed, using
// UTC as a neutral carrier location. Consumers must not interpret them as UTC
// instants. Calendar dates for daily aggregation come from the printed wall
// clock.
//
// # Quality Status
//
// Reviewed exports carry labels such as "Geprüft" (reviewed) or "Rohdaten" (raw).
// Spellings with and without the umlaut occur across exports and are folded to
// the ASCII form ("Geprueft"). Live captures are never reviewed and always carry
// [LiveStatus].
//
// # Live Captures
//
// A scraper persists the latest reading of the public gauge table as one JSON
// object per line, in one file per parameter and calendar day:
//
//	{"station_id":"16005701","timestamp":"2026-01-25T16:00:00","value_cm":87,"date":"2026-01-25","fetched_at":"..."}
//
// [ParseLiveCapture] converts these into [RawRecord] values and [MergeRecords]
// reconciles them with the raw store, keeping the most recently merged value per
// timestamp.
package domain
