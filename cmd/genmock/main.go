// Command genmock writes synthetic bulk exports and live-capture files in the
// formats of the LfU export service and the live scraper, for local runs of
// the ingest and migrate jobs.
//
// Usage:
//
//	go run ./cmd/genmock -data-root data -end 2026-01-25 -days 30 -live-days 7
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/gauge-data-etl/internal/adapter/livecapture"
	"github.com/couchcryptid/gauge-data-etl/internal/domain"
)

const (
	stationID   = 16005701
	stationName = "München"
	interval    = 15 * time.Minute
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dataRoot := flag.String("data-root", "data", "root directory for fluesse-*/ and current/")
	endStr := flag.String("end", "", "last day of the export (YYYY-MM-DD), default today")
	days := flag.Int("days", 30, "number of days in each bulk export")
	liveDays := flag.Int("live-days", 7, "number of days of live captures ending on -end, 0 to skip")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *days <= 0 {
		flag.Usage()
		return fmt.Errorf("-days must be positive")
	}

	end := domain.CalendarDate(time.Now())
	if *endStr != "" {
		d, err := time.Parse(time.DateOnly, *endStr)
		if err != nil {
			return fmt.Errorf("parse -end: %w", err)
		}
		end = d
	}
	start := end.AddDate(0, 0, -(*days - 1))

	// Fix the clock so fetched_at stamps are reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(end.Add(23*time.Hour + 59*time.Minute)))
	defer domain.SetClock(nil)

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	for _, param := range domain.Parameters {
		path, rows, err := writeExport(*dataRoot, param, start, end, rng)
		if err != nil {
			return fmt.Errorf("writing %s export: %w", param, err)
		}
		log.Printf("%s: %d rows -> %s", param, rows, path)

		if *liveDays > 0 {
			n, err := writeLive(filepath.Join(*dataRoot, "current"), param, end, *liveDays, rng)
			if err != nil {
				return fmt.Errorf("writing %s live captures: %w", param, err)
			}
			log.Printf("%s: %d live captures", param, n)
		}
	}
	return nil
}

// reading models a smooth daily cycle with noise.
func reading(param domain.Parameter, ts time.Time, rng *rand.Rand) float64 {
	dayFrac := float64(ts.Hour()*60+ts.Minute()) / (24 * 60)
	switch param {
	case domain.WaterTemperature:
		v := 4 + 1.2*math.Sin(2*math.Pi*(dayFrac-0.25)) + rng.NormFloat64()*0.1
		return math.Round(v*10) / 10
	default:
		v := 90 + 6*math.Sin(2*math.Pi*float64(ts.YearDay())/14) + rng.NormFloat64()*1.5
		return math.Round(v)
	}
}

func columnLabel(param domain.Parameter) string {
	if param == domain.WaterTemperature {
		return "Wassertemperatur [°C]"
	}
	return "Wasserstand [cm]"
}

func writeExport(dataRoot string, param domain.Parameter, start, end time.Time, rng *rand.Rand) (string, int, error) {
	name := fmt.Sprintf("%d_%s_%s_ezw_0.csv", stationID, start.Format("02.01.2006"), end.Format("02.01.2006"))
	path := filepath.Join(dataRoot, param.ExportDir(), name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", 0, err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	header := []string{
		"\ufeffQuelle:;Bayerisches Landesamt für Umwelt, www.nid.bayern.de",
		"Datenbankabfrage:;" + domain.Now().Format("02.01.2006 15:04"),
		"Zeitbezug:;MEZ/MESZ",
		"Messstellen-Name:;" + stationName,
		"Messstellen-Nr.:;" + strconv.Itoa(stationID),
		"Gewässer:;Isar",
		`Ostwert:;693161;Nordwert:;5335716;"ETRS89 / UTM Zone 32N"`,
		"Pegelnullpunktshöhe:;508,81 m NHN",
		"Parameter:;" + columnLabel(param),
		"",
		`Datum;"` + columnLabel(param) + `";Prüfstatus`,
	}
	for _, line := range header {
		w.WriteString(line + "\r\n")
	}

	// Data older than a week is reviewed, newer data is raw.
	reviewedUntil := end.AddDate(0, 0, -7)
	rows := 0
	for ts := start; ts.Before(end.AddDate(0, 0, 1)); ts = ts.Add(interval) {
		status := "Geprüft"
		if !ts.Before(reviewedUntil) {
			status = "Rohdaten"
		}
		value := strings.ReplaceAll(strconv.FormatFloat(reading(param, ts, rng), 'f', 2, 64), ".", ",")
		if rng.IntN(500) == 0 {
			value = "" // sensor gap
		}
		fmt.Fprintf(w, "\"%s\";%s;%s\r\n", ts.Format("2006-01-02 15:04"), value, status)
		rows++
	}
	if err := w.Flush(); err != nil {
		return "", 0, err
	}
	return path, rows, nil
}

// liveCapture mirrors one line written by the live scraper.
type liveCapture struct {
	StationID string   `json:"station_id"`
	Timestamp string   `json:"timestamp"`
	ValueCM   *float64 `json:"value_cm,omitempty"`
	ValueC    *float64 `json:"value_c,omitempty"`
	Date      string   `json:"date"`
	FetchedAt string   `json:"fetched_at"`
}

func writeLive(dir string, param domain.Parameter, end time.Time, days int, rng *rand.Rand) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	n := 0
	for i := days - 1; i >= 0; i-- {
		day := end.AddDate(0, 0, -i)
		f, err := os.Create(filepath.Join(dir, livecapture.FileName(param, day)))
		if err != nil {
			return n, err
		}
		enc := json.NewEncoder(f)
		// The scraper polls hourly.
		for h := range 24 {
			ts := day.Add(time.Duration(h) * time.Hour)
			c := liveCapture{
				StationID: strconv.Itoa(stationID),
				Timestamp: ts.Format("2006-01-02T15:04:05"),
				Date:      day.Format(time.DateOnly),
				FetchedAt: ts.Add(5 * time.Minute).Format(time.RFC3339),
			}
			if param == domain.WaterTemperature {
				c.ValueC = domain.Float(reading(param, ts, rng))
			} else {
				c.ValueCM = domain.Float(reading(param, ts, rng))
			}
			if err := enc.Encode(c); err != nil {
				f.Close()
				return n, err
			}
			n++
		}
		if err := f.Close(); err != nil {
			return n, err
		}
	}
	return n, nil
}
