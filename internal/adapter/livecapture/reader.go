// Package livecapture reads the daily JSON-lines files written by the live
// gauge scraper.
package livecapture

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/gauge-data-etl/internal/domain"
)

// DefaultWindowDays is the number of days read when no window is configured.
const DefaultWindowDays = 7

// maxLineBytes bounds a single capture line.
const maxLineBytes = 1 << 20

// Report summarizes one window read.
type Report struct {
	Files   []string
	Lines   int
	Records int
	Skipped int
	// Foreign counts captures for other stations.
	Foreign int
}

// Reader loads live captures of one station from a capture directory.
type Reader struct {
	dir     string
	station int
	logger  *slog.Logger
}

// NewReader creates a reader for captures under dir. A zero station accepts
// captures of any station.
func NewReader(dir string, station int, logger *slog.Logger) *Reader {
	return &Reader{dir: dir, station: station, logger: logger}
}

// FileName returns the capture file name for the parameter on the given day.
func FileName(param domain.Parameter, day time.Time) string {
	return fmt.Sprintf("%s_%s.jsonl", param.LivePrefix(), day.Format(time.DateOnly))
}

// WindowFiles lists the capture paths of a window of days ending on end,
// oldest first. Absent files are included; ReadWindow skips them.
func (r *Reader) WindowFiles(param domain.Parameter, end time.Time, days int) []string {
	if days <= 0 {
		days = DefaultWindowDays
	}
	paths := make([]string, 0, days)
	for i := days - 1; i >= 0; i-- {
		paths = append(paths, filepath.Join(r.dir, FileName(param, end.AddDate(0, 0, -i))))
	}
	return paths
}

// ReadWindow reads every capture of param in the window ending on end. Files
// are read oldest first so that later captures of the same timestamp win the
// subsequent merge. Malformed lines are logged and skipped.
func (r *Reader) ReadWindow(param domain.Parameter, end time.Time, days int) ([]domain.RawRecord, Report, error) {
	if !param.Known() {
		return nil, Report{}, fmt.Errorf("read live window: unsupported parameter %q", param)
	}
	var (
		records []domain.RawRecord
		report  Report
	)
	for _, path := range r.WindowFiles(param, end, days) {
		recs, err := r.readFile(path, param, &report)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, report, err
		}
		report.Files = append(report.Files, path)
		records = append(records, recs...)
	}
	report.Records = len(records)
	return records, report, nil
}

func (r *Reader) readFile(path string, param domain.Parameter, report *Report) ([]domain.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open live capture: %w", err)
	}
	defer f.Close()

	var out []domain.RawRecord
	br := bufio.NewReaderSize(f, 64*1024)
	lineNo := 0
	for {
		raw, tooLong, err := readLine(br, maxLineBytes)
		eof := errors.Is(err, io.EOF)
		if err != nil && !eof {
			return nil, fmt.Errorf("read live capture %s: %w", path, err)
		}
		if eof && len(raw) == 0 && !tooLong {
			break
		}
		lineNo++

		line := bytes.TrimSpace(raw)
		switch {
		case tooLong:
			report.Lines++
			report.Skipped++
			r.logger.Warn("skipping oversized live capture line",
				"file", filepath.Base(path),
				"line", lineNo,
				"max_bytes", maxLineBytes,
			)
		case len(line) == 0:
		default:
			report.Lines++
			if rec, ok := r.parseLine(path, lineNo, line, param, report); ok {
				out = append(out, rec)
			}
		}
		if eof {
			break
		}
	}
	return out, nil
}

func (r *Reader) parseLine(path string, lineNo int, line []byte, param domain.Parameter, report *Report) (domain.RawRecord, bool) {
	rec, err := domain.ParseLiveCapture(line, param)
	if err != nil {
		report.Skipped++
		r.logger.Warn("skipping live capture line",
			"file", filepath.Base(path),
			"line", lineNo,
			"error", err,
		)
		return domain.RawRecord{}, false
	}
	if r.station != 0 && rec.StationID != r.station {
		report.Foreign++
		r.logger.Warn("skipping live capture of other station",
			"file", filepath.Base(path),
			"line", lineNo,
			"station_id", rec.StationID,
		)
		return domain.RawRecord{}, false
	}
	return rec, true
}

// readLine returns the next line without its length exceeding limit. A longer
// line is consumed up to its newline and reported as tooLong with no content.
func readLine(br *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	for {
		frag, err := br.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(frag) > limit {
				tooLong = true
				line = nil
			} else {
				line = append(line, frag...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, tooLong, err
	}
}
