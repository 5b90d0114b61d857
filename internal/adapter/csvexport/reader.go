// Package csvexport streams the tabular section of LfU bulk export files.
package csvexport

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/gauge-data-etl/internal/domain"
)

// DefaultBatchSize bounds the number of rows held in memory per batch.
const DefaultBatchSize = 200_000

// ReasonCSVParse marks rows the CSV tokenizer could not split.
const ReasonCSVParse = "csv_parse"

// Inspect scans the header block of the export at path.
func Inspect(path string) (domain.ExportHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.ExportHeader{}, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	h, err := domain.ScanHeader(f)
	if err != nil {
		return domain.ExportHeader{}, fmt.Errorf("scan header of %s: %w", path, err)
	}
	return h, nil
}

// TableReader yields coerced batches from the table section of one export.
// It is lazy, finite and cannot be restarted.
type TableReader struct {
	file      *os.File
	csv       *csv.Reader
	series    domain.Series
	batchSize int
	// offset is the number of file lines before the first table line.
	offset  int
	skipped SkipStats
	done    bool
}

// maxSkipSamples bounds the number of skipped rows kept for reporting.
const maxSkipSamples = 10

// SkipStats counts the rows a reader dropped, by reason, and keeps the first
// few for diagnostics.
type SkipStats struct {
	Total    int
	ByReason map[string]int
	Samples  []domain.SkippedRow
}

func (s *SkipStats) add(row domain.SkippedRow) {
	if s.ByReason == nil {
		s.ByReason = make(map[string]int)
	}
	s.Total++
	s.ByReason[row.Reason]++
	if len(s.Samples) < maxSkipSamples {
		s.Samples = append(s.Samples, row)
	}
}

// Open positions a reader on the first data row after the table header line
// at header.LineIndex. Batches hold at most batchSize rows; a non-positive
// size selects DefaultBatchSize.
func Open(path string, header domain.ExportHeader, series domain.Series, batchSize int) (*TableReader, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}

	br := bufio.NewReader(f)
	// Skip the metadata block and the table header line itself.
	for i := 0; i <= header.LineIndex; i++ {
		line, err := br.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) && i == header.LineIndex && line != "" {
				break // header is the last line, the table is empty
			}
			f.Close()
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("open table of %s: %w", path, domain.ErrHeaderNotFound)
			}
			return nil, fmt.Errorf("skip header of %s: %w", path, err)
		}
	}

	r := csv.NewReader(br)
	r.Comma = ';'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.ReuseRecord = true

	return &TableReader{
		file:      f,
		csv:       r,
		series:    series,
		batchSize: batchSize,
		offset:    header.LineIndex + 1,
	}, nil
}

// Next returns the next batch of records. Rows without a valid timestamp are
// dropped and reported through Skipped. It returns io.EOF once the table is
// exhausted.
func (t *TableReader) Next() ([]domain.RawRecord, error) {
	if t.done {
		return nil, io.EOF
	}
	batch := make([]domain.RawRecord, 0, min(t.batchSize, 4096))
	for len(batch) < t.batchSize {
		fields, err := t.csv.Read()
		if errors.Is(err, io.EOF) {
			t.done = true
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				t.skipped.add(domain.SkippedRow{Line: t.offset + perr.StartLine, Reason: ReasonCSVParse, Raw: perr.Err.Error()})
				continue
			}
			return nil, fmt.Errorf("read table: %w", err)
		}
		if len(fields) == 1 && fields[0] == "" {
			continue
		}
		pos, _ := t.csv.FieldPos(0)
		rec, skipped := domain.CoerceRow(t.series, t.offset+pos, fields)
		if skipped != nil {
			t.skipped.add(*skipped)
			continue
		}
		batch = append(batch, rec)
	}
	if len(batch) == 0 && t.done {
		return nil, io.EOF
	}
	return batch, nil
}

// Skipped returns statistics about the rows dropped so far.
func (t *TableReader) Skipped() SkipStats {
	return t.skipped
}

// Close releases the underlying file.
func (t *TableReader) Close() error {
	return t.file.Close()
}
