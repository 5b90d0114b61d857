package parquetstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/couchcryptid/gauge-data-etl/internal/domain"
)

// PartialSuffix is appended to the artifact path while a writer is open.
const PartialSuffix = ".partial"

// RawWriter appends batches of raw records to a single Parquet artifact.
// Rows are written to <path>.partial and become visible at <path> only on
// Commit; an abandoned writer leaves the previous artifact untouched.
type RawWriter struct {
	path    string
	partial string
	file    *os.File
	writer  *parquet.GenericWriter[rawRow]
	rows    int
	buf     []rawRow
	closed  bool
}

// CreateRaw opens a raw store writer for path, creating parent directories.
func CreateRaw(path string) (*RawWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	partial := path + PartialSuffix
	f, err := os.Create(partial)
	if err != nil {
		return nil, fmt.Errorf("create raw store: %w", err)
	}
	return &RawWriter{
		path:    path,
		partial: partial,
		file:    f,
		writer:  parquet.NewGenericWriter[rawRow](f, parquet.Compression(&parquet.Zstd)),
	}, nil
}

// Append writes one batch.
func (w *RawWriter) Append(batch []domain.RawRecord) error {
	if w.closed {
		return errors.New("append to closed raw store")
	}
	if len(batch) == 0 {
		return nil
	}
	w.buf = w.buf[:0]
	for _, r := range batch {
		w.buf = append(w.buf, toRawRow(r))
	}
	n, err := w.writer.Write(w.buf)
	w.rows += n
	if err != nil {
		return fmt.Errorf("write raw rows: %w", err)
	}
	return nil
}

// Rows returns the number of rows appended so far.
func (w *RawWriter) Rows() int {
	return w.rows
}

// Path returns the final artifact path.
func (w *RawWriter) Path() string {
	return w.path
}

// Commit finalizes the file and renames it over the artifact path. The writer
// is closed afterwards; calling Close again is a no-op.
func (w *RawWriter) Commit() error {
	if w.closed {
		return errors.New("commit closed raw store")
	}
	w.closed = true
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("finalize raw store: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return fmt.Errorf("sync raw store: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close raw store: %w", err)
	}
	if err := os.Rename(w.partial, w.path); err != nil {
		return fmt.Errorf("publish raw store: %w", err)
	}
	return nil
}

// Close abandons an uncommitted writer. The partial file stays on disk for
// inspection.
func (w *RawWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	werr := w.writer.Close()
	ferr := w.file.Close()
	return errors.Join(werr, ferr)
}

// ReadRaw loads every record of a raw store artifact. A missing artifact
// yields an error wrapping fs.ErrNotExist.
func ReadRaw(path string) ([]domain.RawRecord, error) {
	var out []domain.RawRecord
	err := ScanRaw(path, DefaultScanBatch, func(batch []domain.RawRecord) error {
		out = append(out, batch...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DefaultScanBatch is the number of rows ScanRaw decodes at a time.
const DefaultScanBatch = 8192

// ScanRaw streams a raw store artifact in batches of at most batchSize rows.
// The batch slice is reused between calls to fn.
func ScanRaw(path string, batchSize int, fn func([]domain.RawRecord) error) error {
	if batchSize <= 0 {
		batchSize = DefaultScanBatch
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open raw store: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat raw store: %w", err)
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return fmt.Errorf("open raw store %s: %w", path, err)
	}

	reader := parquet.NewGenericReader[rawRow](pf)
	defer reader.Close()

	rows := make([]rawRow, batchSize)
	batch := make([]domain.RawRecord, 0, batchSize)
	for {
		n, err := reader.Read(rows)
		if n > 0 {
			batch = batch[:0]
			for _, r := range rows[:n] {
				batch = append(batch, fromRawRow(r))
			}
			if ferr := fn(batch); ferr != nil {
				return ferr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read raw store %s: %w", path, err)
		}
	}
}

// ReplaceRaw rewrites a raw store artifact with records through a partial
// file and rename, so readers see either the old or the new store.
func ReplaceRaw(path string, records []domain.RawRecord) error {
	w, err := CreateRaw(path)
	if err != nil {
		return err
	}
	for start := 0; start < len(records); start += DefaultScanBatch {
		end := min(start+DefaultScanBatch, len(records))
		if err := w.Append(records[start:end]); err != nil {
			w.Close()
			return err
		}
	}
	return w.Commit()
}
