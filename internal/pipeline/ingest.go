package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/couchcryptid/gauge-data-etl/internal/adapter/csvexport"
	"github.com/couchcryptid/gauge-data-etl/internal/adapter/metadata"
	"github.com/couchcryptid/gauge-data-etl/internal/adapter/parquetstore"
	"github.com/couchcryptid/gauge-data-etl/internal/config"
	"github.com/couchcryptid/gauge-data-etl/internal/domain"
	"github.com/couchcryptid/gauge-data-etl/internal/observability"
)

// ErrNoExports means no bulk export files exist for the station.
var ErrNoExports = errors.New("no bulk exports found")

// GroupResult summarizes the ingestion of one (station, parameter) group.
type GroupResult struct {
	Series  domain.Series
	Files   []string
	Rows    int
	Skipped int
	Days    int
	First   time.Time
	Last    time.Time
}

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	Station  *domain.StationDescriptor
	Groups   []GroupResult
	Mirrored int
}

// Ingestor converts every bulk export of a station into the raw and daily
// stores, one group per parameter.
type Ingestor struct {
	publisher
	dataRoot  string
	stationID int
	chunkSize int
}

// NewIngestor creates an Ingestor from the configuration.
func NewIngestor(cfg *config.Config, notifier Notifier, logger *slog.Logger, metrics *observability.Metrics) *Ingestor {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Ingestor{
		publisher: publisher{
			layout:      parquetstore.Layout{Root: cfg.OutRoot},
			publishRoot: cfg.PublishRoot,
			notifier:    notifier,
			logger:      logger.With("job", domain.JobIngest),
			metrics:     metrics,
		},
		dataRoot:  cfg.DataRoot,
		stationID: cfg.StationID,
		chunkSize: cfg.ChunkSize,
	}
}

// DiscoverGroups lists the export files of each parameter, sorted by name.
// Parameters without files are absent from the result.
func (in *Ingestor) DiscoverGroups() (map[domain.Parameter][]string, error) {
	groups := make(map[domain.Parameter][]string)
	for _, param := range domain.Parameters {
		pattern := filepath.Join(in.dataRoot, param.ExportDir(), strconv.Itoa(in.stationID)+"_*.csv")
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("discover %s exports: %w", param, err)
		}
		if len(files) == 0 {
			continue
		}
		slices.Sort(files)
		groups[param] = files
	}
	return groups, nil
}

// Run ingests every discovered group, publishes the station metadata
// document, mirrors the output root and notifies consumers. A failed group
// does not stop the others; the run still returns an error.
func (in *Ingestor) Run(ctx context.Context) (IngestReport, error) {
	var report IngestReport

	groups, err := in.DiscoverGroups()
	if err != nil {
		return report, err
	}
	if len(groups) == 0 {
		return report, fmt.Errorf("station %d under %s: %w", in.stationID, in.dataRoot, ErrNoExports)
	}

	var (
		errs    []error
		updates []domain.StoreUpdate
		files   = make(map[domain.Parameter][]string)
	)
	for _, param := range domain.Parameters {
		paths, ok := groups[param]
		if !ok {
			continue
		}
		res, station, err := in.IngestGroup(ctx, param, paths)
		if err != nil {
			in.recordFailure(err)
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if report.Station == nil {
			report.Station = &station
		}
		report.Groups = append(report.Groups, res)
		files[param] = res.Files
		updates = append(updates, in.groupUpdates(res)...)
	}

	if report.Station != nil {
		path := in.layout.MetadataPath()
		if err := metadata.Publish(path, metadata.NewDocument(report.Station, files)); err != nil {
			errs = append(errs, err)
		} else {
			updates = append(updates, domain.StoreUpdate{
				Kind:      domain.UpdateMetadata,
				StationID: report.Station.StationID,
				Path:      in.relPath(path),
				At:        domain.Now().UTC(),
			})
			in.logger.Info("station metadata published", "path", path, "station_id", report.Station.StationID)
		}

		n, err := in.mirrorAll()
		if err != nil {
			errs = append(errs, err)
		} else if n > 0 {
			in.logger.Info("outputs mirrored", "files", n, "dst", in.publishRoot)
		}
		report.Mirrored = n
	}

	in.notify(ctx, updates)
	return report, errors.Join(errs...)
}

// IngestGroup streams every file of a group into one raw store artifact and
// one daily aggregate artifact. The station descriptor is taken from the
// first file. Any fatal file error aborts the group and leaves the previous
// artifacts in place.
func (in *Ingestor) IngestGroup(ctx context.Context, param domain.Parameter, files []string) (GroupResult, domain.StationDescriptor, error) {
	if len(files) == 0 {
		return GroupResult{}, domain.StationDescriptor{}, fmt.Errorf("ingest %s: no files", param)
	}

	first, err := csvexport.Inspect(files[0])
	if err != nil {
		return GroupResult{}, domain.StationDescriptor{}, domain.NewFatalIngestError(files[0], err)
	}
	station := first.Station
	series := domain.Series{StationID: station.StationID, Parameter: param}
	res := GroupResult{Series: series}
	logger := in.logger.With("parameter", param, "station_id", station.StationID)

	w, err := parquetstore.CreateRaw(in.layout.RawPath(series))
	if err != nil {
		return res, station, domain.NewFatalIngestError(files[0], err)
	}
	committed := false
	defer func() {
		if !committed {
			w.Close()
		}
	}()

	agg := domain.NewDailyAggregator()
	for i, path := range files {
		header := first
		if i > 0 {
			if header, err = csvexport.Inspect(path); err != nil {
				return res, station, domain.NewFatalIngestError(path, err)
			}
		}
		if header.Parameter != param {
			logger.Warn("export header does not match group parameter",
				"file", filepath.Base(path), "header_parameter", header.Parameter)
		}
		if header.Station.StationID != station.StationID {
			logger.Warn("export belongs to another station",
				"file", filepath.Base(path), "file_station_id", header.Station.StationID)
		}

		stats, err := in.ingestFile(ctx, path, header, series, w, agg, &res)
		if err != nil {
			return res, station, err
		}
		res.Files = append(res.Files, path)
		res.Skipped += stats.Total
		for reason, n := range stats.ByReason {
			in.metrics.RowsSkipped.WithLabelValues(string(param), reason).Add(float64(n))
		}
		in.metrics.FilesIngested.WithLabelValues(string(param)).Inc()
		logger.Info("export ingested", "file", filepath.Base(path), "rows", w.Rows(), "skipped", stats.Total)
		for _, s := range stats.Samples {
			logger.Debug("row skipped", "file", filepath.Base(path), "row", s.String())
		}
	}

	if err := w.Commit(); err != nil {
		return res, station, domain.NewFatalIngestError(w.Path(), err)
	}
	committed = true
	res.Rows = w.Rows()
	in.metrics.RowsIngested.WithLabelValues(string(param)).Add(float64(res.Rows))
	in.metrics.StoreRows.WithLabelValues(string(param)).Set(float64(res.Rows))

	daily := agg.Results(series)
	if err := parquetstore.WriteDaily(in.layout.DailyPath(series), daily); err != nil {
		return res, station, domain.NewFatalIngestError(in.layout.DailyPath(series), err)
	}
	res.Days = len(daily)

	logger.Info("group ingested", "files", len(res.Files), "rows", res.Rows, "skipped", res.Skipped, "days", res.Days)
	return res, station, nil
}

func (in *Ingestor) ingestFile(
	ctx context.Context,
	path string,
	header domain.ExportHeader,
	series domain.Series,
	w *parquetstore.RawWriter,
	agg *domain.DailyAggregator,
	res *GroupResult,
) (csvexport.SkipStats, error) {
	r, err := csvexport.Open(path, header, series, in.chunkSize)
	if err != nil {
		return csvexport.SkipStats{}, domain.NewFatalIngestError(path, err)
	}
	defer r.Close()

	for {
		if err := ctx.Err(); err != nil {
			return r.Skipped(), err
		}
		batch, err := r.Next()
		if errors.Is(err, io.EOF) {
			return r.Skipped(), nil
		}
		if err != nil {
			return r.Skipped(), domain.NewFatalIngestError(path, err)
		}
		if err := w.Append(batch); err != nil {
			return r.Skipped(), domain.NewFatalIngestError(w.Path(), err)
		}
		agg.AddBatch(batch)
		for i := range batch {
			ts := batch[i].Timestamp
			if res.First.IsZero() || ts.Before(res.First) {
				res.First = ts
			}
			if ts.After(res.Last) {
				res.Last = ts
			}
		}
	}
}

func (in *Ingestor) recordFailure(err error) {
	var fatal *domain.FatalIngestError
	if errors.As(err, &fatal) {
		in.metrics.IngestErrors.WithLabelValues(fatal.Kind).Inc()
		in.logger.Error("group ingestion failed", "file", fatal.File, "kind", fatal.Kind, "error", fatal.Err)
		return
	}
	in.metrics.IngestErrors.WithLabelValues(domain.KindIO).Inc()
	in.logger.Error("group ingestion failed", "error", err)
}

func (in *Ingestor) groupUpdates(res GroupResult) []domain.StoreUpdate {
	at := domain.Now().UTC()
	return []domain.StoreUpdate{
		{
			Kind:      domain.UpdateRaw,
			StationID: res.Series.StationID,
			Parameter: res.Series.Parameter,
			Path:      in.relPath(in.layout.RawPath(res.Series)),
			Rows:      res.Rows,
			First:     res.First,
			Last:      res.Last,
			At:        at,
		},
		{
			Kind:      domain.UpdateDaily,
			StationID: res.Series.StationID,
			Parameter: res.Series.Parameter,
			Path:      in.relPath(in.layout.DailyPath(res.Series)),
			Rows:      res.Days,
			At:        at,
		},
	}
}
