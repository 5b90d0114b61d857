package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gauge_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL jobs.
type Metrics struct {
	// Ingestion metrics.
	RowsIngested  *prometheus.CounterVec // labels: parameter
	RowsSkipped   *prometheus.CounterVec // labels: parameter, reason
	FilesIngested *prometheus.CounterVec // labels: parameter
	IngestErrors  *prometheus.CounterVec // labels: kind

	// Live migration metrics.
	LiveLinesSkipped *prometheus.CounterVec // labels: parameter
	RecordsMerged    *prometheus.CounterVec // labels: parameter, outcome={new,replaced}

	// StoreRows is the row count of each raw store after the last write.
	StoreRows *prometheus.GaugeVec // labels: parameter

	// Job metrics.
	JobDuration    *prometheus.HistogramVec // labels: job
	JobRuns        *prometheus.CounterVec   // labels: job, outcome={success,error}
	JobLastSuccess *prometheus.GaugeVec     // labels: job
	JobRunning     *prometheus.GaugeVec     // labels: job

	NotificationsSent prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewUnregisteredMetrics creates Metrics that are not registered with the
// default registry. One-shot commands use it since nothing scrapes them.
func NewUnregisteredMetrics() *Metrics {
	return newMetrics()
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return NewUnregisteredMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_ingested_total",
			Help:      "Rows written to the raw store from bulk exports.",
		}, []string{"parameter"}),
		RowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Export rows dropped during coercion, by reason.",
		}, []string{"parameter", "reason"}),
		FilesIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_ingested_total",
			Help:      "Bulk export files read to completion.",
		}, []string{"parameter"}),
		IngestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_errors_total",
			Help:      "Fatal ingestion errors by kind.",
		}, []string{"kind"}),
		LiveLinesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_lines_skipped_total",
			Help:      "Malformed or foreign live capture lines skipped.",
		}, []string{"parameter"}),
		RecordsMerged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_merged_total",
			Help:      "Live records merged into the raw store, by outcome.",
		}, []string{"parameter", "outcome"}),
		StoreRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_rows",
			Help:      "Rows in the raw store after the last write.",
		}, []string{"parameter"}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of a complete ingest or migrate run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"job"}),
		JobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Job runs by outcome.",
		}, []string{"job", "outcome"}),
		JobLastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}, []string{"job"}),
		JobRunning: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_running",
			Help:      "1 while a job is running, 0 otherwise.",
		}, []string{"job"}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Store update notifications published to Kafka.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RowsIngested,
		m.RowsSkipped,
		m.FilesIngested,
		m.IngestErrors,
		m.LiveLinesSkipped,
		m.RecordsMerged,
		m.StoreRows,
		m.JobDuration,
		m.JobRuns,
		m.JobLastSuccess,
		m.JobRunning,
		m.NotificationsSent,
	}
}
