package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors updated during an import run.
// It includes counters for runs, parsed items, imported records and failure reasons,
// a gauge for the last successful run, and histograms for run and query durations.
type Metrics struct {
	Runs              *prometheus.CounterVec
	ItemsParsed       *prometheus.CounterVec
	Records           *prometheus.CounterVec
	FailureReasons    *prometheus.CounterVec
	LastSuccessfulRun prometheus.Gauge
	RunDuration       prometheus.Histogram
	DBQueryDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with the provided Registerer.
//
// Parameters:
//   - reg: A prometheus.Registerer used to register the metrics.
//
// Returns:
//   - A pointer to the newly created Metrics instance.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		Runs: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "mnemosyne_runs_total",
			Help: "Total import runs by final status.",
		}, []string{"status"}),
		ItemsParsed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "mnemosyne_items_parsed_total",
			Help: "Total number of elements read from the input file",
		}, []string{"type"}),
		Records: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "mnemosyne_records_total",
			Help: "Total employee records by import result.",
		}, []string{"result"}),
		FailureReasons: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "mnemosyne_record_failures_total",
			Help: "Failed employee records by reason.",
		}, []string{"reason"}),
		LastSuccessfulRun: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "mnemosyne_last_successful_run_timestamp",
			Help: "Unix time of the last import that committed",
		}),
		RunDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name: "mnemosyne_run_duration_seconds",
			Help: "Measures how long a full import takes, from reading the file to the final count",
		}),
		DBQueryDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mnemosyne_db_query_duration_seconds",
			Help:    "Duration of database queries.",
			Buckets: prometheus.DefBuckets,
		}, []string{"query_type"}), // query_type: 'upsert_employee', 'count_employees'
	}

	metrics.Runs.WithLabelValues("success")
	metrics.Runs.WithLabelValues("failure")
	metrics.Records.WithLabelValues("inserted")
	metrics.Records.WithLabelValues("failed")

	return metrics
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func WriteTextfile(gatherer prometheus.Gatherer, path string) error {
	if err := prometheus.WriteToTextfile(path, gatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}

	return nil
}
