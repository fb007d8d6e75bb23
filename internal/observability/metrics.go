package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cyclone_climatology"

// Metrics holds the Prometheus counters, histograms, and gauges for the climatology jobs.
type Metrics struct {
	TracksRead   prometheus.Counter
	FilesSkipped prometheus.Counter
	JobRunning   prometheus.Gauge

	// Segmentation metrics.
	TracksSegmented prometheus.Counter
	SegmentSkipped  *prometheus.CounterVec // labels: reason={too_short,length_mismatch,times_not_increasing,no_mature,canceled,other}
	SegmentDuration prometheus.Histogram
	SegmentCache    *prometheus.CounterVec // labels: result={hit,miss}
	PeriodsWritten  prometheus.Counter
	BatchSize       prometheus.Histogram

	// Density metrics.
	DensityFields   prometheus.Counter
	DensityDuration prometheus.Histogram
}

func newMetrics() *Metrics {
	return &Metrics{
		TracksRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracks_read_total",
			Help:      "Total tracks read from input CSV files.",
		}),
		FilesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_skipped_total",
			Help:      "Total input files skipped because they could not be parsed.",
		}),
		JobRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_running",
			Help:      "1 while a job is active, 0 when finished.",
		}),
		TracksSegmented: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracks_segmented_total",
			Help:      "Total tracks segmented into phases.",
		}),
		SegmentSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segment_skipped_total",
			Help:      "Tracks skipped by the segmenter, by reason.",
		}, []string{"reason"}),
		SegmentDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "segment_duration_seconds",
			Help:      "Duration of a single track segmentation.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		SegmentCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segment_cache_total",
			Help:      "Segmentation cache lookups by result.",
		}, []string{"result"}),
		PeriodsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "periods_written_total",
			Help:      "Total period tables written to sinks.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of tracks per segmentation batch.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		DensityFields: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "density_fields_total",
			Help:      "Total density fields computed.",
		}),
		DensityDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "density_duration_seconds",
			Help:      "Duration of a single density field estimate.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.TracksRead,
		m.FilesSkipped,
		m.JobRunning,
		m.TracksSegmented,
		m.SegmentSkipped,
		m.SegmentDuration,
		m.SegmentCache,
		m.PeriodsWritten,
		m.BatchSize,
		m.DensityFields,
		m.DensityDuration,
	}
}

// NewMetrics creates and registers all job metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics registered with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() (*Metrics, *prometheus.Registry) {
	m := newMetrics()
	reg := prometheus.NewRegistry()
	reg.MustRegister(m.collectors()...)
	return m, reg
}

// ObserveCache records a segmentation cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	if hit {
		m.SegmentCache.WithLabelValues("hit").Inc()
		return
	}
	m.SegmentCache.WithLabelValues("miss").Inc()
}
