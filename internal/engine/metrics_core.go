package engine

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the tick store
type Metrics struct {
	// Intake metrics
	TicksEnqueued prometheus.Counter
	TicksDropped  *prometheus.CounterVec
	QueueDepth    prometheus.Gauge

	// Store metrics
	BatchesFlushed prometheus.Counter
	BatchesFailed  *prometheus.CounterVec
	BatchSize      prometheus.Histogram
	FlushLatency   prometheus.Histogram
	RowsWritten    prometheus.Counter
	RowsSkipped    *prometheus.CounterVec

	// Mirror metrics
	MirrorBatches   prometheus.Counter
	MirrorErrors    *prometheus.CounterVec
	MirrorSuspended prometheus.Counter

	// Lifecycle metrics
	DrainerPanics   prometheus.Counter
	PanicsRecovered *prometheus.CounterVec
	ShutdownForced  prometheus.Counter
	StartTime       prometheus.Gauge
}

var (
	metrics     *Metrics
	metricsOnce sync.Once
)

// GetMetrics returns the singleton Metrics instance
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = NewMetrics()
	})
	return metrics
}

// NewMetrics creates a new Metrics instance registered on the default registry
func NewMetrics() *Metrics {
	return &Metrics{
		TicksEnqueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tickstore_ticks_enqueued_total",
			Help: "Total number of ticks accepted by the intake queue",
		}),
		TicksDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tickstore_enqueue_dropped_total",
			Help: "Total number of ticks rejected or evicted at intake",
		}, []string{"reason"}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "tickstore_queue_depth",
			Help: "Ticks waiting in the intake queue",
		}),

		BatchesFlushed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tickstore_batches_committed_total",
			Help: "Total number of batches committed to the structured store",
		}),
		BatchesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tickstore_batches_failed_total",
			Help: "Total number of batches dropped by transactional failure",
		}, []string{"stage"}),
		BatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tickstore_batch_size",
			Help:    "Number of ticks per drained batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 200, 500},
		}),
		FlushLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tickstore_flush_duration_seconds",
			Help:    "Time taken by one transactional batch write",
			Buckets: prometheus.DefBuckets,
		}),
		RowsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tickstore_rows_written_total",
			Help: "Total number of rows committed",
		}),
		RowsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tickstore_rows_skipped_total",
			Help: "Total number of ticks skipped inside a batch",
		}, []string{"reason"}),

		MirrorBatches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tickstore_mirror_batches_total",
			Help: "Total number of batches handed to the mirror sinks",
		}),
		MirrorErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tickstore_mirror_errors_total",
			Help: "Total number of failed mirror file operations",
		}, []string{"target"}),
		MirrorSuspended: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tickstore_mirror_suspended_total",
			Help: "Mirror batches skipped because the disk was low on space",
		}),

		DrainerPanics: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tickstore_drainer_panics_total",
			Help: "Panics recovered inside the drain loop",
		}),
		PanicsRecovered: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tickstore_panics_recovered_total",
			Help: "Panics recovered by any named worker",
		}, []string{"worker"}),
		ShutdownForced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tickstore_shutdown_forced_total",
			Help: "Shutdowns where the drainer had to be cancelled after the drain timeout",
		}),
		StartTime: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "tickstore_start_time_seconds",
			Help: "Unix time the store was started",
		}),
	}
}
