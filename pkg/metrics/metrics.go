package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Item metrics
	ItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batchcrop_items_total",
			Help: "Total number of processed images",
		},
		[]string{"status"}, // success, error
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "batchcrop_stage_duration_seconds",
			Help:    "Per-item stage duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"}, // decode, compose, encode
	)

	ItemBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "batchcrop_item_bytes",
			Help:    "Item input/output bytes",
			Buckets: []float64{1024, 10240, 102400, 512000, 1048576, 5242880, 10485760, 52428800},
		},
		[]string{"direction"}, // input, output
	)

	// Encoder metrics
	EncodeAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "batchcrop_encode_attempts",
			Help:    "Number of encodes needed to meet the size limit",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9},
		},
		[]string{"format"},
	)

	SizeLimitMissed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batchcrop_size_limit_missed_total",
			Help: "Total number of outputs left above the size limit",
		},
		[]string{"format"},
	)

	// Batch metrics
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batchcrop_batches_total",
			Help: "Total number of batch runs",
		},
		[]string{"status"}, // success, empty, invalid, cancelled
	)

	ArchiveBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "batchcrop_archive_bytes",
			Help:    "Size of produced archives",
			Buckets: prometheus.ExponentialBuckets(64*1024, 4, 8),
		},
	)

	// Worker metrics
	ActiveWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "batchcrop_active_workers",
			Help: "Current number of workers processing an item",
		},
	)

	// Surface pool metrics
	SurfacePoolHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "batchcrop_surface_pool_hits_total",
			Help: "Total number of drawing surfaces reused from the pool",
		},
	)

	SurfacePoolMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "batchcrop_surface_pool_misses_total",
			Help: "Total number of drawing surfaces allocated",
		},
	)
)

// RecordItem records the outcome of one image
func RecordItem(status string, inputBytes, outputBytes int) {
	ItemsTotal.WithLabelValues(status).Inc()
	ItemBytes.WithLabelValues("input").Observe(float64(inputBytes))
	if outputBytes > 0 {
		ItemBytes.WithLabelValues("output").Observe(float64(outputBytes))
	}
}

// RecordStage records how long one item spent in a stage
func RecordStage(stage string, seconds float64) {
	StageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordEncode records a size-constrained encode
func RecordEncode(format string, attempts int, fits bool) {
	EncodeAttempts.WithLabelValues(format).Observe(float64(attempts))
	if !fits {
		SizeLimitMissed.WithLabelValues(format).Inc()
	}
}

// RecordBatch records the outcome of a batch run
func RecordBatch(status string) {
	BatchesTotal.WithLabelValues(status).Inc()
}

// RecordArchive records the size of a written archive
func RecordArchive(size int64) {
	ArchiveBytes.Observe(float64(size))
}

// WorkerStarted marks a worker as busy
func WorkerStarted() {
	ActiveWorkers.Inc()
}

// WorkerFinished marks a worker as idle
func WorkerFinished() {
	ActiveWorkers.Dec()
}

// RecordPoolHit records a surface pool hit
func RecordPoolHit() {
	SurfacePoolHits.Inc()
}

// RecordPoolMiss records a surface pool miss
func RecordPoolMiss() {
	SurfacePoolMisses.Inc()
}

// WriteTextfile writes all registered metrics to path in the Prometheus text
// format, for pickup by the node exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
