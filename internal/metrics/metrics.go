package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yliproxy_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "yliproxy_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "yliproxy_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Conversion cache metrics
var (
	ConversionRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yliproxy_conversion_requests_total",
			Help: "Total number of resolve requests by outcome",
		},
		[]string{"result"}, // "hit", "miss", "shared", "error"
	)

	ConversionErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yliproxy_conversion_errors_total",
			Help: "Total number of failed resolve requests by error kind",
		},
		[]string{"kind"},
	)

	ConversionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "yliproxy_conversion_duration_seconds",
			Help:    "Duration of download and transcode for cache misses",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	ConversionsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "yliproxy_conversions_in_flight",
			Help: "Number of distinct identifiers currently being converted",
		},
	)
)

// Download metrics
var (
	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yliproxy_downloads_total",
			Help: "Total number of source downloads",
		},
		[]string{"status"},
	)

	DownloadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "yliproxy_download_bytes_total",
			Help: "Total bytes downloaded from media sources",
		},
	)

	DownloadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "yliproxy_download_duration_seconds",
			Help:    "Source download duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
		},
	)
)

// Transcoder metrics
var (
	TranscoderJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yliproxy_transcoder_jobs_total",
			Help: "Total number of transcoding jobs",
		},
		[]string{"status"},
	)

	TranscoderJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "yliproxy_transcoder_job_duration_seconds",
			Help:    "Transcoding job duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	TranscoderJobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "yliproxy_transcoder_jobs_in_progress",
			Help: "Number of transcoding jobs currently in progress",
		},
	)
)

// Media index metrics
var (
	IndexRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yliproxy_index_refreshes_total",
			Help: "Total number of media index refreshes",
		},
		[]string{"status"},
	)

	IndexRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "yliproxy_index_refresh_duration_seconds",
			Help:    "Media index refresh duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	IndexLastRefreshTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "yliproxy_index_last_refresh_timestamp",
			Help: "Unix timestamp of the last successful index refresh",
		},
	)

	IndexArtifacts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "yliproxy_index_artifacts",
			Help: "Number of artifacts in the current index snapshot",
		},
	)

	IndexThumbnails = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "yliproxy_index_thumbnails",
			Help: "Number of indexed artifacts that have a thumbnail",
		},
	)

	IndexStorageBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "yliproxy_index_storage_bytes",
			Help: "Total size of indexed artifacts in bytes",
		},
	)

	IndexSnapshotAge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "yliproxy_index_snapshot_age_seconds",
			Help: "Age of the current index snapshot in seconds",
		},
	)
)

// Thumbnail metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yliproxy_thumbnail_generations_total",
			Help: "Total number of thumbnail generations",
		},
		[]string{"status"}, // "success", "error"
	)

	ThumbnailGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "yliproxy_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail generation duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	ThumbnailGeneratorRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "yliproxy_thumbnail_generator_running",
			Help: "Whether a thumbnail pass is currently running (1 = running, 0 = idle)",
		},
	)

	ThumbnailPassFiles = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "yliproxy_thumbnail_pass_files",
			Help: "Number of artifacts in the last thumbnail pass by status",
		},
		[]string{"status"}, // "generated", "skipped", "failed"
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "yliproxy_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the Go memory limit",
		},
	)

	MemoryGateWaitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "yliproxy_memory_gate_waits_total",
			Help: "Total number of times thumbnail work waited for memory to recover",
		},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "yliproxy_filesystem_operation_duration_seconds",
			Help:    "Filesystem operation duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yliproxy_filesystem_operation_errors_total",
			Help: "Total number of failed filesystem operations",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yliproxy_filesystem_retry_attempts_total",
			Help: "Total number of retried filesystem operations after ESTALE",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yliproxy_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "yliproxy_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
