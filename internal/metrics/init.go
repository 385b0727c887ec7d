package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, result := range []string{"hit", "miss", "shared", "error"} {
		ConversionRequestsTotal.WithLabelValues(result)
	}
	for _, kind := range []string{"malformed_reference", "download_failed", "conversion_failed", "internal"} {
		ConversionErrorsTotal.WithLabelValues(kind)
	}
	for _, status := range []string{"success", "error"} {
		DownloadsTotal.WithLabelValues(status)
		TranscoderJobsTotal.WithLabelValues(status)
		IndexRefreshesTotal.WithLabelValues(status)
		ThumbnailGenerationsTotal.WithLabelValues(status)
	}
	for _, status := range []string{"generated", "skipped", "failed"} {
		ThumbnailPassFiles.WithLabelValues(status)
	}

	volumes := []string{"converted", "downloads", "thumbnails", "unknown"}
	for _, vol := range volumes {
		for _, op := range []string{"stat", "readdir", "rename"} {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
		}
	}
}
