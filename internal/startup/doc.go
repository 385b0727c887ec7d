// Package startup handles configuration loading and startup/shutdown logging.
//
// # Configuration
//
// [LoadConfig] reads the environment once and returns an immutable [Config]
// that the composition root threads into every component:
//
//   - DATA_PATH: Root for downloads/, converted/ and the instance lock (default: .)
//   - WEBSERVER_HOST / WEBSERVER_PORT: Listen address (default: 127.0.0.1:8080)
//   - PUBLIC_URL: Base URL for converted files (default: http://HOST:PORT)
//   - FFMPEG_BIN: Transcoder binary (default: ffmpeg)
//   - FFMPEG_ARGS: Argument template with $INPUT and $OUTPUT placeholders
//   - INDEX_FRESHNESS: Media index freshness window (default: 30s)
//   - DOWNLOAD_TIMEOUT: Per-download timeout (default: 5m)
//   - TRANSCODE_TIMEOUT: Per-transcode timeout, 0 for none (default: 0)
//   - DOWNLOAD_RATE / DOWNLOAD_BURST: Outgoing download pacing, 0 disables
//   - MAX_UPLOAD_SIZE: Largest accepted upload in bytes (default: 256MiB)
//   - URL_PATTERN: Regular expression used to find media links in message text
//   - METRICS_PORT / METRICS_ENABLED: Prometheus endpoint (default: 9090, true)
//   - LOG_LEVEL, LOG_STATIC_FILES, LOG_HEALTH_CHECKS: Logging controls
//
// Invalid numbers and durations fall back to defaults with a warning. An
// invalid port, public URL or URL pattern is a configuration error.
//
// # Lifecycle Logging
//
// Section-style log helpers keep startup and shutdown output consistent:
// [LogTranscoderInit], [LogIndexInit], [LogHTTPRoutes], [LogServerStarted],
// [LogShutdownInitiated] and [LogShutdownComplete].
package startup
