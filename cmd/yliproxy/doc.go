// Package main provides the entry point for the yliproxy server.
//
// yliproxy converts media links and uploads forwarded by a chat bot into
// browser-playable MP4 files, serves them under a public URL and renders a
// gallery of everything converted so far.
//
// # Application Lifecycle
//
//  1. Memory Configuration: Sets GOMEMLIMIT from MEMORY_LIMIT, leaving room
//     for ffmpeg child processes
//  2. Configuration Loading: Reads environment variables and prepares the
//     data directory layout
//  3. Metrics: Registers Prometheus collectors and the filesystem observer
//  4. Instance Lock: Takes an exclusive lock on the data directory so a
//     second server or CLI cannot write the same artifacts
//  5. Component Initialization:
//     - Artifact Store: converted/{id}.mp4 and converted/thumbs/{id}.jpg
//     - Transcoder: ffmpeg wrapper, checked at startup
//     - Downloader: paced HTTP fetches into downloads/
//     - Media Index: snapshot of the store with a background thumbnail worker
//       that waits while the heap is near its limit
//     - Conversion Cache: one conversion per identifier at a time
//  6. HTTP Server Setup: Routes, access log and request metrics
//  7. Graceful Shutdown: Handles SIGINT/SIGTERM
//
// # HTTP Server
//
// The main server (WEBSERVER_HOST:WEBSERVER_PORT, default 127.0.0.1:8080)
// serves:
//
//   - GET /                   HTML gallery, newest first
//   - GET /{id}.mp4           converted artifact, with range support
//   - GET /thumbs/{id}.jpg    thumbnail
//   - POST /api/convert       {"url": ...}, {"text": ...} or multipart "file"
//   - GET /api/artifacts      JSON listing
//   - GET /api/artifacts/{id} single artifact
//   - POST /api/refresh       rescan the store now
//   - /health, /healthz, /livez, /readyz, /version
//
// When METRICS_ENABLED is true a second server on METRICS_PORT exposes
// /metrics for Prometheus.
//
// # Environment Variables
//
//   - DATA_PATH: Data directory (default: .)
//   - PUBLIC_URL: Base URL artifacts are published under
//   - FFMPEG_BIN, FFMPEG_ARGS: ffmpeg executable and argument template
//   - INDEX_FRESHNESS: Snapshot lifetime (default: 30s)
//   - DOWNLOAD_TIMEOUT, TRANSCODE_TIMEOUT: Per-job limits
//   - DOWNLOAD_RATE, DOWNLOAD_BURST: Outgoing download pacing
//   - MAX_UPLOAD_SIZE: Upload and download size cap
//   - URL_PATTERN: Regular expression for media links in text
//   - THUMBNAIL_WORKERS: Thumbnail concurrency override
//   - MEMORY_LIMIT, MEMORY_RATIO: Container memory and the heap's share of it
//   - LOG_LEVEL: Logging level (debug/info/warn/error)
//
// # Graceful Shutdown
//
//  1. Stop accepting HTTP requests (30s timeout)
//  2. Shut down the metrics server
//  3. Stop the metrics collector
//  4. Stop the media index and its thumbnail worker
//  5. Kill running ffmpeg processes; their temporaries are never published
//  6. Release the data directory lock
//
// # Related Packages
//
//   - [yliproxy/internal/converter]: Conversion cache
//   - [yliproxy/internal/handlers]: HTTP request handlers
//   - [yliproxy/internal/index]: Media index and refresh scheduling
//   - [yliproxy/internal/store]: Artifact store and instance lock
//   - [yliproxy/internal/transcoder]: ffmpeg conversion and thumbnails
package main
