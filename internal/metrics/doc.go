// Package metrics provides Prometheus instrumentation for yliproxy.
//
// All metrics are prefixed with "yliproxy_" and registered on the default
// registry through promauto, so they are exported by promhttp.Handler.
//
// # Metric Categories
//
//   - HTTP: request totals, durations and in-flight gauge (recorded by middleware)
//   - Conversion cache: resolve outcomes (hit, miss, shared, error), error kinds,
//     miss duration and the number of identifiers currently converting
//   - Downloads: status counts, bytes and duration
//   - Transcoder: job counts, durations and in-progress gauge
//   - Media index: refresh counts and duration, snapshot size and age
//   - Thumbnails: generation outcomes and per-pass file counts
//   - Filesystem: operation latency and ESTALE retry counts per volume
//
// [InitializeMetrics] pre-creates every label combination, and [Collector]
// periodically copies index statistics from a [StatsProvider] into gauges.
package metrics
