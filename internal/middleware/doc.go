// Package middleware provides HTTP middleware for yliproxy.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request counters and latency histograms labelled by route
//   - Configurable filtering for artifact downloads and health checks
package middleware
