// Package logging provides the leveled logger used throughout yliproxy.
//
// Levels, from most to least verbose:
//   - DEBUG: per-request and per-file detail (cache decisions, ffmpeg argv)
//   - INFO: lifecycle and successful conversions
//   - WARN: recoverable problems (failed cleanup, skipped thumbnails)
//   - ERROR: failed conversions and index refreshes
//   - FATAL: startup errors that terminate the process
//
// The level is read once from LOG_LEVEL (or DEBUG=true) and can be overridden
// with [SetLevel], which the command line tool uses for its --log-level flag.
package logging
