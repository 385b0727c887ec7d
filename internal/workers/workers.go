package workers

import (
	"os"
	"runtime"
	"strconv"
)

// ThumbnailEnv overrides the thumbnail pool size.
const ThumbnailEnv = "THUMBNAIL_WORKERS"

// Count returns a worker count for a task type. It respects container CPU
// limits via GOMAXPROCS.
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks (ffmpeg frame extraction and scaling)
//   - 2.0 for I/O-bound tasks
//
// The limit parameter caps the result; use 0 for no limit. A positive
// integer in the environment variable named by envKey replaces the computed
// value (still subject to limit). An empty envKey disables the override.
func Count(envKey string, multiplier float64, limit int) int {
	if envKey != "" {
		if override := os.Getenv(envKey); override != "" {
			if count, err := strconv.Atoi(override); err == nil && count > 0 {
				return capAt(count, limit)
			}
		}
	}

	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	if workers < 1 {
		workers = 1
	}

	return capAt(workers, limit)
}

func capAt(n, limit int) int {
	if limit > 0 && n > limit {
		return limit
	}
	return n
}

// ForThumbnails returns the thumbnail pool size: one worker per CPU, capped
// at limit, overridable with THUMBNAIL_WORKERS.
func ForThumbnails(limit int) int {
	return Count(ThumbnailEnv, 1.0, limit)
}

// ForIO returns worker count for I/O-bound tasks (2 per CPU).
func ForIO(limit int) int {
	return Count("", 2.0, limit)
}
