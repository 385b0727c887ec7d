// Package memory sizes the Go heap limit for containers and provides a
// gate that holds back thumbnail decoding while the heap is near that
// limit.
//
// The server calls [ConfigureFromEnv] once at startup:
//
//   - GOMEMLIMIT set: used as is
//   - MEMORY_LIMIT set: the heap gets MEMORY_RATIO of it (default 0.5)
//   - neither: no limit, and the gate never blocks
//
// ffmpeg runs as a child process in the same cgroup, so the default ratio
// leaves half the container to it.
package memory
