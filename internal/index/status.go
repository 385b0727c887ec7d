package index

import (
	"time"

	"yliproxy/internal/metrics"
)

// Status contains health information about the index.
type Status struct {
	Initialized     bool      `json:"initialized"`
	Stale           bool      `json:"stale"`
	RefreshedAt     time.Time `json:"refreshedAt"`
	Artifacts       int       `json:"artifacts"`
	Thumbnails      int       `json:"thumbnails"`
	Refreshes       int64     `json:"refreshes"`
	ThumbnailPasses int64     `json:"thumbnailPasses"`
	StartTime       time.Time `json:"startTime"`
	Uptime          string    `json:"uptime"`
	LastError       string    `json:"lastError,omitempty"`
	LastErrorAt     time.Time `json:"lastErrorAt,omitempty"`
}

// Status returns the current health information.
func (idx *Index) Status() Status {
	s := idx.snapshot.Load()

	status := Status{
		Initialized:     s.Initialized,
		Stale:           idx.shouldRescan(),
		RefreshedAt:     s.RefreshedAt,
		Artifacts:       len(s.Artifacts),
		Refreshes:       idx.refreshes.Load(),
		ThumbnailPasses: idx.thumbPasses.Load(),
		StartTime:       idx.startTime,
		Uptime:          idx.now().Sub(idx.startTime).Round(time.Second).String(),
	}
	for _, a := range s.Artifacts {
		if a.HasThumbnail {
			status.Thumbnails++
		}
	}

	idx.statusMu.Lock()
	if idx.lastErr != nil {
		status.LastError = idx.lastErr.Error()
		status.LastErrorAt = idx.lastErrAt
	}
	idx.statusMu.Unlock()

	return status
}

// IsReady reports whether the first successful scan has completed.
func (idx *Index) IsReady() bool {
	return idx.snapshot.Load().Initialized
}

// GetStats implements metrics.StatsProvider.
func (idx *Index) GetStats() metrics.Stats {
	s := idx.snapshot.Load()

	stats := metrics.Stats{Artifacts: len(s.Artifacts)}
	for _, a := range s.Artifacts {
		stats.StorageBytes += a.Size
		if a.HasThumbnail {
			stats.Thumbnails++
		}
	}
	if s.Initialized {
		stats.SnapshotAge = idx.now().Sub(s.RefreshedAt)
	}
	return stats
}
