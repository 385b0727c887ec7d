package metrics

import (
	"sync"
	"time"

	"yliproxy/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current statistics
type Stats struct {
	Artifacts    int
	Thumbnails   int
	StorageBytes int64
	SnapshotAge  time.Duration
}

// Collector periodically copies index statistics into gauges.
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection. It is safe to call more than once.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	IndexArtifacts.Set(float64(stats.Artifacts))
	IndexThumbnails.Set(float64(stats.Thumbnails))
	IndexStorageBytes.Set(float64(stats.StorageBytes))
	IndexSnapshotAge.Set(stats.SnapshotAge.Seconds())

	logging.Debug("Metrics collected: artifacts=%d, thumbnails=%d, bytes=%d",
		stats.Artifacts, stats.Thumbnails, stats.StorageBytes)
}
