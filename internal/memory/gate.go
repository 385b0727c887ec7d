package memory

import (
	"context"
	"runtime"
	"time"

	"yliproxy/internal/logging"
	"yliproxy/internal/metrics"
)

// DefaultThreshold is the share of the limit above which gated work waits.
const DefaultThreshold = 0.8

// Gate holds back memory-hungry work while the heap is close to the limit.
// A Gate with no limit never blocks.
type Gate struct {
	limit     int64
	threshold float64
	interval  time.Duration
	// readAlloc is replaced in tests.
	readAlloc func() uint64
}

// NewGate creates a gate for limit bytes. threshold outside (0, 1] selects
// DefaultThreshold.
func NewGate(limit int64, threshold float64) *Gate {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Gate{
		limit:     limit,
		threshold: threshold,
		interval:  500 * time.Millisecond,
		readAlloc: heapAlloc,
	}
}

// Usage returns heap usage as a fraction of the limit, or 0 without one.
func (g *Gate) Usage() float64 {
	if g.limit <= 0 {
		return 0
	}
	usage := float64(g.readAlloc()) / float64(g.limit)
	metrics.MemoryUsageRatio.Set(usage)
	return usage
}

// Wait returns once usage is below the threshold, or ctx's error.
func (g *Gate) Wait(ctx context.Context) error {
	if g.limit <= 0 || g.Usage() < g.threshold {
		return nil
	}

	metrics.MemoryGateWaitsTotal.Inc()
	logging.Debug("Memory at %.0f%% of limit, waiting", g.Usage()*100)
	runtime.GC()

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if g.Usage() < g.threshold {
				return nil
			}
		}
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.HeapAlloc
}
