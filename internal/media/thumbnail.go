package media

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"yliproxy/internal/logging"
	"yliproxy/internal/metrics"
	"yliproxy/internal/store"
)

// FrameGenerator writes a thumbnail for one video.
type FrameGenerator interface {
	GenerateThumbnail(ctx context.Context, videoPath, thumbPath string) error
}

// MemoryGate delays work while memory is short.
type MemoryGate interface {
	Wait(ctx context.Context) error
}

// Result summarizes one thumbnail pass.
type Result struct {
	Generated int
	Skipped   int
	Failed    int
}

// ThumbnailGenerator fills in missing thumbnails for indexed artifacts.
type ThumbnailGenerator struct {
	store     *store.Store
	generator FrameGenerator
	workers   int
	gate      MemoryGate
	running   atomic.Bool
}

// NewThumbnailGenerator creates a generator running up to workers
// extractions at once.
func NewThumbnailGenerator(st *store.Store, generator FrameGenerator, workers int) *ThumbnailGenerator {
	if workers < 1 {
		workers = 1
	}
	return &ThumbnailGenerator{
		store:     st,
		generator: generator,
		workers:   workers,
	}
}

// SetMemoryGate makes every extraction wait on gate first. Call it before
// the first pass.
func (t *ThumbnailGenerator) SetMemoryGate(gate MemoryGate) {
	t.gate = gate
}

// IsRunning reports whether a pass is in progress.
func (t *ThumbnailGenerator) IsRunning() bool {
	return t.running.Load()
}

// Process generates a thumbnail for every artifact that lacks one. Artifacts
// whose thumbnail already exists are skipped without invoking the
// generator. A failure is logged and counted; it never stops the pass.
// Cancelling ctx stops scheduling new work.
func (t *ThumbnailGenerator) Process(ctx context.Context, artifacts []store.Artifact) Result {
	t.running.Store(true)
	metrics.ThumbnailGeneratorRunning.Set(1)
	defer func() {
		t.running.Store(false)
		metrics.ThumbnailGeneratorRunning.Set(0)
	}()

	var generated, skipped, failed atomic.Int64

	if err := os.MkdirAll(t.store.ThumbnailDir(), 0o755); err != nil {
		logging.Error("Failed to create thumbnail directory %s: %v", t.store.ThumbnailDir(), err)
		return Result{Failed: len(artifacts)}
	}

	start := time.Now()
	g := new(errgroup.Group)
	g.SetLimit(t.workers)

	for _, a := range artifacts {
		if ctx.Err() != nil {
			break
		}

		thumbPath := t.store.ThumbnailPathFor(a.ID)
		if a.HasThumbnail || t.store.HasThumbnail(a.ID) {
			skipped.Add(1)
			continue
		}

		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if t.gate != nil {
				if err := t.gate.Wait(ctx); err != nil {
					return nil
				}
			}

			genStart := time.Now()
			err := t.generator.GenerateThumbnail(ctx, a.Path, thumbPath)
			metrics.ThumbnailGenerationDuration.Observe(time.Since(genStart).Seconds())

			if err != nil {
				failed.Add(1)
				metrics.ThumbnailGenerationsTotal.WithLabelValues("error").Inc()
				logging.Warn("Thumbnail for %s failed: %v", a.ID, err)
				return nil
			}

			generated.Add(1)
			metrics.ThumbnailGenerationsTotal.WithLabelValues("success").Inc()
			logging.Debug("Thumbnail generated for %s", a.ID)
			return nil
		})
	}

	_ = g.Wait()

	result := Result{
		Generated: int(generated.Load()),
		Skipped:   int(skipped.Load()),
		Failed:    int(failed.Load()),
	}

	metrics.ThumbnailPassFiles.WithLabelValues("generated").Set(float64(result.Generated))
	metrics.ThumbnailPassFiles.WithLabelValues("skipped").Set(float64(result.Skipped))
	metrics.ThumbnailPassFiles.WithLabelValues("failed").Set(float64(result.Failed))

	if result.Generated > 0 || result.Failed > 0 {
		logging.Info("Thumbnail pass complete in %v: %d generated, %d skipped, %d failed",
			time.Since(start).Round(time.Millisecond), result.Generated, result.Skipped, result.Failed)
	}

	return result
}
