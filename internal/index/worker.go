package index

import (
	"context"

	"yliproxy/internal/logging"
)

// Start launches the thumbnail worker and performs the startup refresh.
// A failed startup refresh is returned but leaves the index usable; the
// next read retries it.
func (idx *Index) Start(ctx context.Context) error {
	idx.startOnce.Do(func() {
		workerCtx, cancel := context.WithCancel(context.Background())
		idx.wg.Add(1)
		go func() {
			defer idx.wg.Done()
			defer cancel()
			idx.thumbnailLoop(workerCtx, cancel)
		}()
	})

	logging.Info("Starting initial index scan...")
	return idx.Refresh(ctx)
}

// Stop stops the thumbnail worker, cancelling a running pass, and waits for
// it to exit. It is safe to call more than once.
func (idx *Index) Stop() {
	idx.stopOnce.Do(func() {
		close(idx.stopChan)
	})
	idx.wg.Wait()
}

func (idx *Index) thumbnailLoop(ctx context.Context, cancel context.CancelFunc) {
	go func() {
		select {
		case <-idx.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		select {
		case <-idx.stopChan:
			return
		case <-idx.thumbSignal:
			if idx.thumbnailer == nil {
				continue
			}
			res := idx.thumbnailer.Process(ctx, idx.ListSorted())
			idx.thumbPasses.Add(1)
			if res.Generated > 0 {
				// Thumbnail flags in the snapshot are out of date.
				idx.Invalidate()
			}
			logging.Debug("Thumbnail pass: %d generated, %d skipped, %d failed",
				res.Generated, res.Skipped, res.Failed)
		}
	}
}
