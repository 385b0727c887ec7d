package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"yliproxy/internal/logging"
	"yliproxy/internal/media"
	"yliproxy/internal/metrics"
	"yliproxy/internal/store"
)

// DefaultFreshness is how long a snapshot is served before a read triggers
// a rescan.
const DefaultFreshness = 30 * time.Second

// ErrRefreshFailed is returned when the store could not be scanned. The
// previous snapshot stays in place.
var ErrRefreshFailed = errors.New("index refresh failed")

// Lister enumerates the artifacts currently in the store.
type Lister interface {
	List() ([]store.Artifact, error)
}

// Thumbnailer runs a thumbnail pass over a set of artifacts.
type Thumbnailer interface {
	Process(ctx context.Context, artifacts []store.Artifact) media.Result
}

// Snapshot is an immutable view of the store at RefreshedAt. Callers must
// not modify it.
type Snapshot struct {
	Artifacts   map[string]store.Artifact
	RefreshedAt time.Time
	Initialized bool
}

// Options configures an Index.
type Options struct {
	// Freshness is the snapshot lifetime. Defaults to DefaultFreshness.
	Freshness time.Duration
	// Now overrides the clock.
	Now func() time.Time
}

// Index holds the current snapshot of the artifact store, refreshes it when
// it gets old, and drives the background thumbnail pass.
type Index struct {
	lister      Lister
	thumbnailer Thumbnailer
	freshness   time.Duration
	now         func() time.Time

	snapshot  atomic.Pointer[Snapshot]
	stale     atomic.Bool
	refreshMu sync.Mutex

	thumbSignal chan struct{}
	stopChan    chan struct{}
	stopOnce    sync.Once
	startOnce   sync.Once
	wg          sync.WaitGroup

	statusMu    sync.Mutex
	lastErr     error
	lastErrAt   time.Time
	startTime   time.Time
	refreshes   atomic.Int64
	thumbPasses atomic.Int64
}

// New creates an Index with an empty, uninitialized snapshot dated at the
// Unix epoch, so the first read refreshes it.
func New(lister Lister, thumbnailer Thumbnailer, opts Options) *Index {
	if opts.Freshness <= 0 {
		opts.Freshness = DefaultFreshness
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	idx := &Index{
		lister:      lister,
		thumbnailer: thumbnailer,
		freshness:   opts.Freshness,
		now:         opts.Now,
		thumbSignal: make(chan struct{}, 1),
		stopChan:    make(chan struct{}),
		startTime:   opts.Now(),
	}
	idx.snapshot.Store(&Snapshot{
		Artifacts:   map[string]store.Artifact{},
		RefreshedAt: time.Unix(0, 0),
	})
	return idx
}

// Snapshot returns the current snapshot without blocking.
func (idx *Index) Snapshot() *Snapshot {
	return idx.snapshot.Load()
}

// NeedsRefresh reports whether the snapshot is uninitialized or older than
// the freshness window. Invalidation does not affect it.
func (idx *Index) NeedsRefresh() bool {
	s := idx.snapshot.Load()
	if !s.Initialized {
		return true
	}
	return idx.now().Sub(s.RefreshedAt) > idx.freshness
}

// Invalidate makes the next EnsureFresh rescan even inside the freshness
// window.
func (idx *Index) Invalidate() {
	idx.stale.Store(true)
}

// shouldRescan reports whether EnsureFresh has to scan.
func (idx *Index) shouldRescan() bool {
	return idx.stale.Load() || idx.NeedsRefresh()
}

// EnsureFresh refreshes the snapshot if it needs it or was invalidated. Concurrent callers
// share one rescan: whoever waited for the running refresh finds a fresh
// snapshot and returns.
func (idx *Index) EnsureFresh(ctx context.Context) error {
	if !idx.shouldRescan() {
		return nil
	}

	idx.refreshMu.Lock()
	defer idx.refreshMu.Unlock()

	if !idx.shouldRescan() {
		return nil
	}
	return idx.refreshLocked(ctx)
}

// Refresh rescans the store unconditionally and replaces the snapshot. On
// failure the previous snapshot and its timestamp are kept.
func (idx *Index) Refresh(ctx context.Context) error {
	idx.refreshMu.Lock()
	defer idx.refreshMu.Unlock()
	return idx.refreshLocked(ctx)
}

func (idx *Index) refreshLocked(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	wasStale := idx.stale.Swap(false)

	artifacts, err := idx.lister.List()
	metrics.IndexRefreshDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if wasStale {
			idx.stale.Store(true)
		}
		metrics.IndexRefreshesTotal.WithLabelValues("error").Inc()
		logging.Error("Index refresh failed, keeping previous snapshot: %v", err)

		idx.statusMu.Lock()
		idx.lastErr = err
		idx.lastErrAt = idx.now()
		idx.statusMu.Unlock()

		return fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	next := &Snapshot{
		Artifacts:   make(map[string]store.Artifact, len(artifacts)),
		RefreshedAt: idx.now(),
		Initialized: true,
	}
	for _, a := range artifacts {
		next.Artifacts[a.ID] = a
	}

	prev := idx.snapshot.Swap(next)
	idx.refreshes.Add(1)

	idx.statusMu.Lock()
	idx.lastErr = nil
	idx.statusMu.Unlock()

	metrics.IndexRefreshesTotal.WithLabelValues("success").Inc()
	metrics.IndexLastRefreshTimestamp.Set(float64(next.RefreshedAt.Unix()))
	metrics.IndexArtifacts.Set(float64(len(next.Artifacts)))

	if added, removed := diff(prev.Artifacts, next.Artifacts); added > 0 || removed > 0 {
		logging.Info("Index refreshed in %v: %d artifacts (+%d, -%d)",
			time.Since(start).Round(time.Millisecond), len(next.Artifacts), added, removed)
	} else {
		logging.Debug("Index refreshed in %v: %d artifacts, no changes",
			time.Since(start).Round(time.Millisecond), len(next.Artifacts))
	}

	idx.signalThumbnails()
	return nil
}

// signalThumbnails wakes the thumbnail worker. A pending signal absorbs
// further ones, so bursts of refreshes cause a single pass.
func (idx *Index) signalThumbnails() {
	select {
	case idx.thumbSignal <- struct{}{}:
	default:
	}
}

func diff(prev, next map[string]store.Artifact) (added, removed int) {
	for id := range next {
		if _, ok := prev[id]; !ok {
			added++
		}
	}
	for id := range prev {
		if _, ok := next[id]; !ok {
			removed++
		}
	}
	return added, removed
}

// ListSorted returns the artifacts of the current snapshot, newest first.
// Equal timestamps are ordered by identifier.
func (idx *Index) ListSorted() []store.Artifact {
	s := idx.snapshot.Load()

	list := make([]store.Artifact, 0, len(s.Artifacts))
	for _, a := range s.Artifacts {
		list = append(list, a)
	}

	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
	return list
}

// Get returns the artifact for id from the current snapshot.
func (idx *Index) Get(id string) (store.Artifact, bool) {
	a, ok := idx.snapshot.Load().Artifacts[id]
	return a, ok
}
