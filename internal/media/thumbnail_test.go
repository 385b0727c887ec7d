package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"yliproxy/internal/store"
)

type fakeGenerator struct {
	mu      sync.Mutex
	calls   []string
	failFor map[string]bool

	active    atomic.Int32
	maxActive atomic.Int32
}

func (f *fakeGenerator) GenerateThumbnail(_ context.Context, videoPath, thumbPath string) error {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxActive.Load()
		if n <= m || f.maxActive.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, videoPath)
	f.mu.Unlock()

	if f.failFor[filepath.Base(videoPath)] {
		return errors.New("corrupt video")
	}
	return os.WriteFile(thumbPath, []byte("jpeg"), 0o644)
}

func setup(t *testing.T, ids ...string) (*store.Store, []store.Artifact) {
	t.Helper()
	root := t.TempDir()
	st := store.New(root, filepath.Join(root, "thumbs"), "http://localhost")
	for _, id := range ids {
		if err := os.WriteFile(st.PathFor(id), []byte("video"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(st.ThumbnailDir(), 0o755); err != nil {
		t.Fatal(err)
	}
	artifacts, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	return st, artifacts
}

func TestProcessGeneratesMissing(t *testing.T) {
	st, artifacts := setup(t, "a", "b", "c")
	gen := &fakeGenerator{}

	res := NewThumbnailGenerator(st, gen, 2).Process(context.Background(), artifacts)

	if res != (Result{Generated: 3}) {
		t.Errorf("Process() = %+v, want 3 generated", res)
	}
	for _, id := range []string{"a", "b", "c"} {
		if !st.HasThumbnail(id) {
			t.Errorf("thumbnail for %s missing", id)
		}
	}
}

func TestProcessSkipsExisting(t *testing.T) {
	st, _ := setup(t, "a", "b")
	if err := os.WriteFile(st.ThumbnailPathFor("a"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	artifacts, err := st.List()
	if err != nil {
		t.Fatal(err)
	}

	gen := &fakeGenerator{}
	res := NewThumbnailGenerator(st, gen, 1).Process(context.Background(), artifacts)

	if res != (Result{Generated: 1, Skipped: 1}) {
		t.Errorf("Process() = %+v", res)
	}
	if len(gen.calls) != 1 || filepath.Base(gen.calls[0]) != "b.mp4" {
		t.Errorf("generator calls = %v, want only b.mp4", gen.calls)
	}

	data, _ := os.ReadFile(st.ThumbnailPathFor("a"))
	if string(data) != "old" {
		t.Error("existing thumbnail was overwritten")
	}

	// A second pass has nothing to do.
	artifacts, _ = st.List()
	res = NewThumbnailGenerator(st, gen, 1).Process(context.Background(), artifacts)
	if res != (Result{Skipped: 2}) {
		t.Errorf("second Process() = %+v, want 2 skipped", res)
	}
	if len(gen.calls) != 1 {
		t.Errorf("generator called again: %v", gen.calls)
	}
}

func TestProcessChecksStoreForThumbnails(t *testing.T) {
	st, artifacts := setup(t, "late", "dir")
	// Listed before either thumbnail path existed.
	for _, a := range artifacts {
		if a.HasThumbnail {
			t.Fatalf("%s listed with a thumbnail", a.ID)
		}
	}
	if err := os.WriteFile(st.ThumbnailPathFor("late"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	// A directory is not a thumbnail.
	if err := os.Mkdir(st.ThumbnailPathFor("dir"), 0o755); err != nil {
		t.Fatal(err)
	}

	gen := &fakeGenerator{}
	res := NewThumbnailGenerator(st, gen, 1).Process(context.Background(), artifacts)

	if res.Skipped != 1 {
		t.Errorf("Process() = %+v, want 1 skipped", res)
	}
	if len(gen.calls) != 1 || filepath.Base(gen.calls[0]) != "dir.mp4" {
		t.Errorf("generator calls = %v, want only dir.mp4", gen.calls)
	}
}

func TestProcessIsolatesFailures(t *testing.T) {
	st, artifacts := setup(t, "good1", "broken", "good2")
	gen := &fakeGenerator{failFor: map[string]bool{"broken.mp4": true}}

	res := NewThumbnailGenerator(st, gen, 1).Process(context.Background(), artifacts)

	if res != (Result{Generated: 2, Failed: 1}) {
		t.Errorf("Process() = %+v, want 2 generated 1 failed", res)
	}
	if st.HasThumbnail("broken") {
		t.Error("thumbnail exists for failed item")
	}
	if !st.HasThumbnail("good1") || !st.HasThumbnail("good2") {
		t.Error("failure stopped the rest of the pass")
	}
}

func TestProcessBoundedConcurrency(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	st, artifacts := setup(t, ids...)
	gen := &fakeGenerator{}

	NewThumbnailGenerator(st, gen, 2).Process(context.Background(), artifacts)

	if m := gen.maxActive.Load(); m > 2 {
		t.Errorf("max concurrent generations = %d, want <= 2", m)
	}
	if len(gen.calls) != len(ids) {
		t.Errorf("generator calls = %d, want %d", len(gen.calls), len(ids))
	}
}

func TestProcessCreatesThumbnailDir(t *testing.T) {
	st, artifacts := setup(t, "a")
	if err := os.RemoveAll(st.ThumbnailDir()); err != nil {
		t.Fatal(err)
	}

	res := NewThumbnailGenerator(st, &fakeGenerator{}, 1).Process(context.Background(), artifacts)
	if res.Generated != 1 {
		t.Errorf("Process() = %+v, want 1 generated", res)
	}
}

func TestProcessCancelled(t *testing.T) {
	st, artifacts := setup(t, "a", "b")
	gen := &fakeGenerator{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewThumbnailGenerator(st, gen, 1).Process(ctx, artifacts)
	if res.Generated != 0 || len(gen.calls) != 0 {
		t.Errorf("cancelled pass did work: %+v, calls %v", res, gen.calls)
	}
}

func TestNewThumbnailGeneratorMinimumWorkers(t *testing.T) {
	g := NewThumbnailGenerator(nil, nil, 0)
	if g.workers != 1 {
		t.Errorf("workers = %d, want 1", g.workers)
	}
	if g.IsRunning() {
		t.Error("new generator reports running")
	}
}

type fakeGate struct {
	waits atomic.Int32
	err   error
}

func (g *fakeGate) Wait(context.Context) error {
	g.waits.Add(1)
	return g.err
}

func TestProcessWaitsOnMemoryGate(t *testing.T) {
	st, artifacts := setup(t, "a", "b")
	gen := &fakeGenerator{}
	gate := &fakeGate{}

	tg := NewThumbnailGenerator(st, gen, 1)
	tg.SetMemoryGate(gate)
	res := tg.Process(context.Background(), artifacts)

	if res.Generated != 2 {
		t.Errorf("Process() = %+v, want 2 generated", res)
	}
	if gate.waits.Load() != 2 {
		t.Errorf("gate waits = %d, want 2", gate.waits.Load())
	}
}

func TestProcessGateAbortsOnCancel(t *testing.T) {
	st, artifacts := setup(t, "a")
	gen := &fakeGenerator{}

	tg := NewThumbnailGenerator(st, gen, 1)
	tg.SetMemoryGate(&fakeGate{err: context.Canceled})
	res := tg.Process(context.Background(), artifacts)

	if res.Generated != 0 || len(gen.calls) != 0 {
		t.Errorf("generator ran after gate refused: %+v", res)
	}
}
