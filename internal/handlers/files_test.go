package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestServeArtifact(t *testing.T) {
	env := newTestEnv(t)
	env.addArtifact(t, "clip", "0123456789", time.Now(), false)

	w := env.do(httptest.NewRequest(http.MethodGet, "/clip.mp4", http.NoBody))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "video/mp4" {
		t.Errorf("Content-Type = %q, want video/mp4", ct)
	}
	if w.Body.String() != "0123456789" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestServeArtifactRange(t *testing.T) {
	env := newTestEnv(t)
	env.addArtifact(t, "clip", "0123456789", time.Now(), false)

	req := httptest.NewRequest(http.MethodGet, "/clip.mp4", http.NoBody)
	req.Header.Set("Range", "bytes=2-5")
	w := env.do(req)

	if w.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", w.Code)
	}
	body, _ := io.ReadAll(w.Body)
	if string(body) != "2345" {
		t.Errorf("range body = %q, want 2345", body)
	}
}

func TestServeArtifactNotServed(t *testing.T) {
	env := newTestEnv(t)
	env.addArtifact(t, "clip", "x", time.Now(), false)
	partial := env.store.TempPathFor("partial")
	if err := os.WriteFile(partial, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{
		"/missing.mp4",
		"/clip.webm",
		"/clip",
		"/.hidden.mp4",
		"/yliproxy.lock",
		"/" + filepath.Base(partial),
	} {
		w := env.do(httptest.NewRequest(http.MethodGet, path, http.NoBody))
		if w.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, w.Code)
		}
	}
}

func TestServeArtifactBeforeIndexRefresh(t *testing.T) {
	env := newTestEnv(t)
	if err := env.index.Refresh(t.Context()); err != nil {
		t.Fatal(err)
	}

	// Converted after the snapshot was taken.
	env.addArtifact(t, "fresh", "new", time.Now(), false)

	w := env.do(httptest.NewRequest(http.MethodGet, "/fresh.mp4", http.NoBody))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for an artifact not yet indexed", w.Code)
	}
}

func TestServeThumbnail(t *testing.T) {
	env := newTestEnv(t)
	env.addArtifact(t, "clip", "x", time.Now(), true)

	w := env.do(httptest.NewRequest(http.MethodGet, "/thumbs/clip.jpg", http.NoBody))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cc := w.Header().Get("Cache-Control"); cc == "" {
		t.Error("missing Cache-Control")
	}

	w = env.do(httptest.NewRequest(http.MethodGet, "/thumbs/none.jpg", http.NoBody))
	if w.Code != http.StatusNotFound {
		t.Errorf("missing thumbnail status = %d, want 404", w.Code)
	}
}
