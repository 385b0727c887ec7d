package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"yliproxy/internal/converter"
	"yliproxy/internal/identifier"
	"yliproxy/internal/index"
	"yliproxy/internal/startup"
	"yliproxy/internal/store"
)

// fakeResolver records references and answers from fn.
type fakeResolver struct {
	mu       sync.Mutex
	refs     []identifier.Reference
	uploads  []string
	fn       func(ref identifier.Reference) (converter.Result, error)
	inFlight int
}

func (f *fakeResolver) Resolve(_ context.Context, ref identifier.Reference) (converter.Result, error) {
	f.mu.Lock()
	f.refs = append(f.refs, ref)
	if ref.IsUpload() {
		data, err := io.ReadAll(ref.Body)
		if err != nil {
			f.mu.Unlock()
			return converter.Result{}, fmt.Errorf("%w: %w", converter.ErrDownloadFailed, err)
		}
		f.uploads = append(f.uploads, string(data))
	}
	f.mu.Unlock()

	if f.fn != nil {
		return f.fn(ref)
	}
	id, err := identifier.Of(ref)
	if err != nil {
		return converter.Result{}, err
	}
	return converter.Result{ID: id, URL: "https://media.example.com/" + id + ".mp4"}, nil
}

func (f *fakeResolver) InFlight() int { return f.inFlight }

type testEnv struct {
	store    *store.Store
	index    *index.Index
	resolver *fakeResolver
	handlers *Handlers
	router   *mux.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	root := t.TempDir()
	st := store.New(root, filepath.Join(root, "thumbs"), "https://media.example.com")
	if err := os.MkdirAll(st.ThumbnailDir(), 0o755); err != nil {
		t.Fatal(err)
	}

	idx := index.New(st, nil, index.Options{})
	resolver := &fakeResolver{}
	cfg := &startup.Config{
		MaxUploadSize: 1 << 20,
		URLPattern:    regexp.MustCompile(startup.DefaultURLPattern),
	}
	h := New(st, idx, resolver, cfg)

	r := mux.NewRouter()
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")
	r.HandleFunc("/api/convert", h.Convert).Methods("POST")
	r.HandleFunc("/api/artifacts", h.ListArtifacts).Methods("GET")
	r.HandleFunc("/api/artifacts/{id}", h.GetArtifact).Methods("GET")
	r.HandleFunc("/api/refresh", h.TriggerRefresh).Methods("POST")
	r.HandleFunc("/thumbs/{id}.jpg", h.ServeThumbnail).Methods("GET", "HEAD")
	r.HandleFunc("/", h.Gallery).Methods("GET")
	r.HandleFunc("/{filename}", h.ServeArtifact).Methods("GET", "HEAD")

	return &testEnv{store: st, index: idx, resolver: resolver, handlers: h, router: r}
}

func (e *testEnv) addArtifact(t *testing.T, id, content string, created time.Time, thumb bool) {
	t.Helper()
	path := e.store.PathFor(id)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, created, created); err != nil {
		t.Fatal(err)
	}
	if thumb {
		if err := os.WriteFile(e.store.ThumbnailPathFor(id), []byte("\xff\xd8jpeg"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}
