package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"yliproxy/internal/index"
	"yliproxy/internal/store"
)

// mockIndex is a MediaIndex with a fixed status.
type mockIndex struct {
	status index.Status
}

func (m *mockIndex) EnsureFresh(context.Context) error      { return nil }
func (m *mockIndex) Refresh(context.Context) error          { return errors.New("scan failed") }
func (m *mockIndex) ListSorted() []store.Artifact           { return nil }
func (m *mockIndex) Get(string) (store.Artifact, bool) { return store.Artifact{}, false }
func (m *mockIndex) Status() index.Status                   { return m.status }
func (m *mockIndex) IsReady() bool                          { return m.status.Initialized }

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		status     index.Status
		inFlight   int
		wantCode   int
		wantStatus string
	}{
		{
			name:       "starting",
			status:     index.Status{},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: statusStarting,
		},
		{
			name:       "healthy",
			status:     index.Status{Initialized: true, Artifacts: 3, Thumbnails: 2, RefreshedAt: time.Now()},
			inFlight:   1,
			wantCode:   http.StatusOK,
			wantStatus: statusHealthy,
		},
		{
			name:       "degraded",
			status:     index.Status{Initialized: true, RefreshedAt: time.Now(), LastError: "permission denied"},
			wantCode:   http.StatusOK,
			wantStatus: statusDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &Handlers{
				index:     &mockIndex{status: tt.status},
				resolver:  &fakeResolver{inFlight: tt.inFlight},
				startTime: time.Now(),
			}

			w := httptest.NewRecorder()
			h.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

			if w.Code != tt.wantCode {
				t.Errorf("status code = %d, want %d", w.Code, tt.wantCode)
			}

			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", resp.Status, tt.wantStatus)
			}
			if resp.Ready != tt.status.Initialized {
				t.Errorf("Ready = %v, want %v", resp.Ready, tt.status.Initialized)
			}
			if resp.Artifacts != tt.status.Artifacts || resp.Thumbnails != tt.status.Thumbnails {
				t.Errorf("counts = %d/%d", resp.Artifacts, resp.Thumbnails)
			}
			if resp.ConversionsInFlight != tt.inFlight {
				t.Errorf("ConversionsInFlight = %d, want %d", resp.ConversionsInFlight, tt.inFlight)
			}
			if resp.IndexError != tt.status.LastError {
				t.Errorf("IndexError = %q", resp.IndexError)
			}
			if resp.GoVersion == "" {
				t.Error("GoVersion is empty")
			}
		})
	}
}

func TestLivenessCheck(t *testing.T) {
	h := &Handlers{}

	w := httptest.NewRecorder()
	h.LivenessCheck(w, httptest.NewRequest(http.MethodGet, "/livez", http.NoBody))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "alive" {
		t.Errorf("status = %q", body["status"])
	}

	w = httptest.NewRecorder()
	h.LivenessCheck(w, httptest.NewRequest(http.MethodHead, "/livez", http.NoBody))
	if w.Body.Len() != 0 {
		t.Error("HEAD response has a body")
	}
}

func TestReadinessCheck(t *testing.T) {
	idx := &mockIndex{}
	h := &Handlers{index: idx}

	w := httptest.NewRecorder()
	h.ReadinessCheck(w, httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("before first scan: status = %d, want 503", w.Code)
	}

	idx.status.Initialized = true
	w = httptest.NewRecorder()
	h.ReadinessCheck(w, httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody))
	if w.Code != http.StatusOK {
		t.Errorf("after first scan: status = %d, want 200", w.Code)
	}
}

func TestTriggerRefreshFailure(t *testing.T) {
	h := &Handlers{index: &mockIndex{}}

	w := httptest.NewRecorder()
	h.TriggerRefresh(w, httptest.NewRequest(http.MethodPost, "/api/refresh", http.NoBody))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestHealthWithRealIndex(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(httptest.NewRequest(http.MethodGet, "/health", http.NoBody)); w.Code != http.StatusServiceUnavailable {
		t.Errorf("before refresh: status = %d, want 503", w.Code)
	}

	if err := env.index.Refresh(t.Context()); err != nil {
		t.Fatal(err)
	}
	if w := env.do(httptest.NewRequest(http.MethodGet, "/health", http.NoBody)); w.Code != http.StatusOK {
		t.Errorf("after refresh: status = %d, want 200", w.Code)
	}
	if w := env.do(httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody)); w.Code != http.StatusOK {
		t.Errorf("readyz status = %d, want 200", w.Code)
	}
}
