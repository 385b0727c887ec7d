package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"yliproxy/internal/identifier"
	"yliproxy/internal/logging"
	"yliproxy/internal/mediatypes"
)

// ServeArtifact serves a canonical artifact by file name. Range requests
// are supported so players can seek.
func (h *Handlers) ServeArtifact(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["filename"]
	if !mediatypes.IsCanonical(name) {
		http.NotFound(w, r)
		return
	}

	id := strings.TrimSuffix(name, filepath.Ext(name))
	if identifier.Validate(id) != nil {
		http.NotFound(w, r)
		return
	}

	serveFile(w, r, h.store.PathFor(id), mediatypes.GetMimeType(mediatypes.CanonicalExt))
}

// ServeThumbnail serves thumbs/{id}.jpg.
func (h *Handlers) ServeThumbnail(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if identifier.Validate(id) != nil {
		http.NotFound(w, r)
		return
	}

	serveFile(w, r, h.store.ThumbnailPathFor(id), mediatypes.GetMimeType(mediatypes.ThumbnailExt))
}

func serveFile(w http.ResponseWriter, r *http.Request, path, contentType string) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}
		logging.Error("failed to open %s: %v", path, err)
		http.Error(w, "Failed to access file", http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Debug("failed to close %s: %v", path, err)
		}
	}()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
