package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"yliproxy/internal/logging"
	"yliproxy/internal/store"
)

//go:embed templates/gallery.html
var templateFS embed.FS

var galleryTemplate = template.Must(template.New("gallery.html").
	Funcs(template.FuncMap{"pathEscape": url.PathEscape}).
	ParseFS(templateFS, "templates/gallery.html"))

type galleryData struct {
	Artifacts   []store.Artifact
	RefreshedAt time.Time
}

// Gallery renders the HTML grid of all artifacts, newest first.
func (h *Handlers) Gallery(w http.ResponseWriter, r *http.Request) {
	if err := h.index.EnsureFresh(r.Context()); err != nil {
		// The previous snapshot is still served.
		logging.Warn("Gallery served from previous snapshot: %v", err)
	}

	var buf bytes.Buffer
	data := galleryData{
		Artifacts:   h.index.ListSorted(),
		RefreshedAt: h.index.Status().RefreshedAt,
	}
	if err := galleryTemplate.Execute(&buf, data); err != nil {
		logging.Error("failed to render gallery: %v", err)
		http.Error(w, "Failed to render gallery", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := buf.WriteTo(w); err != nil {
		logging.Debug("failed to write gallery: %v", err)
	}
}
