package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"yliproxy/internal/converter"
	"yliproxy/internal/identifier"
	"yliproxy/internal/logging"
	"yliproxy/internal/store"
)

// ConvertRequest is the JSON body of POST /api/convert. Exactly one of URL
// or Text is expected; Text is searched for media URLs.
type ConvertRequest struct {
	URL  string `json:"url,omitempty"`
	Text string `json:"text,omitempty"`
}

// ConvertItem is the outcome for one reference found in a text.
type ConvertItem struct {
	Source string `json:"source"`
	ID     string `json:"id,omitempty"`
	URL    string `json:"url,omitempty"`
	Cached bool   `json:"cached"`
	Error  string `json:"error,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

// ConvertTextResponse is returned for text requests.
type ConvertTextResponse struct {
	Results []ConvertItem `json:"results"`
}

// ArtifactResponse describes one artifact in the JSON listing.
type ArtifactResponse struct {
	store.Artifact
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// ArtifactListResponse is returned by GET /api/artifacts.
type ArtifactListResponse struct {
	Artifacts   []ArtifactResponse `json:"artifacts"`
	Total       int                `json:"total"`
	RefreshedAt time.Time          `json:"refreshedAt"`
}

// statusForKind maps an error kind to its HTTP status.
func statusForKind(kind string) int {
	switch kind {
	case converter.KindMalformedReference:
		return http.StatusBadRequest
	case converter.KindDownloadFailed:
		return http.StatusBadGateway
	case converter.KindConversionFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Convert resolves a media reference to the public URL of its artifact.
// It accepts a JSON body with a url or text field, or a multipart upload
// in the "file" field.
func (h *Handlers) Convert(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		h.convertUpload(w, r)
		return
	}

	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", converter.KindMalformedReference, http.StatusBadRequest)
		return
	}

	switch {
	case strings.TrimSpace(req.URL) != "":
		h.convertOne(r.Context(), w, identifier.Reference{URL: strings.TrimSpace(req.URL)})
	case req.Text != "":
		h.convertText(r.Context(), w, req.Text)
	default:
		writeJSONError(w, "url or text is required", converter.KindMalformedReference, http.StatusBadRequest)
	}
}

func (h *Handlers) convertOne(ctx context.Context, w http.ResponseWriter, ref identifier.Reference) {
	res, err := h.resolver.Resolve(ctx, ref)
	if err != nil {
		kind := converter.Kind(err)
		writeJSONError(w, err.Error(), kind, statusForKind(kind))
		return
	}
	writeJSONStatusCode(w, http.StatusOK, res)
}

// convertText converts every media URL found in text, in order.
func (h *Handlers) convertText(ctx context.Context, w http.ResponseWriter, text string) {
	urls := identifier.FindURLs(text, h.urlPattern)
	if len(urls) == 0 {
		writeJSONError(w, "no media URL found in text", converter.KindMalformedReference, http.StatusBadRequest)
		return
	}

	resp := ConvertTextResponse{Results: make([]ConvertItem, 0, len(urls))}
	succeeded := 0
	for _, u := range urls {
		item := ConvertItem{Source: u}
		res, err := h.resolver.Resolve(ctx, identifier.Reference{URL: u})
		if err != nil {
			item.Error = err.Error()
			item.Kind = converter.Kind(err)
		} else {
			item.ID, item.URL, item.Cached = res.ID, res.URL, res.Cached
			succeeded++
		}
		resp.Results = append(resp.Results, item)
	}

	status := http.StatusOK
	if succeeded == 0 {
		status = statusForKind(resp.Results[0].Kind)
	}
	writeJSONStatusCode(w, status, resp)
}

// convertUpload streams the "file" part of a multipart body into the
// conversion cache without buffering the whole form.
func (h *Handlers) convertUpload(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		writeJSONError(w, "Invalid multipart body", converter.KindMalformedReference, http.StatusBadRequest)
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			writeJSONError(w, "file field is required", converter.KindMalformedReference, http.StatusBadRequest)
			return
		}
		if err != nil {
			h.writeReadError(w, err)
			return
		}

		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}

		logging.Debug("Upload received: %s", part.FileName())
		res, err := h.resolver.Resolve(r.Context(), identifier.Reference{Filename: part.FileName(), Body: part})
		_ = part.Close()
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				h.writeReadError(w, err)
				return
			}
			kind := converter.Kind(err)
			writeJSONError(w, err.Error(), kind, statusForKind(kind))
			return
		}
		writeJSONStatusCode(w, http.StatusOK, res)
		return
	}
}

func (h *Handlers) writeReadError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeJSONError(w, "upload exceeds size limit", converter.KindMalformedReference, http.StatusRequestEntityTooLarge)
		return
	}
	writeJSONError(w, "Failed to read request body", converter.KindMalformedReference, http.StatusBadRequest)
}

// ListArtifacts returns the index as JSON, newest first.
func (h *Handlers) ListArtifacts(w http.ResponseWriter, r *http.Request) {
	if err := h.index.EnsureFresh(r.Context()); err != nil {
		logging.Warn("Artifact list served from previous snapshot: %v", err)
	}

	artifacts := h.index.ListSorted()
	resp := ArtifactListResponse{
		Artifacts:   make([]ArtifactResponse, 0, len(artifacts)),
		Total:       len(artifacts),
		RefreshedAt: h.index.Status().RefreshedAt,
	}
	for _, a := range artifacts {
		item := ArtifactResponse{Artifact: a, URL: h.store.PublicURL(a.ID)}
		if a.HasThumbnail {
			item.ThumbnailURL = thumbnailURL(a.ID)
		}
		resp.Artifacts = append(resp.Artifacts, item)
	}

	w.Header().Set("Cache-Control", "no-cache")
	writeJSONStatusCode(w, http.StatusOK, resp)
}

// GetArtifact returns one artifact from the index.
func (h *Handlers) GetArtifact(w http.ResponseWriter, r *http.Request) {
	if err := h.index.EnsureFresh(r.Context()); err != nil {
		logging.Warn("Artifact lookup served from previous snapshot: %v", err)
	}

	id := muxVar(r, "id")
	a, ok := h.index.Get(id)
	if !ok {
		writeJSONError(w, "artifact not found", "", http.StatusNotFound)
		return
	}

	item := ArtifactResponse{Artifact: a, URL: h.store.PublicURL(a.ID)}
	if a.HasThumbnail {
		item.ThumbnailURL = thumbnailURL(a.ID)
	}
	writeJSONStatusCode(w, http.StatusOK, item)
}

// TriggerRefresh rescans the store immediately.
func (h *Handlers) TriggerRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.index.Refresh(r.Context()); err != nil {
		writeJSONError(w, err.Error(), "", http.StatusInternalServerError)
		return
	}

	status := h.index.Status()
	writeJSONStatusCode(w, http.StatusOK, map[string]interface{}{
		"status":      "refreshed",
		"artifacts":   status.Artifacts,
		"refreshedAt": status.RefreshedAt,
	})
}

func thumbnailURL(id string) string {
	return "/thumbs/" + url.PathEscape(id) + ".jpg"
}
