package handlers

import (
	"context"
	"regexp"
	"time"

	"yliproxy/internal/converter"
	"yliproxy/internal/identifier"
	"yliproxy/internal/index"
	"yliproxy/internal/startup"
	"yliproxy/internal/store"
)

// Resolver is the conversion cache as seen by the HTTP layer.
type Resolver interface {
	Resolve(ctx context.Context, ref identifier.Reference) (converter.Result, error)
	InFlight() int
}

// MediaIndex is the media index as seen by the HTTP layer.
type MediaIndex interface {
	EnsureFresh(ctx context.Context) error
	Refresh(ctx context.Context) error
	ListSorted() []store.Artifact
	Get(id string) (store.Artifact, bool)
	Status() index.Status
	IsReady() bool
}

// Handlers serves the gallery, the artifact files and the JSON API.
type Handlers struct {
	store         *store.Store
	index         MediaIndex
	resolver      Resolver
	urlPattern    *regexp.Regexp
	maxUploadSize int64
	startTime     time.Time
}

// New creates the HTTP handlers.
func New(st *store.Store, idx MediaIndex, resolver Resolver, config *startup.Config) *Handlers {
	pattern := config.URLPattern
	if pattern == nil {
		pattern = regexp.MustCompile(startup.DefaultURLPattern)
	}

	return &Handlers{
		store:         st,
		index:         idx,
		resolver:      resolver,
		urlPattern:    pattern,
		maxUploadSize: config.MaxUploadSize,
		startTime:     time.Now(),
	}
}
