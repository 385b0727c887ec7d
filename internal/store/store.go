package store

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"yliproxy/internal/filesystem"
	"yliproxy/internal/identifier"
	"yliproxy/internal/logging"
	"yliproxy/internal/mediatypes"
)

// Artifact describes one converted file in the store.
type Artifact struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	Path         string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	Size         int64     `json:"size"`
	HasThumbnail bool      `json:"hasThumbnail"`
}

// Store maps identifiers to canonical artifact files in a single directory.
// The filesystem is authoritative; Store keeps no state of its own.
type Store struct {
	root      string
	thumbsDir string
	publicURL string
	retry     filesystem.RetryConfig
}

// New creates a Store rooted at root. Thumbnails live in thumbsDir and
// public links are built from publicURL.
func New(root, thumbsDir, publicURL string) *Store {
	return &Store{
		root:      root,
		thumbsDir: thumbsDir,
		publicURL: strings.TrimRight(publicURL, "/"),
		retry:     filesystem.DefaultRetryConfig(),
	}
}

// Root returns the directory holding canonical artifacts.
func (s *Store) Root() string {
	return s.root
}

// ThumbnailDir returns the directory holding thumbnails.
func (s *Store) ThumbnailDir() string {
	return s.thumbsDir
}

// FilenameFor returns the canonical file name for id.
func (s *Store) FilenameFor(id string) string {
	return id + mediatypes.CanonicalExt
}

// PathFor returns the canonical path for id. The file need not exist.
func (s *Store) PathFor(id string) string {
	return filepath.Join(s.root, s.FilenameFor(id))
}

// ThumbnailPathFor returns the thumbnail path for id.
func (s *Store) ThumbnailPathFor(id string) string {
	return filepath.Join(s.thumbsDir, id+mediatypes.ThumbnailExt)
}

// PublicURL returns the externally reachable link to id's artifact. The
// filename is path-escaped so ids with reserved characters stay routable.
func (s *Store) PublicURL(id string) string {
	return s.publicURL + "/" + url.PathEscape(s.FilenameFor(id))
}

// Exists reports whether a canonical artifact for id is present.
func (s *Store) Exists(id string) bool {
	if identifier.Validate(id) != nil {
		return false
	}
	info, err := filesystem.StatWithRetry(s.PathFor(id), s.retry)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn("Failed to stat artifact %s: %v", id, err)
		}
		return false
	}
	return info.Mode().IsRegular()
}

// HasThumbnail reports whether a thumbnail for id is present.
func (s *Store) HasThumbnail(id string) bool {
	info, err := filesystem.StatWithRetry(s.ThumbnailPathFor(id), s.retry)
	return err == nil && info.Mode().IsRegular()
}

// List reads the store directory and returns every canonical artifact in
// enumeration order. Each call rescans the directory.
func (s *Store) List() ([]Artifact, error) {
	entries, err := filesystem.ReadDirWithRetry(s.root, s.retry)
	if err != nil {
		return nil, fmt.Errorf("failed to read store directory %s: %w", s.root, err)
	}

	artifacts := make([]Artifact, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !mediatypes.IsCanonical(name) {
			continue
		}

		path := filepath.Join(s.root, name)
		info, err := filesystem.StatWithRetry(path, s.retry)
		if err != nil {
			// Removed between readdir and stat.
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			logging.Warn("Failed to stat %s: %v", path, err)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}

		id := strings.TrimSuffix(name, filepath.Ext(name))
		artifacts = append(artifacts, Artifact{
			ID:           id,
			Filename:     name,
			Path:         path,
			CreatedAt:    info.ModTime(),
			Size:         info.Size(),
			HasThumbnail: s.HasThumbnail(id),
		})
	}

	return artifacts, nil
}

// TempPathFor returns a unique temporary path next to id's canonical path.
// The name is hidden and carries the partial marker so List ignores it.
func (s *Store) TempPathFor(id string) string {
	return filepath.Join(s.root, "."+id+"."+uuid.NewString()+mediatypes.PartialMarker+mediatypes.CanonicalExt)
}

// Commit renames tmp onto id's canonical path, replacing any previous
// artifact, and returns the canonical path.
func (s *Store) Commit(tmp, id string) (string, error) {
	if err := identifier.Validate(id); err != nil {
		return "", err
	}
	dst := s.PathFor(id)
	if err := filesystem.RenameWithRetry(tmp, dst, s.retry); err != nil {
		return "", fmt.Errorf("failed to commit artifact %s: %w", id, err)
	}
	return dst, nil
}
