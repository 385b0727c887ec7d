package identifier

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// ErrMalformedReference is returned when no identifier can be isolated from
// a reference.
var ErrMalformedReference = errors.New("malformed reference")

// Reference is a candidate media item: either a remote URL or an uploaded
// file. Exactly one of URL or Body is expected to be set.
type Reference struct {
	URL      string
	Filename string
	Body     io.Reader
}

// IsUpload reports whether the reference carries its own bytes.
func (r Reference) IsUpload() bool {
	return r.Body != nil
}

// String returns a short description suitable for logs.
func (r Reference) String() string {
	if r.IsUpload() {
		return "upload:" + r.Filename
	}
	return r.URL
}

// Of derives the identifier for a reference.
func Of(ref Reference) (string, error) {
	if ref.IsUpload() {
		return FromFilename(ref.Filename)
	}
	return FromURL(ref.URL)
}

// FromURL returns the last path segment of raw without its extension.
// Query and fragment are ignored.
func FromURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty url", ErrMalformedReference)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrMalformedReference, raw, err)
	}

	p := u.Path
	if p == "" || strings.HasSuffix(p, "/") {
		return "", fmt.Errorf("%w: %q has no file segment", ErrMalformedReference, raw)
	}

	id, err := stem(path.Base(p))
	if err != nil {
		return "", fmt.Errorf("%w: %q", err, raw)
	}
	return id, nil
}

// FromFilename returns the stem of an uploaded file's name. Any directory
// part a client sends is discarded.
func FromFilename(name string) (string, error) {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	id, err := stem(name)
	if err != nil {
		return "", fmt.Errorf("%w: filename %q", err, name)
	}
	return id, nil
}

func stem(base string) (string, error) {
	id := strings.TrimSuffix(base, path.Ext(base))
	if err := Validate(id); err != nil {
		return "", err
	}
	return id, nil
}

// Validate checks that id can safely name a file in the store directory.
func Validate(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty identifier", ErrMalformedReference)
	case id == "." || id == "..":
		return fmt.Errorf("%w: identifier %q", ErrMalformedReference, id)
	case strings.ContainsAny(id, "/\\\x00"):
		return fmt.Errorf("%w: identifier %q contains a separator", ErrMalformedReference, id)
	case strings.HasPrefix(id, "."):
		return fmt.Errorf("%w: identifier %q is hidden", ErrMalformedReference, id)
	}
	return nil
}

// FindURLs returns every match of pattern in text, in order, without
// duplicates.
func FindURLs(text string, pattern *regexp.Regexp) []string {
	if pattern == nil {
		return nil
	}

	matches := pattern.FindAllString(text, -1)
	seen := make(map[string]bool, len(matches))
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		urls = append(urls, m)
	}
	return urls
}
