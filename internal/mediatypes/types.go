package mediatypes

import (
	"path/filepath"
	"strings"
)

const (
	// CanonicalExt is the extension of every converted artifact.
	CanonicalExt = ".mp4"
	// ThumbnailExt is the extension of generated thumbnails.
	ThumbnailExt = ".jpg"
	// PartialMarker appears in the name of every in-progress write.
	PartialMarker = ".part"
)

// SourceExtensions lists the upload extensions the transcoder is expected to
// turn into a looping video. Animated images are accepted alongside videos.
var SourceExtensions = map[string]bool{
	".mp4":  true,
	".webm": true,
	".mkv":  true,
	".mov":  true,
	".avi":  true,
	".m4v":  true,
	".gif":  true,
	".webp": true,
	".3gp":  true,
}

// MimeTypes maps the extensions served by the file server to MIME types.
var MimeTypes = map[string]string{
	".mp4":  "video/mp4",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webm": "video/webm",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Ext returns the lowercase extension of name including the leading dot.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// IsSource reports whether name has an extension accepted for conversion.
func IsSource(name string) bool {
	return SourceExtensions[Ext(name)]
}

// IsCanonical reports whether name is a finished artifact file name:
// the canonical extension, not hidden, not a partial write.
func IsCanonical(name string) bool {
	if strings.HasPrefix(name, ".") || strings.Contains(name, PartialMarker) {
		return false
	}
	return Ext(name) == CanonicalExt
}

// GetMimeType returns the MIME type for a given file name.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(name string) string {
	if mime, ok := MimeTypes[Ext(name)]; ok {
		return mime
	}
	return "application/octet-stream"
}
