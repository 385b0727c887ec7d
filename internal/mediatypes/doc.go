// Package mediatypes defines the file formats yliproxy handles: the
// canonical artifact container (.mp4), the thumbnail container (.jpg), and
// the source extensions accepted for upload.
package mediatypes
