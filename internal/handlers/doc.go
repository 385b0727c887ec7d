// Package handlers provides the HTTP handlers for yliproxy.
//
// It includes handlers for:
//   - The HTML gallery of converted artifacts, newest first
//   - Serving artifacts and thumbnails with range support
//   - Converting a URL, a message text or an uploaded file (POST /api/convert)
//   - Listing and refreshing the media index
//   - Health checks and version information
//
// Every read of the index first calls EnsureFresh, so a snapshot older than
// the freshness window is rescanned before it is served.
package handlers
