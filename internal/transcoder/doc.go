// Package transcoder wraps the external ffmpeg binary.
//
// It supports:
//   - Converting a downloaded or uploaded source into the canonical .mp4
//     artifact using a configurable argument template
//   - Extracting a single frame and scaling it into a JPEG thumbnail
//   - Tracking running ffmpeg processes so shutdown can kill them
//
// Outputs are always written to a temporary file and renamed into place.
// On failure the tool's stderr is returned inside a [TranscodeError] or
// [ThumbnailError].
package transcoder
