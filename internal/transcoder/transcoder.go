package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"yliproxy/internal/logging"
	"yliproxy/internal/mediatypes"
	"yliproxy/internal/metrics"
	"yliproxy/internal/store"
)

// DefaultArgs is the ffmpeg argument template used when none is configured.
const DefaultArgs = "-y -i $INPUT -c:v libx264 -preset veryfast -crf 23 -threads 4 -c:a copy $OUTPUT"

const (
	// ThumbnailWidth is the width of generated thumbnails; height keeps the
	// aspect ratio.
	ThumbnailWidth = 320
	// ThumbnailQuality is the JPEG quality of generated thumbnails.
	ThumbnailQuality = 85
	// ThumbnailOffset is where the thumbnail frame is taken.
	ThumbnailOffset = "00:00:01"

	maxStderr = 4096
)

var (
	// ErrTranscodeFailed matches every *TranscodeError.
	ErrTranscodeFailed = errors.New("transcode failed")
	// ErrThumbnailFailed matches every *ThumbnailError.
	ErrThumbnailFailed = errors.New("thumbnail generation failed")
)

// TranscodeError reports a failed conversion with the tool's diagnostics.
type TranscodeError struct {
	ID     string
	Err    error
	Stderr string
}

func (e *TranscodeError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("transcode %s: %v", e.ID, e.Err)
	}
	return fmt.Sprintf("transcode %s: %v: %s", e.ID, e.Err, e.Stderr)
}

func (e *TranscodeError) Unwrap() error { return e.Err }

func (e *TranscodeError) Is(target error) bool { return target == ErrTranscodeFailed }

// ThumbnailError reports a failed thumbnail extraction.
type ThumbnailError struct {
	Path   string
	Err    error
	Stderr string
}

func (e *ThumbnailError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("thumbnail %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("thumbnail %s: %v: %s", e.Path, e.Err, e.Stderr)
}

func (e *ThumbnailError) Unwrap() error { return e.Err }

func (e *ThumbnailError) Is(target error) bool { return target == ErrThumbnailFailed }

// Options configures a Transcoder.
type Options struct {
	// Bin is the ffmpeg executable. Defaults to "ffmpeg".
	Bin string
	// Args is the argument template with $INPUT and $OUTPUT placeholders.
	// Defaults to DefaultArgs.
	Args string
	// Timeout bounds a single conversion. Zero means no limit.
	Timeout time.Duration
	// RemoveInput deletes the input file after every conversion attempt.
	RemoveInput bool
	// Runner executes ffmpeg. Defaults to a new ExecRunner.
	Runner Runner
}

// Transcoder converts source files into canonical artifacts and extracts
// thumbnail frames with ffmpeg.
type Transcoder struct {
	store       *store.Store
	bin         string
	args        string
	timeout     time.Duration
	removeInput bool
	runner      Runner
}

// New creates a Transcoder writing into st.
func New(st *store.Store, opts Options) *Transcoder {
	if opts.Bin == "" {
		opts.Bin = "ffmpeg"
	}
	if strings.TrimSpace(opts.Args) == "" {
		opts.Args = DefaultArgs
	}
	if opts.Runner == nil {
		opts.Runner = NewExecRunner()
	}

	return &Transcoder{
		store:       st,
		bin:         opts.Bin,
		args:        opts.Args,
		timeout:     opts.Timeout,
		removeInput: opts.RemoveInput,
		runner:      opts.Runner,
	}
}

// BuildArgs splits template on whitespace and substitutes the $INPUT and
// $OUTPUT tokens. An empty template selects DefaultArgs.
func BuildArgs(template, input, output string) []string {
	if strings.TrimSpace(template) == "" {
		template = DefaultArgs
	}

	fields := strings.Fields(template)
	args := make([]string, len(fields))
	for i, f := range fields {
		switch f {
		case "$INPUT":
			args[i] = input
		case "$OUTPUT":
			args[i] = output
		default:
			args[i] = f
		}
	}
	return args
}

// Convert transcodes inputPath into id's canonical artifact and returns its
// path. Output goes to a temporary sibling that is renamed into place only
// on success, so a failure never leaves a file at the canonical path.
func (t *Transcoder) Convert(ctx context.Context, inputPath, id string) (string, error) {
	if t.removeInput {
		defer t.removeFile(inputPath)
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	tmp := t.store.TempPathFor(id)
	args := BuildArgs(t.args, inputPath, tmp)

	logging.Debug("Transcoding %s -> %s: %s %s", inputPath, id, t.bin, strings.Join(args, " "))

	metrics.TranscoderJobsInProgress.Inc()
	start := time.Now()
	_, stderr, err := t.runner.Run(ctx, t.bin, args)
	metrics.TranscoderJobsInProgress.Dec()
	metrics.TranscoderJobDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		t.removeFile(tmp)
		metrics.TranscoderJobsTotal.WithLabelValues("error").Inc()
		if ctx.Err() != nil {
			err = fmt.Errorf("%w (%v)", ctx.Err(), err)
		}
		return "", &TranscodeError{ID: id, Err: err, Stderr: tail(stderr)}
	}

	dst, err := t.store.Commit(tmp, id)
	if err != nil {
		t.removeFile(tmp)
		metrics.TranscoderJobsTotal.WithLabelValues("error").Inc()
		return "", &TranscodeError{ID: id, Err: err}
	}

	metrics.TranscoderJobsTotal.WithLabelValues("success").Inc()
	logging.Info("Transcoded %s in %v", id, time.Since(start).Round(time.Millisecond))
	return dst, nil
}

// GenerateThumbnail extracts one frame of videoPath, scales it to
// ThumbnailWidth and writes it as JPEG to thumbPath.
func (t *Transcoder) GenerateThumbnail(ctx context.Context, videoPath, thumbPath string) error {
	frame, stderr, err := t.extractFrame(ctx, videoPath, true)
	if err != nil || len(frame) == 0 {
		// Clips shorter than the offset yield no frame; take the first one.
		logging.Debug("Frame at %s unavailable for %s (%v), retrying from start", ThumbnailOffset, videoPath, err)
		frame, stderr, err = t.extractFrame(ctx, videoPath, false)
	}
	if err != nil {
		return &ThumbnailError{Path: videoPath, Err: err, Stderr: tail(stderr)}
	}
	if len(frame) == 0 {
		return &ThumbnailError{Path: videoPath, Err: errors.New("ffmpeg produced no frame")}
	}

	img, err := imaging.Decode(bytes.NewReader(frame))
	if err != nil {
		return &ThumbnailError{Path: videoPath, Err: fmt.Errorf("failed to decode frame: %w", err)}
	}
	thumb := imaging.Resize(img, ThumbnailWidth, 0, imaging.Lanczos)

	if err := writeJPEG(thumbPath, thumb); err != nil {
		return &ThumbnailError{Path: videoPath, Err: err}
	}
	return nil
}

func (t *Transcoder) extractFrame(ctx context.Context, videoPath string, seek bool) ([]byte, []byte, error) {
	args := []string{"-y", "-v", "error"}
	if seek {
		args = append(args, "-ss", ThumbnailOffset)
	}
	args = append(args,
		"-i", videoPath,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)
	return t.runner.Run(ctx, t.bin, args)
}

// writeJPEG encodes img to a hidden temporary next to path and renames it
// into place.
func writeJPEG(path string, img image.Image) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create thumbnail directory: %w", err)
	}

	tmp := filepath.Join(dir, "."+strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+
		"."+uuid.NewString()+mediatypes.PartialMarker+mediatypes.ThumbnailExt)

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create thumbnail: %w", err)
	}

	if err := imaging.Encode(f, img, imaging.JPEG, imaging.JPEGQuality(ThumbnailQuality)); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write thumbnail: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to commit thumbnail: %w", err)
	}
	return nil
}

// CheckTool runs "{bin} -version" and returns the first line of its output.
func (t *Transcoder) CheckTool(ctx context.Context) (string, error) {
	stdout, stderr, err := t.runner.Run(ctx, t.bin, []string{"-version"})
	if err != nil {
		return "", fmt.Errorf("%s unavailable: %w %s", t.bin, err, tail(stderr))
	}
	line, _, _ := strings.Cut(string(stdout), "\n")
	return strings.TrimSpace(line), nil
}

// Bin returns the configured ffmpeg executable.
func (t *Transcoder) Bin() string {
	return t.bin
}

// Cleanup kills running ffmpeg processes when the runner supports it.
func (t *Transcoder) Cleanup() {
	if c, ok := t.runner.(interface{ Cleanup() }); ok {
		c.Cleanup()
	}
}

func (t *Transcoder) removeFile(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn("Failed to remove %s: %v", path, err)
	}
}

// tail keeps the end of stderr, where ffmpeg prints the actual failure.
func tail(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxStderr {
		s = "..." + s[len(s)-maxStderr:]
	}
	return s
}
