package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"yliproxy/internal/logging"
	"yliproxy/internal/mediatypes"
	"yliproxy/internal/metrics"
)

// UserAgent is sent with every download request.
const UserAgent = "yliproxy/1.0"

// ErrTooLarge is returned when a source exceeds the configured size limit.
var ErrTooLarge = errors.New("source exceeds size limit")

// StatusError is returned when the remote server answers with a non-2xx
// status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Options configures a Downloader.
type Options struct {
	// Dir receives the temporary source files.
	Dir string
	// Timeout bounds a single download including the body. Zero means none.
	Timeout time.Duration
	// Rate is the number of downloads started per second. Zero disables
	// pacing.
	Rate float64
	// Burst is the pacing burst size. Values below 1 are treated as 1.
	Burst int
	// MaxBytes caps the size of a single source. Zero means no cap.
	MaxBytes int64
	// Client overrides the HTTP client.
	Client *http.Client
}

// Downloader fetches remote sources and spools uploads into temporary files
// for the transcoder.
type Downloader struct {
	dir      string
	maxBytes int64
	client   *http.Client
	limiter  *rate.Limiter
}

// New creates a Downloader.
func New(opts Options) *Downloader {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.Rate > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), burst)
	}

	return &Downloader{
		dir:      opts.Dir,
		maxBytes: opts.MaxBytes,
		client:   client,
		limiter:  limiter,
	}
}

// Fetch downloads rawURL into a new temporary file and returns its path.
// The caller owns the file and must remove it.
func (d *Downloader) Fetch(ctx context.Context, rawURL string) (string, error) {
	start := time.Now()

	path, n, err := d.fetch(ctx, rawURL)
	metrics.DownloadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues("error").Inc()
		return "", err
	}

	metrics.DownloadsTotal.WithLabelValues("success").Inc()
	metrics.DownloadBytesTotal.Add(float64(n))
	logging.Debug("Downloaded %s (%d bytes) in %v", rawURL, n, time.Since(start).Round(time.Millisecond))
	return path, nil
}

func (d *Downloader) fetch(ctx context.Context, rawURL string) (string, int64, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return "", 0, fmt.Errorf("download of %s not started: %w", rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("invalid download request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("download failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Debug("failed to close response body for %s: %v", rawURL, err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", 0, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	if d.maxBytes > 0 && resp.ContentLength > d.maxBytes {
		return "", 0, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, rawURL, resp.ContentLength)
	}

	return d.spool(sourceExt(rawURL), resp.Body)
}

// Spool copies an uploaded body into a new temporary file and returns its
// path. The caller owns the file and must remove it.
func (d *Downloader) Spool(filename string, body io.Reader) (string, error) {
	path, _, err := d.spool(mediatypes.Ext(filename), body)
	return path, err
}

func (d *Downloader) spool(ext string, body io.Reader) (string, int64, error) {
	if !mediatypes.SourceExtensions[ext] {
		ext = ""
	}
	path := filepath.Join(d.dir, uuid.NewString()+ext)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temporary source: %w", err)
	}

	src := body
	if d.maxBytes > 0 {
		src = io.LimitReader(body, d.maxBytes+1)
	}

	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		err = fmt.Errorf("failed to write temporary source: %w", copyErr)
	case closeErr != nil:
		err = fmt.Errorf("failed to write temporary source: %w", closeErr)
	case d.maxBytes > 0 && n > d.maxBytes:
		err = fmt.Errorf("%w: more than %d bytes", ErrTooLarge, d.maxBytes)
	case n == 0:
		err = errors.New("source is empty")
	}
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			logging.Warn("Failed to remove %s: %v", path, rmErr)
		}
		return "", 0, err
	}

	return path, n, nil
}

func sourceExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return mediatypes.Ext(u.Path)
}
