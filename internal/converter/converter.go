package converter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"yliproxy/internal/identifier"
	"yliproxy/internal/logging"
	"yliproxy/internal/mediatypes"
	"yliproxy/internal/metrics"
)

var (
	// ErrDownloadFailed is returned when the source bytes could not be
	// obtained.
	ErrDownloadFailed = errors.New("download failed")
	// ErrConversionFailed is returned when the transcoder rejected the
	// source. It wraps the transcoder error carrying stderr.
	ErrConversionFailed = errors.New("conversion failed")
)

// Error kinds reported to clients and metrics.
const (
	KindMalformedReference = "malformed_reference"
	KindDownloadFailed     = "download_failed"
	KindConversionFailed   = "conversion_failed"
	KindInternal           = "internal"
)

// Store is the part of the artifact store the cache needs.
type Store interface {
	Exists(id string) bool
	PublicURL(id string) string
}

// Fetcher obtains source bytes as a local temporary file.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
	Spool(filename string, body io.Reader) (string, error)
}

// Transcoder turns a local source into id's canonical artifact.
type Transcoder interface {
	Convert(ctx context.Context, inputPath, id string) (string, error)
}

// Result is the outcome of a successful Resolve.
type Result struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Cached bool   `json:"cached"`
}

// Options configures a Cache.
type Options struct {
	// OnConverted is called after a new artifact has been committed.
	OnConverted func(id string)
}

// Cache resolves media references to public artifact URLs, downloading and
// transcoding only when no artifact exists for the reference's identifier.
type Cache struct {
	store       Store
	fetcher     Fetcher
	transcoder  Transcoder
	onConverted func(id string)

	group    singleflight.Group
	inFlight atomic.Int64
}

// New creates a Cache.
func New(st Store, fetcher Fetcher, transcoder Transcoder, opts Options) *Cache {
	return &Cache{
		store:       st,
		fetcher:     fetcher,
		transcoder:  transcoder,
		onConverted: opts.OnConverted,
	}
}

// Resolve returns the public URL of ref's canonical artifact. An existing
// artifact is returned immediately without any download or transcode.
// Otherwise one conversion per identifier runs at a time; concurrent
// callers for the same identifier wait for it and share its result.
//
// The shared conversion is not tied to ctx: a caller giving up returns
// ctx's error while the conversion continues for the others.
func (c *Cache) Resolve(ctx context.Context, ref identifier.Reference) (Result, error) {
	res, err := c.resolve(ctx, ref)
	if err != nil {
		metrics.ConversionRequestsTotal.WithLabelValues("error").Inc()
		metrics.ConversionErrorsTotal.WithLabelValues(Kind(err)).Inc()
		logging.Warn("Resolve %s failed: %v", ref, err)
	}
	return res, err
}

func (c *Cache) resolve(ctx context.Context, ref identifier.Reference) (Result, error) {
	id, err := identifier.Of(ref)
	if err != nil {
		return Result{}, err
	}

	if c.store.Exists(id) {
		metrics.ConversionRequestsTotal.WithLabelValues("hit").Inc()
		logging.Debug("Cache hit for %s", id)
		return c.hit(id), nil
	}

	var spooled string
	if ref.IsUpload() {
		if !mediatypes.IsSource(ref.Filename) {
			return Result{}, fmt.Errorf("%w: unsupported source type %q", identifier.ErrMalformedReference, ref.Filename)
		}
		// The body belongs to the caller, so it is read here and not inside
		// the shared flight.
		spooled, err = c.fetcher.Spool(ref.Filename, ref.Body)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %s: %w", ErrDownloadFailed, ref, err)
		}
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(id, func() (interface{}, error) {
		return c.convert(flightCtx, id, ref, spooled)
	})

	select {
	case <-ctx.Done():
		if spooled != "" {
			// The flight may still be reading the upload.
			go func() {
				<-ch
				removeInput(spooled)
			}()
		}
		return Result{}, fmt.Errorf("waiting for %s: %w", id, ctx.Err())
	case r := <-ch:
		if spooled != "" {
			removeInput(spooled)
		}
		if r.Err != nil {
			return Result{}, r.Err
		}
		res := r.Val.(Result)
		switch {
		case res.Cached:
			metrics.ConversionRequestsTotal.WithLabelValues("hit").Inc()
		case r.Shared:
			metrics.ConversionRequestsTotal.WithLabelValues("shared").Inc()
		default:
			metrics.ConversionRequestsTotal.WithLabelValues("miss").Inc()
		}
		return res, nil
	}
}

// convert runs inside the single flight for id.
func (c *Cache) convert(ctx context.Context, id string, ref identifier.Reference, input string) (Result, error) {
	// An earlier flight may have finished between the caller's check and
	// this one starting.
	if c.store.Exists(id) {
		return c.hit(id), nil
	}

	c.inFlight.Add(1)
	metrics.ConversionsInFlight.Inc()
	defer func() {
		c.inFlight.Add(-1)
		metrics.ConversionsInFlight.Dec()
	}()

	start := time.Now()
	logging.Info("Converting %s from %s", id, ref)

	if input == "" {
		path, err := c.fetcher.Fetch(ctx, ref.URL)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %s: %w", ErrDownloadFailed, ref.URL, err)
		}
		input = path
	}
	defer removeInput(input)

	if _, err := c.transcoder.Convert(ctx, input, id); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}

	metrics.ConversionDuration.Observe(time.Since(start).Seconds())
	logging.Info("Converted %s in %v", id, time.Since(start).Round(time.Millisecond))

	if c.onConverted != nil {
		c.onConverted(id)
	}

	return Result{ID: id, URL: c.store.PublicURL(id)}, nil
}

func (c *Cache) hit(id string) Result {
	return Result{ID: id, URL: c.store.PublicURL(id), Cached: true}
}

// InFlight returns the number of conversions currently running.
func (c *Cache) InFlight() int {
	return int(c.inFlight.Load())
}

// Kind maps an error returned by Resolve to its kind name.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, identifier.ErrMalformedReference):
		return KindMalformedReference
	case errors.Is(err, ErrDownloadFailed):
		return KindDownloadFailed
	case errors.Is(err, ErrConversionFailed):
		return KindConversionFailed
	default:
		return KindInternal
	}
}

func removeInput(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn("Failed to remove temporary source %s: %v", path, err)
	}
}
