package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"yliproxy/internal/converter"
	"yliproxy/internal/downloader"
	"yliproxy/internal/logging"
	"yliproxy/internal/startup"
	"yliproxy/internal/store"
	"yliproxy/internal/transcoder"
)

// commandContext carries the configuration shared by all subcommands.
type commandContext struct {
	config *startup.Config
	// loadConfig is replaced in tests.
	loadConfig func() (*startup.Config, error)
}

func newCommandContext() *commandContext {
	return &commandContext{loadConfig: startup.ConfigFromEnv}
}

func (c *commandContext) ensureConfig() (*startup.Config, error) {
	if c.config != nil {
		return c.config, nil
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if err := startup.EnsureDirectories(cfg); err != nil {
		return nil, err
	}
	c.config = cfg
	return cfg, nil
}

func (c *commandContext) openStore() (*store.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return store.New(cfg.ConvertedDir, cfg.ThumbnailDir, cfg.PublicURL), nil
}

// withConverter runs fn with a conversion cache over the configured store
// while holding the data directory lock, so a running server and the CLI
// never convert into the same store at once.
func (c *commandContext) withConverter(fn func(cache *converter.Cache) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	lock, err := store.AcquireLock(cfg.DataPath)
	if errors.Is(err, store.ErrLocked) {
		return fmt.Errorf("%w (stop the yliproxy server or use its POST /api/convert endpoint)", err)
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logging.Warn("Failed to release lock: %v", err)
		}
	}()

	st := store.New(cfg.ConvertedDir, cfg.ThumbnailDir, cfg.PublicURL)
	trans := transcoder.New(st, transcoder.Options{
		Bin:         cfg.FFmpegBin,
		Args:        cfg.FFmpegArgs,
		Timeout:     cfg.TranscodeTimeout,
		RemoveInput: true,
	})
	defer trans.Cleanup()

	dl := downloader.New(downloader.Options{
		Dir:      cfg.DownloadDir,
		Timeout:  cfg.DownloadTimeout,
		Rate:     cfg.DownloadRate,
		Burst:    cfg.DownloadBurst,
		MaxBytes: cfg.MaxUploadSize,
	})

	return fn(converter.New(st, dl, trans, converter.Options{}))
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
