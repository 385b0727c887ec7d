package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"yliproxy/internal/converter"
	"yliproxy/internal/downloader"
	"yliproxy/internal/filesystem"
	"yliproxy/internal/handlers"
	"yliproxy/internal/index"
	"yliproxy/internal/logging"
	"yliproxy/internal/media"
	"yliproxy/internal/memory"
	"yliproxy/internal/metrics"
	"yliproxy/internal/middleware"
	"yliproxy/internal/startup"
	"yliproxy/internal/store"
	"yliproxy/internal/transcoder"
	"yliproxy/internal/workers"
)

const (
	shutdownTimeout        = 30 * time.Second
	metricsCollectInterval = time.Minute
	maxThumbnailWorkers    = 4
)

func main() {
	startTime := time.Now()

	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"converted":  config.ConvertedDir,
		"thumbnails": config.ThumbnailDir,
		"downloads":  config.DownloadDir,
	}))

	lock, err := store.AcquireLock(config.DataPath)
	if err != nil {
		startup.LogFatal("Failed to lock data directory: %v", err)
	}

	logging.Debug("Holding data directory lock %s", lock.Path())

	st := store.New(config.ConvertedDir, config.ThumbnailDir, config.PublicURL)

	trans := transcoder.New(st, transcoder.Options{
		Bin:         config.FFmpegBin,
		Args:        config.FFmpegArgs,
		Timeout:     config.TranscodeTimeout,
		RemoveInput: true,
	})
	toolVersion, toolErr := trans.CheckTool(context.Background())
	startup.LogTranscoderInit(trans.Bin(), toolVersion, toolErr)

	dl := downloader.New(downloader.Options{
		Dir:      config.DownloadDir,
		Timeout:  config.DownloadTimeout,
		Rate:     config.DownloadRate,
		Burst:    config.DownloadBurst,
		MaxBytes: config.MaxUploadSize,
	})

	thumbWorkers := workers.ForThumbnails(maxThumbnailWorkers)
	startup.LogIndexInit(config.IndexFreshness, thumbWorkers)
	thumbs := media.NewThumbnailGenerator(st, trans, thumbWorkers)
	thumbs.SetMemoryGate(memory.NewGate(memory.CurrentLimit(), memory.DefaultThreshold))
	idx := index.New(st, thumbs, index.Options{Freshness: config.IndexFreshness})

	if err := idx.Start(context.Background()); err != nil {
		// Reads retry the scan once the directory is reachable again.
		logging.Error("Initial index scan failed: %v", err)
	}
	startup.LogIndexStarted(idx.Status().Artifacts)

	cache := converter.New(st, dl, trans, converter.Options{
		OnConverted: func(string) { idx.Invalidate() },
	})

	collector := metrics.NewCollector(idx, metricsCollectInterval)
	collector.Start()

	h := handlers.New(st, idx, cache, config)
	router := setupRouter(h, config)
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	srv := &http.Server{
		Addr:              config.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		// Conversions and video downloads can run for minutes.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = startMetricsServer(config.MetricsPort)
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		handleShutdown(srv, metricsSrv, idx, collector, trans, lock)
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Addr:            config.Addr(),
		PublicURL:       config.PublicURL,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}

	// ListenAndServe returns as soon as Shutdown starts; wait for the rest.
	<-shutdownDone
}

func setupRouter(h *handlers.Handlers, config *startup.Config) *mux.Router {
	r := mux.NewRouter()

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	r.Use(middleware.Logger(loggingConfig))
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// API routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/convert", h.Convert).Methods("POST")
	api.HandleFunc("/artifacts", h.ListArtifacts).Methods("GET")
	api.HandleFunc("/artifacts/{id}", h.GetArtifact).Methods("GET")
	api.HandleFunc("/refresh", h.TriggerRefresh).Methods("POST")

	// Gallery and files
	r.HandleFunc("/thumbs/{id}.jpg", h.ServeThumbnail).Methods("GET", "HEAD")
	r.HandleFunc("/", h.Gallery).Methods("GET")
	r.HandleFunc("/{filename}", h.ServeArtifact).Methods("GET", "HEAD")

	return r
}

func startMetricsServer(port string) *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Metrics server error: %v", err)
		}
	}()

	return srv
}

func handleShutdown(srv, metricsSrv *http.Server, idx *index.Index, collector *metrics.Collector, trans *transcoder.Transcoder, lock *store.Lock) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Stopping metrics collector")
	collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	startup.LogShutdownStep("Stopping media index")
	idx.Stop()
	startup.LogShutdownStepComplete("Media index stopped")

	startup.LogShutdownStep("Stopping running conversions")
	trans.Cleanup()
	startup.LogShutdownStepComplete("Transcoder cleanup complete")

	startup.LogShutdownStep("Releasing data directory lock")
	if err := lock.Release(); err != nil {
		logging.Warn("Failed to release lock: %v", err)
	} else {
		startup.LogShutdownStepComplete("Lock released")
	}

	startup.LogShutdownComplete()
}
