package startup

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"yliproxy/internal/logging"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// DefaultURLPattern matches the media links the chat collaborator forwards.
const DefaultURLPattern = `https://[^\s<>"]+\.mp4`

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration. It is built once by
// LoadConfig and passed to constructors; nothing mutates it afterwards.
type Config struct {
	DataPath    string
	Host        string
	Port        string
	PublicURL   string
	MetricsPort string

	FFmpegBin  string
	FFmpegArgs string

	IndexFreshness   time.Duration
	DownloadTimeout  time.Duration
	TranscodeTimeout time.Duration
	DownloadRate     float64
	DownloadBurst    int
	MaxUploadSize    int64
	URLPattern       *regexp.Regexp

	LogStaticFiles  bool
	LogHealthChecks bool
	MetricsEnabled  bool

	// Derived paths
	DownloadDir  string
	ConvertedDir string
	ThumbnailDir string
}

// Addr returns the listen address of the main HTTP server.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}

	logging.Info("  DATA_PATH:           %s", cfg.DataPath)
	logging.Info("  WEBSERVER_HOST:      %s", cfg.Host)
	logging.Info("  WEBSERVER_PORT:      %s", cfg.Port)
	logging.Info("  PUBLIC_URL:          %s", cfg.PublicURL)
	logging.Info("  METRICS_PORT:        %s", cfg.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", cfg.MetricsEnabled)
	logging.Info("  FFMPEG_BIN:          %s", cfg.FFmpegBin)
	if cfg.FFmpegArgs != "" {
		logging.Info("  FFMPEG_ARGS:         %s", cfg.FFmpegArgs)
	} else {
		logging.Info("  FFMPEG_ARGS:         (default)")
	}
	logging.Info("  INDEX_FRESHNESS:     %v", cfg.IndexFreshness)
	logging.Info("  DOWNLOAD_TIMEOUT:    %v", cfg.DownloadTimeout)
	logging.Info("  TRANSCODE_TIMEOUT:   %v", cfg.TranscodeTimeout)
	logging.Info("  DOWNLOAD_RATE:       %v/s (burst %d)", cfg.DownloadRate, cfg.DownloadBurst)
	logging.Info("  MAX_UPLOAD_SIZE:     %d bytes", cfg.MaxUploadSize)
	logging.Info("  URL_PATTERN:         %s", cfg.URLPattern)
	logging.Info("  LOG_STATIC_FILES:    %v", cfg.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", cfg.LogHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	if err := EnsureDirectories(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ConfigFromEnv builds a Config from the environment without touching the
// filesystem. Invalid durations and numbers fall back to their defaults with
// a warning; an invalid URL pattern or public URL is an error.
func ConfigFromEnv() (*Config, error) {
	dataPath := getEnv("DATA_PATH", ".")
	host := getEnv("WEBSERVER_HOST", "127.0.0.1")
	port := getEnv("WEBSERVER_PORT", "8080")

	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return nil, fmt.Errorf("WEBSERVER_PORT must be a valid port number: %q", port)
	}

	publicURL := strings.TrimRight(getEnv("PUBLIC_URL", fmt.Sprintf("http://%s:%s", host, port)), "/")
	if u, err := url.Parse(publicURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("PUBLIC_URL must be an absolute URL: %q", publicURL)
	}

	pattern, err := regexp.Compile(getEnv("URL_PATTERN", DefaultURLPattern))
	if err != nil {
		return nil, fmt.Errorf("invalid URL_PATTERN: %w", err)
	}

	dataPath, err = filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	convertedDir := filepath.Join(dataPath, "converted")

	return &Config{
		DataPath:         dataPath,
		Host:             host,
		Port:             port,
		PublicURL:        publicURL,
		MetricsPort:      getEnv("METRICS_PORT", "9090"),
		FFmpegBin:        getEnv("FFMPEG_BIN", "ffmpeg"),
		FFmpegArgs:       os.Getenv("FFMPEG_ARGS"),
		IndexFreshness:   getEnvDuration("INDEX_FRESHNESS", 30*time.Second),
		DownloadTimeout:  getEnvDuration("DOWNLOAD_TIMEOUT", 5*time.Minute),
		TranscodeTimeout: getEnvDuration("TRANSCODE_TIMEOUT", 0),
		DownloadRate:     getEnvFloat("DOWNLOAD_RATE", 0),
		DownloadBurst:    getEnvInt("DOWNLOAD_BURST", 1),
		MaxUploadSize:    int64(getEnvInt("MAX_UPLOAD_SIZE", 256<<20)),
		URLPattern:       pattern,
		LogStaticFiles:   getEnvBool("LOG_STATIC_FILES", false),
		LogHealthChecks:  getEnvBool("LOG_HEALTH_CHECKS", true),
		MetricsEnabled:   getEnvBool("METRICS_ENABLED", true),
		DownloadDir:      filepath.Join(dataPath, "downloads"),
		ConvertedDir:     convertedDir,
		ThumbnailDir:     filepath.Join(convertedDir, "thumbs"),
	}, nil
}

// EnsureDirectories creates the data layout and verifies it is writable.
func EnsureDirectories(cfg *Config) error {
	dirs := []struct {
		path string
		name string
	}{
		{cfg.DataPath, "data"},
		{cfg.DownloadDir, "downloads"},
		{cfg.ConvertedDir, "converted"},
		{cfg.ThumbnailDir, "thumbnails"},
	}

	for _, d := range dirs {
		if err := ensureDirectory(d.path, d.name); err != nil {
			return fmt.Errorf("%s directory error: %w", d.name, err)
		}
		if err := testWriteAccess(d.path); err != nil {
			return fmt.Errorf("%s directory is not writable: %w", d.name, err)
		}
		logging.Info("  [OK] %-11s %s", d.name+":", d.path)
	}

	return nil
}

// LogTranscoderInit logs transcoder initialization and the outcome of the
// ffmpeg availability check.
func LogTranscoderInit(bin, version string, checkErr error) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("TRANSCODER INITIALIZATION")
	logging.Info("------------------------------------------------------------")

	if checkErr != nil {
		logging.Warn("  %s check failed: %v", bin, checkErr)
		logging.Warn("  Conversions and thumbnails will fail until it is installed")
		return
	}
	logging.Info("  [OK] %s is available", bin)
	if version != "" {
		logging.Debug("  Version: %s", version)
	}
}

// LogIndexInit logs media index initialization
func LogIndexInit(freshness time.Duration, workers int) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("MEDIA INDEX INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Freshness window:  %v", freshness)
	logging.Info("  Thumbnail workers: %d", workers)
}

// LogIndexStarted logs a successful index start
func LogIndexStarted(count int) {
	logging.Info("  [OK] Media index started (%d artifacts)", count)
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			pathTemplate, err = route.GetPathRegexp()
			if err != nil {
				return nil
			}
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes at debug level
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		sort.SliceStable(routes, func(i, j int) bool {
			return getRouteGroup(routes[i].Path) < getRouteGroup(routes[j].Path)
		})

		logging.Debug("  Registered routes (%d total):", len(routes))
		for _, route := range routes {
			logging.Debug("    %-6s %s", route.Method, route.Path)
		}
	}

	logging.Info("  HTTP logging enabled")
	if logStaticFiles {
		logging.Info("    Static file logging: ON")
	} else {
		logging.Info("    Static file logging: OFF (set LOG_STATIC_FILES=true to enable)")
	}
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")
	parts := strings.SplitN(path, "/", 3)

	if parts[0] == "api" && len(parts) > 1 {
		return "api/" + parts[1]
	}

	return parts[0]
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Addr            string
	PublicURL       string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Listening:     http://%s", config.Addr)
	logging.Info("    Public URL:    %s", config.PublicURL)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
         _ _
   _   _| (_)_ __  _ __ _____  ___   _
  | | | | | | '_ \| '__/ _ \ \/ / | | |
  | |_| | | | |_) | | | (_) >  <| |_| |
   \__, |_|_| .__/|_|  \___/_/\_\\__, |
   |___/    |_|                  |___/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed < 0 {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		logging.Warn("Invalid integer for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed < 0 {
		logging.Warn("Invalid number for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
