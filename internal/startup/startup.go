package startup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"mytube/internal/logging"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

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

const rule = "------------------------------------------------------------"

// section starts a titled block in the startup log.
func section(title string, args ...any) {
	logging.Info("")
	logging.Info(rule)
	logging.Info(title, args...)
	logging.Info(rule)
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	section("DATABASE")
	logging.Info("  [OK] Catalog ready in %v", duration)
}

// LogMediaToolsInit checks that ffprobe and ffmpeg can be run.
func LogMediaToolsInit(ffprobePath, ffmpegPath string) {
	section("MEDIA TOOLS")
	for _, tool := range []string{ffprobePath, ffmpegPath} {
		if err := checkTool(tool); err != nil {
			logging.Warn("  %s check failed: %v", tool, err)
			logging.Warn("  Videos will be indexed without metadata or thumbnails")
			continue
		}
		logging.Info("  [OK] %s is available", tool)
	}
}

// LogScannerInit logs scanner configuration.
func LogScannerInit(cfg *Config, workers int) {
	section("SCANNER")
	interval := "DISABLED"
	if cfg.ScanInterval > 0 {
		interval = time.Duration(cfg.ScanInterval).String()
	}
	logging.Info("  Workers per channel: %d, interval: %s", workers, interval)
	logging.Info("  Startup scan: %s, cleanup after scan: %s, watch: %s",
		enabledString(cfg.ScanOnStartup), enabledString(cfg.CleanupAfterScan), enabledString(cfg.WatchEnabled))
}

// LogScannerStarted logs successful scanner start.
func LogScannerStarted() {
	logging.Info("  [OK] Scanner started")
}

// GetRoutes lists every method and path template registered on router.
// Routes without a method restriction are reported with method "*".
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo
	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		tmpl, err := route.GetPathTemplate()
		if err != nil {
			return err
		}
		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}
		for _, m := range methods {
			routes = append(routes, RouteInfo{Method: m, Path: tmpl, Name: route.GetName()})
		}
		return nil
	})
	return routes, err
}

// routeLines formats routes as "METHOD path", ordered by path.
func routeLines(routes []RouteInfo) []string {
	sorted := append([]RouteInfo(nil), routes...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	lines := make([]string, len(sorted))
	for i, r := range sorted {
		lines[i] = fmt.Sprintf("%-6s %s", r.Method, r.Path)
	}
	return lines
}

// LogHTTPRoutes logs the registered routes at debug level.
func LogHTTPRoutes(router *mux.Router, logHTTP bool) {
	section("HTTP SERVER")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}
		for _, line := range routeLines(routes) {
			logging.Debug("  %s", line)
		}
	}
	logging.Info("  HTTP request logging: %s", enabledString(logHTTP))
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs the listening addresses.
func LogServerStarted(config ServerConfig) {
	section("SERVER STARTED in %v", config.StartupDuration.Round(time.Millisecond))
	logging.Info("  Catalog API: http://localhost:%s/api/scan/status", config.Port)
	if config.MetricsEnabled {
		logging.Info("  Metrics:     http://localhost:%s/metrics", config.MetricsPort)
	}
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	section("SHUTDOWN (received %s)", signal)
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
func LogFatal(format string, args ...any) {
	logging.Fatal(format, args...)
}

// logStartup reports the build and the CPU budget the process runs with.
func logStartup() {
	logging.Info(rule)
	logging.Info("mytube %s (commit %s, built %s, %s)", Version, Commit, BuildTime, GoVersion)
	logging.Info("  %s/%s, GOMAXPROCS %d of %d CPUs", runtime.GOOS, runtime.GOARCH, runtime.GOMAXPROCS(0), runtime.NumCPU())
	if logging.IsDebugEnabled() {
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname: %s", hostname)
		}
	}
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")

	if name == "media" && logging.IsDebugEnabled() {
		entries, err := os.ReadDir(path)
		if err == nil {
			fileCount := 0
			dirCount := 0
			for _, e := range entries {
				if e.IsDir() {
					dirCount++
				} else {
					fileCount++
				}
			}
			logging.Debug("    Contents: %d files, %d directories (top level)", fileCount, dirCount)
		}
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
		// Don't return error since write access was confirmed
	}
	return nil
}

func checkTool(name string) error {
	path, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", name)
	}
	logging.Debug("  %s path: %s", name, path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return fmt.Errorf("failed to get %s version: %w", name, err)
	}

	lines := strings.Split(string(output), "\n")
	if len(lines) > 0 {
		logging.Debug("  %s version: %s", name, strings.TrimSpace(lines[0]))
	}

	return nil
}

// setupOptionalDir creates path and reports whether it is writable.
func setupOptionalDir(path, name string) bool {
	logging.Debug("  Setting up %s directory: %s", name, path)

	if err := os.MkdirAll(path, 0o755); err != nil {
		logging.Warn("  Failed to create %s directory: %v", name, err)
		return false
	}
	if err := testWriteAccess(path); err != nil {
		logging.Warn("  %s directory is not writable: %v", name, err)
		return false
	}
	return true
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}
