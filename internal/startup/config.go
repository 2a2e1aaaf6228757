package startup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"mytube/internal/database"
	"mytube/internal/filesystem"
	"mytube/internal/indexer"
	"mytube/internal/logging"
	"mytube/internal/workers"
)

// Duration is a time.Duration read from TOML as a Go duration string.
type Duration time.Duration

// UnmarshalText parses values such as "30s" or "1h30m".
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText writes the duration in Go syntax.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config holds all application configuration.
type Config struct {
	MediaDir           string   `toml:"media_dir" validate:"required"`
	ThumbnailDir       string   `toml:"thumbnail_dir" validate:"required"`
	DatabaseDir        string   `toml:"database_dir" validate:"required"`
	Port               string   `toml:"port" validate:"required,numeric"`
	MetricsPort        string   `toml:"metrics_port" validate:"required,numeric,nefield=Port"`
	MetricsEnabled     bool     `toml:"metrics_enabled"`
	ScanOnStartup      bool     `toml:"scan_on_startup"`
	ScanInterval       Duration `toml:"scan_interval" validate:"gte=0"`
	WatchEnabled       bool     `toml:"watch_enabled"`
	WatchDebounce      Duration `toml:"watch_debounce" validate:"gt=0"`
	CleanupAfterScan   bool     `toml:"cleanup_after_scan"`
	ScanWorkers        int      `toml:"scan_workers" validate:"gte=0,lte=64"`
	ProbeTimeout       Duration `toml:"probe_timeout" validate:"gt=0"`
	ThumbnailTimeout   Duration `toml:"thumbnail_timeout" validate:"gt=0"`
	FFprobePath        string   `toml:"ffprobe_path" validate:"required"`
	FFmpegPath         string   `toml:"ffmpeg_path" validate:"required"`
	ThumbnailURLPrefix string   `toml:"thumbnail_url_prefix" validate:"required,startswith=/"`
	LogHTTP            bool     `toml:"log_http"`

	// Derived
	DatabasePath string `toml:"-"`
	ConfigFile   string `toml:"-"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		MediaDir:           "/media",
		ThumbnailDir:       "/thumbnails",
		DatabaseDir:        "/database",
		Port:               "3001",
		MetricsPort:        "9090",
		MetricsEnabled:     true,
		ScanOnStartup:      true,
		WatchDebounce:      Duration(5 * time.Second),
		ProbeTimeout:       Duration(30 * time.Second),
		ThumbnailTimeout:   Duration(60 * time.Second),
		FFprobePath:        "ffprobe",
		FFmpegPath:         "ffmpeg",
		ThumbnailURLPrefix: "/thumbnails",
		LogHTTP:            true,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and returns every violation at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (value %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s (value %v)", fe.Field(), fe.Tag(), fe.Value()))
		}
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// ReadConfig builds the configuration from defaults, the optional TOML file
// named by CONFIG_FILE, then environment variables. Paths are made absolute.
// It does not touch the directories.
func ReadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
		cfg.ConfigFile = path
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	for _, p := range []*string{&cfg.MediaDir, &cfg.ThumbnailDir, &cfg.DatabaseDir} {
		abs, err := filepath.Abs(*p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve path %s: %w", *p, err)
		}
		*p = abs
	}
	cfg.DatabasePath = filepath.Join(cfg.DatabaseDir, database.FileName)

	return &cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return fmt.Errorf("failed to parse config file %s at %d:%d: %w", path, row, col, err)
		}
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.MediaDir = getEnv("MEDIA_DIR", c.MediaDir)
	c.ThumbnailDir = getEnv("THUMBNAIL_DIR", c.ThumbnailDir)
	c.DatabaseDir = getEnv("DATABASE_DIR", c.DatabaseDir)
	c.Port = getEnv("PORT", c.Port)
	c.MetricsPort = getEnv("METRICS_PORT", c.MetricsPort)
	c.MetricsEnabled = getEnvBool("METRICS_ENABLED", c.MetricsEnabled)
	c.ScanOnStartup = getEnvBool("SCAN_ON_STARTUP", c.ScanOnStartup)
	c.ScanInterval = getEnvDuration("SCAN_INTERVAL", c.ScanInterval)
	c.WatchEnabled = getEnvBool("WATCH_ENABLED", c.WatchEnabled)
	c.WatchDebounce = getEnvDuration("WATCH_DEBOUNCE", c.WatchDebounce)
	c.CleanupAfterScan = getEnvBool("CLEANUP_AFTER_SCAN", c.CleanupAfterScan)
	c.ScanWorkers = getEnvInt("SCAN_WORKERS", c.ScanWorkers)
	c.ProbeTimeout = getEnvDuration("PROBE_TIMEOUT", c.ProbeTimeout)
	c.ThumbnailTimeout = getEnvDuration("THUMBNAIL_TIMEOUT", c.ThumbnailTimeout)
	c.FFprobePath = getEnv("FFPROBE_PATH", c.FFprobePath)
	c.FFmpegPath = getEnv("FFMPEG_PATH", c.FFmpegPath)
	c.ThumbnailURLPrefix = getEnv("THUMBNAIL_URL_PREFIX", c.ThumbnailURLPrefix)
	c.LogHTTP = getEnvBool("LOG_HTTP", c.LogHTTP)
}

// LoadConfig reads the configuration, logs it, and prepares the directories
// the server needs.
func LoadConfig() (*Config, error) {
	logStartup()
	section("CONFIGURATION")

	cfg, err := ReadConfig()
	if err != nil {
		return nil, err
	}
	cfg.log()

	section("DIRECTORY SETUP")

	if err := cfg.PrepareDirectories(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) log() {
	if c.ConfigFile != "" {
		logging.Info("  CONFIG_FILE:          %s", c.ConfigFile)
	}
	logging.Info("  MEDIA_DIR:            %s", c.MediaDir)
	logging.Info("  THUMBNAIL_DIR:        %s", c.ThumbnailDir)
	logging.Info("  DATABASE_DIR:         %s", c.DatabaseDir)
	logging.Info("  PORT:                 %s", c.Port)
	logging.Info("  METRICS_PORT:         %s", c.MetricsPort)
	logging.Info("  METRICS_ENABLED:      %v", c.MetricsEnabled)
	logging.Info("  SCAN_ON_STARTUP:      %v", c.ScanOnStartup)
	logging.Info("  SCAN_INTERVAL:        %v", time.Duration(c.ScanInterval))
	logging.Info("  WATCH_ENABLED:        %v", c.WatchEnabled)
	logging.Info("  WATCH_DEBOUNCE:       %v", time.Duration(c.WatchDebounce))
	logging.Info("  CLEANUP_AFTER_SCAN:   %v", c.CleanupAfterScan)
	logging.Info("  SCAN_WORKERS:         %d", c.ScanWorkers)
	logging.Info("  PROBE_TIMEOUT:        %v", time.Duration(c.ProbeTimeout))
	logging.Info("  THUMBNAIL_TIMEOUT:    %v", time.Duration(c.ThumbnailTimeout))
	logging.Info("  THUMBNAIL_URL_PREFIX: %s", c.ThumbnailURLPrefix)
	logging.Info("  LOG_HTTP:             %v", c.LogHTTP)
	logging.Info("  LOG_LEVEL:            %s", logging.GetLevel())
}

// PrepareDirectories checks the media directory and creates the database
// and thumbnail directories. Only an unusable database directory is fatal.
func (c *Config) PrepareDirectories() error {
	if err := ensureDirectory(c.MediaDir, "media"); err != nil {
		logging.Warn("  Media directory issue: %v", err)
	}

	if err := ensureDirectory(c.DatabaseDir, "database"); err != nil {
		return fmt.Errorf("database directory error: %w", err)
	}
	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(c.DatabaseDir); err != nil {
		return fmt.Errorf("database directory is not writable (required for database): %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	if setupOptionalDir(c.ThumbnailDir, "thumbnails") {
		logging.Info("  [OK] Thumbnail directory is writable")
	} else {
		logging.Warn("  Videos will be indexed without thumbnails")
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

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue Duration) Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, time.Duration(defaultValue))
		return defaultValue
	}
	return Duration(parsed)
}

// maxScanWorkers caps the automatic worker count.
const maxScanWorkers = 8

// ScanWorkerCount resolves SCAN_WORKERS, sizing it from the CPU count when 0.
func (c *Config) ScanWorkerCount() int {
	return workers.ForIO(c.ScanWorkers, maxScanWorkers)
}

// IndexerConfig returns the scanner settings derived from c.
func (c *Config) IndexerConfig() indexer.Config {
	return indexer.Config{
		MediaDir:           c.MediaDir,
		ThumbnailDir:       c.ThumbnailDir,
		ThumbnailURLPrefix: c.ThumbnailURLPrefix,
		Workers:            c.ScanWorkerCount(),
		ScanOnStartup:      c.ScanOnStartup,
		Interval:           time.Duration(c.ScanInterval),
		CleanupAfterScan:   c.CleanupAfterScan,
		Retry:              filesystem.DefaultRetryConfig(),
	}
}
