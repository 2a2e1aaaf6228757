package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LevelDebug is the debug log level
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level
	LevelInfo
	// LevelWarn is the warning log level
	LevelWarn
	// LevelError is the error log level
	LevelError
)

var (
	mu           sync.RWMutex
	currentLevel LogLevel
	logger       zerolog.Logger
	initOnce     sync.Once
)

// initLogger builds the process logger from LOG_LEVEL, DEBUG and LOG_FORMAT.
func initLogger() {
	initOnce.Do(func() {
		level := parseLevel(os.Getenv("DEBUG"), os.Getenv("LOG_LEVEL"))
		out := newWriter(os.Stderr, os.Getenv("LOG_FORMAT"))

		mu.Lock()
		currentLevel = level
		logger = zerolog.New(out).Level(level.zerolog()).With().Timestamp().Logger()
		mu.Unlock()
	})
}

// parseLevel resolves the effective level. DEBUG wins over LOG_LEVEL.
func parseLevel(debug, levelStr string) LogLevel {
	switch strings.ToLower(debug) {
	case "1", "true", "yes", "on":
		return LevelDebug
	}

	switch strings.ToLower(levelStr) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func newWriter(w io.Writer, format string) io.Writer {
	if strings.EqualFold(format, "json") {
		return w
	}
	return zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func current() zerolog.Logger {
	initLogger()
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// SetOutput redirects log output to w as JSON lines. Intended for tests.
func SetOutput(w io.Writer) {
	initLogger()
	mu.Lock()
	defer mu.Unlock()
	logger = zerolog.New(w).Level(currentLevel.zerolog()).With().Timestamp().Logger()
}

// SetLevel changes the active log level.
func SetLevel(level LogLevel) {
	initLogger()
	mu.Lock()
	defer mu.Unlock()
	currentLevel = level
	logger = logger.Level(level.zerolog())
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	initLogger()
	mu.RLock()
	defer mu.RUnlock()
	return currentLevel
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

// Logger exposes the underlying zerolog logger for callers that want fields.
func Logger() zerolog.Logger {
	return current()
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) {
	l := current()
	l.Debug().Msgf(format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	l := current()
	l.Info().Msgf(format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	l := current()
	l.Warn().Msgf(format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	l := current()
	l.Error().Msgf(format, args...)
}

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	l := current()
	l.Fatal().Msgf(format, args...)
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}
