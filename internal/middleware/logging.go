package middleware

import (
	"net/http"
	"strings"
	"time"

	"mytube/internal/logging"
)

// responseWriter captures the status code and bytes written.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// LoggingConfig holds configuration for the logging middleware.
type LoggingConfig struct {
	Enabled bool
	// SkipPaths are path prefixes that are never logged.
	SkipPaths []string
}

// DefaultLoggingConfig logs everything except probes and metric scrapes.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Enabled:   true,
		SkipPaths: []string{"/healthz", "/livez", "/readyz", "/metrics"},
	}
}

// sanitizeLogField removes control characters that could forge log lines.
func sanitizeLogField(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r':
			b.WriteRune(' ')
		case r == '\x1b' || (r < 0x20 && r != '\t'):
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Logger returns middleware that writes one structured log event per request.
func Logger(config LoggingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !config.Enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hasPrefix(r.URL.Path, config.SkipPaths) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			logger := logging.Logger()
			event := logger.Info()
			if wrapped.statusCode >= http.StatusInternalServerError {
				event = logger.Error()
			}
			event.
				Str("client_ip", sanitizeLogField(getClientIP(r))).
				Str("method", sanitizeLogField(r.Method)).
				Str("path", sanitizeLogField(r.URL.Path)).
				Str("query", sanitizeLogField(r.URL.RawQuery)).
				Int("status", wrapped.statusCode).
				Int64("bytes", wrapped.bytesWritten).
				Dur("duration", time.Since(start)).
				Str("user_agent", sanitizeLogField(r.UserAgent())).
				Msg("http request")
		})
	}
}

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
