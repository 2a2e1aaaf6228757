// Package logging provides a simple leveled logging interface for the
// MyTube catalog service, backed by zerolog.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable
// (DEBUG=true forces debug). LOG_FORMAT=json switches from the console
// writer to JSON lines.
package logging
