// Package middleware provides HTTP middleware for the mytube server.
//
// It includes:
//   - Structured request logging through the logging package
//   - Prometheus request metrics labelled by route template
package middleware
