// Package database provides the SQLite catalog store for MyTube.
//
// It holds two tables:
//   - channels: one row per top-level media directory, keyed by folder path
//   - videos: one row per indexed file, keyed by file path
//
// Both natural keys are UNIQUE, and inserts use INSERT OR IGNORE, so
// repeated or concurrent scans converge on a single row per path. Videos
// cascade-delete with their channel.
//
// The schema is managed by goose migrations embedded from migrations/*.sql
// and applied by [New]. The database runs in WAL mode with a busy timeout so
// that parallel scan workers and HTTP readers can share it.
//
// Every query records mytube_db_queries_total and
// mytube_db_query_duration_seconds by operation.
package database
