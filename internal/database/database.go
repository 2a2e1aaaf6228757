package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"mytube/internal/logging"
	"mytube/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// FileName is the catalog database file created inside DATABASE_DIR.
const FileName = "mytube.db"

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Database is the catalog store: channels and the videos they own.
type Database struct {
	db     *sql.DB
	dbPath string
}

// New opens the catalog at dbPath and applies pending migrations.
// dbPath is the full path to the database FILE (e.g. "/database/mytube.db")
// and its parent directory must already exist and be writable.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	// Diagnose potential permission issues
	if err := diagnoseDatabasePermissions(dbPath); err != nil {
		logging.Warn("Database permission diagnostics: %v", err)
	}

	// busy_timeout keeps concurrent scan workers from failing with "database is locked"
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)

	if err := migrateUp(db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after migration failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return &Database{db: db, dbPath: dbPath}, nil
}

// Close closes the underlying connection pool.
func (d *Database) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.dbPath
}

// Ping verifies the database is reachable.
func (d *Database) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return d.db.PingContext(ctx)
}

// CatalogCounts implements metrics.StatsProvider.
func (d *Database) CatalogCounts(ctx context.Context) (metrics.Stats, error) {
	d.UpdateDBMetrics()

	channels, err := d.CountChannels(ctx)
	if err != nil {
		return metrics.Stats{}, err
	}
	videos, err := d.CountVideos(ctx)
	if err != nil {
		return metrics.Stats{}, err
	}
	return metrics.Stats{Channels: channels, Videos: videos}, nil
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// UpdateDBMetrics updates database connection metrics
func (d *Database) UpdateDBMetrics() {
	stats := d.db.Stats()
	metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
}

// diagnoseDatabasePermissions checks database directory and file permissions
func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat database directory: %w", err)
	}

	logging.Debug("Database directory: %s (mode: %v)", dir, dirInfo.Mode())

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("database directory not writable: %w", err)
	}
	_ = os.Remove(testFile)

	info, err := os.Stat(dbPath)
	if errors.Is(err, os.ErrNotExist) {
		logging.Debug("Database file does not exist yet, will be created")
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot stat database file: %w", err)
	}
	logging.Debug("Database file: %s (mode: %v, size: %d)", dbPath, info.Mode(), info.Size())
	return nil
}
