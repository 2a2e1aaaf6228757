package database

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"

	"mytube/internal/logging"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// goose keeps its filesystem, dialect and logger in package globals.
var migrationMutex sync.Mutex

// gooseLogger redirects goose output into the application logger.
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...any) {
	logging.Debug("goose: "+format, v...)
}

func (gooseLogger) Fatalf(format string, v ...any) {
	logging.Fatal("goose: "+format, v...)
}

// migrateUp applies all pending embedded migrations.
func migrateUp(db *sql.DB) error {
	migrationMutex.Lock()
	defer migrationMutex.Unlock()

	goose.SetLogger(gooseLogger{})
	goose.SetBaseFS(migrationFiles)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("error setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("error running migrations up: %w", err)
	}

	version, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("error reading schema version: %w", err)
	}
	logging.Info("Database schema at version %d", version)

	return nil
}
