// Package persistence stores planned trips and agent transcripts in SQLite.
package persistence

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver

	"tripplanner/pkg/logx"
)

// Open opens (creating if needed) the SQLite database at dbPath and brings
// its schema up to date. ":memory:" gives a private in-memory database.
func Open(dbPath string) (*sql.DB, error) {
	logger := logx.NewLogger("persistence")

	// WAL journal, foreign keys and a busy timeout for the single writer
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
		dbPath,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; one connection also keeps ":memory:" shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := initializeSchemaWithMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("📦 Database initialized: %s", dbPath)
	return db, nil
}
