package persistence

import (
	"database/sql"
	"errors"
	"fmt"
)

// CurrentSchemaVersion defines the current schema version for migration support.
const CurrentSchemaVersion = 2

// initializeSchemaWithMigrations ensures the database schema is at the current version.
func initializeSchemaWithMigrations(db *sql.DB) error {
	currentVersion, err := GetSchemaVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	if currentVersion == 0 {
		return createSchema(db)
	}
	if currentVersion == CurrentSchemaVersion {
		return nil
	}
	if currentVersion > CurrentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", currentVersion, CurrentSchemaVersion)
	}

	return runMigrations(db, currentVersion, CurrentSchemaVersion)
}

// runMigrations applies database migrations from current version to target version.
func runMigrations(db *sql.DB, fromVersion, toVersion int) error {
	for version := fromVersion + 1; version <= toVersion; version++ {
		if err := runMigration(db, version); err != nil {
			return fmt.Errorf("migration to version %d failed: %w", version, err)
		}
		if err := setSchemaVersion(db, version); err != nil {
			return fmt.Errorf("failed to update schema version to %d: %w", version, err)
		}
	}
	return nil
}

func runMigration(db *sql.DB, version int) error {
	switch version {
	case 2:
		return migrateToVersion2(db)
	default:
		return fmt.Errorf("unknown migration version: %d", version)
	}
}

// migrateToVersion2 records whether every agent answered, for history listings.
func migrateToVersion2(db *sql.DB) error {
	migrations := []string{
		"ALTER TABLE trips ADD COLUMN complete INTEGER NOT NULL DEFAULT 0",
		"CREATE INDEX IF NOT EXISTS idx_trips_created ON trips(created_at)",
	}
	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to execute migration: %s: %w", migration, err)
		}
	}
	return nil
}

// schemaV1 is the first released schema, kept so migrations can be tested from it.
var schemaV1 = []string{ //nolint:gochecknoglobals
	`CREATE TABLE IF NOT EXISTS trips (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		from_place TEXT NOT NULL,
		to_place TEXT NOT NULL,
		travellers INTEGER NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		budget REAL NOT NULL,
		weather TEXT,
		flight TEXT,
		hotel TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS agent_contexts (
		trip_id TEXT NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
		agent_id TEXT NOT NULL,
		messages_json TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (trip_id, agent_id)
	)`,
}

// createSchema creates all required tables at the current version.
func createSchema(db *sql.DB) error {
	tables := append([]string{}, schemaV1...)
	tables = append(tables,
		"ALTER TABLE trips ADD COLUMN complete INTEGER NOT NULL DEFAULT 0",
		"CREATE INDEX IF NOT EXISTS idx_trips_created ON trips(created_at)",
	)

	for _, table := range tables {
		if _, err := db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return setSchemaVersion(db, CurrentSchemaVersion)
}

// setSchemaVersion records the current schema version.
func setSchemaVersion(db *sql.DB, version int) error {
	_, err := db.Exec(`INSERT OR REPLACE INTO schema_version (version) VALUES (?)`, version)
	if err != nil {
		return fmt.Errorf("database exec error: %w", err)
	}
	return nil
}

// GetSchemaVersion returns the current schema version from the database.
func GetSchemaVersion(db *sql.DB) (int, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`)
	if err != nil {
		return 0, fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("schema version scan error: %w", err)
	}
	return version, nil
}
