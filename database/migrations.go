package database

import (
	"database/sql"
	"fmt"
	"log"
)

const currentSchemaVersion = 1

type migration struct {
	version int
	name    string
	up      func(*sql.DB) error
}

var migrations = []migration{
	{
		version: 1,
		name:    "initial_schema",
		up:      migrateToV1,
	},
}

// ensureSchemaVersion checks the current schema version and applies
// necessary migrations.
func (db *DB) ensureSchemaVersion() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	currentVersion, err := db.getCurrentVersion()
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	log.Printf("Current database schema version: %d, target version: %d", currentVersion, currentSchemaVersion)

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		log.Printf("Applying migration %d: %s", m.version, m.name)
		if err := m.up(db.conn); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", m.version, m.name, err)
		}

		_, err = db.conn.Exec(`
			INSERT INTO schema_migrations (version, name) VALUES (?, ?)
		`, m.version, m.name)
		if err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}
	}

	return nil
}

// getCurrentVersion returns the current schema version from the database.
func (db *DB) getCurrentVersion() (int, error) {
	var version int
	err := db.conn.QueryRow(`
		SELECT COALESCE(MAX(version), 0) FROM schema_migrations
	`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

// migrateToV1 creates the initial schema. Fingerprints hold one row per
// identity with the facets stored as JSON columns; the registry is a plain
// membership table.
func migrateToV1(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS fingerprints (
			hash TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			identifier TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			created INTEGER NOT NULL DEFAULT 0,
			history TEXT NOT NULL DEFAULT '[]',
			refs TEXT NOT NULL DEFAULT '[]',
			inspection TEXT NOT NULL DEFAULT '{"time":0}',
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_fingerprints_kind ON fingerprints(kind);
		CREATE INDEX IF NOT EXISTS idx_fingerprints_identifier ON fingerprints(identifier);

		CREATE TABLE IF NOT EXISTS container_registry (
			container_id TEXT PRIMARY KEY,
			added_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}
