// Package database implements SQLite persistence for fingerprints and the
// container registry.
package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"deploytrace/fingerprint"
)

// DB wraps the database connection together with the in-process
// fingerprint handle cache.
type DB struct {
	conn *sql.DB

	// One shared *Fingerprint handle per hash, so facet locks serialize
	// concurrent access to the same identity.
	mu      sync.Mutex
	handles map[string]*fingerprint.Fingerprint
}

// GetConnection returns the underlying database connection (for testing).
func (db *DB) GetConnection() *sql.DB {
	return db.conn
}

// isCorruptionError checks if an error indicates database corruption.
func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "corrupt")
}

// deleteDatabase removes the database file and its WAL/SHM companions.
func deleteDatabase(dbPath string) error {
	log.Printf("Deleting database files at %s", dbPath)

	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete database file: %w", err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
			log.Printf("Warning: failed to delete %s%s: %v", dbPath, suffix, err)
		}
	}
	return nil
}

// New opens the database, recreating it from scratch when corruption is
// detected. Losing the ledger is preferable to refusing to ingest.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		if !isCorruptionError(err) {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		log.Printf("Database corruption detected: %v", err)
		if err := deleteDatabase(dbPath); err != nil {
			return nil, fmt.Errorf("failed to delete corrupted database: %w", err)
		}
		conn, err = sql.Open("sqlite", dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create new database: %w", err)
		}
	}

	// SQLite works best with a single connection
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	_, err = conn.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
		PRAGMA synchronous = NORMAL;
	`)
	if err != nil {
		_ = conn.Close()
		if isCorruptionError(err) {
			log.Printf("Database corruption detected during configuration: %v", err)
			if err := deleteDatabase(dbPath); err != nil {
				return nil, fmt.Errorf("failed to delete corrupted database: %w", err)
			}
			return New(dbPath)
		}
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	db := &DB{
		conn:    conn,
		handles: make(map[string]*fingerprint.Fingerprint),
	}

	if err := db.ensureSchemaVersion(); err != nil {
		_ = conn.Close()
		if isCorruptionError(err) {
			log.Printf("Database corruption detected during migration: %v", err)
			if err := deleteDatabase(dbPath); err != nil {
				return nil, fmt.Errorf("failed to delete corrupted database: %w", err)
			}
			return New(dbPath)
		}
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Printf("Database initialized at %s", dbPath)
	return db, nil
}

// Close checkpoints the WAL and closes the connection.
func Close(db *DB) error {
	if db == nil || db.conn == nil {
		return nil
	}
	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		log.Printf("Warning: failed to checkpoint WAL: %v", err)
	}
	return db.conn.Close()
}

// HealthCheck verifies the database answers queries.
func HealthCheck(db *DB) error {
	if db == nil || db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	var count int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM sqlite_master").Scan(&count); err != nil {
		return fmt.Errorf("database query failed: %w", err)
	}
	return nil
}
