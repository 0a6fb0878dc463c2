package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"deploytrace/fingerprint"
)

// Get returns the fingerprint for a hash, or (nil, nil) when absent.
// Repeated calls for the same hash return the same handle.
func (db *DB) Get(hash string) (*fingerprint.Fingerprint, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.loadLocked(hash)
}

// GetOrCreate returns the fingerprint for a hash, creating and persisting
// a new one from the seed when absent. An existing fingerprint without a
// display name picks one up from the seed.
func (db *DB) GetOrCreate(hash string, seed fingerprint.Seed) (*fingerprint.Fingerprint, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	fp, err := db.loadLocked(hash)
	if err != nil {
		return nil, err
	}
	if fp != nil {
		if fp.Name == "" && seed.Name != "" {
			fp.Name = seed.Name
			if err := db.saveLocked(fp); err != nil {
				return nil, err
			}
		}
		return fp, nil
	}

	fp = fingerprint.New(hash, seed)
	if err := db.saveLocked(fp); err != nil {
		return nil, err
	}
	db.handles[hash] = fp
	return fp, nil
}

// Save persists the fingerprint's current state.
func (db *DB) Save(fp *fingerprint.Fingerprint) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.saveLocked(fp)
}

// loadLocked returns the cached handle or reads the row from SQLite.
func (db *DB) loadLocked(hash string) (*fingerprint.Fingerprint, error) {
	if fp, ok := db.handles[hash]; ok {
		return fp, nil
	}

	var (
		kind, identifier, name          string
		created                         int64
		historyJSON, refsJSON, inspJSON []byte
	)
	err := db.conn.QueryRow(`
		SELECT kind, identifier, name, created, history, refs, inspection
		FROM fingerprints WHERE hash = ?
	`, hash).Scan(&kind, &identifier, &name, &created, &historyJSON, &refsJSON, &inspJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load fingerprint %s: %w", hash, err)
	}

	fp := fingerprint.New(hash, fingerprint.Seed{
		ID:      identifier,
		Name:    name,
		Kind:    fingerprint.Kind(kind),
		Created: created,
	})
	if err := json.Unmarshal(historyJSON, fp.History); err != nil {
		return nil, fmt.Errorf("failed to decode history for %s: %w", hash, err)
	}
	if err := json.Unmarshal(refsJSON, fp.Refs); err != nil {
		return nil, fmt.Errorf("failed to decode refs for %s: %w", hash, err)
	}
	if err := json.Unmarshal(inspJSON, fp.Inspection); err != nil {
		return nil, fmt.Errorf("failed to decode inspection for %s: %w", hash, err)
	}

	db.handles[hash] = fp
	return fp, nil
}

func (db *DB) saveLocked(fp *fingerprint.Fingerprint) error {
	historyJSON, err := json.Marshal(fp.History)
	if err != nil {
		return fmt.Errorf("failed to encode history for %s: %w", fp.Hash, err)
	}
	refsJSON, err := json.Marshal(fp.Refs)
	if err != nil {
		return fmt.Errorf("failed to encode refs for %s: %w", fp.Hash, err)
	}
	inspJSON, err := json.Marshal(fp.Inspection)
	if err != nil {
		return fmt.Errorf("failed to encode inspection for %s: %w", fp.Hash, err)
	}

	_, err = db.conn.Exec(`
		INSERT INTO fingerprints (hash, kind, identifier, name, created, history, refs, inspection, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(hash) DO UPDATE SET
			name = excluded.name,
			history = excluded.history,
			refs = excluded.refs,
			inspection = excluded.inspection,
			updated_at = CURRENT_TIMESTAMP
	`, fp.Hash, string(fp.Kind), fp.ID, fp.Name, fp.Created, historyJSON, refsJSON, inspJSON)
	if err != nil {
		return fmt.Errorf("failed to save fingerprint %s: %w", fp.Hash, err)
	}
	return nil
}

// FingerprintCounts returns the number of stored fingerprints per kind.
func (db *DB) FingerprintCounts() (map[string]int, error) {
	rows, err := db.conn.Query(`SELECT kind, COUNT(*) FROM fingerprints GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("failed to count fingerprints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("failed to scan fingerprint count: %w", err)
		}
		counts[kind] = count
	}
	return counts, rows.Err()
}
