package database

import "fmt"

// LoadContainerIDs returns the persisted registry membership in insertion
// order. Called once at startup.
func (db *DB) LoadContainerIDs() ([]string, error) {
	rows, err := db.conn.Query(`SELECT container_id FROM container_registry ORDER BY added_at, container_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load container registry: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan container id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InsertContainerID persists a registry addition. Inserting a known id is
// a no-op.
func (db *DB) InsertContainerID(id string) error {
	_, err := db.conn.Exec(`INSERT OR IGNORE INTO container_registry (container_id) VALUES (?)`, id)
	if err != nil {
		return fmt.Errorf("failed to insert container id %s: %w", id, err)
	}
	return nil
}

// DeleteContainerID persists a registry removal.
func (db *DB) DeleteContainerID(id string) error {
	_, err := db.conn.Exec(`DELETE FROM container_registry WHERE container_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete container id %s: %w", id, err)
	}
	return nil
}

// RegisteredContainerCount returns the registry size.
func (db *DB) RegisteredContainerCount() (int, error) {
	var count int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM container_registry`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count registered containers: %w", err)
	}
	return count, nil
}
