package state

import (
	"database/sql"
	"fmt"
	"time"
)

func ensureTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS component_state (
			component TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (component, key)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure component_state table: %w", err)
	}
	return nil
}

func Get(db *sql.DB, component string, key string) (string, bool, error) {
	if err := ensureTable(db); err != nil {
		return "", false, err
	}
	var v string
	err := db.QueryRow(`SELECT value FROM component_state WHERE component = ? AND key = ?`, component, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get component state: %w", err)
	}
	return v, true, nil
}

func Set(db *sql.DB, component string, key string, value string) error {
	if err := ensureTable(db); err != nil {
		return err
	}
	now := time.Now().Unix()
	_, err := db.Exec(`
		INSERT INTO component_state (component, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(component, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, component, key, value, now)
	if err != nil {
		return fmt.Errorf("failed to set component state: %w", err)
	}
	return nil
}
