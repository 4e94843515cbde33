// Package snapshot persists model snapshots as SQLite files.
package snapshot

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/koba/db-migrate/internal/schema"
)

const (
	createMetadataTable = `
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`

	createTableDefsTable = `
		CREATE TABLE IF NOT EXISTS table_defs (
			position INTEGER NOT NULL,
			table_name TEXT PRIMARY KEY,
			def_json TEXT NOT NULL
		);
	`
)

// Save writes a snapshot to a SQLite file at the given path, replacing
// any existing file. Table order is preserved.
func Save(snap *schema.Snapshot, path string, dbType string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove existing snapshot: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot database: %w", err)
	}
	defer db.Close()

	for _, stmt := range []string{createMetadataTable, createTableDefsTable} {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize snapshot schema: %w", err)
		}
	}

	metadata := map[string]string{
		"created_at": time.Now().Format(time.RFC3339),
		"db_type":    dbType,
	}
	for key, value := range metadata {
		if _, err := db.Exec("INSERT INTO metadata (key, value) VALUES (?, ?)", key, value); err != nil {
			return fmt.Errorf("failed to insert metadata: %w", err)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT INTO table_defs (position, table_name, def_json) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range snap.Tables {
		defJSON, err := json.Marshal(&snap.Tables[i])
		if err != nil {
			return fmt.Errorf("failed to marshal table %s: %w", snap.Tables[i].Name, err)
		}
		if _, err := stmt.Exec(i, snap.Tables[i].Name, string(defJSON)); err != nil {
			return fmt.Errorf("failed to insert table %s: %w", snap.Tables[i].Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Load reads a snapshot from a SQLite file
func Load(path string) (*schema.Snapshot, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("snapshot file does not exist: %s", path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}
	defer db.Close()

	rows, err := db.Query("SELECT def_json FROM table_defs ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to query table defs: %w", err)
	}
	defer rows.Close()

	snap := &schema.Snapshot{}
	for rows.Next() {
		var defJSON string
		if err := rows.Scan(&defJSON); err != nil {
			return nil, fmt.Errorf("failed to scan table def: %w", err)
		}
		var table schema.Table
		if err := json.Unmarshal([]byte(defJSON), &table); err != nil {
			return nil, fmt.Errorf("failed to unmarshal table def: %w", err)
		}
		snap.Tables = append(snap.Tables, table)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return snap, nil
}

// Metadata reads the metadata map from a snapshot file
func Metadata(path string) (map[string]string, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}
	defer db.Close()

	rows, err := db.Query("SELECT key, value FROM metadata")
	if err != nil {
		return nil, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	metadata := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		metadata[key] = value
	}
	return metadata, rows.Err()
}
