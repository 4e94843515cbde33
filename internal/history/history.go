// Package history tracks applied schema versions in the target database.
package history

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"time"
)

// Record is one applied schema version
type Record struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
}

// Manager reads and writes the schema_versions bookkeeping table
type Manager struct {
	db      *sql.DB
	dialect string
}

// NewManager creates a history manager for the given connection
func NewManager(db *sql.DB, dialect string) *Manager {
	return &Manager{db: db, dialect: dialect}
}

// InitTable creates the bookkeeping table when missing
func (m *Manager) InitTable(ctx context.Context) error {
	createSQL := `
		CREATE TABLE IF NOT EXISTS schema_versions (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL,
			checksum TEXT NOT NULL
		)
	`
	if _, err := m.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to create schema_versions table: %w", err)
	}
	return nil
}

// Current returns the highest applied version, 0 when none
func (m *Manager) Current(ctx context.Context) (int, error) {
	var version sql.NullInt64
	err := m.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_versions").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to query current version: %w", err)
	}
	return int(version.Int64), nil
}

// Record stores an applied version
func (m *Manager) Record(ctx context.Context, record *Record) error {
	insertSQL := "INSERT INTO schema_versions (version, name, applied_at, checksum) VALUES (?, ?, ?, ?)"
	if m.dialect == "postgres" {
		insertSQL = "INSERT INTO schema_versions (version, name, applied_at, checksum) VALUES ($1, $2, $3, $4)"
	}
	_, err := m.db.ExecContext(ctx, insertSQL,
		record.Version, record.Name, record.AppliedAt, record.Checksum)
	if err != nil {
		return fmt.Errorf("failed to record version %d: %w", record.Version, err)
	}
	return nil
}

// All returns every record in version order
func (m *Manager) All(ctx context.Context) ([]Record, error) {
	rows, err := m.db.QueryContext(ctx,
		"SELECT version, name, applied_at, checksum FROM schema_versions ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query versions: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var record Record
		if err := rows.Scan(&record.Version, &record.Name, &record.AppliedAt, &record.Checksum); err != nil {
			return nil, fmt.Errorf("failed to scan version record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// CalculateChecksum returns the hex SHA-256 of a script's content
func CalculateChecksum(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

// FileChecksum returns the hex SHA-256 of a file's content
func FileChecksum(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return CalculateChecksum(string(data)), nil
}
