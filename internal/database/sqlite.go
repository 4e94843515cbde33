package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/koba/db-migrate/internal/schema"
)

// ErrInPlaceAlterUnsupported is returned by column operations a dialect
// cannot perform; callers are expected to take the rebuild path instead.
var ErrInPlaceAlterUnsupported = errors.New("dialect does not support in-place column alteration")

// SQLite implements the Dialect interface for SQLite. It is the one
// shipped dialect that cannot drop or alter columns in place, so the
// applier rebuilds tables for any non-additive change.
type SQLite struct {
	config Config
	db     *sql.DB
	ddl    *DDL
	log    *zap.Logger
}

// NewSQLite creates a new SQLite dialect. Config.Database is the file
// path, or ":memory:" for an in-memory database.
func NewSQLite(config Config, log *zap.Logger) *SQLite {
	if log == nil {
		log = zap.NewNop()
	}
	return &SQLite{config: config, ddl: NewDDL("sqlite"), log: log}
}

// Connect opens the SQLite database file
func (s *SQLite) Connect() error {
	db, err := sql.Open("sqlite", s.config.Database)
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping SQLite: %w", err)
	}
	s.db = db
	return nil
}

// Close closes the database
func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB exposes the underlying connection
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// Name returns the dialect identifier
func (s *SQLite) Name() string {
	return "sqlite"
}

// SupportsInPlaceAlter reports that SQLite cannot alter columns in place
func (s *SQLite) SupportsInPlaceAlter() bool {
	return false
}

// Reflect reads the live schema into a snapshot
func (s *SQLite) Reflect(ctx context.Context) (*schema.Snapshot, error) {
	query := `SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, tableName)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	snap := &schema.Snapshot{}
	for _, tableName := range tables {
		table, err := s.reflectTable(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to reflect table %s: %w", tableName, err)
		}
		snap.Tables = append(snap.Tables, *table)
	}
	return snap, nil
}

func (s *SQLite) reflectTable(ctx context.Context, tableName string) (*schema.Table, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("PRAGMA table_info(%s)", s.ddl.quoteIdentifier(tableName)))
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	defer rows.Close()

	table := &schema.Table{Name: tableName}
	for rows.Next() {
		var cid, notNull, pk int
		var name, rawType string
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &name, &rawType, &notNull, &defaultValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}

		col := schema.Column{
			Name:       name,
			Type:       schema.TypeFromRaw(rawType),
			Nullable:   notNull == 0,
			PrimaryKey: pk > 0,
			Position:   cid + 1,
		}
		if defaultValue.Valid {
			col.Default = &defaultValue.String
		}
		table.Columns = append(table.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.attachForeignKeys(ctx, table); err != nil {
		return nil, err
	}

	return table, nil
}

func (s *SQLite) attachForeignKeys(ctx context.Context, table *schema.Table) error {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("PRAGMA foreign_key_list(%s)", s.ddl.quoteIdentifier(table.Name)))
	if err != nil {
		return fmt.Errorf("failed to get foreign keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, seq int
		var refTable, from, onUpdate, onDelete, match string
		var to sql.NullString

		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return fmt.Errorf("failed to scan foreign key: %w", err)
		}
		if col := table.Column(from); col != nil {
			col.Constraints = append(col.Constraints, schema.Constraint{
				Kind:             schema.ForeignKey,
				ReferencedTable:  refTable,
				ReferencedColumn: to.String,
				OnDelete:         onDelete,
				OnUpdate:         onUpdate,
			})
		}
	}
	return rows.Err()
}

// CreateTable creates a table from its definition
func (s *SQLite) CreateTable(ctx context.Context, table *schema.Table) error {
	return s.exec(ctx, s.ddl.CreateTable(table))
}

// DropTable drops a table
func (s *SQLite) DropTable(ctx context.Context, name string) error {
	return s.exec(ctx, s.ddl.DropTable(name))
}

// CreateColumn adds a column to an existing table. Additive column
// creation is the one alteration SQLite supports directly.
func (s *SQLite) CreateColumn(ctx context.Context, table string, col *schema.Column) error {
	return s.exec(ctx, s.ddl.AddColumn(table, col))
}

// DropColumn is not supported in place; the applier rebuilds instead
func (s *SQLite) DropColumn(ctx context.Context, table, column string) error {
	return fmt.Errorf("drop column %s.%s: %w", table, column, ErrInPlaceAlterUnsupported)
}

// AlterColumn is not supported in place; the applier rebuilds instead
func (s *SQLite) AlterColumn(ctx context.Context, table string, from, to *schema.Column) error {
	return fmt.Errorf("alter column %s.%s: %w", table, from.Name, ErrInPlaceAlterUnsupported)
}

func (s *SQLite) exec(ctx context.Context, stmt string) error {
	s.log.Debug("executing statement", zap.String("dialect", "sqlite"), zap.String("sql", stmt))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to execute %q: %w", stmt, err)
	}
	return nil
}
