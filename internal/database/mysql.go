package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/koba/db-migrate/internal/schema"
)

// MySQL implements the Dialect interface for MySQL
type MySQL struct {
	config Config
	db     *sql.DB
	ddl    *DDL
	log    *zap.Logger
}

// NewMySQL creates a new MySQL dialect
func NewMySQL(config Config, log *zap.Logger) *MySQL {
	if log == nil {
		log = zap.NewNop()
	}
	return &MySQL{config: config, ddl: NewDDL("mysql"), log: log}
}

// Connect establishes a connection to MySQL
func (m *MySQL) Connect() error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		m.config.User,
		m.config.Password,
		m.config.Host,
		m.config.Port,
		m.config.Database,
	)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping MySQL: %w", err)
	}

	m.db = db
	return nil
}

// Close closes the MySQL connection
func (m *MySQL) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

// DB exposes the underlying connection
func (m *MySQL) DB() *sql.DB {
	return m.db
}

// Name returns the dialect identifier
func (m *MySQL) Name() string {
	return "mysql"
}

// SupportsInPlaceAlter reports that MySQL can drop and modify columns
func (m *MySQL) SupportsInPlaceAlter() bool {
	return true
}

// Reflect reads the live schema into a snapshot
func (m *MySQL) Reflect(ctx context.Context) (*schema.Snapshot, error) {
	tables, err := m.tableNames(ctx)
	if err != nil {
		return nil, err
	}

	snap := &schema.Snapshot{}
	for _, tableName := range tables {
		table, err := m.reflectTable(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to reflect table %s: %w", tableName, err)
		}
		snap.Tables = append(snap.Tables, *table)
	}
	return snap, nil
}

func (m *MySQL) tableNames(ctx context.Context) ([]string, error) {
	query := `SELECT TABLE_NAME FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`
	rows, err := m.db.QueryContext(ctx, query, m.config.Database)
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
	return tables, rows.Err()
}

func (m *MySQL) reflectTable(ctx context.Context, tableName string) (*schema.Table, error) {
	query := `
		SELECT
			COLUMN_NAME,
			COLUMN_TYPE,
			IS_NULLABLE,
			COLUMN_DEFAULT,
			COLUMN_KEY,
			EXTRA,
			ORDINAL_POSITION
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION
	`
	rows, err := m.db.QueryContext(ctx, query, m.config.Database, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	defer rows.Close()

	table := &schema.Table{Name: tableName}
	for rows.Next() {
		var col schema.Column
		var rawType, nullable, columnKey, extra string
		var defaultValue sql.NullString

		if err := rows.Scan(&col.Name, &rawType, &nullable, &defaultValue, &columnKey, &extra, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}

		col.Type = schema.TypeFromRaw(rawType)
		col.Nullable = nullable == "YES"
		col.PrimaryKey = columnKey == "PRI"
		if defaultValue.Valid {
			col.Default = &defaultValue.String
		}

		table.Columns = append(table.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	fks, err := m.foreignKeys(ctx, tableName)
	if err != nil {
		return nil, err
	}
	for colName, fk := range fks {
		if col := table.Column(colName); col != nil {
			col.Constraints = append(col.Constraints, fk)
		}
	}

	return table, nil
}

func (m *MySQL) foreignKeys(ctx context.Context, tableName string) (map[string]schema.Constraint, error) {
	query := `
		SELECT COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME
		FROM information_schema.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? AND REFERENCED_TABLE_NAME IS NOT NULL
	`
	rows, err := m.db.QueryContext(ctx, query, m.config.Database, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to get foreign keys: %w", err)
	}
	defer rows.Close()

	fks := make(map[string]schema.Constraint)
	for rows.Next() {
		var colName, refTable, refColumn string
		if err := rows.Scan(&colName, &refTable, &refColumn); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		fks[colName] = schema.Constraint{
			Kind:             schema.ForeignKey,
			ReferencedTable:  refTable,
			ReferencedColumn: refColumn,
		}
	}
	return fks, rows.Err()
}

// CreateTable creates a table from its definition
func (m *MySQL) CreateTable(ctx context.Context, table *schema.Table) error {
	return m.exec(ctx, m.ddl.CreateTable(table))
}

// DropTable drops a table
func (m *MySQL) DropTable(ctx context.Context, name string) error {
	return m.exec(ctx, m.ddl.DropTable(name))
}

// CreateColumn adds a column to an existing table
func (m *MySQL) CreateColumn(ctx context.Context, table string, col *schema.Column) error {
	return m.exec(ctx, m.ddl.AddColumn(table, col))
}

// DropColumn drops a column from an existing table
func (m *MySQL) DropColumn(ctx context.Context, table, column string) error {
	return m.exec(ctx, m.ddl.DropColumn(table, column))
}

// AlterColumn changes a column declaration in place
func (m *MySQL) AlterColumn(ctx context.Context, table string, from, to *schema.Column) error {
	for _, stmt := range m.ddl.AlterColumn(table, from, to) {
		if err := m.exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (m *MySQL) exec(ctx context.Context, stmt string) error {
	m.log.Debug("executing statement", zap.String("dialect", "mysql"), zap.String("sql", stmt))
	if _, err := m.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to execute %q: %w", stmt, err)
	}
	return nil
}
