package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/koba/db-migrate/internal/schema"
)

// Postgres implements the Dialect interface for PostgreSQL
type Postgres struct {
	config Config
	db     *sql.DB
	ddl    *DDL
	log    *zap.Logger
}

// NewPostgres creates a new PostgreSQL dialect
func NewPostgres(config Config, log *zap.Logger) *Postgres {
	if log == nil {
		log = zap.NewNop()
	}
	return &Postgres{config: config, ddl: NewDDL("postgres"), log: log}
}

// Connect establishes a connection to PostgreSQL
func (p *Postgres) Connect() error {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		p.config.Host,
		p.config.Port,
		p.config.User,
		p.config.Password,
		p.config.Database,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	p.db = db
	return nil
}

// Close closes the PostgreSQL connection
func (p *Postgres) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// DB exposes the underlying connection
func (p *Postgres) DB() *sql.DB {
	return p.db
}

// Name returns the dialect identifier
func (p *Postgres) Name() string {
	return "postgres"
}

// SupportsInPlaceAlter reports that PostgreSQL can drop and alter columns
func (p *Postgres) SupportsInPlaceAlter() bool {
	return true
}

// Reflect reads the live schema of the public namespace into a snapshot
func (p *Postgres) Reflect(ctx context.Context) (*schema.Snapshot, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`
	rows, err := p.db.QueryContext(ctx, query)
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
		table, err := p.reflectTable(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to reflect table %s: %w", tableName, err)
		}
		snap.Tables = append(snap.Tables, *table)
	}
	return snap, nil
}

func (p *Postgres) reflectTable(ctx context.Context, tableName string) (*schema.Table, error) {
	query := `
		SELECT
			c.column_name,
			c.data_type,
			COALESCE(c.character_maximum_length, 0),
			c.is_nullable,
			c.column_default,
			c.ordinal_position
		FROM information_schema.columns c
		WHERE c.table_schema = 'public' AND c.table_name = $1
		ORDER BY c.ordinal_position
	`
	rows, err := p.db.QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	defer rows.Close()

	table := &schema.Table{Name: tableName}
	for rows.Next() {
		var col schema.Column
		var rawType, nullable string
		var maxLength int
		var defaultValue sql.NullString

		if err := rows.Scan(&col.Name, &rawType, &maxLength, &nullable, &defaultValue, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}

		col.Type = schema.TypeFromRaw(rawType)
		if col.Type.Kind == schema.String && maxLength > 0 {
			col.Type.Length = maxLength
		}
		col.Nullable = nullable == "YES"
		if defaultValue.Valid {
			col.Default = &defaultValue.String
		}

		table.Columns = append(table.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := p.markPrimaryKeys(ctx, table); err != nil {
		return nil, err
	}
	if err := p.attachForeignKeys(ctx, table); err != nil {
		return nil, err
	}

	return table, nil
}

func (p *Postgres) markPrimaryKeys(ctx context.Context, table *schema.Table) error {
	query := `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.table_schema = 'public'
			AND tc.table_name = $1
			AND tc.constraint_type = 'PRIMARY KEY'
	`
	rows, err := p.db.QueryContext(ctx, query, table.Name)
	if err != nil {
		return fmt.Errorf("failed to get primary key: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var colName string
		if err := rows.Scan(&colName); err != nil {
			return fmt.Errorf("failed to scan primary key column: %w", err)
		}
		if col := table.Column(colName); col != nil {
			col.PrimaryKey = true
			// serial defaults are sequence artifacts, not declarations
			if col.Default != nil && strings.HasPrefix(*col.Default, "nextval(") {
				col.Default = nil
			}
		}
	}
	return rows.Err()
}

func (p *Postgres) attachForeignKeys(ctx context.Context, table *schema.Table) error {
	query := `
		SELECT
			kcu.column_name,
			ccu.table_name,
			ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON tc.constraint_name = ccu.constraint_name
			AND tc.table_schema = ccu.table_schema
		WHERE tc.table_schema = 'public'
			AND tc.table_name = $1
			AND tc.constraint_type = 'FOREIGN KEY'
	`
	rows, err := p.db.QueryContext(ctx, query, table.Name)
	if err != nil {
		return fmt.Errorf("failed to get foreign keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var colName, refTable, refColumn string
		if err := rows.Scan(&colName, &refTable, &refColumn); err != nil {
			return fmt.Errorf("failed to scan foreign key: %w", err)
		}
		if col := table.Column(colName); col != nil {
			col.Constraints = append(col.Constraints, schema.Constraint{
				Kind:             schema.ForeignKey,
				ReferencedTable:  refTable,
				ReferencedColumn: refColumn,
			})
		}
	}
	return rows.Err()
}

// CreateTable creates a table from its definition
func (p *Postgres) CreateTable(ctx context.Context, table *schema.Table) error {
	return p.exec(ctx, p.ddl.CreateTable(table))
}

// DropTable drops a table
func (p *Postgres) DropTable(ctx context.Context, name string) error {
	return p.exec(ctx, p.ddl.DropTable(name))
}

// CreateColumn adds a column to an existing table
func (p *Postgres) CreateColumn(ctx context.Context, table string, col *schema.Column) error {
	return p.exec(ctx, p.ddl.AddColumn(table, col))
}

// DropColumn drops a column from an existing table
func (p *Postgres) DropColumn(ctx context.Context, table, column string) error {
	return p.exec(ctx, p.ddl.DropColumn(table, column))
}

// AlterColumn reconciles a column declaration in place; type, nullability
// and default each alter through their own statement
func (p *Postgres) AlterColumn(ctx context.Context, table string, from, to *schema.Column) error {
	for _, stmt := range p.ddl.AlterColumn(table, from, to) {
		if err := p.exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) exec(ctx context.Context, stmt string) error {
	p.log.Debug("executing statement", zap.String("dialect", "postgres"), zap.String("sql", stmt))
	if _, err := p.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to execute %q: %w", stmt, err)
	}
	return nil
}
