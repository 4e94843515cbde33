package database

import (
	"fmt"
	"strings"

	"github.com/koba/db-migrate/internal/schema"
)

// DDL builds schema statements for one dialect. All identifiers pass
// through quoteIdentifier; table and column names are never concatenated
// into statements unquoted.
type DDL struct {
	dialect string
}

// NewDDL creates a statement builder for the given dialect identifier
func NewDDL(dialect string) *DDL {
	return &DDL{dialect: dialect}
}

// CreateTable builds a CREATE TABLE statement from a table definition
func (d *DDL) CreateTable(table *schema.Table) string {
	var parts []string
	var pkCols []string

	for i := range table.Columns {
		col := &table.Columns[i]
		parts = append(parts, d.ColumnDefinition(col))
		if col.PrimaryKey {
			pkCols = append(pkCols, d.quoteIdentifier(col.Name))
		}
	}
	if len(pkCols) > 0 {
		parts = append(parts, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pkCols, ", ")))
	}

	for i := range table.Columns {
		col := &table.Columns[i]
		for _, cn := range col.Constraints {
			if cn.Kind != schema.ForeignKey {
				continue
			}
			parts = append(parts, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s(%s)",
				d.quoteIdentifier(col.Name),
				d.quoteIdentifier(cn.ReferencedTable),
				d.quoteIdentifier(cn.ReferencedColumn),
			))
		}
	}

	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)",
		d.quoteIdentifier(table.Name), strings.Join(parts, ",\n  "))
}

// DropTable builds a DROP TABLE statement
func (d *DDL) DropTable(name string) string {
	return fmt.Sprintf("DROP TABLE %s", d.quoteIdentifier(name))
}

// AddColumn builds an additive ALTER TABLE statement
func (d *DDL) AddColumn(table string, col *schema.Column) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s",
		d.quoteIdentifier(table), d.ColumnDefinition(col))
}

// DropColumn builds a column drop statement
func (d *DDL) DropColumn(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s",
		d.quoteIdentifier(table), d.quoteIdentifier(column))
}

// AlterColumn builds the in-place statements that reconcile a live
// column with its model declaration. MySQL redeclares the whole column in
// one MODIFY COLUMN; postgres alters type, nullability and default as
// separate clauses, so only the attributes that actually differ are
// touched.
func (d *DDL) AlterColumn(table string, from, to *schema.Column) []string {
	if d.dialect != "postgres" {
		return []string{fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s",
			d.quoteIdentifier(table), d.ColumnDefinition(to))}
	}

	qualified := fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s",
		d.quoteIdentifier(table), d.quoteIdentifier(to.Name))

	var stmts []string
	if from == nil || from.Type.Kind != to.Type.Kind || from.Type.Length != to.Type.Length {
		stmts = append(stmts, fmt.Sprintf("%s TYPE %s", qualified, d.sqlType(to)))
	}
	if from == nil || from.Nullable != to.Nullable {
		if to.Nullable {
			stmts = append(stmts, qualified+" DROP NOT NULL")
		} else {
			stmts = append(stmts, qualified+" SET NOT NULL")
		}
	}
	if from == nil || !defaultEqual(from.Default, to.Default) {
		if to.Default != nil {
			stmts = append(stmts, fmt.Sprintf("%s SET DEFAULT %s", qualified, *to.Default))
		} else if from == nil || from.Default != nil {
			stmts = append(stmts, qualified+" DROP DEFAULT")
		}
	}
	return stmts
}

func defaultEqual(a, b *string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

// CreateTempCopy builds the statement that snapshots a live table into a
// temporary table for the rebuild fallback
func (d *DDL) CreateTempCopy(tempName, table string) string {
	return fmt.Sprintf("CREATE TEMPORARY TABLE %s AS SELECT * FROM %s",
		d.quoteIdentifier(tempName), d.quoteIdentifier(table))
}

// CopyColumns builds the statement that copies the named columns from the
// temporary table back into the rebuilt table. The column list is always
// explicit; SELECT * would break on any column-set change.
func (d *DDL) CopyColumns(table, tempName string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.quoteIdentifier(c)
	}
	cols := strings.Join(quoted, ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
		d.quoteIdentifier(table), cols, cols, d.quoteIdentifier(tempName))
}

// ColumnDefinition renders the column clause used in CREATE TABLE and
// ADD/MODIFY COLUMN statements
func (d *DDL) ColumnDefinition(col *schema.Column) string {
	def := d.quoteIdentifier(col.Name) + " " + d.sqlType(col)

	if !col.Nullable {
		def += " NOT NULL"
	}
	if col.Default != nil {
		def += fmt.Sprintf(" DEFAULT %s", *col.Default)
	}
	for _, cn := range col.Constraints {
		if cn.Kind == schema.Unique {
			def += " UNIQUE"
		}
		if cn.Kind == schema.Check && cn.Expression != "" {
			def += fmt.Sprintf(" CHECK (%s)", cn.Expression)
		}
	}

	return def
}

// sqlType maps a portable type to the dialect's SQL spelling. A reflected
// raw spelling wins when the column came from the same dialect.
func (d *DDL) sqlType(col *schema.Column) string {
	if col.Type.Raw != "" {
		return col.Type.Raw
	}
	switch col.Type.Kind {
	case schema.Integer:
		return "INTEGER"
	case schema.BigInteger:
		return "BIGINT"
	case schema.SmallInt:
		return "SMALLINT"
	case schema.String:
		if col.Type.Length > 0 {
			return fmt.Sprintf("VARCHAR(%d)", col.Type.Length)
		}
		return "VARCHAR(255)"
	case schema.Text:
		return "TEXT"
	case schema.Boolean:
		return "BOOLEAN"
	case schema.Date:
		return "DATE"
	case schema.DateTime:
		if d.dialect == "postgres" {
			return "TIMESTAMP"
		}
		return "DATETIME"
	case schema.Time:
		return "TIME"
	case schema.Numeric:
		return "NUMERIC"
	case schema.Float:
		if d.dialect == "postgres" {
			return "DOUBLE PRECISION"
		}
		return "DOUBLE"
	case schema.LargeBinary:
		if d.dialect == "postgres" {
			return "BYTEA"
		}
		return "BLOB"
	}
	return "TEXT"
}

func (d *DDL) quoteIdentifier(name string) string {
	if d.dialect == "mysql" {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	// postgres and sqlite use double quotes
	return fmt.Sprintf("\"%s\"", strings.ReplaceAll(name, "\"", "\"\""))
}
