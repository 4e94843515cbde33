package diff

import (
	"github.com/koba/db-migrate/internal/schema"
)

// AlteredColumn is a column present under the same name in both snapshots
// whose declarations do not render identically. Both definitions are
// carried so consumers can name the conflict.
type AlteredColumn struct {
	Model    schema.Column
	Database schema.Column
}

// TableDiff is the per-table column classification for a table present in
// both snapshots
type TableDiff struct {
	TableName         string
	MissingInDatabase []schema.Column // declared in the model only
	MissingInModel    []schema.Column // present in the database only
	Altered           []AlteredColumn

	// full definitions, for consumers that rebuild or recreate the table
	Model    *schema.Table
	Database *schema.Table
}

// Empty reports whether the table has no column-level differences
func (d *TableDiff) Empty() bool {
	return len(d.MissingInDatabase) == 0 && len(d.MissingInModel) == 0 && len(d.Altered) == 0
}

// PurelyAdditive reports whether the change set is limited to columns the
// database is missing. That is the one change class every dialect can
// apply directly.
func (d *TableDiff) PurelyAdditive() bool {
	return len(d.MissingInDatabase) > 0 && len(d.MissingInModel) == 0 && len(d.Altered) == 0
}

// Report classifies the differences between a model snapshot and a
// database snapshot. Every table name in either snapshot lands in exactly
// one of {missing-in-model, missing-in-database, with-diff, unchanged}.
type Report struct {
	TablesMissingInModel    []schema.Table // in the database, not in the model
	TablesMissingInDatabase []schema.Table // in the model, not in the database
	TablesWithDiff          []TableDiff
}

// Empty reports whether the two snapshots are diff-equal
func (r *Report) Empty() bool {
	return len(r.TablesMissingInModel) == 0 &&
		len(r.TablesMissingInDatabase) == 0 &&
		len(r.TablesWithDiff) == 0
}

// Compare computes the structural diff between a model snapshot and a
// database snapshot. Matching is by exact name only; there is no rename
// detection. The function is pure: neither snapshot is mutated.
func Compare(model, db *schema.Snapshot) *Report {
	report := &Report{}

	modelTables := make(map[string]*schema.Table)
	for i := range model.Tables {
		modelTables[model.Tables[i].Name] = &model.Tables[i]
	}
	dbTables := make(map[string]*schema.Table)
	for i := range db.Tables {
		dbTables[db.Tables[i].Name] = &db.Tables[i]
	}

	// Database-only tables, in database snapshot order
	for _, dbTable := range db.Tables {
		if _, exists := modelTables[dbTable.Name]; !exists {
			report.TablesMissingInModel = append(report.TablesMissingInModel, dbTable)
		}
	}

	// Model-only tables and common tables, in model snapshot order
	for _, modelTable := range model.Tables {
		dbTable, exists := dbTables[modelTable.Name]
		if !exists {
			report.TablesMissingInDatabase = append(report.TablesMissingInDatabase, modelTable)
			continue
		}
		tableDiff := compareColumns(&modelTable, dbTable)
		if !tableDiff.Empty() {
			report.TablesWithDiff = append(report.TablesWithDiff, tableDiff)
		}
	}

	return report
}

func compareColumns(modelTable, dbTable *schema.Table) TableDiff {
	tableDiff := TableDiff{
		TableName: modelTable.Name,
		Model:     modelTable,
		Database:  dbTable,
	}

	dbColumns := make(map[string]*schema.Column)
	for i := range dbTable.Columns {
		dbColumns[dbTable.Columns[i].Name] = &dbTable.Columns[i]
	}
	modelColumns := make(map[string]*schema.Column)
	for i := range modelTable.Columns {
		modelColumns[modelTable.Columns[i].Name] = &modelTable.Columns[i]
	}

	for _, modelCol := range modelTable.Columns {
		dbCol, exists := dbColumns[modelCol.Name]
		if !exists {
			tableDiff.MissingInDatabase = append(tableDiff.MissingInDatabase, modelCol)
			continue
		}
		if !declEqual(&modelCol, dbCol) {
			tableDiff.Altered = append(tableDiff.Altered, AlteredColumn{
				Model:    modelCol,
				Database: *dbCol,
			})
		}
	}

	for _, dbCol := range dbTable.Columns {
		if _, exists := modelColumns[dbCol.Name]; !exists {
			tableDiff.MissingInModel = append(tableDiff.MissingInModel, dbCol)
		}
	}

	return tableDiff
}

// declEqual reports whether two columns would render to the same
// declaration. Deliberately coarse: any difference in the rendered type,
// key alias, nullability, primary-key flag, default, onupdate or
// constraint list flags the column as altered.
func declEqual(a, b *schema.Column) bool {
	if a.Type.Kind != b.Type.Kind || a.Type.Length != b.Type.Length {
		return false
	}
	if a.Key != b.Key || a.Nullable != b.Nullable || a.PrimaryKey != b.PrimaryKey {
		return false
	}
	// primary-key defaults never render, so they cannot differ
	if !a.PrimaryKey && !optEqual(a.Default, b.Default) {
		return false
	}
	if !optEqual(a.OnUpdate, b.OnUpdate) {
		return false
	}
	return schema.ReprList(a.Constraints) == schema.ReprList(b.Constraints)
}

func optEqual(a, b *string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}
