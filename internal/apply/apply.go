// Package apply mutates a live database schema to match a model snapshot.
package apply

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/koba/db-migrate/internal/database"
	"github.com/koba/db-migrate/internal/diff"
	"github.com/koba/db-migrate/internal/schema"
)

// Applier consumes a diff report and reconciles the live database with
// the model, choosing per table between direct alteration and the
// transactional rebuild fallback.
type Applier struct {
	dialect database.Dialect
	ddl     *database.DDL
	log     *zap.Logger
}

// New creates an applier for the given dialect
func New(dialect database.Dialect, log *zap.Logger) *Applier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Applier{
		dialect: dialect,
		ddl:     database.NewDDL(dialect.Name()),
		log:     log,
	}
}

// Apply reconciles the live schema with the model. Tables are processed
// independently: a failure on one table does not roll back tables already
// applied. Within a rebuilt table the change is atomic.
func (a *Applier) Apply(ctx context.Context, report *diff.Report) error {
	for i := range report.TablesMissingInModel {
		name := report.TablesMissingInModel[i].Name
		a.log.Info("dropping table", zap.String("table", name))
		if err := a.dialect.DropTable(ctx, name); err != nil {
			return err
		}
	}

	for i := range report.TablesMissingInDatabase {
		table := &report.TablesMissingInDatabase[i]
		a.log.Info("creating table", zap.String("table", table.Name))
		if err := a.dialect.CreateTable(ctx, table); err != nil {
			return err
		}
	}

	for i := range report.TablesWithDiff {
		tableDiff := &report.TablesWithDiff[i]
		if a.canApplyDirectly(tableDiff) {
			if err := a.applyDirect(ctx, tableDiff); err != nil {
				return err
			}
		} else {
			a.log.Info("rebuilding table",
				zap.String("table", tableDiff.TableName),
				zap.String("dialect", a.dialect.Name()))
			if err := a.rebuild(ctx, tableDiff); err != nil {
				return err
			}
		}
	}

	return nil
}

// canApplyDirectly decides the capability question for one table. Pure
// additive column creation works everywhere; every other change class
// needs a dialect that alters in place.
func (a *Applier) canApplyDirectly(tableDiff *diff.TableDiff) bool {
	if tableDiff.PurelyAdditive() {
		return true
	}
	return a.dialect.SupportsInPlaceAlter()
}

// applyDirect issues one statement per column change. Statements are
// independent and non-transactional: a failure partway leaves prior
// changes applied.
func (a *Applier) applyDirect(ctx context.Context, tableDiff *diff.TableDiff) error {
	tableName := tableDiff.TableName
	for i := range tableDiff.MissingInDatabase {
		col := &tableDiff.MissingInDatabase[i]
		a.log.Info("creating column",
			zap.String("table", tableName), zap.String("column", col.Name))
		if err := a.dialect.CreateColumn(ctx, tableName, col); err != nil {
			return err
		}
	}
	for i := range tableDiff.MissingInModel {
		col := &tableDiff.MissingInModel[i]
		a.log.Info("dropping column",
			zap.String("table", tableName), zap.String("column", col.Name))
		if err := a.dialect.DropColumn(ctx, tableName, col.Name); err != nil {
			return err
		}
	}
	for i := range tableDiff.Altered {
		alt := &tableDiff.Altered[i]
		a.log.Info("altering column",
			zap.String("table", tableName), zap.String("column", alt.Database.Name))
		if err := a.dialect.AlterColumn(ctx, tableName, &alt.Database, &alt.Model); err != nil {
			return err
		}
	}
	return nil
}

// rebuild replaces a table under its model definition by copying through
// a temporary table inside a single transaction. Any failure rolls the
// whole rebuild back, leaving the live table untouched.
func (a *Applier) rebuild(ctx context.Context, tableDiff *diff.TableDiff) error {
	tableName := tableDiff.TableName
	tempName := "_temp_" + tableName

	tx, err := a.dialect.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin rebuild transaction for %s: %w", tableName, err)
	}

	statements := []string{
		a.ddl.CreateTempCopy(tempName, tableName),
		a.ddl.DropTable(tableName),
		a.ddl.CreateTable(tableDiff.Model),
		a.ddl.CopyColumns(tableName, tempName, commonColumns(tableDiff.Model, tableDiff.Database)),
		a.ddl.DropTable(tempName),
	}

	for _, stmt := range statements {
		a.log.Debug("rebuild statement",
			zap.String("table", tableName), zap.String("sql", stmt))
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("rebuild of %s failed on %q: %w", tableName, stmt, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rebuild of %s: %w", tableName, err)
	}
	return nil
}

// commonColumns lists the column names present in both definitions, in
// model order. Only these survive a rebuild.
func commonColumns(model, db *schema.Table) []string {
	var common []string
	for i := range model.Columns {
		if db.Column(model.Columns[i].Name) != nil {
			common = append(common, model.Columns[i].Name)
		}
	}
	return common
}
