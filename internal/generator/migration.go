package generator

import (
	"fmt"
	"strings"

	"github.com/koba/db-migrate/internal/diff"
)

// bindCommand attaches the live connection to the rendered schema
// metadata. It prefixes both directions so each generated script runs
// independently of any other.
const bindCommand = "    meta.bind = migrate_engine"

const indent = "    "

// UpgradeDowngrade renders a diff as paired migration command blocks:
// the declarations both directions share, the upgrade commands and their
// exact mirror in downgrade. Column alterations are never generated;
// they render as unconditional failures naming the conflict.
func (g *ModelGenerator) UpgradeDowngrade(report *diff.Report) (decls, upgrade, downgrade string) {
	declLines := []string{"meta = MetaData(migrate_engine)"}
	// either direction may need to (re)create either set of tables
	for i := range report.TablesMissingInModel {
		declLines = append(declLines, g.TableDefn(&report.TablesMissingInModel[i])...)
	}
	for i := range report.TablesMissingInDatabase {
		declLines = append(declLines, g.TableDefn(&report.TablesMissingInDatabase[i])...)
	}

	var upgradeCommands, downgradeCommands []string
	for _, table := range report.TablesMissingInModel {
		upgradeCommands = append(upgradeCommands, fmt.Sprintf("%s.drop()", table.Name))
		downgradeCommands = append(downgradeCommands, fmt.Sprintf("%s.create()", table.Name))
	}
	for _, table := range report.TablesMissingInDatabase {
		upgradeCommands = append(upgradeCommands, fmt.Sprintf("%s.create()", table.Name))
		downgradeCommands = append(downgradeCommands, fmt.Sprintf("%s.drop()", table.Name))
	}

	for _, tableDiff := range report.TablesWithDiff {
		tableName := tableDiff.TableName
		for _, col := range tableDiff.MissingInDatabase {
			upgradeCommands = append(upgradeCommands,
				fmt.Sprintf("%s.columns['%s'].create()", tableName, col.Name))
			downgradeCommands = append(downgradeCommands,
				fmt.Sprintf("%s.columns['%s'].drop()", tableName, col.Name))
		}
		for _, col := range tableDiff.MissingInModel {
			upgradeCommands = append(upgradeCommands,
				fmt.Sprintf("%s.columns['%s'].drop()", tableName, col.Name))
			downgradeCommands = append(downgradeCommands,
				fmt.Sprintf("%s.columns['%s'].create()", tableName, col.Name))
		}
		for _, alt := range tableDiff.Altered {
			failure := fmt.Sprintf("assert False, \"Can't alter columns: %s:%s=>%s\"",
				tableName, alt.Model.Name, alt.Database.Name)
			upgradeCommands = append(upgradeCommands, failure)
			downgradeCommands = append(downgradeCommands, failure)
		}
	}

	return strings.Join(declLines, "\n"),
		joinCommands(upgradeCommands),
		joinCommands(downgradeCommands)
}

func joinCommands(commands []string) string {
	lines := []string{bindCommand}
	for _, command := range commands {
		lines = append(lines, indent+command)
	}
	return strings.Join(lines, "\n")
}
