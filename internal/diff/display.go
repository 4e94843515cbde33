package diff

import (
	"fmt"

	"github.com/fatih/color"
)

// Display prints the report in a human-readable format
func Display(report *Report) {
	if report.Empty() {
		fmt.Println("Model and database schemas match.")
		return
	}

	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)
	changed := color.New(color.FgYellow)

	if len(report.TablesMissingInDatabase) > 0 {
		fmt.Println("=== Tables missing in database ===")
		for _, table := range report.TablesMissingInDatabase {
			added.Printf("  + %s (%d columns)\n", table.Name, len(table.Columns))
		}
		fmt.Println()
	}

	if len(report.TablesMissingInModel) > 0 {
		fmt.Println("=== Tables missing in model ===")
		for _, table := range report.TablesMissingInModel {
			removed.Printf("  - %s (%d columns)\n", table.Name, len(table.Columns))
		}
		fmt.Println()
	}

	if len(report.TablesWithDiff) > 0 {
		fmt.Println("=== Tables with column differences ===")
		for _, tableDiff := range report.TablesWithDiff {
			fmt.Printf("Table: %s\n", tableDiff.TableName)
			for _, col := range tableDiff.MissingInDatabase {
				added.Printf("  + column %s %s\n", col.Name, col.Type.Repr())
			}
			for _, col := range tableDiff.MissingInModel {
				removed.Printf("  - column %s %s\n", col.Name, col.Type.Repr())
			}
			for _, alt := range tableDiff.Altered {
				changed.Printf("  ~ column %s: model %s, database %s\n",
					alt.Model.Name, alt.Model.Type.Repr(), alt.Database.Type.Repr())
			}
			fmt.Println()
		}
	}
}
