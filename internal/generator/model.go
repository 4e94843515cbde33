package generator

import (
	"fmt"
	"strings"

	"github.com/koba/db-migrate/internal/diff"
	"github.com/koba/db-migrate/internal/schema"
)

const header = `## File autogenerated by dbmigrate

meta = MetaData()
`

const declarativeHeader = `## File autogenerated by dbmigrate

Base = declarative_base()
`

// ModelGenerator renders schema snapshots and diff reports as model
// source text
type ModelGenerator struct {
	declarative bool
}

// NewModelGenerator creates a generator. With declarative set, tables
// render as class declarations instead of Table constructors.
func NewModelGenerator(declarative bool) *ModelGenerator {
	return &ModelGenerator{declarative: declarative}
}

// ColumnDecl renders a single column declaration. Keyword arguments
// always render in the order key, primary_key, nullable, onupdate,
// default, regardless of how the column was built.
func (g *ModelGenerator) ColumnDecl(col *schema.Column) string {
	var elems []string
	if !g.declarative {
		elems = append(elems, fmt.Sprintf("'%s'", col.Name))
	}
	elems = append(elems, col.Type.Repr())

	for _, cn := range col.Constraints {
		elems = append(elems, cn.Repr())
	}

	if col.Key != "" && col.Key != col.Name {
		elems = append(elems, fmt.Sprintf("key=%s", quoteValue(col.Key)))
	}
	if col.PrimaryKey {
		// always the boolean literal, never the stored representation
		elems = append(elems, "primary_key=True")
	}
	if !col.Nullable {
		elems = append(elems, "nullable=False")
	}
	if col.OnUpdate != nil {
		elems = append(elems, fmt.Sprintf("onupdate=%s", quoteValue(*col.OnUpdate)))
	}
	if col.Default != nil && !col.PrimaryKey {
		// primary-key defaults are sequence artifacts, not declarations
		elems = append(elems, fmt.Sprintf("default=%s", quoteValue(*col.Default)))
	}

	call := fmt.Sprintf("Column(%s)", strings.Join(elems, ", "))
	if g.declarative {
		return fmt.Sprintf("%s = %s", col.Name, call)
	}
	return call
}

// TableDefn renders a full table declaration as source lines
func (g *ModelGenerator) TableDefn(table *schema.Table) []string {
	var out []string
	if g.declarative {
		out = append(out, fmt.Sprintf("class %s(Base):", table.Name))
		out = append(out, fmt.Sprintf("  __tablename__ = '%s'", table.Name))
		for i := range table.Columns {
			out = append(out, "  "+g.ColumnDecl(&table.Columns[i]))
		}
	} else {
		out = append(out, fmt.Sprintf("%s = Table('%s', meta,", table.Name, table.Name))
		for i := range table.Columns {
			out = append(out, "  "+g.ColumnDecl(&table.Columns[i])+",")
		}
		out = append(out, ")")
	}
	return out
}

// Model renders a model source file capturing the tables only the
// database has. The database is assumed authoritative and the model
// empty; this bootstraps a model from an existing schema.
func (g *ModelGenerator) Model(report *diff.Report) string {
	out := []string{}
	if g.declarative {
		out = append(out, declarativeHeader)
	} else {
		out = append(out, header)
	}
	out = append(out, "")
	for i := range report.TablesMissingInModel {
		out = append(out, g.TableDefn(&report.TablesMissingInModel[i])...)
		out = append(out, "")
	}
	return strings.Join(out, "\n")
}

func quoteValue(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "\\'") + "'"
}
