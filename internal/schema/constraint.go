package schema

import (
	"fmt"
	"strings"
)

// ConstraintKind identifies the constraint flavor
type ConstraintKind string

const (
	ForeignKey ConstraintKind = "foreign_key"
	Unique     ConstraintKind = "unique"
	Check      ConstraintKind = "check"
)

// Constraint is a column-level constraint descriptor. It is opaque to the
// differ beyond its rendered form; the generator embeds Repr() output
// verbatim into declarations.
type Constraint struct {
	Kind             ConstraintKind `json:"kind"`
	Name             string         `json:"name,omitempty"`
	ReferencedTable  string         `json:"referenced_table,omitempty"`
	ReferencedColumn string         `json:"referenced_column,omitempty"`
	Expression       string         `json:"expression,omitempty"` // check expression
	OnDelete         string         `json:"on_delete,omitempty"`
	OnUpdate         string         `json:"on_update,omitempty"`
}

// Repr renders the declaration form of the constraint
func (c Constraint) Repr() string {
	switch c.Kind {
	case ForeignKey:
		return fmt.Sprintf("ForeignKey('%s.%s')", c.ReferencedTable, c.ReferencedColumn)
	case Unique:
		return "UniqueConstraint()"
	case Check:
		return fmt.Sprintf("CheckConstraint('%s')", c.Expression)
	}
	return ""
}

// ReprList renders a comma-joined constraint list, the form used between a
// column's type and its keyword arguments
func ReprList(constraints []Constraint) string {
	if len(constraints) == 0 {
		return ""
	}
	parts := make([]string, len(constraints))
	for i, c := range constraints {
		parts[i] = c.Repr()
	}
	return strings.Join(parts, ", ")
}
