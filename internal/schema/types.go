package schema

import (
	"fmt"
	"strings"
)

// Kind is the closed vocabulary of portable column types
type Kind string

const (
	Integer     Kind = "Integer"
	BigInteger  Kind = "BigInteger"
	SmallInt    Kind = "SmallInteger"
	String      Kind = "String" // carries an optional length
	Text        Kind = "Text"
	Boolean     Kind = "Boolean"
	Date        Kind = "Date"
	DateTime    Kind = "DateTime"
	Time        Kind = "Time"
	Numeric     Kind = "Numeric"
	Float       Kind = "Float"
	LargeBinary Kind = "LargeBinary"
)

// Type is a portable column type: a semantic kind plus an optional length.
// Raw keeps the vendor spelling the type was reflected from, for DDL that
// must recreate the column on the same dialect.
type Type struct {
	Kind   Kind   `json:"kind"`
	Length int    `json:"length,omitempty"`
	Raw    string `json:"raw,omitempty"`
}

// Repr renders the portable declaration form of the type, e.g.
// Integer, String(50), Text
func (t Type) Repr() string {
	if t.Kind == String && t.Length > 0 {
		return fmt.Sprintf("String(%d)", t.Length)
	}
	return string(t.Kind)
}

// rawKinds maps upper-cased vendor type names to portable kinds. Direct
// lookup table instead of structural type introspection: the goal is the
// dialect-independent type, not the raw SQL spelling.
var rawKinds = map[string]Kind{
	"INT":               Integer,
	"INTEGER":           Integer,
	"INT4":              Integer,
	"MEDIUMINT":         Integer,
	"SERIAL":            Integer,
	"BIGINT":            BigInteger,
	"INT8":              BigInteger,
	"BIGSERIAL":         BigInteger,
	"SMALLINT":          SmallInt,
	"INT2":              SmallInt,
	"TINYINT":           SmallInt,
	"VARCHAR":           String,
	"CHARACTER VARYING": String,
	"CHAR":              String,
	"CHARACTER":         String,
	"NVARCHAR":          String,
	"TEXT":              Text,
	"MEDIUMTEXT":        Text,
	"LONGTEXT":          Text,
	"CLOB":              Text,
	"BOOL":              Boolean,
	"BOOLEAN":           Boolean,
	"DATE":              Date,
	"DATETIME":          DateTime,
	"TIMESTAMP":         DateTime,
	"TIMESTAMPTZ":       DateTime,
	"TIME":              Time,
	"NUMERIC":           Numeric,
	"DECIMAL":           Numeric,
	"FLOAT":             Float,
	"FLOAT8":            Float,
	"REAL":              Float,
	"DOUBLE":            Float,
	"DOUBLE PRECISION":  Float,
	"BLOB":              LargeBinary,
	"BYTEA":             LargeBinary,
	"BINARY":            LargeBinary,
	"VARBINARY":         LargeBinary,
	"LONGBLOB":          LargeBinary,
}

// TypeFromRaw resolves a reflected vendor type like "varchar(100)" or
// "timestamp without time zone" into a portable Type. Unknown types fall
// back to Text so a reflected schema always renders.
func TypeFromRaw(raw string) Type {
	t := Type{Raw: raw}

	base := strings.ToUpper(strings.TrimSpace(raw))
	length := 0
	if open := strings.Index(base, "("); open != -1 {
		if close := strings.Index(base, ")"); close > open {
			fmt.Sscanf(base[open+1:close], "%d", &length)
		}
		base = strings.TrimSpace(base[:open])
	}
	// "timestamp without time zone", "unsigned" suffixes and the like
	if kind, ok := rawKinds[base]; ok {
		t.Kind = kind
	} else if idx := strings.IndexByte(base, ' '); idx > 0 {
		if kind, ok := rawKinds[base[:idx]]; ok {
			t.Kind = kind
		}
	}
	if t.Kind == "" {
		t.Kind = Text
	}
	if t.Kind == String {
		t.Length = length
	}
	return t
}
