package schema

// Column represents a single column declaration, shared by model and
// database snapshots
type Column struct {
	Name        string       `json:"name"`
	Key         string       `json:"key,omitempty"` // model-side alias, when different from Name
	Type        Type         `json:"type"`
	Nullable    bool         `json:"nullable"`
	PrimaryKey  bool         `json:"primary_key"`
	Default     *string      `json:"default,omitempty"`
	OnUpdate    *string      `json:"on_update,omitempty"`
	Constraints []Constraint `json:"constraints,omitempty"`
	Position    int          `json:"position"`
}

// Table represents a table declaration with its columns in declaration order
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Column returns the column with the given name, or nil
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// Snapshot is a point-in-time structural description of a schema.
// Table order is preserved for rendering; diffing matches by name only.
type Snapshot struct {
	Tables []Table
}

// Table returns the table with the given name, or nil
func (s *Snapshot) Table(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// TableNames returns all table names in snapshot order
func (s *Snapshot) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i := range s.Tables {
		names[i] = s.Tables[i].Name
	}
	return names
}
