package catalog

import (
	"github.com/emberdb/ember/internal/types"
)

// ColumnDefinition describes one column of a table schema.
type ColumnDefinition struct {
	Name     string
	DataType types.DataType
	Nullable bool
}

// Schema is the ordered column layout of a table or operator output.
type Schema struct {
	Columns []ColumnDefinition
}

// NewSchema creates a schema from column definitions.
func NewSchema(columns ...ColumnDefinition) *Schema {
	return &Schema{Columns: columns}
}

// ColumnID returns the position of the named column, or InvalidColumnID.
func (s *Schema) ColumnID(name string) types.ColumnID {
	for i, col := range s.Columns {
		if col.Name == name {
			return types.ColumnID(i)
		}
	}
	return types.InvalidColumnID
}

// ColumnNames returns the column names in order.
func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		names[i] = col.Name
	}
	return names
}

// Clone returns a deep copy of the schema.
func (s *Schema) Clone() *Schema {
	columns := make([]ColumnDefinition, len(s.Columns))
	copy(columns, s.Columns)
	return &Schema{Columns: columns}
}

// Equals reports whether two schemas have the same columns in order.
func (s *Schema) Equals(other *Schema) bool {
	if len(s.Columns) != len(other.Columns) {
		return false
	}
	for i, col := range s.Columns {
		if col != other.Columns[i] {
			return false
		}
	}
	return true
}
