package planner

import (
	"github.com/emberdb/ember/internal/errors"
	"github.com/emberdb/ember/internal/types"
)

// scopeColumn binds a resolvable name to the column expression the plan
// actually carries. Renamed columns (FROM t AS u(x, y)) resolve through
// their new name but reference the stored column.
type scopeColumn struct {
	name string
	expr *ColumnExpression
}

// scopeEntry is one FROM-clause table visible in a scope.
type scopeEntry struct {
	alias   string
	columns []scopeColumn
}

// identifierScope resolves identifiers of one query level. Subqueries push
// a fresh scope; resolution falls through to outer scopes via the
// translator's proxy logic.
type identifierScope struct {
	entries []scopeEntry
}

func newIdentifierScope() *identifierScope {
	return &identifierScope{}
}

func (s *identifierScope) addEntry(alias string, columns []scopeColumn) {
	s.entries = append(s.entries, scopeEntry{alias: alias, columns: columns})
}

// resolve finds a column by optionally qualified name. A miss returns
// (nil, nil) so the caller can consult outer scopes; ambiguity is an error
// immediately.
func (s *identifierScope) resolve(table, name string) (*ColumnExpression, error) {
	if table != "" {
		for _, entry := range s.entries {
			if entry.alias != table {
				continue
			}
			for _, col := range entry.columns {
				if col.name == name {
					return col.expr, nil
				}
			}
			return nil, nil
		}
		return nil, nil
	}

	var found *ColumnExpression
	for _, entry := range s.entries {
		for _, col := range entry.columns {
			if col.name != name {
				continue
			}
			if found != nil {
				return nil, errors.AmbiguousIdentifierError(name)
			}
			found = col.expr
		}
	}
	return found, nil
}

// allColumns returns every visible column in FROM order, for expanding *.
func (s *identifierScope) allColumns() []*ColumnExpression {
	var cols []*ColumnExpression
	for _, entry := range s.entries {
		for _, col := range entry.columns {
			cols = append(cols, col.expr)
		}
	}
	return cols
}

// parameterFrame records the correlated parameters a subquery accumulated:
// the placeholder IDs and, in the same order, the outer expressions that
// feed them.
type parameterFrame struct {
	ids  []types.ParameterID
	args []Expression
}

func (f *parameterFrame) add(id types.ParameterID, outer Expression) {
	f.ids = append(f.ids, id)
	f.args = append(f.args, outer)
}
