package storage

import (
	"fmt"
	"sort"

	"github.com/emberdb/ember/internal/types"
)

// IndexKind distinguishes the index implementations a table can carry. Only
// the dense single-column group-key index is eligible for the optimizer's
// index-scan substitution.
type IndexKind int

const (
	GroupKeyIndex IndexKind = iota
	CompositeGroupKeyIndex
)

func (k IndexKind) String() string {
	switch k {
	case GroupKeyIndex:
		return "GroupKey"
	case CompositeGroupKeyIndex:
		return "CompositeGroupKey"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// indexEntry pairs a (composite) key with the rows holding it.
type indexEntry struct {
	key  []types.Value
	rows []types.RowID
}

// Index is a dense, sorted value→positions index over one or more columns.
// It is built once over the table's current rows and is not updated
// afterwards; Table.AppendRow drops all of the table's indexes and nothing
// rebuilds them.
type Index struct {
	kind    IndexKind
	columns []types.ColumnID
	entries []indexEntry
}

func buildIndex(t *Table, kind IndexKind, columns []types.ColumnID) *Index {
	groups := make(map[string]*indexEntry)
	var order []string

	for chunkID, chunk := range t.chunks {
		for row := 0; row < chunk.Size(); row++ {
			key := make([]types.Value, len(columns))
			skip := false
			for i, col := range columns {
				v := chunk.Value(col, types.ChunkOffset(row))
				if v.IsNull() {
					skip = true
					break
				}
				key[i] = v
			}
			if skip {
				continue
			}
			k := keyString(key)
			entry, ok := groups[k]
			if !ok {
				entry = &indexEntry{key: key}
				groups[k] = entry
				order = append(order, k)
			}
			entry.rows = append(entry.rows, types.RowID{
				Chunk:  types.ChunkID(chunkID),
				Offset: types.ChunkOffset(row),
			})
		}
	}

	entries := make([]indexEntry, 0, len(order))
	for _, k := range order {
		entries = append(entries, *groups[k])
	}
	sort.Slice(entries, func(i, j int) bool {
		return compareKeys(entries[i].key, entries[j].key) < 0
	})

	return &Index{kind: kind, columns: columns, entries: entries}
}

func keyString(key []types.Value) string {
	s := ""
	for _, v := range key {
		s += fmt.Sprintf("%T:%v|", v.Data, v.Data)
	}
	return s
}

func compareKeys(a, b []types.Value) int {
	for i := range a {
		if c := types.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

// Kind returns the index kind.
func (ix *Index) Kind() IndexKind {
	return ix.kind
}

// Columns returns the indexed column IDs in key order.
func (ix *Index) Columns() []types.ColumnID {
	return ix.columns
}

// IsSingleColumn reports whether exactly one column is indexed.
func (ix *Index) IsSingleColumn() bool {
	return len(ix.columns) == 1
}

// Lookup returns the rows holding exactly the given single-column value.
func (ix *Index) Lookup(value types.Value) []types.RowID {
	i := ix.lowerBound([]types.Value{value})
	if i < len(ix.entries) && compareKeys(ix.entries[i].key, []types.Value{value}) == 0 {
		return ix.entries[i].rows
	}
	return nil
}

// Scan returns all rows whose single-column key satisfies `key cond value`.
func (ix *Index) Scan(cond types.PredicateCondition, value types.Value) []types.RowID {
	var rows []types.RowID
	for _, entry := range ix.entries {
		if cond.Matches(entry.key[0], value) {
			rows = append(rows, entry.rows...)
		}
	}
	return rows
}

func (ix *Index) lowerBound(key []types.Value) int {
	return sort.Search(len(ix.entries), func(i int) bool {
		return compareKeys(ix.entries[i].key, key) >= 0
	})
}
