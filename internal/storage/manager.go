package storage

import (
	"sort"
	"sync"

	"github.com/emberdb/ember/internal/errors"
)

// Manager is the table catalog. It owns every stored table by name.
type Manager struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

// NewManager creates an empty storage manager.
func NewManager() *Manager {
	return &Manager{tables: make(map[string]*Table)}
}

// AddTable registers a table under a name.
func (m *Manager) AddTable(name string, table *Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tables[name]; exists {
		return errors.Newf(errors.InternalError, "table %q already exists", name)
	}
	m.tables[name] = table
	return nil
}

// GetTable returns the table stored under a name.
func (m *Manager) GetTable(name string) (*Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	table, ok := m.tables[name]
	if !ok {
		return nil, errors.UnknownTableError(name)
	}
	return table, nil
}

// HasTable reports whether a table exists.
func (m *Manager) HasTable(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.tables[name]
	return ok
}

// DropTable removes a table.
func (m *Manager) DropTable(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[name]; !ok {
		return errors.UnknownTableError(name)
	}
	delete(m.tables, name)
	return nil
}

// TableNames returns all table names, sorted.
func (m *Manager) TableNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.tables))
	for name := range m.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
