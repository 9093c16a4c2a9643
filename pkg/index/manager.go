package index

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Syras206/slimcryptdb/pkg/codec"
	dberrors "github.com/Syras206/slimcryptdb/pkg/errors"
	"github.com/Syras206/slimcryptdb/pkg/table"
)

// Manager owns every index for every table, persisted one file per index
// at "<db>/indexes/<table>.<name>.idx".
type Manager struct {
	mu      sync.RWMutex
	dir     string
	opts    codec.Options
	byTable map[string][]*Index // insertion order, for the tie-break rule in Plan
}

// NewManager opens a Manager rooted at dir.
func NewManager(dir string, opts codec.Options) *Manager {
	return &Manager{
		dir:     dir,
		opts:    opts,
		byTable: make(map[string][]*Index),
	}
}

func (m *Manager) path(tableName, indexName string) string {
	return filepath.Join(m.dir, fmt.Sprintf("%s.%s.idx", tableName, indexName))
}

// Create builds a new index over table's rows, refusing construction if
// the existing data already violates a requested uniqueness constraint.
func (m *Manager) Create(def Definition, rows []*table.Record) (*Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.byTable[def.Table] {
		if existing.Def.Name == def.Name {
			return nil, &dberrors.StateError{Op: "index.create", Reason: fmt.Sprintf("index %q already exists on table %q", def.Name, def.Table)}
		}
	}

	idx := New(def)
	for _, row := range rows {
		if err := idx.Add(row, row.ID()); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, &dberrors.IOError{Op: "index.create", Err: err}
	}
	if err := idx.Persist(m.opts, m.path(def.Table, def.Name)); err != nil {
		return nil, err
	}

	m.byTable[def.Table] = append(m.byTable[def.Table], idx)
	return idx, nil
}

// Drop removes an index from a table, deleting its file.
func (m *Manager) Drop(tableName, indexName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	indexes := m.byTable[tableName]
	for i, idx := range indexes {
		if idx.Def.Name == indexName {
			m.byTable[tableName] = append(indexes[:i], indexes[i+1:]...)
			if err := os.Remove(m.path(tableName, indexName)); err != nil && !os.IsNotExist(err) {
				return &dberrors.IOError{Op: "index.drop", Err: err}
			}
			return nil
		}
	}
	return &dberrors.NotFoundError{Kind_: "index", Name: indexName}
}

// DropTable removes every index owned by tableName, used when the table
// itself is deleted.
func (m *Manager) DropTable(tableName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, idx := range m.byTable[tableName] {
		if err := os.Remove(m.path(tableName, idx.Def.Name)); err != nil && !os.IsNotExist(err) {
			return &dberrors.IOError{Op: "index.drop_table", Err: err}
		}
	}
	delete(m.byTable, tableName)
	return nil
}

// Definitions returns the Definition of every index currently maintained
// over tableName, in insertion order. Used to rebuild a table's indexes
// from scratch after a bulk row replacement.
func (m *Manager) Definitions(tableName string) []Definition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	defs := make([]Definition, len(m.byTable[tableName]))
	for i, idx := range m.byTable[tableName] {
		defs[i] = idx.Def
	}
	return defs
}

// ForTable returns every index maintained over tableName, in the order
// they were created (insertion order is the tie-break rule Plan uses).
func (m *Manager) ForTable(tableName string) []*Index {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Index, len(m.byTable[tableName]))
	copy(out, m.byTable[tableName])
	return out
}

// Get returns the named index on tableName, if any.
func (m *Manager) Get(tableName, indexName string) (*Index, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, idx := range m.byTable[tableName] {
		if idx.Def.Name == indexName {
			return idx, true
		}
	}
	return nil, false
}

// MaintainInsert updates every index on tableName for a newly inserted row.
func (m *Manager) MaintainInsert(tableName string, row *table.Record) error {
	for _, idx := range m.ForTable(tableName) {
		if err := idx.Add(row, row.ID()); err != nil {
			return err
		}
	}
	return nil
}

// MaintainUpdate updates every index on tableName to reflect a row
// changing from oldRow to newRow.
func (m *Manager) MaintainUpdate(tableName string, oldRow, newRow *table.Record) error {
	for _, idx := range m.ForTable(tableName) {
		if err := idx.Update(oldRow, newRow, newRow.ID()); err != nil {
			return err
		}
	}
	return nil
}

// MaintainDelete removes row from every index on tableName.
func (m *Manager) MaintainDelete(tableName string, row *table.Record) error {
	for _, idx := range m.ForTable(tableName) {
		if err := idx.Remove(row, row.ID()); err != nil {
			return err
		}
	}
	return nil
}

// Persist rewrites every index file for tableName, called after a
// transaction commits its index maintenance.
func (m *Manager) Persist(tableName string) error {
	for _, idx := range m.ForTable(tableName) {
		if err := idx.Persist(m.opts, m.path(tableName, idx.Def.Name)); err != nil {
			return err
		}
	}
	return nil
}

// LoadTable loads every persisted index file belonging to tableName from
// disk, used when a database reopens.
func (m *Manager) LoadTable(tableName string, indexNames []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, name := range indexNames {
		idx, err := Load(m.opts, m.path(tableName, name))
		if err != nil {
			if dberrors.KindOf(err) == dberrors.KindNotFound {
				continue
			}
			return err
		}
		m.byTable[tableName] = append(m.byTable[tableName], idx)
	}
	return nil
}
