package table

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Syras206/slimcryptdb/pkg/codec"
	dberrors "github.com/Syras206/slimcryptdb/pkg/errors"
)

// Table is a named, ordered sequence of records, an optional declared
// schema, a last-modified time, and a version counter bumped on every persist.
type Table struct {
	Name         string
	Schema       json.RawMessage
	Rows         []*Record
	LastModified int64
	Version      uint64
}

// fileDoc is the on-disk shape a table file encodes, per
// "{name, schema, rows, lastModified}".
type fileDoc struct {
	Name         string            `json:"name"`
	Schema       json.RawMessage   `json:"schema,omitempty"`
	Rows         []json.RawMessage `json:"rows"`
	LastModified int64             `json:"lastModified"`
}

// NewTable builds an empty table with the given name and optional schema.
func NewTable(name string, schema json.RawMessage) *Table {
	return &Table{
		Name:         name,
		Schema:       schema,
		LastModified: time.Now().UnixMilli(),
	}
}

// Store owns the table files under a database directory: one file per
// table at "<db>/<table>.db", loaded and rewritten whole through codec.
type Store struct {
	mu   sync.RWMutex
	dir  string
	opts codec.Options

	tables map[string]*Table
}

// NewStore opens a Store rooted at dir with the given codec options
// (encryption key, compression mode). It does not eagerly load any
// table; tables are discovered by name on first access.
func NewStore(dir string, opts codec.Options) *Store {
	return &Store{
		dir:    dir,
		opts:   opts,
		tables: make(map[string]*Table),
	}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".db")
}

// Create registers a brand new table and persists it immediately.
// Returns a StateError if the table already exists.
func (s *Store) Create(name string, schema json.RawMessage) (*Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tables[name]; exists {
		return nil, &dberrors.StateError{Op: "table.create", Reason: fmt.Sprintf("table %q already exists", name)}
	}
	if codec.Exists(s.path(name)) {
		return nil, &dberrors.StateError{Op: "table.create", Reason: fmt.Sprintf("table file for %q already exists", name)}
	}

	tbl := NewTable(name, schema)
	if err := s.persistLocked(tbl); err != nil {
		return nil, err
	}
	s.tables[name] = tbl
	return tbl, nil
}

// Get returns the named table, loading it from disk on first access.
func (s *Store) Get(name string) (*Table, error) {
	s.mu.RLock()
	if tbl, ok := s.tables[name]; ok {
		s.mu.RUnlock()
		return tbl, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if tbl, ok := s.tables[name]; ok {
		return tbl, nil
	}

	tbl, err := s.loadLocked(name)
	if err != nil {
		return nil, err
	}
	s.tables[name] = tbl
	return tbl, nil
}

func (s *Store) loadLocked(name string) (*Table, error) {
	var doc fileDoc
	if err := codec.ReadFile(s.opts, s.path(name), &doc); err != nil {
		if dberrors.KindOf(err) == dberrors.KindNotFound {
			return nil, &dberrors.NotFoundError{Kind_: "table", Name: name}
		}
		return nil, err
	}

	rows := make([]*Record, 0, len(doc.Rows))
	for _, raw := range doc.Rows {
		rec := NewRecord()
		if err := rec.UnmarshalJSON(raw); err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}

	return &Table{
		Name:         doc.Name,
		Schema:       doc.Schema,
		Rows:         rows,
		LastModified: doc.LastModified,
	}, nil
}

// Persist re-encodes and rewrites tbl's file in full, the only mutation
// path a table file ever goes through.
func (s *Store) Persist(tbl *Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(tbl)
}

func (s *Store) persistLocked(tbl *Table) error {
	tbl.LastModified = time.Now().UnixMilli()
	tbl.Version++

	rows := make([]json.RawMessage, 0, len(tbl.Rows))
	for _, rec := range tbl.Rows {
		raw, err := rec.MarshalJSON()
		if err != nil {
			return err
		}
		rows = append(rows, raw)
	}

	doc := fileDoc{
		Name:         tbl.Name,
		Schema:       tbl.Schema,
		Rows:         rows,
		LastModified: tbl.LastModified,
	}
	return codec.WriteFile(s.opts, s.path(tbl.Name), doc)
}

// Drop deletes a table's in-memory entry and on-disk file.
func (s *Store) Drop(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[name]; !ok {
		if !codec.Exists(s.path(name)) {
			return &dberrors.NotFoundError{Kind_: "table", Name: name}
		}
	}
	delete(s.tables, name)

	if err := os.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
		return &dberrors.IOError{Op: "table.drop", Err: err}
	}
	return nil
}

// Exists reports whether name has a loaded or on-disk table.
func (s *Store) Exists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.tables[name]; ok {
		return true
	}
	return codec.Exists(s.path(name))
}

// FindByID returns the row with the given id, or NOT_FOUND.
func (tbl *Table) FindByID(id string) (*Record, int, error) {
	for i, rec := range tbl.Rows {
		if rec.ID() == id {
			return rec, i, nil
		}
	}
	return nil, -1, &dberrors.NotFoundError{Kind_: "record", Name: id}
}

// Append adds rec to the end of the row sequence.
func (tbl *Table) Append(rec *Record) {
	tbl.Rows = append(tbl.Rows, rec)
}

// ReplaceAt overwrites the row at index i.
func (tbl *Table) ReplaceAt(i int, rec *Record) {
	tbl.Rows[i] = rec
}

// RemoveAt deletes the row at index i, preserving the order of the rest.
func (tbl *Table) RemoveAt(i int) {
	tbl.Rows = append(tbl.Rows[:i], tbl.Rows[i+1:]...)
}
