package index

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/Syras206/slimcryptdb/pkg/codec"
	dberrors "github.com/Syras206/slimcryptdb/pkg/errors"
	"github.com/Syras206/slimcryptdb/pkg/table"
	"github.com/Syras206/slimcryptdb/pkg/types"
)

// Kind distinguishes the two index structures: an ordered btree
// (supports range scans and sorted cursors) and an unordered hash index
// (equality lookup only, backed by a plain map).
type Kind string

const (
	KindBTree Kind = "btree"
	KindHash  Kind = "hash"
)

// Definition is the declarative shape of create_index's arguments.
type Definition struct {
	Table   string   `json:"table"`
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Kind    Kind     `json:"type"`
	Unique  bool     `json:"unique"`
}

// Index is one maintained secondary (or primary) index over a table.
// Keys are built by joining, for every indexed column, the string form
// of the row's value at that column with "::".
type Index struct {
	Def Definition

	mu   sync.RWMutex
	tree *BPlusTree       // used when Def.Kind == KindBTree
	hash map[string]IDList // used when Def.Kind == KindHash
}

// New builds an empty index for def.
func New(def Definition) *Index {
	idx := &Index{Def: def}
	switch def.Kind {
	case KindHash:
		idx.hash = make(map[string]IDList)
	default:
		idx.Def.Kind = KindBTree
		idx.tree = NewUniqueOrNot(def.Unique)
		idx.tree.Name = def.Name
	}
	return idx
}

// NewUniqueOrNot returns a fresh btree, unique or not per the flag.
func NewUniqueOrNot(unique bool) *BPlusTree {
	if unique {
		return NewUniqueTree(defaultDegree)
	}
	return NewTree(defaultDegree)
}

// BuildKey joins the row's values at def.Columns with "::", the
// composite key every index lookup and maintenance operation keys by.
func BuildKey(row *table.Record, columns []string) types.Key {
	parts := make([]string, len(columns))
	for i, col := range columns {
		v, _ := row.Get(col)
		parts[i] = StringifyValue(v)
	}
	return types.Key(strings.Join(parts, "::"))
}

// StringifyValue renders a row value the same way BuildKey does, so a
// caller building a single-column lookup key (query planning, notably)
// can match what's actually stored rather than drifting from it with its
// own formatting (e.g. a plain fmt.Sprintf renders a float64 via %v,
// which disagrees with this function's trimmed %f for non-integers).
func StringifyValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", val), "0"), ".")
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}

// Add inserts id under row's composite key.
func (idx *Index) Add(row *table.Record, id string) error {
	key := BuildKey(row, idx.Def.Columns)
	return idx.addKey(key, id)
}

func (idx *Index) addKey(key types.Key, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.Def.Kind == KindHash {
		existing, ok := idx.hash[string(key)]
		if ok && idx.Def.Unique && !existing.contains(id) {
			return &dberrors.UniqueViolationError{Index: idx.Def.Name, Key: string(key)}
		}
		if ok && existing.contains(id) {
			return nil
		}
		idx.hash[string(key)] = append(existing, id)
		return nil
	}

	return idx.tree.Insert(key, id)
}

// Remove deletes id from row's composite key bucket.
func (idx *Index) Remove(row *table.Record, id string) error {
	key := BuildKey(row, idx.Def.Columns)
	return idx.removeKey(key, id)
}

func (idx *Index) removeKey(key types.Key, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.Def.Kind == KindHash {
		existing, ok := idx.hash[string(key)]
		if !ok {
			return nil
		}
		remaining := existing.without(id)
		if len(remaining) == 0 {
			delete(idx.hash, string(key))
		} else {
			idx.hash[string(key)] = remaining
		}
		return nil
	}

	return idx.tree.Remove(key, id)
}

// Update moves id from oldRow's key to newRow's key, a no-op when the
// indexed columns did not change.
func (idx *Index) Update(oldRow, newRow *table.Record, id string) error {
	oldKey := BuildKey(oldRow, idx.Def.Columns)
	newKey := BuildKey(newRow, idx.Def.Columns)
	if oldKey == newKey {
		return nil
	}
	if err := idx.addKey(newKey, id); err != nil {
		return err
	}
	return idx.removeKey(oldKey, id)
}

// Lookup returns the id bucket for an equality predicate's joined key.
func (idx *Index) Lookup(key string) (IDList, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.Def.Kind == KindHash {
		ids, ok := idx.hash[key]
		return ids, ok
	}
	return idx.tree.Get(types.Key(key))
}

// Cursor returns an ordered cursor over a btree index. Panics if called
// on a hash index; callers must check Def.Kind first.
func (idx *Index) Cursor() *Cursor {
	return NewCursor(idx.tree)
}

// persistedIndex is the on-disk shape codec encodes for an index file:
// every (key, id-list) pair, sorted for btree indexes by Seek order.
type persistedIndex struct {
	Def     Definition        `json:"def"`
	Entries map[string]IDList `json:"entries"`
}

// Snapshot captures every (key, bucket) pair currently in the index, for
// persistence.
func (idx *Index) Snapshot() map[string]IDList {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make(map[string]IDList)
	if idx.Def.Kind == KindHash {
		for k, v := range idx.hash {
			out[k] = append(IDList{}, v...)
		}
		return out
	}

	c := idx.Cursor()
	defer c.Close()
	c.Seek(nil)
	for c.Valid() {
		out[fmt.Sprintf("%v", c.Key())] = append(IDList{}, c.Value()...)
		if !c.Next() {
			break
		}
	}
	return out
}

// Persist writes the index's full contents to path via codec.
func (idx *Index) Persist(opts codec.Options, path string) error {
	doc := persistedIndex{Def: idx.Def, Entries: idx.Snapshot()}
	return codec.WriteFile(opts, path, doc)
}

// Load rebuilds an index from a file written by Persist.
func Load(opts codec.Options, path string) (*Index, error) {
	var doc persistedIndex
	if err := codec.ReadFile(opts, path, &doc); err != nil {
		return nil, err
	}

	idx := New(doc.Def)
	for key, ids := range doc.Entries {
		for _, id := range ids {
			if err := idx.addKey(types.Key(key), id); err != nil {
				return nil, err
			}
		}
	}
	return idx, nil
}
