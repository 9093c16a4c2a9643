// Package index implements the index manager. Each index is a B+Tree
// keyed by a composite, "::"-joined column value with leaves holding the
// list of record ids that share a key (one id for a unique index).
package index

import (
	"fmt"
	"sort"
	"sync"

	dberrors "github.com/Syras206/slimcryptdb/pkg/errors"
	"github.com/Syras206/slimcryptdb/pkg/types"
)

// defaultDegree is the B+Tree's minimum degree when callers don't need to
// tune it; small enough to exercise splits/merges readily in tests.
const defaultDegree = 32

// BPlusTree is a concurrent B+Tree whose leaves map a composite key to the
// set of record ids sharing it: "key -> id list" rather than a single
// pointer, since a non-unique index key can match more than one row.
type BPlusTree struct {
	T         int
	Root      *Node
	UniqueKey bool
	Name      string // index name, surfaced in UNIQUE_VIOLATION errors
	mu        sync.RWMutex
}

// NewTree creates a non-unique index (duplicates allowed).
func NewTree(t int) *BPlusTree {
	if t < 2 {
		t = defaultDegree
	}
	return &BPlusTree{T: t, Root: NewNode(t, true)}
}

// NewUniqueTree creates a unique index: Insert refuses to add an id to a
// key that already carries one.
func NewUniqueTree(t int) *BPlusTree {
	tree := NewTree(t)
	tree.UniqueKey = true
	return tree
}

// Insert adds id to the bucket for key, refusing the operation if key
// already has an occupant and the tree enforces uniqueness.
func (b *BPlusTree) Insert(key types.Comparable, id string) error {
	return b.Upsert(key, func(old IDList, exists bool) (IDList, error) {
		if exists && len(old) > 0 {
			if b.UniqueKey {
				return nil, &dberrors.UniqueViolationError{Index: b.Name, Key: fmt.Sprintf("%v", key)}
			}
			if old.contains(id) {
				return old, nil
			}
			return append(old, id), nil
		}
		return IDList{id}, nil
	})
}

// Remove deletes id from key's bucket. The key itself stays in the tree,
// with an empty bucket once its last id is gone.
func (b *BPlusTree) Remove(key types.Comparable, id string) error {
	return b.Upsert(key, func(old IDList, exists bool) (IDList, error) {
		if !exists {
			return nil, nil
		}
		return old.without(id), nil
	})
}

// Upsert runs fn against the current bucket for key (nil, false if
// absent) while holding the leaf latch, an atomic read-modify-write.
func (b *BPlusTree) Upsert(key types.Comparable, fn func(old IDList, exists bool) (IDList, error)) error {
	b.mu.Lock()
	root := b.Root
	root.Lock()

	if root.IsFull() {
		newRoot := NewNode(b.T, false)
		newRoot.Children = append(newRoot.Children, root)
		newRoot.SplitChild(0)
		b.Root = newRoot
		b.mu.Unlock()

		newRoot.Lock()
		root.Unlock()
		return b.upsertTopDown(newRoot, key, fn)
	}

	b.mu.Unlock()
	return b.upsertTopDown(root, key, fn)
}

func (b *BPlusTree) upsertTopDown(curr *Node, key types.Comparable, fn func(old IDList, exists bool) (IDList, error)) error {
	defer func() {
		if curr != nil {
			curr.Unlock()
		}
	}()

	for !curr.Leaf {
		i := 0
		for i < curr.N && key.Compare(curr.Keys[i]) >= 0 {
			i++
		}

		child := curr.Children[i]
		child.Lock()

		if child.IsFull() {
			curr.SplitChild(i)
			if key.Compare(curr.Keys[i]) >= 0 {
				child.Unlock()
				child = curr.Children[i+1]
				child.Lock()
			}
		}

		curr.Unlock()
		curr = child
	}

	return curr.UpsertNonFull(key, fn)
}

// Get returns the bucket for key and whether key is present.
func (b *BPlusTree) Get(key types.Comparable) (IDList, bool) {
	if b == nil {
		return nil, false
	}
	b.mu.RLock()
	curr := b.Root
	if curr == nil {
		b.mu.RUnlock()
		return nil, false
	}
	curr.RLock()
	b.mu.RUnlock()

	for !curr.Leaf {
		i := 0
		for i < curr.N && key.Compare(curr.Keys[i]) >= 0 {
			i++
		}
		child := curr.Children[i]
		child.RLock()
		curr.RUnlock()
		curr = child
	}

	defer curr.RUnlock()
	for j := 0; j < curr.N; j++ {
		if key.Compare(curr.Keys[j]) == 0 {
			return curr.DataPtrs[j], true
		}
	}
	return nil, false
}

// FindLeafLowerBound finds the leaf/position of the smallest key >= key
// (or the first leaf if key is nil), used by scans. Returns the node
// RLocked; the caller must RUnlock it.
func (b *BPlusTree) FindLeafLowerBound(key types.Comparable) (*Node, int) {
	b.mu.RLock()
	curr := b.Root
	curr.RLock()
	b.mu.RUnlock()

	for !curr.Leaf {
		var i int
		if key == nil {
			i = 0
		} else {
			i = sort.Search(curr.N, func(i int) bool {
				return curr.Keys[i].Compare(key) >= 0
			})
		}
		child := curr.Children[i]
		child.RLock()
		curr.RUnlock()
		curr = child
	}

	var idx int
	if key == nil {
		idx = 0
	} else {
		idx = sort.Search(curr.N, func(i int) bool {
			return curr.Keys[i].Compare(key) >= 0
		})
	}
	return curr, idx
}
