package index

import "github.com/Syras206/slimcryptdb/pkg/types"

// Cursor walks a btree index's leaves in key order. Index.Snapshot uses it
// to read every entry; the query engine's sort does not use it.
type Cursor struct {
	tree         *BPlusTree
	currentNode  *Node
	currentIndex int
}

// NewCursor returns a cursor over tree, positioned before the first key.
func NewCursor(tree *BPlusTree) *Cursor {
	return &Cursor{tree: tree}
}

// Close releases the latch the cursor currently holds, if any.
func (c *Cursor) Close() {
	if c.currentNode != nil {
		c.currentNode.RUnlock()
		c.currentNode = nil
	}
}

// Key returns the key at the cursor's current position.
func (c *Cursor) Key() types.Comparable { return c.currentNode.Keys[c.currentIndex] }

// Value returns the id bucket at the cursor's current position.
func (c *Cursor) Value() IDList { return c.currentNode.DataPtrs[c.currentIndex] }

// Valid reports whether the cursor is positioned at a real entry.
func (c *Cursor) Valid() bool { return c.currentNode != nil && c.currentIndex < c.currentNode.N }

// Seek positions the cursor at key, or the next greater key if key is
// absent. A nil key seeks to the first entry in the tree.
func (c *Cursor) Seek(key types.Comparable) {
	c.Close()

	leaf, idx := c.tree.FindLeafLowerBound(key)
	if leaf == nil {
		c.currentNode = nil
		c.currentIndex = 0
		return
	}

	if idx >= leaf.N {
		nextLeaf := leaf.Next
		if nextLeaf != nil {
			nextLeaf.RLock()
			leaf.RUnlock()
			leaf = nextLeaf
			idx = 0
			for leaf != nil && leaf.N == 0 {
				next := leaf.Next
				if next != nil {
					next.RLock()
				}
				leaf.RUnlock()
				leaf = next
				idx = 0
			}
		} else {
			leaf.RUnlock()
			c.currentNode = nil
			return
		}
	}

	if leaf == nil {
		c.currentNode = nil
		return
	}

	c.currentNode = leaf
	c.currentIndex = idx
}

// Next advances the cursor, returning false once the tree is exhausted.
func (c *Cursor) Next() bool {
	if c.currentNode == nil {
		return false
	}

	if c.currentIndex+1 < c.currentNode.N {
		c.currentIndex++
		return true
	}

	nextLeaf := c.currentNode.Next
	if nextLeaf != nil {
		nextLeaf.RLock()
	}
	c.currentNode.RUnlock()
	c.currentNode = nextLeaf
	c.currentIndex = 0

	for c.currentNode != nil && c.currentNode.N == 0 {
		next := c.currentNode.Next
		if next != nil {
			next.RLock()
		}
		c.currentNode.RUnlock()
		c.currentNode = next
		c.currentIndex = 0
	}

	return c.currentNode != nil
}
