package index

import (
	"testing"

	dberrors "github.com/Syras206/slimcryptdb/pkg/errors"
	"github.com/Syras206/slimcryptdb/pkg/types"
)

func TestBPlusTree_InsertAndGet(t *testing.T) {
	tree := NewTree(3)

	if err := tree.Insert(types.Key("a"), "id1"); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := tree.Insert(types.Key("a"), "id2"); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	ids, ok := tree.Get(types.Key("a"))
	if !ok {
		t.Fatal("expected key 'a' to be present")
	}
	if len(ids) != 2 {
		t.Fatalf("got %d ids, want 2", len(ids))
	}
}

func TestBPlusTree_UniqueRejectsDuplicate(t *testing.T) {
	tree := NewUniqueTree(3)

	if err := tree.Insert(types.Key("a"), "id1"); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}
	err := tree.Insert(types.Key("a"), "id2")
	if dberrors.KindOf(err) != dberrors.KindUnique {
		t.Errorf("KindOf(err) = %q, want %q", dberrors.KindOf(err), dberrors.KindUnique)
	}
}

func TestBPlusTree_RemoveEmptiesBucket(t *testing.T) {
	tree := NewTree(3)
	tree.Insert(types.Key("a"), "id1")

	if err := tree.Remove(types.Key("a"), "id1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	ids, ok := tree.Get(types.Key("a"))
	if !ok {
		t.Fatal("expected the key to remain with an empty bucket after Remove")
	}
	if len(ids) != 0 {
		t.Fatalf("got %d ids, want 0", len(ids))
	}
}

func TestBPlusTree_SplitsAcrossManyKeys(t *testing.T) {
	tree := NewTree(3)
	for i := 0; i < 200; i++ {
		key := types.Key(string(rune('a' + i%26)) + string(rune(i)))
		if err := tree.Insert(key, "id"); err != nil {
			t.Fatalf("Insert(%d) failed: %v", i, err)
		}
	}

	// Spot check: a cursor over the tree should visit every key in order.
	cursor := NewCursor(tree)
	defer cursor.Close()
	cursor.Seek(nil)

	var prev *types.Key
	count := 0
	for cursor.Valid() {
		key := cursor.Key().(types.Key)
		if prev != nil && key.Compare(*prev) < 0 {
			t.Fatalf("cursor visited %q after %q, out of order", key, *prev)
		}
		prev = &key
		count++
		if !cursor.Next() {
			break
		}
	}
	if count != 200 {
		t.Fatalf("cursor visited %d keys, want 200", count)
	}
}

func TestCursor_SeekMissingKeyFindsNext(t *testing.T) {
	tree := NewTree(3)
	tree.Insert(types.Key("b"), "id1")
	tree.Insert(types.Key("d"), "id2")

	cursor := NewCursor(tree)
	defer cursor.Close()
	cursor.Seek(types.Key("c"))

	if !cursor.Valid() {
		t.Fatal("expected Seek('c') to land on the next key 'd'")
	}
	if cursor.Key().(types.Key) != types.Key("d") {
		t.Errorf("Seek('c').Key() = %v, want d", cursor.Key())
	}
}
