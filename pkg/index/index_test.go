package index

import (
	"testing"

	"github.com/Syras206/slimcryptdb/pkg/codec"
	dberrors "github.com/Syras206/slimcryptdb/pkg/errors"
	"github.com/Syras206/slimcryptdb/pkg/table"
)

func plainOptsForIndex() codec.Options {
	return codec.Options{Encrypt: false, Compression: false}
}

func newRow(id, email string) *table.Record {
	rec := table.NewRecord()
	rec.SetID(id)
	rec.Set("email", email)
	return rec
}

func TestIndex_BuildKey_JoinsColumns(t *testing.T) {
	rec := table.NewRecord()
	rec.Set("first", "ada")
	rec.Set("last", "lovelace")

	key := BuildKey(rec, []string{"first", "last"})
	if string(key) != "ada::lovelace" {
		t.Fatalf("BuildKey = %q, want ada::lovelace", key)
	}
}

func TestIndex_UniqueBTree_RejectsDuplicateEmail(t *testing.T) {
	idx := New(Definition{Table: "users", Name: "by_email", Columns: []string{"email"}, Kind: KindBTree, Unique: true})

	if err := idx.Add(newRow("r1", "a@example.com"), "r1"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	err := idx.Add(newRow("r2", "a@example.com"), "r2")
	if dberrors.KindOf(err) != dberrors.KindUnique {
		t.Errorf("KindOf(err) = %q, want %q", dberrors.KindOf(err), dberrors.KindUnique)
	}
}

func TestIndex_Hash_LookupAndRemove(t *testing.T) {
	idx := New(Definition{Table: "users", Name: "by_email", Columns: []string{"email"}, Kind: KindHash})

	if err := idx.Add(newRow("r1", "a@example.com"), "r1"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	ids, ok := idx.Lookup("a@example.com")
	if !ok || len(ids) != 1 || ids[0] != "r1" {
		t.Fatalf("Lookup = %v, %v, want [r1], true", ids, ok)
	}

	if err := idx.Remove(newRow("r1", "a@example.com"), "r1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, ok := idx.Lookup("a@example.com"); ok {
		t.Error("expected key to be gone after removing its only id")
	}
}

func TestIndex_Update_SkipsUnchangedColumn(t *testing.T) {
	idx := New(Definition{Table: "users", Name: "by_email", Columns: []string{"email"}, Kind: KindHash})

	old := newRow("r1", "a@example.com")
	idx.Add(old, "r1")

	unchanged := newRow("r1", "a@example.com")
	unchanged.Set("name", "ada")
	if err := idx.Update(old, unchanged, "r1"); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	ids, ok := idx.Lookup("a@example.com")
	if !ok || len(ids) != 1 {
		t.Fatalf("Lookup after no-op update = %v, %v, want [r1], true", ids, ok)
	}
}

func TestIndex_Update_MovesBucketOnColumnChange(t *testing.T) {
	idx := New(Definition{Table: "users", Name: "by_email", Columns: []string{"email"}, Kind: KindHash})

	old := newRow("r1", "a@example.com")
	idx.Add(old, "r1")

	updated := newRow("r1", "b@example.com")
	if err := idx.Update(old, updated, "r1"); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if _, ok := idx.Lookup("a@example.com"); ok {
		t.Error("old key should no longer resolve after Update")
	}
	ids, ok := idx.Lookup("b@example.com")
	if !ok || len(ids) != 1 || ids[0] != "r1" {
		t.Errorf("Lookup(new key) = %v, %v, want [r1], true", ids, ok)
	}
}

func TestIndex_PersistAndLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	opts := plainOptsForIndex()

	idx := New(Definition{Table: "users", Name: "by_email", Columns: []string{"email"}, Kind: KindHash})
	idx.Add(newRow("r1", "a@example.com"), "r1")

	path := dir + "/users.by_email.idx"
	if err := idx.Persist(opts, path); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	reloaded, err := Load(opts, path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	ids, ok := reloaded.Lookup("a@example.com")
	if !ok || len(ids) != 1 || ids[0] != "r1" {
		t.Fatalf("reloaded Lookup = %v, %v, want [r1], true", ids, ok)
	}
}
