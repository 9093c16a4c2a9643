package index

import (
	"testing"

	dberrors "github.com/Syras206/slimcryptdb/pkg/errors"
	"github.com/Syras206/slimcryptdb/pkg/table"
)

func TestManager_CreateRefusesDuplicateConstraintViolation(t *testing.T) {
	mgr := NewManager(t.TempDir(), plainOptsForIndex())

	rows := []*table.Record{
		newRow("r1", "a@example.com"),
		newRow("r2", "a@example.com"),
	}

	_, err := mgr.Create(Definition{Table: "users", Name: "by_email", Columns: []string{"email"}, Kind: KindHash, Unique: true}, rows)
	if dberrors.KindOf(err) != dberrors.KindUnique {
		t.Fatalf("KindOf(err) = %q, want %q", dberrors.KindOf(err), dberrors.KindUnique)
	}
}

func TestManager_CreateThenMaintainAndLookup(t *testing.T) {
	mgr := NewManager(t.TempDir(), plainOptsForIndex())

	if _, err := mgr.Create(Definition{Table: "users", Name: "by_email", Columns: []string{"email"}, Kind: KindHash, Unique: true}, nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	row := newRow("r1", "a@example.com")
	if err := mgr.MaintainInsert("users", row); err != nil {
		t.Fatalf("MaintainInsert failed: %v", err)
	}

	idx, ok := mgr.Get("users", "by_email")
	if !ok {
		t.Fatal("expected index by_email to exist")
	}
	ids, ok := idx.Lookup("a@example.com")
	if !ok || len(ids) != 1 {
		t.Fatalf("Lookup = %v, %v, want [r1], true", ids, ok)
	}
}

func TestManager_DropRemovesIndex(t *testing.T) {
	mgr := NewManager(t.TempDir(), plainOptsForIndex())
	mgr.Create(Definition{Table: "users", Name: "by_email", Columns: []string{"email"}, Kind: KindHash}, nil)

	if err := mgr.Drop("users", "by_email"); err != nil {
		t.Fatalf("Drop failed: %v", err)
	}
	if _, ok := mgr.Get("users", "by_email"); ok {
		t.Error("expected index to be gone after Drop")
	}
}

func TestManager_TieBreaksOnInsertionOrder(t *testing.T) {
	mgr := NewManager(t.TempDir(), plainOptsForIndex())
	mgr.Create(Definition{Table: "users", Name: "by_email", Columns: []string{"email"}, Kind: KindHash}, nil)
	mgr.Create(Definition{Table: "users", Name: "by_name", Columns: []string{"name"}, Kind: KindHash}, nil)

	indexes := mgr.ForTable("users")
	if len(indexes) != 2 {
		t.Fatalf("got %d indexes, want 2", len(indexes))
	}
	if indexes[0].Def.Name != "by_email" || indexes[1].Def.Name != "by_name" {
		t.Errorf("ForTable order = [%s %s], want insertion order [by_email by_name]",
			indexes[0].Def.Name, indexes[1].Def.Name)
	}
}
