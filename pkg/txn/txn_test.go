package txn_test

import (
	"testing"

	dberrors "github.com/Syras206/slimcryptdb/pkg/errors"
	"github.com/Syras206/slimcryptdb/pkg/txn"
)

func TestNew_DefaultsToReadCommitted(t *testing.T) {
	tx, err := txn.New("")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if tx.Isolation != txn.ReadCommitted {
		t.Errorf("Isolation = %q, want %q", tx.Isolation, txn.ReadCommitted)
	}
	if tx.ID == "" {
		t.Error("expected a non-empty transaction id")
	}
}

func TestTransaction_BufferOrderIsPreserved(t *testing.T) {
	tx, _ := txn.New(txn.ReadCommitted)

	ops := []txn.Operation{
		{Kind: txn.OpAdd, Table: "users", ID: "1"},
		{Kind: txn.OpUpdate, Table: "users", ID: "2"},
		{Kind: txn.OpDelete, Table: "users", ID: "3"},
	}
	for _, op := range ops {
		if err := tx.Buffer(op); err != nil {
			t.Fatalf("Buffer failed: %v", err)
		}
	}

	got := tx.Operations()
	if len(got) != 3 {
		t.Fatalf("got %d operations, want 3", len(got))
	}
	for i, op := range ops {
		if got[i].Kind != op.Kind || got[i].ID != op.ID {
			t.Errorf("operation %d = %+v, want %+v", i, got[i], op)
		}
	}
}

func TestTransaction_BufferAfterCommitFails(t *testing.T) {
	tx, _ := txn.New(txn.ReadCommitted)
	if err := tx.MarkCommitted(); err != nil {
		t.Fatalf("MarkCommitted failed: %v", err)
	}

	err := tx.Buffer(txn.Operation{Kind: txn.OpAdd, Table: "users"})
	if dberrors.KindOf(err) != dberrors.KindState {
		t.Errorf("KindOf(err) = %q, want %q", dberrors.KindOf(err), dberrors.KindState)
	}
}

func TestTransaction_DoubleFinishFails(t *testing.T) {
	tx, _ := txn.New(txn.ReadCommitted)
	if err := tx.MarkCommitted(); err != nil {
		t.Fatalf("first MarkCommitted failed: %v", err)
	}
	if err := tx.MarkRolledBack(); err == nil {
		t.Error("expected an error rolling back an already-committed transaction")
	}
}

func TestRegistry_StartGetForget(t *testing.T) {
	reg := txn.NewRegistry()

	tx, err := reg.Start(txn.ReadCommitted)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	got, err := reg.Get(tx.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != tx {
		t.Error("Get returned a different transaction instance")
	}

	reg.Forget(tx.ID)
	if _, err := reg.Get(tx.ID); dberrors.KindOf(err) != dberrors.KindTxnNotFound {
		t.Errorf("KindOf(err) after Forget = %q, want %q", dberrors.KindOf(err), dberrors.KindTxnNotFound)
	}
}

func TestRegistry_GetUnknownIsNotFound(t *testing.T) {
	reg := txn.NewRegistry()
	_, err := reg.Get("does-not-exist")
	if dberrors.KindOf(err) != dberrors.KindTxnNotFound {
		t.Errorf("KindOf(err) = %q, want %q", dberrors.KindOf(err), dberrors.KindTxnNotFound)
	}
}
