// Package txn implements the transaction manager. Operations are
// buffered against an in-memory transaction and only touch tables,
// indexes and the WAL at commit, in the order they were buffered.
package txn

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	dberrors "github.com/Syras206/slimcryptdb/pkg/errors"
)

// IsolationLevel names the transaction's visibility contract. The level
// is recorded on the transaction but does not change execution: writes
// to a table are serialized by its exclusive table lock whatever level
// was declared.
type IsolationLevel string

const (
	ReadCommitted  IsolationLevel = "READ_COMMITTED"
	Serializable   IsolationLevel = "SERIALIZABLE"
	ReadUncommitted IsolationLevel = "READ_UNCOMMITTED"
)

// OpKind is the tag of one buffered operation.
type OpKind string

const (
	OpAdd          OpKind = "add"
	OpUpdate       OpKind = "update"
	OpDelete       OpKind = "delete"
	OpCreateTable  OpKind = "create_table"
	OpDeleteTable  OpKind = "delete_table"
	OpWrite        OpKind = "write"
)

// Operation is one buffered mutation, one of the variant set:
// {add(table, row), update(table, id, new_row, old_row),
//  delete(table, id, old_row), create_table(table, schema),
//  delete_table(table), write(table, rows)}.
type Operation struct {
	Kind    OpKind
	Table   string
	ID      string
	NewRow  json.RawMessage
	OldRow  json.RawMessage
	Schema  json.RawMessage
	Rows    []json.RawMessage
}

// status is a transaction's position in start -> buffer -> (commit | rollback).
type status int

const (
	statusActive status = iota
	statusCommitted
	statusRolledBack
)

// Transaction buffers operations and the table locks acquired to perform
// them; it is never resumed once it reaches a terminal status.
type Transaction struct {
	ID        string
	Isolation IsolationLevel

	mu         sync.Mutex
	status     status
	buffer     []Operation
	lockedTabs map[string]bool // tables this txn currently holds the exclusive lock for
}

// New starts a fresh transaction. Default isolation is READ_COMMITTED.
func New(isolation IsolationLevel) (*Transaction, error) {
	if isolation == "" {
		isolation = ReadCommitted
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, &dberrors.IOError{Op: "txn.new", Err: err}
	}
	return &Transaction{
		ID:         id.String(),
		Isolation:  isolation,
		lockedTabs: make(map[string]bool),
	}, nil
}

// Buffer appends op to the transaction's operation log. Returns
// STATE_ERROR if the transaction already reached a terminal status.
func (tx *Transaction) Buffer(op Operation) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.status != statusActive {
		return &dberrors.StateError{Op: "txn.buffer", Reason: "transaction is no longer active"}
	}
	tx.buffer = append(tx.buffer, op)
	return nil
}

// Operations returns the buffered operations in buffer order, the order
// commit must apply them in.
func (tx *Transaction) Operations() []Operation {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	out := make([]Operation, len(tx.buffer))
	copy(out, tx.buffer)
	return out
}

// MarkTableLocked records that this transaction currently holds table's
// exclusive lock, so commit/rollback knows what to release.
func (tx *Transaction) MarkTableLocked(table string) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.lockedTabs[table] = true
}

// LockedTables returns every table this transaction has acquired a lock
// for, in no particular order.
func (tx *Transaction) LockedTables() []string {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	out := make([]string, 0, len(tx.lockedTabs))
	for table := range tx.lockedTabs {
		out = append(out, table)
	}
	return out
}

// Finish transitions the transaction to a terminal status. Returns
// STATE_ERROR if already terminal.
func (tx *Transaction) finish(to status) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.status != statusActive {
		return &dberrors.StateError{Op: "txn.finish", Reason: "transaction already finished"}
	}
	tx.status = to
	return nil
}

// MarkCommitted transitions the transaction to committed.
func (tx *Transaction) MarkCommitted() error { return tx.finish(statusCommitted) }

// MarkRolledBack transitions the transaction to rolled back. Rollback is
// a pure in-memory discard of the buffer; nothing on disk is touched
// because nothing was written there yet.
func (tx *Transaction) MarkRolledBack() error { return tx.finish(statusRolledBack) }

// IsActive reports whether the transaction can still buffer operations.
func (tx *Transaction) IsActive() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.status == statusActive
}

// Registry tracks in-flight transactions by id so the engine can look one
// up by the id it handed back from Start.
type Registry struct {
	mu   sync.Mutex
	byID map[string]*Transaction
}

// NewRegistry returns an empty transaction registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Transaction)}
}

// Start begins a new transaction and registers it.
func (r *Registry) Start(isolation IsolationLevel) (*Transaction, error) {
	tx, err := New(isolation)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.byID[tx.ID] = tx
	r.mu.Unlock()
	return tx, nil
}

// Get looks up a transaction by id, returning TXN_NOT_FOUND if unknown.
func (r *Registry) Get(id string) (*Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.byID[id]
	if !ok {
		return nil, &dberrors.TxnNotFoundError{ID: id}
	}
	return tx, nil
}

// Forget removes a transaction from the registry once it reaches a
// terminal status.
func (r *Registry) Forget(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}
