// Package slimcryptdb implements the top-level engine facade: lifecycle,
// wiring of every component (crypto, codec, WAL, tables, indexes, locks,
// transactions, query, schema, checkpoint, events), and the CRUD,
// transaction and query entry points the rest of the engine is built
// from.
package slimcryptdb

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Syras206/slimcryptdb/pkg/checkpoint"
	"github.com/Syras206/slimcryptdb/pkg/codec"
	"github.com/Syras206/slimcryptdb/pkg/config"
	"github.com/Syras206/slimcryptdb/pkg/cryptoengine"
	dberrors "github.com/Syras206/slimcryptdb/pkg/errors"
	"github.com/Syras206/slimcryptdb/pkg/events"
	"github.com/Syras206/slimcryptdb/pkg/index"
	"github.com/Syras206/slimcryptdb/pkg/lock"
	"github.com/Syras206/slimcryptdb/pkg/logging"
	"github.com/Syras206/slimcryptdb/pkg/query"
	"github.com/Syras206/slimcryptdb/pkg/schema"
	"github.com/Syras206/slimcryptdb/pkg/table"
	"github.com/Syras206/slimcryptdb/pkg/txn"
	"github.com/Syras206/slimcryptdb/pkg/wal"
)

// lifecycle is the engine's position in initializing -> ready -> closing
// -> closed. Never resumed once closing.
type lifecycle int32

const (
	stateInitializing lifecycle = iota
	stateReady
	stateClosing
	stateClosed
)

// Engine is the top-level handle to one database directory: every
// component, the master key and derived WAL key, and the background
// checkpoint task.
type Engine struct {
	dir  string
	opts config.Options

	masterKey []byte
	walKey    []byte
	walSalt   []byte

	tables      *table.Store
	indexes     *index.Manager
	locks       *lock.Manager
	txns        *txn.Registry
	wal         *wal.Writer
	checkpoints *checkpoint.Manager
	events      *events.Registry

	logger        *slog.Logger
	loggerCleanup func()

	seq uint64 // WAL sequence counter, advanced with atomic.AddUint64

	mu       sync.RWMutex
	state    lifecycle
	ready    chan struct{}
	recovery wal.RecoveryResult
}

// Open opens (or creates) a database directory under a master key and
// configuration, replays its WAL if one exists, and brings the engine to
// ready. Recovery runs to completion before Open returns.
func Open(dir string, masterKey []byte, opts config.Options) (*Engine, error) {
	logger, loggerCleanup := logging.New(logging.Options{Level: slog.LevelInfo, SeqAddr: opts.SeqAddr})

	if err := os.MkdirAll(dir, 0o755); err != nil {
		loggerCleanup()
		return nil, &dberrors.IOError{Op: "engine.open", Err: err}
	}

	e := &Engine{
		dir:           dir,
		opts:          opts,
		masterKey:     append([]byte(nil), masterKey...),
		logger:        logger,
		loggerCleanup: loggerCleanup,
		ready:         make(chan struct{}),
	}

	codecOpts := codec.Options{Encrypt: opts.Encrypt, Compression: opts.Compression, Key: e.masterKey}
	e.tables = table.NewStore(dir, codecOpts)
	e.indexes = index.NewManager(filepath.Join(dir, "indexes"), codecOpts)
	e.locks = lock.NewManager()
	e.txns = txn.NewRegistry()
	e.events = events.NewRegistry(logger)

	walDir := filepath.Join(dir, "wal")
	var flusher checkpoint.Flusher

	if opts.WALEnabled {
		// The WAL's own entries are always AEAD-sealed regardless of the
		// table/index-level "encrypt" flag (that flag only controls the
		// codec's cleartext-fallback mode for table and index files), so
		// a WAL key is always derived whenever the WAL itself is enabled.
		salt, err := loadOrCreateSalt(filepath.Join(walDir, ".salt"))
		if err != nil {
			loggerCleanup()
			return nil, err
		}
		key, err := cryptoengine.DeriveWALKey(e.masterKey, salt)
		if err != nil {
			loggerCleanup()
			return nil, err
		}
		e.walSalt, e.walKey = salt, key

		if err := e.loadExistingIndexes(); err != nil {
			loggerCleanup()
			return nil, err
		}

		result, err := wal.Recover(walDir, e.walKey)
		if err != nil {
			loggerCleanup()
			return nil, err
		}
		e.recovery = result
		if err := e.replay(result); err != nil {
			loggerCleanup()
			return nil, err
		}

		writer, err := wal.NewWriter(wal.Options{
			Dir:        walDir,
			Key:        e.walKey,
			SyncWrites: opts.SyncWrites,
			BlockSize:  opts.WALPaddingSize,
		}, time.Now())
		if err != nil {
			loggerCleanup()
			return nil, err
		}
		e.wal = writer
		flusher = writer
	} else if err := e.loadExistingIndexes(); err != nil {
		loggerCleanup()
		return nil, err
	}

	e.checkpoints = checkpoint.NewManager(walDir, flusher, checkpoint.Options{
		Retention:  wal.DefaultRetention,
		Interval:   opts.CheckpointIntervalDuration(),
		MaxWalSize: opts.MaxWalSize,
	})
	e.checkpoints.Start()

	e.mu.Lock()
	e.state = stateReady
	e.mu.Unlock()
	close(e.ready)

	logger.Info("engine opened", "dir", dir, "recoveredEntries", len(e.recovery.Entries), "recoveryFailures", len(e.recovery.Summary))
	return e, nil
}

// Close cancels the checkpoint scheduler, runs a final checkpoint (which
// flushes the WAL), closes the WAL, and zeroizes every key buffer the
// engine owns. Idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.state == stateClosing || e.state == stateClosed {
		e.mu.Unlock()
		return nil
	}
	e.state = stateClosing
	e.mu.Unlock()

	if e.checkpoints != nil {
		e.checkpoints.Stop()
		_ = e.checkpoints.Run(time.Now())
	}
	if e.wal != nil {
		_ = e.wal.Close()
	}
	if e.loggerCleanup != nil {
		e.loggerCleanup()
	}

	cryptoengine.Zeroize(e.masterKey)
	cryptoengine.Zeroize(e.walKey)
	cryptoengine.Zeroize(e.walSalt)

	e.mu.Lock()
	e.state = stateClosed
	e.mu.Unlock()
	return nil
}

// WALRecoverySummary returns the per-entry diagnostic record produced by
// the recovery pass Open ran, for callers that want to inspect what
// failed to replay.
func (e *Engine) WALRecoverySummary() []wal.RecoveryRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.recovery.Summary
}

// OnEvent registers handler for one of the engine's named events
// (add, update, delete, createTable, deleteTable, createIndex,
// commitTransaction, rollbackTransaction).
func (e *Engine) OnEvent(name events.Name, handler events.Handler) {
	e.events.On(name, handler)
}

// awaitReady blocks until initializing has completed, then reports
// whether the engine is still usable.
func (e *Engine) awaitReady() error {
	<-e.ready
	e.mu.RLock()
	state := e.state
	e.mu.RUnlock()
	if state == stateClosing || state == stateClosed {
		return &dberrors.StateError{Op: "engine", Reason: "engine is closed"}
	}
	return nil
}

func loadOrCreateSalt(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return data, nil
	}
	if !os.IsNotExist(err) {
		return nil, &dberrors.IOError{Op: "engine.load_salt", Err: err}
	}
	salt, err := cryptoengine.GenerateSalt(32)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &dberrors.IOError{Op: "engine.load_salt", Err: err}
	}
	if err := os.WriteFile(path, salt, 0o600); err != nil {
		return nil, &dberrors.IOError{Op: "engine.load_salt", Err: err}
	}
	return salt, nil
}

// loadExistingIndexes discovers every "<table>.<name>.idx" file under
// the database's indexes directory and loads it, grouped by table. There
// is no separate manifest; the filename is the only record of which
// indexes exist.
func (e *Engine) loadExistingIndexes() error {
	indexDir := filepath.Join(e.dir, "indexes")
	entries, err := os.ReadDir(indexDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return &dberrors.IOError{Op: "engine.load_indexes", Err: err}
	}

	byTable := make(map[string][]string)
	for _, f := range entries {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".idx") {
			continue
		}
		trimmed := strings.TrimSuffix(f.Name(), ".idx")
		parts := strings.SplitN(trimmed, ".", 2)
		if len(parts) != 2 {
			continue
		}
		byTable[parts[0]] = append(byTable[parts[0]], parts[1])
	}

	for tableName, names := range byTable {
		if err := e.indexes.LoadTable(tableName, names); err != nil {
			return err
		}
	}
	return nil
}

// replay applies every recovered WAL entry to the in-memory tables (and,
// for tables a write touched, rebuilds their indexes from the replayed
// row set), bringing the store to the last intent-logged state before
// the engine becomes ready.
func (e *Engine) replay(result wal.RecoveryResult) error {
	touched := make(map[string]bool)

	for _, entry := range result.Entries {
		switch entry.Operation.Kind {
		case wal.OpCreateTable:
			if !e.tables.Exists(entry.Operation.Table) {
				if _, err := e.tables.Create(entry.Operation.Table, entry.Operation.Schema); err != nil {
					return err
				}
			}

		case wal.OpDeleteTable:
			_ = e.tables.Drop(entry.Operation.Table)
			_ = e.indexes.DropTable(entry.Operation.Table)
			delete(touched, entry.Operation.Table)

		case wal.OpWrite:
			tbl, err := e.tables.Get(entry.Operation.Table)
			if err != nil {
				if dberrors.KindOf(err) != dberrors.KindNotFound {
					return err
				}
				tbl = table.NewTable(entry.Operation.Table, nil)
			}
			rows := make([]*table.Record, 0, len(entry.Operation.Rows))
			for _, raw := range entry.Operation.Rows {
				rec, err := newRecordFromRaw(raw)
				if err != nil {
					return err
				}
				rows = append(rows, rec)
			}
			tbl.Rows = rows
			if err := e.tables.Persist(tbl); err != nil {
				return err
			}
			touched[entry.Operation.Table] = true
		}
	}

	for tableName := range touched {
		tbl, err := e.tables.Get(tableName)
		if err != nil {
			continue
		}
		defs := e.indexes.Definitions(tableName)
		for _, def := range defs {
			_ = e.indexes.Drop(tableName, def.Name)
		}
		for _, def := range defs {
			if _, err := e.indexes.Create(def, tbl.Rows); err != nil {
				return err
			}
		}
	}
	return nil
}

// CreateTable registers a new table, optionally under a declared schema.
// txnID is an existing transaction to buffer this under; empty runs it
// as its own implicit transaction.
func (e *Engine) CreateTable(tableName string, schemaDef map[string]any, txnID string) error {
	if err := e.awaitReady(); err != nil {
		return err
	}

	var schemaRaw json.RawMessage
	if schemaDef != nil {
		raw, err := json.Marshal(schemaDef)
		if err != nil {
			return &dberrors.FormatError{Op: "engine.create_table", Reason: err.Error()}
		}
		schemaRaw = raw
	}

	op := txn.Operation{Kind: txn.OpCreateTable, Table: tableName, Schema: schemaRaw}
	return e.withTransaction(txnID, tableName, op)
}

// DeleteTable drops a table and every index it owns.
func (e *Engine) DeleteTable(tableName, txnID string) error {
	if err := e.awaitReady(); err != nil {
		return err
	}
	op := txn.Operation{Kind: txn.OpDeleteTable, Table: tableName}
	return e.withTransaction(txnID, tableName, op)
}

// CreateIndex builds a new index over an existing table's current rows.
// Index administration is not a buffered transaction operation; it takes
// effect immediately, under the table's exclusive lock.
func (e *Engine) CreateIndex(def index.Definition) error {
	if err := e.awaitReady(); err != nil {
		return err
	}

	owner := "index-admin:" + def.Name
	if err := e.locks.Acquire(def.Table, owner, e.opts.LockTimeoutDuration()); err != nil {
		return err
	}
	defer e.locks.Release(def.Table, owner)

	tbl, err := e.tables.Get(def.Table)
	if err != nil {
		return err
	}
	if _, err := e.indexes.Create(def, tbl.Rows); err != nil {
		return err
	}
	e.events.Emit(events.CreateIndex, map[string]any{"table": def.Table, "index": def.Name})
	return nil
}

// DropIndex removes a named index from a table.
func (e *Engine) DropIndex(tableName, indexName string) error {
	if err := e.awaitReady(); err != nil {
		return err
	}
	return e.indexes.Drop(tableName, indexName)
}

// AddData inserts row into tableName, assigning a fresh id when the
// caller did not supply one, and returns the id that was written.
func (e *Engine) AddData(tableName string, row map[string]any, txnID string) (string, error) {
	if err := e.awaitReady(); err != nil {
		return "", err
	}

	raw, err := json.Marshal(row)
	if err != nil {
		return "", &dberrors.FormatError{Op: "engine.add_data", Reason: err.Error()}
	}
	rec, err := newRecordFromRaw(raw)
	if err != nil {
		return "", err
	}
	if rec.ID() == "" {
		id, err := table.GenerateID()
		if err != nil {
			return "", err
		}
		rec.SetID(id)
	}
	newRaw, err := rec.MarshalJSON()
	if err != nil {
		return "", &dberrors.FormatError{Op: "engine.add_data", Reason: err.Error()}
	}

	op := txn.Operation{Kind: txn.OpAdd, Table: tableName, ID: rec.ID(), NewRow: newRaw}
	if err := e.withTransaction(txnID, tableName, op); err != nil {
		return "", err
	}
	return rec.ID(), nil
}

// UpdateData replaces the row identified by id with newRow.
func (e *Engine) UpdateData(tableName, id string, newRow map[string]any, txnID string) error {
	if err := e.awaitReady(); err != nil {
		return err
	}

	raw, err := json.Marshal(newRow)
	if err != nil {
		return &dberrors.FormatError{Op: "engine.update_data", Reason: err.Error()}
	}
	rec, err := newRecordFromRaw(raw)
	if err != nil {
		return err
	}
	rec.SetID(id)
	newRaw, err := rec.MarshalJSON()
	if err != nil {
		return &dberrors.FormatError{Op: "engine.update_data", Reason: err.Error()}
	}

	op := txn.Operation{Kind: txn.OpUpdate, Table: tableName, ID: id, NewRow: newRaw}
	return e.withTransaction(txnID, tableName, op)
}

// DeleteData removes the row identified by id from tableName.
func (e *Engine) DeleteData(tableName, id, txnID string) error {
	if err := e.awaitReady(); err != nil {
		return err
	}
	op := txn.Operation{Kind: txn.OpDelete, Table: tableName, ID: id}
	return e.withTransaction(txnID, tableName, op)
}

// WriteRows replaces the entire row sequence of tableName in one
// operation (the "write" variant the transaction log's Operation
// supports alongside add/update/delete), rebuilding every index the
// table owns from the new rows.
func (e *Engine) WriteRows(tableName string, rows []map[string]any, txnID string) error {
	if err := e.awaitReady(); err != nil {
		return err
	}

	rawRows := make([]json.RawMessage, len(rows))
	for i, r := range rows {
		raw, err := json.Marshal(r)
		if err != nil {
			return &dberrors.FormatError{Op: "engine.write_rows", Reason: err.Error()}
		}
		rawRows[i] = raw
	}

	op := txn.Operation{Kind: txn.OpWrite, Table: tableName, Rows: rawRows}
	return e.withTransaction(txnID, tableName, op)
}

// StartTransaction begins a new transaction and returns its id.
func (e *Engine) StartTransaction(level txn.IsolationLevel) (string, error) {
	if err := e.awaitReady(); err != nil {
		return "", err
	}
	tx, err := e.txns.Start(level)
	if err != nil {
		return "", err
	}
	return tx.ID, nil
}

// CommitTransaction applies every operation id buffered, in buffer
// order, then releases its locks. An operation failing mid-commit rolls
// the whole transaction back and returns that error.
func (e *Engine) CommitTransaction(id string) error {
	if err := e.awaitReady(); err != nil {
		return err
	}
	tx, err := e.txns.Get(id)
	if err != nil {
		return err
	}

	ops := tx.Operations()
	for _, op := range ops {
		if err := e.commitOperation(op); err != nil {
			e.rollbackTxn(tx)
			return err
		}
	}

	if err := tx.MarkCommitted(); err != nil {
		return err
	}
	e.releaseTxnLocks(tx)
	e.txns.Forget(tx.ID)
	e.events.Emit(events.CommitTransaction, map[string]any{"transactionId": tx.ID})
	e.checkpoints.TriggerIfOversized(int64(len(ops)))
	return nil
}

// RollbackTransaction discards a transaction's buffer without applying
// any of it, the pure in-memory drop spec 4.7 describes (effects are
// only ever applied on commit).
func (e *Engine) RollbackTransaction(id string) error {
	if err := e.awaitReady(); err != nil {
		return err
	}
	tx, err := e.txns.Get(id)
	if err != nil {
		return err
	}
	e.rollbackTxn(tx)
	return nil
}

func (e *Engine) rollbackTxn(tx *txn.Transaction) {
	_ = tx.MarkRolledBack()
	e.releaseTxnLocks(tx)
	e.txns.Forget(tx.ID)
	e.events.Emit(events.RollbackTransaction, map[string]any{"transactionId": tx.ID})
}

func (e *Engine) releaseTxnLocks(tx *txn.Transaction) {
	for _, tableName := range tx.LockedTables() {
		_ = e.locks.Release(tableName, tx.ID)
	}
}

// withTransaction buffers op under txnID, acquiring tableName's lock
// first. An empty txnID opens a fresh transaction, buffers, and commits
// it immediately (the implicit-transaction path the CRUD entry points
// use when the caller doesn't supply one).
func (e *Engine) withTransaction(txnID, tableName string, op txn.Operation) error {
	if txnID != "" {
		tx, err := e.txns.Get(txnID)
		if err != nil {
			return err
		}
		if err := e.lockTableForTxn(tx, tableName); err != nil {
			return err
		}
		return tx.Buffer(op)
	}

	tx, err := e.txns.Start(txn.ReadCommitted)
	if err != nil {
		return err
	}
	if err := e.lockTableForTxn(tx, tableName); err != nil {
		e.txns.Forget(tx.ID)
		return err
	}
	if err := tx.Buffer(op); err != nil {
		e.rollbackTxn(tx)
		return err
	}
	return e.CommitTransaction(tx.ID)
}

func (e *Engine) lockTableForTxn(tx *txn.Transaction, tableName string) error {
	if err := e.locks.Acquire(tableName, tx.ID, e.opts.LockTimeoutDuration()); err != nil {
		return err
	}
	tx.MarkTableLocked(tableName)
	return nil
}

// commitOperation dispatches one buffered operation to its apply path.
func (e *Engine) commitOperation(op txn.Operation) error {
	switch op.Kind {
	case txn.OpCreateTable:
		return e.applyCreateTable(op.Table, op.Schema)
	case txn.OpDeleteTable:
		return e.applyDeleteTable(op.Table)
	case txn.OpAdd, txn.OpUpdate, txn.OpDelete:
		return e.applyRowMutation(op)
	case txn.OpWrite:
		return e.applyWriteRows(op)
	}
	return &dberrors.StateError{Op: "engine.commit", Reason: fmt.Sprintf("unrecognized operation kind %q", op.Kind)}
}

func (e *Engine) applyCreateTable(tableName string, schemaRaw json.RawMessage) error {
	if err := e.appendWALOp(wal.Operation{Kind: wal.OpCreateTable, Table: tableName, Schema: schemaRaw}); err != nil {
		return err
	}
	if _, err := e.tables.Create(tableName, schemaRaw); err != nil {
		return err
	}
	e.events.Emit(events.CreateTable, map[string]any{"table": tableName})
	return nil
}

func (e *Engine) applyDeleteTable(tableName string) error {
	if err := e.appendWALOp(wal.Operation{Kind: wal.OpDeleteTable, Table: tableName}); err != nil {
		return err
	}
	if err := e.tables.Drop(tableName); err != nil {
		return err
	}
	if err := e.indexes.DropTable(tableName); err != nil {
		return err
	}
	e.events.Emit(events.DeleteTable, map[string]any{"table": tableName})
	return nil
}

// applyRowMutation resolves an add/update/delete against a copy of the
// table's row sequence, validating schema and maintaining indexes before
// anything is logged or persisted, so a failure at any step leaves the
// table and its indexes exactly as they were.
func (e *Engine) applyRowMutation(op txn.Operation) error {
	tbl, err := e.tables.Get(op.Table)
	if err != nil {
		return err
	}

	rows := append([]*table.Record(nil), tbl.Rows...)
	var newRec, oldRec *table.Record
	var eventName events.Name

	switch op.Kind {
	case txn.OpAdd:
		if err := validateRow(tbl.Schema, op.NewRow); err != nil {
			return err
		}
		rec, err := newRecordFromRaw(op.NewRow)
		if err != nil {
			return err
		}
		if err := e.indexes.MaintainInsert(op.Table, rec); err != nil {
			return err
		}
		rows = append(rows, rec)
		newRec = rec
		eventName = events.Add

	case txn.OpUpdate:
		existing, i, err := tbl.FindByID(op.ID)
		if err != nil {
			return err
		}
		oldRec = existing
		if err := validateRow(tbl.Schema, op.NewRow); err != nil {
			return err
		}
		rec, err := newRecordFromRaw(op.NewRow)
		if err != nil {
			return err
		}
		rec.SetID(op.ID)
		if err := e.indexes.MaintainUpdate(op.Table, oldRec, rec); err != nil {
			return err
		}
		rows[i] = rec
		newRec = rec
		eventName = events.Update

	case txn.OpDelete:
		existing, i, err := tbl.FindByID(op.ID)
		if err != nil {
			return err
		}
		oldRec = existing
		if err := e.indexes.MaintainDelete(op.Table, existing); err != nil {
			return err
		}
		rows = append(rows[:i], rows[i+1:]...)
		eventName = events.Delete
	}

	if err := e.appendWALWrite(op.Table, rows); err != nil {
		return err
	}

	tbl.Rows = rows
	if err := e.tables.Persist(tbl); err != nil {
		return err
	}
	if err := e.indexes.Persist(op.Table); err != nil {
		return err
	}

	payload := map[string]any{"table": op.Table, "id": op.ID}
	if newRec != nil {
		payload["row"] = newRec
	}
	if oldRec != nil {
		payload["oldRow"] = oldRec
	}
	e.events.Emit(eventName, payload)
	return nil
}

func (e *Engine) applyWriteRows(op txn.Operation) error {
	rows := make([]*table.Record, 0, len(op.Rows))
	for _, raw := range op.Rows {
		rec, err := newRecordFromRaw(raw)
		if err != nil {
			return err
		}
		rows = append(rows, rec)
	}

	tbl, err := e.tables.Get(op.Table)
	if err != nil {
		return err
	}
	if tbl.Schema != nil {
		for _, raw := range op.Rows {
			if err := validateRow(tbl.Schema, raw); err != nil {
				return err
			}
		}
	}

	if err := e.appendWALWrite(op.Table, rows); err != nil {
		return err
	}

	tbl.Rows = rows
	if err := e.tables.Persist(tbl); err != nil {
		return err
	}

	defs := e.indexes.Definitions(op.Table)
	for _, def := range defs {
		_ = e.indexes.Drop(op.Table, def.Name)
	}
	for _, def := range defs {
		if _, err := e.indexes.Create(def, rows); err != nil {
			return err
		}
	}

	e.events.Emit(events.Add, map[string]any{"table": op.Table, "count": len(rows)})
	return nil
}

// appendWALWrite logs the table's full post-operation row set as a
// single write intent, the unit recovery replays.
func (e *Engine) appendWALWrite(tableName string, rows []*table.Record) error {
	rawRows := make([]json.RawMessage, len(rows))
	for i, r := range rows {
		raw, err := r.MarshalJSON()
		if err != nil {
			return err
		}
		rawRows[i] = raw
	}
	return e.appendWALOp(wal.Operation{Kind: wal.OpWrite, Table: tableName, Rows: rawRows})
}

func (e *Engine) appendWALOp(op wal.Operation) error {
	if e.wal == nil {
		return nil
	}
	seq := atomic.AddUint64(&e.seq, 1)
	entry, err := wal.NewEntry(seq, time.Now(), op)
	if err != nil {
		return err
	}
	return e.wal.Append(entry)
}

func newRecordFromRaw(raw json.RawMessage) (*table.Record, error) {
	rec := table.NewRecord()
	if err := rec.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	return rec, nil
}

func validateRow(schemaRaw json.RawMessage, raw json.RawMessage) error {
	s, err := schema.Parse(schemaRaw)
	if err != nil {
		return err
	}
	if s == nil {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return &dberrors.FormatError{Op: "engine.validate", Reason: err.Error()}
	}
	return schema.Validate(s, v)
}

// Query runs q against tableName's current rows, loading the join
// table's rows first when q.Join is set.
func (e *Engine) Query(tableName string, q *query.Query) ([]*table.Record, error) {
	if err := e.awaitReady(); err != nil {
		return nil, err
	}

	tbl, err := e.tables.Get(tableName)
	if err != nil {
		return nil, err
	}

	var joined []*table.Record
	if q.Join != nil {
		joinedTbl, err := e.tables.Get(q.Join.Table)
		if err != nil {
			return nil, err
		}
		joined = joinedTbl.Rows
	}

	return query.Execute(tbl.Rows, e.indexes.ForTable(tableName), q, joined)
}
