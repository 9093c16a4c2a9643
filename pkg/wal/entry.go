// Package wal implements an append-only, encrypted write-ahead log with
// crash recovery. Every mutating engine operation appends one entry
// before it touches a table file; recovery replays entries that were
// logged but never reflected in a table rewrite.
package wal

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// OperationKind is the WAL's Operation variant tag.
type OperationKind string

const (
	OpCreateTable OperationKind = "create_table"
	OpDeleteTable OperationKind = "delete_table"
	OpWrite       OperationKind = "write"
)

// Operation is the payload of a WAL entry: one of create_table,
// delete_table, or write(table, rows).
type Operation struct {
	Kind   OperationKind     `json:"kind"`
	Table  string            `json:"table"`
	Schema json.RawMessage   `json:"schema,omitempty"`
	Rows   []json.RawMessage `json:"rows,omitempty"`
}

// Entry is one WAL record: {sequence, timestamp_ms, operation, checksum}.
type Entry struct {
	Sequence    uint64        `json:"sequence"`
	TimestampMS int64         `json:"timestamp_ms"`
	Operation   Operation     `json:"operation"`
	Checksum    string        `json:"checksum"`
}

// NewEntry builds an entry with its checksum populated as
// hex(sha256(operation)).
func NewEntry(sequence uint64, now time.Time, op Operation) (Entry, error) {
	opBytes, err := json.Marshal(op)
	if err != nil {
		return Entry{}, err
	}
	sum := sha256.Sum256(opBytes)
	return Entry{
		Sequence:    sequence,
		TimestampMS: now.UnixMilli(),
		Operation:   op,
		Checksum:    hex.EncodeToString(sum[:]),
	}, nil
}

// marshalEntry serializes the full entry (not just the operation) to the
// UTF-8 JSON that gets padded and encrypted.
func marshalEntry(e Entry) ([]byte, error) {
	return json.Marshal(e)
}

// VerifyChecksum reports whether e.Checksum matches sha256(e.Operation).
func (e Entry) VerifyChecksum() bool {
	opBytes, err := json.Marshal(e.Operation)
	if err != nil {
		return false
	}
	sum := sha256.Sum256(opBytes)
	return e.Checksum == hex.EncodeToString(sum[:])
}
