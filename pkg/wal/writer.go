package wal

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Syras206/slimcryptdb/pkg/cryptoengine"
	dberrors "github.com/Syras206/slimcryptdb/pkg/errors"
)

const entryPrefix = "WAL:"

// Writer appends encrypted entries to the active segment, wrapping a
// single append-only file in a mutex and a bufio.Writer.
type Writer struct {
	mu      sync.Mutex
	file    *os.File
	buf     *bufio.Writer
	opts    Options
	path    string
	closed  bool
}

// NewWriter opens (creating if needed) a new segment named
// wal-<ms_timestamp>.log under opts.Dir.
func NewWriter(opts Options, now time.Time) (*Writer, error) {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, &dberrors.IOError{Op: "wal.new_writer", Err: err}
	}

	path := filepath.Join(opts.Dir, fmt.Sprintf("wal-%d.log", now.UnixMilli()))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, &dberrors.IOError{Op: "wal.new_writer", Err: err}
	}

	bufSize := opts.BufferSize
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}

	return &Writer{
		file: f,
		buf:  bufio.NewWriterSize(f, bufSize),
		opts: opts,
		path: path,
	}, nil
}

// Path returns the active segment's file path.
func (w *Writer) Path() string { return w.path }

// Append encrypts and writes one entry as a single "WAL:..." line.
func (w *Writer) Append(entry Entry) error {
	plaintext, err := marshalEntry(entry)
	if err != nil {
		return err
	}

	padded, err := pad(plaintext, w.opts.BlockSize)
	if err != nil {
		return err
	}

	encoded, err := cryptoengine.Encrypt(w.opts.Key, padded)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return &dberrors.StateError{Op: "wal.append", Reason: "writer is closed"}
	}

	if _, err := w.buf.WriteString(entryPrefix); err != nil {
		return &dberrors.IOError{Op: "wal.append", Err: err}
	}
	if _, err := w.buf.WriteString(encoded); err != nil {
		return &dberrors.IOError{Op: "wal.append", Err: err}
	}
	if _, err := w.buf.WriteString("\n"); err != nil {
		return &dberrors.IOError{Op: "wal.append", Err: err}
	}

	if w.opts.SyncWrites {
		return w.syncLocked()
	}
	return nil
}

// Sync flushes the buffer and fsyncs the segment file.
func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.syncLocked()
}

func (w *Writer) syncLocked() error {
	if err := w.buf.Flush(); err != nil {
		return &dberrors.IOError{Op: "wal.sync", Err: err}
	}
	if err := w.file.Sync(); err != nil {
		return &dberrors.IOError{Op: "wal.sync", Err: err}
	}
	return nil
}

// Close flushes, fsyncs and closes the active segment. Idempotent.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return &dberrors.IOError{Op: "wal.close", Err: err}
	}
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return &dberrors.IOError{Op: "wal.close", Err: err}
	}
	return w.file.Close()
}
