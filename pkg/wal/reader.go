package wal

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/Syras206/slimcryptdb/pkg/cryptoengine"
	dberrors "github.com/Syras206/slimcryptdb/pkg/errors"
)

// Reader reads entries sequentially from a single segment file.
type Reader struct {
	file    *os.File
	scanner *bufio.Scanner
}

// NewReader opens an existing segment for sequential reading.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &dberrors.IOError{Op: "wal.new_reader", Err: err}
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)
	return &Reader{file: f, scanner: scanner}, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error { return r.file.Close() }

// ReadLine returns the next raw "WAL:..." line, or io.EOF when the
// segment is exhausted. Reader does not decrypt; ReadEntry does.
func (r *Reader) ReadLine() (string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", &dberrors.IOError{Op: "wal.read_line", Err: err}
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

// ReadEntry reads, decrypts, unpads and checksum-verifies the next entry.
// Returns io.EOF when the segment is exhausted.
func (r *Reader) ReadEntry(key []byte) (Entry, error) {
	line, err := r.ReadLine()
	if err != nil {
		return Entry{}, err
	}
	return DecodeLine(key, line)
}

// DecodeLine decrypts and parses a single raw WAL line into an Entry,
// verifying its checksum. Exposed standalone so recovery can report a
// per-entry failure (with a short preview of the offending line) without
// aborting the whole segment.
func DecodeLine(key []byte, line string) (Entry, error) {
	if !strings.HasPrefix(line, entryPrefix) {
		return Entry{}, &dberrors.FormatError{Op: "wal.decode_line", Reason: "missing WAL: prefix"}
	}
	encoded := strings.TrimPrefix(line, entryPrefix)

	padded, err := cryptoengine.Decrypt(key, encoded)
	if err != nil {
		return Entry{}, err
	}

	plaintext, err := unpad(padded)
	if err != nil {
		return Entry{}, err
	}

	var entry Entry
	if err := json.Unmarshal(plaintext, &entry); err != nil {
		return Entry{}, &dberrors.FormatError{Op: "wal.decode_line", Reason: err.Error()}
	}

	if !entry.VerifyChecksum() {
		return Entry{}, &dberrors.IntegrityError{Op: "wal.decode_line", Reason: "checksum mismatch"}
	}

	return entry, nil
}

// Preview returns a short, secret-free prefix of line for recovery
// summaries.
func Preview(line string) string {
	const maxLen = 48
	if len(line) <= maxLen {
		return line
	}
	return line[:maxLen] + "..."
}
