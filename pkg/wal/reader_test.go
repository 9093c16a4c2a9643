package wal

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/Syras206/slimcryptdb/pkg/cryptoengine"
	dberrors "github.com/Syras206/slimcryptdb/pkg/errors"
)

func writeEntries(t *testing.T, opts Options, now time.Time, ops []Operation) *Writer {
	t.Helper()
	w, err := NewWriter(opts, now)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	for i, op := range ops {
		entry, err := NewEntry(uint64(i+1), now, op)
		if err != nil {
			t.Fatalf("NewEntry failed: %v", err)
		}
		if err := w.Append(entry); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	return w
}

func TestReader_RoundTrip(t *testing.T) {
	opts := testOptions(t)
	now := time.Now()
	ops := []Operation{
		{Kind: OpCreateTable, Table: "users"},
		{Kind: OpWrite, Table: "users", Rows: nil},
	}
	w := writeEntries(t, opts, now, ops)
	defer w.Close()
	w.Sync()

	r, err := NewReader(w.Path())
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	var got []Entry
	for {
		entry, err := r.ReadEntry(opts.Key)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadEntry failed: %v", err)
		}
		got = append(got, entry)
	}

	if len(got) != len(ops) {
		t.Fatalf("read %d entries, want %d", len(got), len(ops))
	}
	for i, op := range ops {
		if got[i].Operation.Kind != op.Kind || got[i].Operation.Table != op.Table {
			t.Errorf("entry %d = %+v, want operation %+v", i, got[i], op)
		}
		if !got[i].VerifyChecksum() {
			t.Errorf("entry %d failed checksum verification", i)
		}
	}
}

func TestReader_WrongKeyFailsAuth(t *testing.T) {
	opts := testOptions(t)
	now := time.Now()
	w := writeEntries(t, opts, now, []Operation{{Kind: OpWrite, Table: "users"}})
	defer w.Close()
	w.Sync()

	r, err := NewReader(w.Path())
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	wrongKey, err := cryptoengine.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	_, err = r.ReadEntry(wrongKey)
	if err == nil {
		t.Fatal("expected an authentication failure decrypting with the wrong key")
	}
	if dberrors.KindOf(err) != dberrors.KindAuthFailed {
		t.Errorf("KindOf(err) = %q, want %q", dberrors.KindOf(err), dberrors.KindAuthFailed)
	}
}

func TestReader_TamperedLineFailsAuth(t *testing.T) {
	opts := testOptions(t)
	now := time.Now()
	w := writeEntries(t, opts, now, []Operation{{Kind: OpWrite, Table: "users"}})
	defer w.Close()
	w.Sync()

	r, err := NewReader(w.Path())
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	line, err := r.ReadLine()
	r.Close()
	if err != nil {
		t.Fatalf("ReadLine failed: %v", err)
	}

	tampered := tamperHexChar(line)
	_, err = DecodeLine(opts.Key, tampered)
	if err == nil {
		t.Fatal("expected decoding a tampered line to fail")
	}
}

func TestDecodeLine_MissingPrefixIsFormatError(t *testing.T) {
	opts := testOptions(t)
	_, err := DecodeLine(opts.Key, "not-a-wal-line")
	if dberrors.KindOf(err) != dberrors.KindFormat {
		t.Errorf("KindOf(err) = %q, want %q", dberrors.KindOf(err), dberrors.KindFormat)
	}
}

// tamperHexChar flips one hex character past the "WAL:" prefix so the
// AEAD tag no longer authenticates, without corrupting the overall shape.
func tamperHexChar(line string) string {
	idx := strings.IndexByte(line, ':')
	for i := idx + 1; i < len(line); i++ {
		if line[i] == '0' {
			return line[:i] + "1" + line[i+1:]
		}
		if line[i] == '1' {
			return line[:i] + "2" + line[i+1:]
		}
	}
	return line
}
