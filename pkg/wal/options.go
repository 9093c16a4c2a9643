package wal

import "time"

// Options configures a Writer/Reader pair.
type Options struct {
	// Dir is the "<db>/wal" directory holding segments and the salt file.
	Dir string

	// Key is the derived WAL key (see cryptoengine.DeriveWALKey), never
	// the master key itself.
	Key []byte

	// SyncWrites flushes and fsyncs the active segment before Append
	// returns, when true (the default).
	SyncWrites bool

	// BlockSize is the base padding block size for WAL plaintext, default
	// 1024.
	BlockSize int

	// BufferSize sizes the bufio.Writer in front of the active segment
	// file.
	BufferSize int
}

// DefaultOptions returns the package's documented defaults.
func DefaultOptions() Options {
	return Options{
		BufferSize: 64 * 1024,
		SyncWrites: true,
		BlockSize:  1024,
	}
}

// DefaultRetention is the default age after which a segment is pruned.
// It is kept apart from Options because retention is engine-wide (not
// per-segment); the checkpoint interval is not declared in this package.
var DefaultRetention = 24 * time.Hour
