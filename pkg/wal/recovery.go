package wal

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	dberrors "github.com/Syras206/slimcryptdb/pkg/errors"
)

// RecoveryRecord is one row of the recovery summary: {file, entry_preview,
// error}. Preview is empty when a whole segment could not be opened or read.
type RecoveryRecord struct {
	File    string
	Preview string
	Err     error
}

// RecoveryResult is the outcome of replaying every segment under a WAL
// directory: the entries that decoded and verified cleanly, in segment
// order (oldest first) and then line order, plus a summary of anything
// that did not.
type RecoveryResult struct {
	Entries []Entry
	Summary []RecoveryRecord
}

// Recover replays every "wal-*.log" segment under dir, oldest first, and
// returns the entries that decoded and checksum-verified successfully. A
// bad entry or unreadable segment is recorded in Summary and does not
// abort recovery of the rest.
func Recover(dir string, key []byte) (RecoveryResult, error) {
	segments, err := listSegments(dir)
	if err != nil {
		return RecoveryResult{}, err
	}

	var result RecoveryResult
	for _, path := range segments {
		recoverSegment(path, key, &result)
	}
	return result, nil
}

func recoverSegment(path string, key []byte, result *RecoveryResult) {
	r, err := NewReader(path)
	if err != nil {
		result.Summary = append(result.Summary, RecoveryRecord{
			File: path,
			Err:  err,
		})
		return
	}
	defer r.Close()

	for {
		line, err := r.ReadLine()
		if err == io.EOF {
			return
		}
		if err != nil {
			result.Summary = append(result.Summary, RecoveryRecord{File: path, Err: err})
			return
		}

		entry, err := DecodeLine(key, line)
		if err != nil {
			result.Summary = append(result.Summary, RecoveryRecord{
				File:    path,
				Preview: Preview(line),
				Err:     err,
			})
			continue
		}
		result.Entries = append(result.Entries, entry)
	}
}

// listSegments returns every wal-<ms>.log file under dir, sorted by the
// timestamp embedded in the filename (oldest first), the order replay
// must follow to stay consistent with the sequence counter.
func listSegments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &dberrors.IOError{Op: "wal.list_segments", Err: err}
	}

	type segment struct {
		path string
		ts   int64
	}
	var segs []segment
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, "wal-") || !strings.HasSuffix(name, ".log") {
			continue
		}
		tsStr := strings.TrimSuffix(strings.TrimPrefix(name, "wal-"), ".log")
		ts, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			continue
		}
		segs = append(segs, segment{path: filepath.Join(dir, name), ts: ts})
	}

	sort.Slice(segs, func(i, j int) bool { return segs[i].ts < segs[j].ts })

	paths := make([]string, len(segs))
	for i, s := range segs {
		paths[i] = s.path
	}
	return paths, nil
}

// PruneOlderThan removes segment files whose modification time is older
// than cutoffMS, used by the checkpoint scheduler's retention sweep.
func PruneOlderThan(dir string, cutoffMS int64) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return &dberrors.IOError{Op: "wal.prune", Err: err}
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, "wal-") || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().UnixMilli() >= cutoffMS {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
			return &dberrors.IOError{Op: "wal.prune", Err: err}
		}
	}
	return nil
}
