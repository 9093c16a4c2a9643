package slimcryptdb_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// removeWALSegments deletes every wal-*.log segment under dir, leaving
// the salt untouched, to simulate a checkpoint having already pruned
// segments past their retention window.
func removeWALSegments(t *testing.T, dir string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "wal-") && strings.HasSuffix(e.Name(), ".log") {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				t.Fatalf("Remove: %v", err)
			}
		}
	}
}

// tamperMiddleField flips the tail of the tag field (the middle
// colon-separated field of the table file's iv:tag:ciphertext blob) so
// the next authenticated decrypt fails.
func tamperMiddleField(t *testing.T, path string) {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	parts := strings.SplitN(string(data), ":", 3)
	if len(parts) != 3 {
		t.Fatalf("expected an iv:tag:ciphertext blob, got %d fields", len(parts))
	}

	tag := parts[1]
	if len(tag) < 4 {
		t.Fatalf("tag field too short to tamper: %q", tag)
	}
	parts[1] = tag[:len(tag)-4] + "ffff"

	if err := os.WriteFile(path, []byte(strings.Join(parts, ":")), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}
