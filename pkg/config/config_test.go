package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Syras206/slimcryptdb/pkg/config"
)

func TestDefaultOptions_MatchesDocumentedDefaults(t *testing.T) {
	opts := config.DefaultOptions()
	if !opts.Encrypt || !opts.WALEnabled || !opts.SyncWrites {
		t.Errorf("expected encrypt/walEnabled/syncWrites to default true, got %+v", opts)
	}
	if opts.CheckpointInterval != 30_000 {
		t.Errorf("CheckpointInterval default = %d, want 30000", opts.CheckpointInterval)
	}
	if opts.LockTimeout != 10_000 {
		t.Errorf("LockTimeout default = %d, want 10000", opts.LockTimeout)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	opts, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if opts != config.DefaultOptions() {
		t.Errorf("expected defaults when the file is absent, got %+v", opts)
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "options.yaml")
	contents := "encrypt: false\nmaxWalSize: 2048\ndataDir: /var/lib/slimcryptdb\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	opts, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if opts.Encrypt {
		t.Errorf("expected encrypt: false to override the default")
	}
	if opts.MaxWalSize != 2048 {
		t.Errorf("MaxWalSize = %d, want 2048", opts.MaxWalSize)
	}
	if opts.DataDir != "/var/lib/slimcryptdb" {
		t.Errorf("DataDir = %q, want /var/lib/slimcryptdb", opts.DataDir)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "options.yaml")
	if err := os.WriteFile(path, []byte("maxWalSize: 2048\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	t.Setenv("SLIMCRYPTDB_MAX_WAL_SIZE", "4096")
	opts, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if opts.MaxWalSize != 4096 {
		t.Errorf("MaxWalSize = %d, want env override 4096", opts.MaxWalSize)
	}
}

func TestLoad_MalformedYAMLReturnsFormatError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("not: [valid yaml"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := config.Load(path); err == nil {
		t.Errorf("expected an error for malformed YAML")
	}
}

func TestDurationHelpers_ConvertMillisecondsCorrectly(t *testing.T) {
	opts := config.Options{CheckpointInterval: 30_000, LockTimeout: 10_000}
	if opts.CheckpointIntervalDuration().Seconds() != 30 {
		t.Errorf("CheckpointIntervalDuration = %v, want 30s", opts.CheckpointIntervalDuration())
	}
	if opts.LockTimeoutDuration().Seconds() != 10 {
		t.Errorf("LockTimeoutDuration = %v, want 10s", opts.LockTimeoutDuration())
	}
}
