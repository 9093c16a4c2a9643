// Package config loads the engine's Options: a plain-struct
// DefaultOptions() in wal.DefaultOptions()'s style, an optional YAML file,
// and env-var overrides layered on top.
package config

import (
	"os"
	"strconv"
	"time"

	dberrors "github.com/Syras206/slimcryptdb/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Options is the engine-wide configuration.
type Options struct {
	Encrypt    bool `yaml:"encrypt"`
	Compression bool `yaml:"compression"`
	WALEnabled bool `yaml:"walEnabled"`
	SyncWrites bool `yaml:"syncWrites"`

	MaxWalSize         int64 `yaml:"maxWalSize"`
	CheckpointInterval int64 `yaml:"checkpointInterval"` // milliseconds
	LockTimeout        int64 `yaml:"lockTimeout"`        // milliseconds
	WALPaddingSize     int   `yaml:"walPaddingSize"`

	DataDir string `yaml:"dataDir"`
	SeqAddr string `yaml:"seqAddr"`
}

// DefaultOptions mirrors wal.DefaultOptions()'s shape: a plain struct
// literal carrying the engine's documented defaults.
func DefaultOptions() Options {
	return Options{
		Encrypt:            true,
		Compression:        false,
		WALEnabled:         true,
		SyncWrites:         true,
		MaxWalSize:         64 * 1024 * 1024,
		CheckpointInterval: 30_000,
		LockTimeout:        10_000,
		WALPaddingSize:     1024,
		DataDir:            "./data",
	}
}

// Load reads path (if non-empty and present) as YAML over
// DefaultOptions(), then applies SLIMCRYPTDB_-prefixed env var
// overrides.
func Load(path string) (Options, error) {
	opts := DefaultOptions()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return opts, nil
			}
			return opts, &dberrors.IOError{Op: "config.load", Err: err}
		}
		if err := yaml.Unmarshal(data, &opts); err != nil {
			return opts, &dberrors.FormatError{Op: "config.load", Reason: err.Error()}
		}
	}

	applyEnvOverrides(&opts)
	return opts, nil
}

func applyEnvOverrides(opts *Options) {
	if v, ok := os.LookupEnv("SLIMCRYPTDB_ENCRYPT"); ok {
		opts.Encrypt = parseBool(v, opts.Encrypt)
	}
	if v, ok := os.LookupEnv("SLIMCRYPTDB_COMPRESSION"); ok {
		opts.Compression = parseBool(v, opts.Compression)
	}
	if v, ok := os.LookupEnv("SLIMCRYPTDB_WAL_ENABLED"); ok {
		opts.WALEnabled = parseBool(v, opts.WALEnabled)
	}
	if v, ok := os.LookupEnv("SLIMCRYPTDB_SYNC_WRITES"); ok {
		opts.SyncWrites = parseBool(v, opts.SyncWrites)
	}
	if v, ok := os.LookupEnv("SLIMCRYPTDB_MAX_WAL_SIZE"); ok {
		opts.MaxWalSize = parseInt64(v, opts.MaxWalSize)
	}
	if v, ok := os.LookupEnv("SLIMCRYPTDB_CHECKPOINT_INTERVAL"); ok {
		opts.CheckpointInterval = parseInt64(v, opts.CheckpointInterval)
	}
	if v, ok := os.LookupEnv("SLIMCRYPTDB_LOCK_TIMEOUT"); ok {
		opts.LockTimeout = parseInt64(v, opts.LockTimeout)
	}
	if v, ok := os.LookupEnv("SLIMCRYPTDB_DATA_DIR"); ok {
		opts.DataDir = v
	}
	if v, ok := os.LookupEnv("SLIMCRYPTDB_SEQ_ADDR"); ok {
		opts.SeqAddr = v
	}
}

func parseBool(v string, fallback bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func parseInt64(v string, fallback int64) int64 {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

// CheckpointIntervalDuration converts the millisecond field to a
// time.Duration for pkg/checkpoint.
func (o Options) CheckpointIntervalDuration() time.Duration {
	return time.Duration(o.CheckpointInterval) * time.Millisecond
}

// LockTimeoutDuration converts the millisecond field to a
// time.Duration for pkg/lock.
func (o Options) LockTimeoutDuration() time.Duration {
	return time.Duration(o.LockTimeout) * time.Millisecond
}
