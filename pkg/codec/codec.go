// Package codec encodes and decodes table and index files. The write path
// is encrypt, then (optionally) gzip the ciphertext; the read path reverses
// that, tolerating a gunzip failure by treating the file as uncompressed
// ciphertext instead of failing outright.
package codec

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/Syras206/slimcryptdb/pkg/cryptoengine"
	dberrors "github.com/Syras206/slimcryptdb/pkg/errors"
)

// Options controls whether encryption and compression are applied. When
// Encrypt is false the codec stores cleartext JSON, a compatibility
// fallback for callers that don't need encryption at rest.
type Options struct {
	Encrypt     bool
	Compression bool
	Key         []byte // required when Encrypt is true
}

// Encode serializes v to JSON and applies the encrypt/compress pipeline,
// returning the bytes to write to disk.
func Encode(opts Options, v any) ([]byte, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, &dberrors.FormatError{Op: "codec.encode", Reason: err.Error()}
	}

	var payload []byte
	if opts.Encrypt {
		encoded, err := cryptoengine.Encrypt(opts.Key, plaintext)
		if err != nil {
			return nil, err
		}
		payload = []byte(encoded)
	} else {
		payload = plaintext
	}

	if opts.Compression {
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		if _, err := gw.Write(payload); err != nil {
			return nil, &dberrors.IOError{Op: "codec.encode.gzip", Err: err}
		}
		if err := gw.Close(); err != nil {
			return nil, &dberrors.IOError{Op: "codec.encode.gzip", Err: err}
		}
		payload = buf.Bytes()
	}

	return payload, nil
}

// Decode reverses Encode into v. Compression is attempted first and
// silently skipped on failure (the data is assumed uncompressed), so a
// compression-failed file never also fails decryption.
func Decode(opts Options, data []byte, v any) error {
	payload := data
	if opts.Compression {
		if gr, err := gzip.NewReader(bytes.NewReader(data)); err == nil {
			if decompressed, err := io.ReadAll(gr); err == nil {
				payload = decompressed
			}
			gr.Close()
		}
	}

	var plaintext []byte
	if opts.Encrypt {
		pt, err := cryptoengine.Decrypt(opts.Key, string(payload))
		if err != nil {
			return err
		}
		// Table and index plaintext is always a JSON document; requiring
		// it here (rather than leaving it to json.Unmarshal below) keeps
		// a format-confused plaintext reported as AUTH_FAILED rather than
		// FORMAT_ERROR, the same classification a genuine auth failure gets.
		if !json.Valid(pt) {
			return &dberrors.AuthFailedError{Op: "codec.decode"}
		}
		plaintext = pt
	} else {
		plaintext = payload
	}

	if err := json.Unmarshal(plaintext, v); err != nil {
		return &dberrors.FormatError{Op: "codec.decode", Reason: err.Error()}
	}
	return nil
}

// WriteFile encodes v and writes it atomically (write to a temp file in
// the same directory, then rename) to path.
func WriteFile(opts Options, path string, v any) error {
	data, err := Encode(opts, v)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return &dberrors.IOError{Op: "codec.write_file", Err: err}
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &dberrors.IOError{Op: "codec.write_file", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &dberrors.IOError{Op: "codec.write_file", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &dberrors.IOError{Op: "codec.write_file", Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return &dberrors.IOError{Op: "codec.write_file", Err: err}
	}
	return nil
}

// ReadFile reads path and decodes it into v. A missing file is reported as
// a NotFoundError so callers can distinguish "table never written" from a
// genuine I/O failure.
func ReadFile(opts Options, path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &dberrors.NotFoundError{Kind_: "file", Name: path}
		}
		return &dberrors.IOError{Op: "codec.read_file", Err: err}
	}
	return Decode(opts, data, v)
}

// Exists reports whether path exists, for callers that want to treat a
// missing table/index file as "not yet created" without decoding it.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
