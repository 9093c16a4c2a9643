package wal

import (
	"crypto/rand"
	"encoding/binary"

	dberrors "github.com/Syras206/slimcryptdb/pkg/errors"
)

const lengthPrefixSize = 4

// pad builds the plaintext buffer AEAD actually encrypts:
// [json_bytes | random_padding | length_prefix_be_u32], total length
// rounded up to the next multiple of block. Random padding
// (not PKCS#7) avoids the length-prefix ambiguity PKCS#7 runs into at
// large block sizes.
func pad(jsonBytes []byte, block int) ([]byte, error) {
	if block <= 0 {
		block = 1024
	}
	total := len(jsonBytes) + lengthPrefixSize
	padded := ((total + block - 1) / block) * block

	buf := make([]byte, padded)
	copy(buf, jsonBytes)

	randLen := padded - lengthPrefixSize - len(jsonBytes)
	if randLen > 0 {
		if _, err := rand.Read(buf[len(jsonBytes) : len(jsonBytes)+randLen]); err != nil {
			return nil, &dberrors.IOError{Op: "wal.pad", Err: err}
		}
	}

	binary.BigEndian.PutUint32(buf[padded-lengthPrefixSize:], uint32(len(jsonBytes)))
	return buf, nil
}

// unpad reverses pad: reads the last 4 bytes as the original length and
// slices the plaintext out, validating 0 <= L <= padded_len-4.
func unpad(buf []byte) ([]byte, error) {
	if len(buf) < lengthPrefixSize {
		return nil, &dberrors.FormatError{Op: "wal.unpad", Reason: "padded buffer too short"}
	}
	l := binary.BigEndian.Uint32(buf[len(buf)-lengthPrefixSize:])
	maxLen := uint32(len(buf) - lengthPrefixSize)
	if l > maxLen {
		return nil, &dberrors.FormatError{Op: "wal.unpad", Reason: "length prefix out of range"}
	}
	return buf[:l], nil
}
