// Package cryptoengine implements the engine's cryptographic primitives:
// authenticated encryption of byte blobs, WAL key derivation, and secure
// key generation. Every table, index and WAL file in the engine is
// ultimately wrapped by Encrypt/Decrypt from this package.
package cryptoengine

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	dberrors "github.com/Syras206/slimcryptdb/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32

	// legacyIVSize is the IV length used for every new AES-GCM
	// ciphertext, matching the legacy store's 16-byte IVs. 12-byte IVs
	// are rejected on read rather than silently accepted, so the two
	// formats never become ambiguous.
	legacyIVSize = 16

	// TagSize is the GCM authentication tag length in bytes.
	TagSize = 16

	// WALKeyIterations is the PBKDF2 iteration count used to derive the
	// WAL key from the master key. 100,000 is a compatibility anchor;
	// raising it breaks file compatibility with older stores.
	WALKeyIterations = 100_000
)

// GenerateKey returns a fresh 32-byte master key from a CSPRNG.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, &dberrors.IOError{Op: "generate_key", Err: err}
	}
	return key, nil
}

// GenerateSalt returns n fresh random bytes, used for the WAL key salt.
func GenerateSalt(n int) ([]byte, error) {
	salt := make([]byte, n)
	if _, err := rand.Read(salt); err != nil {
		return nil, &dberrors.IOError{Op: "generate_salt", Err: err}
	}
	return salt, nil
}

// Zeroize overwrites a key buffer in place. Callers own the slice and must
// not keep other references to it once zeroized.
func Zeroize(key []byte) {
	for i := range key {
		key[i] = 0
	}
}

// IsZeroized reports whether every byte of key is zero, used by
// DeriveWALKey to refuse deriving from a buffer that has already been
// wiped.
func IsZeroized(key []byte) bool {
	var sum byte
	for _, b := range key {
		sum |= b
	}
	return sum == 0
}

// Encrypt authenticates and encrypts plaintext under key using AES-256-GCM
// with a fresh random IV, and returns the hex triple
// "iv_hex:tag_hex:ciphertext_hex".
func Encrypt(key, plaintext []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", &dberrors.FormatError{Op: "encrypt", Reason: err.Error()}
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, legacyIVSize)
	if err != nil {
		return "", &dberrors.FormatError{Op: "encrypt", Reason: err.Error()}
	}

	iv := make([]byte, legacyIVSize)
	if _, err := rand.Read(iv); err != nil {
		return "", &dberrors.IOError{Op: "encrypt", Err: err}
	}

	// Seal appends the tag to the ciphertext; split it back out below so
	// the wire format keeps tag and ciphertext in separate fields.
	sealed := gcm.Seal(nil, iv, plaintext, nil)
	ciphertext := sealed[:len(sealed)-TagSize]
	tag := sealed[len(sealed)-TagSize:]

	return strings.Join([]string{
		hex.EncodeToString(iv),
		hex.EncodeToString(tag),
		hex.EncodeToString(ciphertext),
	}, ":"), nil
}

// Decrypt reverses Encrypt. It strictly validates field shapes before
// attempting authentication and returns the raw authenticated plaintext
// as-is. Callers whose plaintext is JSON (table and index files) are
// responsible for their own post-decrypt format check; callers whose
// plaintext is a padded, non-JSON buffer (the WAL) must not impose one.
// Every failure reports AUTH_FAILED except for shape violations that
// precede any cryptographic operation, which report FORMAT_ERROR so
// callers can distinguish "obviously not our format" from "wrong key or
// tampered data".
func Decrypt(key []byte, encoded string) ([]byte, error) {
	parts := strings.Split(encoded, ":")
	if len(parts) != 3 {
		return nil, &dberrors.FormatError{Op: "decrypt", Reason: "expected iv:tag:ciphertext"}
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != legacyIVSize {
		return nil, &dberrors.FormatError{Op: "decrypt", Reason: "invalid iv length"}
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != TagSize {
		return nil, &dberrors.FormatError{Op: "decrypt", Reason: "invalid tag length"}
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil || len(ciphertext) == 0 {
		return nil, &dberrors.FormatError{Op: "decrypt", Reason: "empty or invalid ciphertext"}
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &dberrors.FormatError{Op: "decrypt", Reason: err.Error()}
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, legacyIVSize)
	if err != nil {
		return nil, &dberrors.FormatError{Op: "decrypt", Reason: err.Error()}
	}

	sealed := append(append([]byte{}, ciphertext...), tag...)
	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, &dberrors.AuthFailedError{Op: "decrypt"}
	}

	return plaintext, nil
}

// DeriveWALKey derives a 32-byte WAL key from masterKey and a 32-byte salt
// using PBKDF2-HMAC-SHA256 with WALKeyIterations rounds.
func DeriveWALKey(masterKey, salt []byte) ([]byte, error) {
	if IsZeroized(masterKey) {
		return nil, &dberrors.StateError{Op: "derive_wal_key", Reason: "master key has been zeroized"}
	}
	if len(salt) == 0 {
		return nil, &dberrors.FormatError{Op: "derive_wal_key", Reason: "missing salt"}
	}
	return pbkdf2.Key(masterKey, salt, WALKeyIterations, KeySize, sha256.New), nil
}
