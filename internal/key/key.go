// ABOUTME: Fixed-size device secret with file persistence and corruption detection
// ABOUTME: Comparison is constant-time; String never reveals the secret

package key

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/blake2b"

	"github.com/2389/boltd/internal/atomicfile"
	"github.com/2389/boltd/internal/random"
)

const (
	// Size is the number of secret bytes in a key.
	Size = 32

	// EncodedSize is the exact size of a key file.
	EncodedSize = Size * 2

	// FileMode is the permission of key files.
	FileMode os.FileMode = 0600
)

// ErrBadKey is returned when key material has the wrong size or shape.
var ErrBadKey = errors.New("bad key")

// Key is a device secret.
type Key struct {
	data  [Size]byte
	fresh bool
}

// Generate creates a fresh key filled from src.
func Generate(src random.Source) (*Key, error) {
	k := &Key{fresh: true}
	if err := src.Fill(k.data[:]); err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}
	return k, nil
}

// FromBytes wraps existing key material. The result is not fresh.
func FromBytes(b []byte) (*Key, error) {
	if len(b) != Size {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrBadKey, len(b), Size)
	}
	k := &Key{}
	copy(k.data[:], b)
	return k, nil
}

// Load reads a key file. A missing file yields an error matching
// fs.ErrNotExist; a file that is not exactly EncodedSize hex bytes yields
// ErrBadKey.
func Load(path string) (*Key, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading key: %w", err)
	}
	defer wipe(data)

	if len(data) != EncodedSize {
		return nil, fmt.Errorf("%w: key file has %d bytes, want %d", ErrBadKey, len(data), EncodedSize)
	}

	k := &Key{}
	if _, err := hex.Decode(k.data[:], data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadKey, err)
	}
	return k, nil
}

// Save atomically writes the key to path with FileMode permissions.
func (k *Key) Save(path string) error {
	buf := make([]byte, EncodedSize)
	defer wipe(buf)
	hex.Encode(buf, k.data[:])

	if err := atomicfile.Write(path, buf, FileMode); err != nil {
		return fmt.Errorf("saving key: %w", err)
	}
	return nil
}

// Fresh reports whether the key was generated in memory rather than loaded.
func (k *Key) Fresh() bool {
	return k.fresh
}

// Bytes returns a copy of the secret material.
func (k *Key) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, k.data[:])
	return b
}

// Equal compares two keys in constant time.
func (k *Key) Equal(other *Key) bool {
	if k == nil || other == nil {
		return k == other
	}
	return subtle.ConstantTimeCompare(k.data[:], other.data[:]) == 1
}

// Fingerprint identifies the key without revealing it (BLAKE2b-256, hex).
func (k *Key) Fingerprint() string {
	sum := blake2b.Sum256(k.data[:])
	return hex.EncodeToString(sum[:])
}

// String implements fmt.Stringer without exposing the secret.
func (k *Key) String() string {
	fp := k.Fingerprint()
	return "key:" + fp[:16]
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
