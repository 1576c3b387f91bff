// Package blob stores screen images by content hash.
//
// Images are immutable once uploaded, so a key is simply the SHA-256 of the
// bytes: uploading the same screenshot twice stores it once, and a key read
// back from the database always names exactly the bytes that were written.
//
// Two backends are provided: [FileStore] for single-node deployments and the
// CLI, and [RedisStore] for deployments where several API instances share
// storage.
package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Sentinel errors for blob operations.
var (
	// ErrNotFound is returned when no blob exists for a key.
	ErrNotFound = errors.New("blob: not found")

	// ErrInvalidKey is returned for keys that are not a content hash.
	ErrInvalidKey = errors.New("blob: invalid key")
)

// Store persists immutable blobs addressed by their content hash.
type Store interface {
	// Put stores data and returns its key. Storing existing content is a no-op.
	Put(ctx context.Context, data []byte) (string, error)
	// Get returns the blob for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string, which is also the blob key.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ValidateKey checks that key has the shape returned by [Hash].
func ValidateKey(key string) error {
	if len(key) != sha256.Size*2 {
		return ErrInvalidKey
	}
	if _, err := hex.DecodeString(key); err != nil {
		return ErrInvalidKey
	}
	return nil
}
