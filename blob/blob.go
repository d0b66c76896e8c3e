// Package blob provides the key-value persistence layer the stores are built
// on: opaque JSON blobs stored under fixed string keys.
package blob

import (
	"context"
	"errors"
)

// ErrNoKey is returned by Get when no value is stored under the key.
var ErrNoKey = errors.New("blob: key not found")

// Store is the persistence handle injected into the catalog and auth stores.
// Implementations are single-writer; callers serialize access themselves.
type Store interface {
	// Get returns the value stored under key, or ErrNoKey.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes the value under key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases underlying resources.
	Close() error
}
