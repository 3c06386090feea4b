// Package blob stores uploaded files as opaque byte blobs under
// caller-generated keys. Three drivers: local filesystem for development,
// S3 for production, and an in-memory store for tests.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get for a key that was never stored.
var ErrNotFound = errors.New("blob not found")

// Store is the minimal byte storage surface the import engine needs.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}
