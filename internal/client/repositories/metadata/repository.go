// Package metadata is a small key/value table in the client's local cache.
package metadata

import (
	"context"
)

// Repository stores opaque values by key. Get returns (nil, nil) for an
// absent key; Delete reports whether a row was removed.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) (bool, error)
}
