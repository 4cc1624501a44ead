// Package metadata is the fast key/value slot of the local database. It holds
// the stage session pointer, checkout bookkeeping keys and the sealed values
// of the secure store.
package metadata

import (
	"context"
)

type Repository interface {
	// Get returns (nil, nil) when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes every given key; absent keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	// List returns all pairs whose key starts with prefix ("" for all).
	List(ctx context.Context, prefix string) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
