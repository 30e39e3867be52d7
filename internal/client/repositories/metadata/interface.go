// Package metadata stores small key/value records in the client's local
// database.
package metadata

import (
	"context"
)

type Repository interface {
	// Get returns ok=false when key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	// Delete removes keys; absent keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	// List returns every record whose key starts with prefix.
	List(ctx context.Context, prefix string) (map[string]string, error)
}
