// Package kvstore is the namespaced key-value layer behind the vendor
// directory and the deadline store. Backends are swappable without touching
// handler logic.
package kvstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get and Delete when the key does not exist.
var ErrNotFound = errors.New("kv entry not found")

// Entry is one key/value pair in a namespace.
type Entry struct {
	Key   string
	Value string
}

// Store is implemented by every backend. List returns entries ordered by key.
type Store interface {
	Get(ctx context.Context, namespace, key string) (string, error)
	Put(ctx context.Context, namespace, key, value string) error
	Delete(ctx context.Context, namespace, key string) error
	List(ctx context.Context, namespace string) ([]Entry, error)
}
