package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get and Delete when the key does not exist.
var ErrNotFound = errors.New("Key not found")

// Store is the keyspace behind the dev server.
type Store interface {
	Set(ctx context.Context, key, value []byte) error
	Get(ctx context.Context, key []byte) ([]byte, error)
	Delete(ctx context.Context, key []byte) error
	Keys(ctx context.Context) ([][]byte, error)

	Restore(values []byte) error
	Backup() ([]byte, error)

	Close() error
}
