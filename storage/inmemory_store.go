package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// InmemoryStore keeps the entire keyspace as one JSON document. Values are
// stored as JSON strings under their key, which keeps backups human readable
// and makes Restore a plain document swap.
type InmemoryStore struct {
	mu     sync.Mutex
	values []byte

	// stop willl be closed when Close() is called
	stop chan struct{}
}

func NewInmemoryStore() *InmemoryStore {
	return &InmemoryStore{
		values: []byte(""),
		stop:   make(chan struct{}),
	}
}

func (i *InmemoryStore) Close() error {
	if i.isRunning() {
		close(i.stop)
	}

	return nil
}

func (i *InmemoryStore) Set(ctx context.Context, key, value []byte) (err error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.values, err = sjson.SetBytes(i.values, pathForKey(key), string(value))
	if err != nil {
		return fmt.Errorf("Failed to set %q: %w", key, err)
	}

	return nil
}

func (i *InmemoryStore) Get(ctx context.Context, key []byte) ([]byte, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	result := gjson.GetBytes(i.values, pathForKey(key))
	if !result.Exists() {
		return nil, ErrNotFound
	}

	return []byte(result.String()), nil
}

func (i *InmemoryStore) Delete(ctx context.Context, key []byte) (err error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !gjson.GetBytes(i.values, pathForKey(key)).Exists() {
		return ErrNotFound
	}

	i.values, err = sjson.DeleteBytes(i.values, pathForKey(key))
	if err != nil {
		return fmt.Errorf("Failed to delete %q: %w", key, err)
	}

	return nil
}

func (i *InmemoryStore) Keys(ctx context.Context) ([][]byte, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	keys := make([][]byte, 0)
	gjson.ParseBytes(i.values).ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, []byte(key.String()))
		return true
	})

	return keys, nil
}

func (i *InmemoryStore) Restore(values []byte) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.values = values
	return nil
}

func (i *InmemoryStore) Backup() ([]byte, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if len(i.values) == 0 {
		return []byte("{}"), nil
	}

	return i.values, nil
}

// isRunning returns true if Close has not been called
func (i *InmemoryStore) isRunning() bool {
	select {
	case <-i.stop:
		return false

	default:
		return true
	}
}

// pathForKey escapes the characters gjson/sjson paths treat specially so a
// key is always a single top-level member of the document.
func pathForKey(key []byte) string {
	var b strings.Builder

	for _, c := range string(key) {
		switch c {
		case '.', '*', '?', '\\', '|', '#', '@':
			b.WriteByte('\\')
		}

		b.WriteRune(c)
	}

	return b.String()
}

var _ Store = (*InmemoryStore)(nil)
