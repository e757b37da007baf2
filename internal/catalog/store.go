package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/iishyfishyy/shoefinder/internal/ranking"
)

// ErrNotFound is returned when an item id is not in the store
var ErrNotFound = errors.New("item not found")

// Store persists catalog items and serves them to the ranker
type Store interface {
	ranking.Provider

	// Put inserts or replaces an item
	Put(ctx context.Context, item *Item) error

	// Get returns the item with the given id or ErrNotFound
	Get(ctx context.Context, id string) (*Item, error)

	// Delete removes an item, returning ErrNotFound if it does not exist
	Delete(ctx context.Context, id string) error

	// List returns every item ordered by id
	List(ctx context.Context) ([]Item, error)

	// Count returns the number of stored items
	Count(ctx context.Context) (int, error)

	// Clear removes all items
	Clear(ctx context.Context) error

	// Close releases the underlying connection
	Close() error
}

// Backend names accepted by Open
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Options select and configure a store backend
type Options struct {
	Backend    string
	SQLitePath string
	RedisAddr  string
	RedisDB    int
	// RedisPrefix is prepended to every key
	RedisPrefix string
}

// Open creates the store named by opts.Backend
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite, "":
		if opts.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite backend needs a database path")
		}
		return NewSQLiteStore(opts.SQLitePath)
	case BackendRedis:
		return NewRedisStore(ctx, opts.RedisAddr, opts.RedisDB, opts.RedisPrefix)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", opts.Backend)
	}
}
