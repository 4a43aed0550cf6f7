// Package db defines the key-value store surface behind the Redis/Valkey search index driver.
package db

import (
	"context"
	"time"
)

// Store is the facade implemented by the rueidis-backed store.
type Store interface {
	Pinger
	JSONStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// JSONStore writes and removes JSON documents.
type JSONStore interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	Del(ctx context.Context, key string) error
}

// IndexManager creates FT indexes.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher runs read-only FT queries.
type Searcher interface {
	SearchCount(ctx context.Context, index, query string) (int, error)
}
