// Package store persists editor documents as opaque values under string
// keys, either in SQLite or as one file per key in a directory.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("key not found")

// KV is a flat key-value store. Keys are slash-separated, e.g.
// "editors/<projectId>".
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Keys lists the stored keys that start with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Drivers accepted by Open.
const (
	DriverSQLite = "sqlite"
	DriverDir    = "dir"
)

// Open opens a store by driver name.
func Open(driver, path string) (KV, error) {
	switch driver {
	case DriverSQLite, "":
		return OpenSQLite(path)
	case DriverDir:
		return OpenDir(path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
