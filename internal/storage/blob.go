// Package storage persists the client roster as a single serialized blob
// under a fixed key, over pluggable key-value backends.
package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("key not found")
	ErrVersionConflict = errors.New("blob changed since it was read")
)

// BlobStore is a minimal key-value contract. Put replaces the whole value
// for a key atomically.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Ping(ctx context.Context) error
	Close() error
}

// VersionedBlobStore adds optimistic concurrency to a BlobStore. Every
// successful write bumps the version of the key, and a new key starts at
// version 1. PutIfVersion with version 0 creates the key only if it does not
// exist yet.
type VersionedBlobStore interface {
	BlobStore
	GetVersion(ctx context.Context, key string) ([]byte, int64, error)
	PutIfVersion(ctx context.Context, key string, value []byte, version int64) error
}
