package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/peterbourgon/diskv/v3"
)

// DiskvBlobStore keeps one file per key under a base directory. Writes go
// through a temp dir and a rename, so a reader never sees a partial blob.
type DiskvBlobStore struct {
	d        *diskv.Diskv
	basePath string
}

func NewDiskvBlobStore(basePath string) (*DiskvBlobStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create diskv directory: %w", err)
	}
	d := diskv.New(diskv.Options{
		BasePath:     basePath,
		TempDir:      filepath.Join(basePath, ".tmp"),
		Transform:    func(string) []string { return []string{} },
		CacheSizeMax: 1024 * 1024, // 1MB
	})
	return &DiskvBlobStore{d: d, basePath: basePath}, nil
}

func (s *DiskvBlobStore) Get(_ context.Context, key string) ([]byte, error) {
	v, err := s.d.Read(key)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read blob %q: %w", key, err)
	}
	return v, nil
}

func (s *DiskvBlobStore) Put(_ context.Context, key string, value []byte) error {
	if err := s.d.Write(key, value); err != nil {
		return fmt.Errorf("write blob %q: %w", key, err)
	}
	return nil
}

func (s *DiskvBlobStore) Ping(context.Context) error {
	if _, err := os.Stat(s.basePath); err != nil {
		return fmt.Errorf("stat diskv base path: %w", err)
	}
	return nil
}

func (s *DiskvBlobStore) Close() error { return nil }
