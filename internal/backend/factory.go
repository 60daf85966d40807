package backend

import (
	"context"
	"fmt"
	"log/slog"

	"incassi/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		blobs storage.BlobStore
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		blobs, err = storage.NewSQLiteBlobStore(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case DiskvBackend:
		blobs, err = storage.NewDiskvBlobStore(config.DiskvBasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize diskv store: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized diskv backend", "base_path", config.DiskvBasePath)
	case MemoryBackend:
		blobs = storage.NewMemoryBlobStore()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	store := storage.NewLedgerStore(blobs, config.StorageKey)
	return &BackendResult{
		Store:   store,
		Cleanup: store.Close,
	}, nil
}
