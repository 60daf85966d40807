package backend

import (
	"context"

	"incassi/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the ledger store and optional cleanup function
type BackendResult struct {
	Store   *storage.LedgerStore
	Cleanup CleanupFunc
}

// Factory creates ledger stores based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type       BackendType
	StorageKey string

	// SQLite specific
	SQLiteDBPath string

	// diskv specific
	DiskvBasePath string
}

// BackendType represents the type of blob backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	DiskvBackend  BackendType = "diskv"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, DiskvBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
