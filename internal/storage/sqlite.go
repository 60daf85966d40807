package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const (
	selectBlobSQL        = `SELECT value FROM ledger_blobs WHERE key = ?`
	selectVersionBlobSQL = `SELECT value, version FROM ledger_blobs WHERE key = ?`
	insertBlobSQL        = `INSERT INTO ledger_blobs (key, value, version, updated_at)
VALUES (?, ?, 1, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO NOTHING`
	swapBlobSQL = `UPDATE ledger_blobs
SET value = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
WHERE key = ? AND version = ?`
	upsertBlobSQL = `INSERT INTO ledger_blobs (key, value, version, updated_at)
VALUES (?, ?, 1, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET
    value = excluded.value,
    version = ledger_blobs.version + 1,
    updated_at = CURRENT_TIMESTAMP`
)

// SQLiteBlobStore stores each blob as one row of the ledger_blobs table.
type SQLiteBlobStore struct {
	db *sql.DB
}

func NewSQLiteBlobStore(dbPath string) (*SQLiteBlobStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// other processes may hold the write lock on the same file
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// a single connection keeps writes serialized
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteBlobStore{db: db}, nil
}

func (s *SQLiteBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, selectBlobSQL, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select blob %q: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteBlobStore) Put(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, upsertBlobSQL, key, value); err != nil {
		return fmt.Errorf("upsert blob %q: %w", key, err)
	}
	slog.DebugContext(ctx, "Ledger blob saved to SQLite", "key", key, "bytes", len(value))
	return nil
}

func (s *SQLiteBlobStore) GetVersion(ctx context.Context, key string) ([]byte, int64, error) {
	var (
		value   []byte
		version int64
	)
	err := s.db.QueryRowContext(ctx, selectVersionBlobSQL, key).Scan(&value, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("select blob %q: %w", key, err)
	}
	return value, version, nil
}

// PutIfVersion writes value only if the stored row is still at version. The
// check and the write are one statement, so it holds across processes
// sharing the database file.
func (s *SQLiteBlobStore) PutIfVersion(ctx context.Context, key string, value []byte, version int64) error {
	var (
		res sql.Result
		err error
	)
	if version == 0 {
		res, err = s.db.ExecContext(ctx, insertBlobSQL, key, value)
	} else {
		res, err = s.db.ExecContext(ctx, swapBlobSQL, value, key, version)
	}
	if err != nil {
		return fmt.Errorf("write blob %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write blob %q: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("write blob %q at version %d: %w", key, version, ErrVersionConflict)
	}
	slog.DebugContext(ctx, "Ledger blob saved to SQLite", "key", key, "bytes", len(value), "version", version+1)
	return nil
}

func (s *SQLiteBlobStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteBlobStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
