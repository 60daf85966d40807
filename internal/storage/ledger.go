package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"incassi/internal/core"
)

// LedgerStore reads and writes the whole client collection as one JSON
// array under a fixed key. A missing key is seeded with the roster.
type LedgerStore struct {
	mu    sync.Mutex
	blobs BlobStore
	key   string
	seed  func() []core.Client
}

// maxUpdateAttempts bounds how often Update re-reads after a conflict.
const maxUpdateAttempts = 5

type LedgerOption func(*LedgerStore)

// WithSeed replaces the roster written when the key is absent.
func WithSeed(seed func() []core.Client) LedgerOption {
	return func(s *LedgerStore) { s.seed = seed }
}

func NewLedgerStore(blobs BlobStore, key string, opts ...LedgerOption) *LedgerStore {
	s := &LedgerStore{blobs: blobs, key: key, seed: DefaultRoster}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the storage key of the ledger blob.
func (s *LedgerStore) Key() string { return s.key }

// GetClients returns the stored collection, seeding and persisting the
// default roster when nothing is stored yet.
func (s *LedgerStore) GetClients(ctx context.Context) ([]core.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients, _, err := s.load(ctx)
	return clients, err
}

// SaveClients validates and replaces the whole collection.
func (s *LedgerStore) SaveClients(ctx context.Context, clients []core.Client) error {
	if err := core.ValidateRoster(clients); err != nil {
		return fmt.Errorf("validate ledger: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(ctx, clients)
}

// Update reads the collection, applies fn and writes the result back.
//
// On a versioned backend the write only succeeds if nobody else wrote the
// blob in between, including other processes sharing it. On a conflict the
// blob is read again and fn runs again, so fn must not keep state across
// calls. Other backends only serialize writers within this process.
func (s *LedgerStore) Update(ctx context.Context, fn func([]core.Client) ([]core.Client, error)) ([]core.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 1; ; attempt++ {
		clients, version, err := s.load(ctx)
		if err != nil {
			return nil, err
		}
		next, err := fn(clients)
		if err != nil {
			return nil, err
		}
		if err := core.ValidateRoster(next); err != nil {
			return nil, fmt.Errorf("validate ledger: %w", err)
		}

		err = s.putVersion(ctx, next, version)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, ErrVersionConflict) || attempt >= maxUpdateAttempts {
			return nil, err
		}
		slog.WarnContext(ctx, "Ledger changed during update, retrying", "key", s.key, "attempt", attempt)
	}
}

func (s *LedgerStore) Ping(ctx context.Context) error {
	return s.blobs.Ping(ctx)
}

func (s *LedgerStore) Close() error {
	return s.blobs.Close()
}

// load reads the collection and its version, seeding the roster when the
// key is absent. The version is 0 on backends without versioning.
func (s *LedgerStore) load(ctx context.Context) ([]core.Client, int64, error) {
	for {
		raw, version, err := s.get(ctx)
		if errors.Is(err, ErrNotFound) {
			clients := s.seed()
			err := s.putVersion(ctx, clients, 0)
			if errors.Is(err, ErrVersionConflict) {
				// seeded concurrently, read what was written
				continue
			}
			if err != nil {
				return nil, 0, fmt.Errorf("seed roster: %w", err)
			}
			slog.InfoContext(ctx, "Seeded ledger with default roster", "key", s.key, "clients", len(clients))
			if _, ok := s.blobs.(VersionedBlobStore); ok {
				return clients, 1, nil
			}
			return clients, 0, nil
		}
		if err != nil {
			return nil, 0, fmt.Errorf("get ledger: %w", err)
		}

		var clients []core.Client
		if err := json.Unmarshal(raw, &clients); err != nil {
			return nil, 0, fmt.Errorf("decode ledger: %w", err)
		}
		if clients == nil {
			clients = []core.Client{}
		}
		return clients, version, nil
	}
}

func (s *LedgerStore) get(ctx context.Context) ([]byte, int64, error) {
	if vs, ok := s.blobs.(VersionedBlobStore); ok {
		return vs.GetVersion(ctx, s.key)
	}
	raw, err := s.blobs.Get(ctx, s.key)
	return raw, 0, err
}

func (s *LedgerStore) put(ctx context.Context, clients []core.Client) error {
	raw, err := encode(clients)
	if err != nil {
		return err
	}
	if err := s.blobs.Put(ctx, s.key, raw); err != nil {
		return fmt.Errorf("put ledger: %w", err)
	}
	return nil
}

// putVersion writes clients if the blob is still at version. Backends
// without versioning write unconditionally.
func (s *LedgerStore) putVersion(ctx context.Context, clients []core.Client, version int64) error {
	vs, ok := s.blobs.(VersionedBlobStore)
	if !ok {
		return s.put(ctx, clients)
	}
	raw, err := encode(clients)
	if err != nil {
		return err
	}
	if err := vs.PutIfVersion(ctx, s.key, raw, version); err != nil {
		return fmt.Errorf("put ledger: %w", err)
	}
	return nil
}

func encode(clients []core.Client) ([]byte, error) {
	if clients == nil {
		clients = []core.Client{}
	}
	raw, err := json.Marshal(clients)
	if err != nil {
		return nil, fmt.Errorf("encode ledger: %w", err)
	}
	return raw, nil
}
