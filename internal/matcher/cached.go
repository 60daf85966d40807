package matcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"

	"incassi/internal/cache"
)

// Cached reuses the result of an identical earlier request. Only successful
// results are stored. Cached results are shared and must not be modified.
type Cached struct {
	inner Matcher
	cache cache.Cache[Result]
}

var _ Matcher = (*Cached)(nil)

func NewCached(inner Matcher, c cache.Cache[Result]) *Cached {
	return &Cached{inner: inner, cache: c}
}

func (m *Cached) Match(ctx context.Context, req Request) (Result, error) {
	key, err := requestKey(req)
	if err != nil {
		return m.inner.Match(ctx, req)
	}
	if res, ok := m.cache.Get(key); ok {
		slog.InfoContext(ctx, "Matcher result served from cache", "suggestions", len(res.Suggestions))
		return res, nil
	}

	res, err := m.inner.Match(ctx, req)
	if err != nil {
		return Result{}, err
	}
	m.cache.Set(key, res)
	return res, nil
}

func requestKey(req Request) (string, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
