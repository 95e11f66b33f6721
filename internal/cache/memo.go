package cache

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/abhisek/tierloop/internal/logger"
)

// Memo memoizes the results of fn by key in a Cache, JSON-encoded.
// Concurrent calls for the same key share one computation. Cache failures
// are logged and never change the result.
type Memo[T any] struct {
	cache Cache
	ttl   time.Duration
	group singleflight.Group
	log   *logger.Logger
}

// FlightTimeout bounds one shared computation.
var FlightTimeout = 5 * time.Minute

// NewMemo creates a Memo. A nil cache disables caching but keeps call
// collapsing.
func NewMemo[T any](c Cache, ttl time.Duration, log *logger.Logger) *Memo[T] {
	return &Memo[T]{cache: c, ttl: ttl, log: logger.OrNop(log)}
}

// Do returns the cached value for key or computes, stores and returns it.
// Errors from fn are not cached.
func (m *Memo[T]) Do(ctx context.Context, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	return m.DoIf(ctx, key, fn, nil)
}

// DoIf is Do, but a computed value is stored only when keep returns true.
// A nil keep stores every value.
//
// The shared computation runs detached from the caller that started it,
// bounded by FlightTimeout, so one caller giving up does not fail the
// others waiting on the same key. A caller whose ctx ends stops waiting
// and gets ctx.Err().
func (m *Memo[T]) DoIf(ctx context.Context, key string, fn func(ctx context.Context) (T, error), keep func(T) bool) (T, error) {
	var zero T
	if v, ok := m.lookup(ctx, key); ok {
		return v, nil
	}

	ch := m.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), FlightTimeout)
		defer cancel()
		if v, ok := m.lookup(fctx, key); ok {
			return v, nil
		}
		v, err := fn(fctx)
		if err != nil {
			return v, err
		}
		if keep == nil || keep(v) {
			m.store(fctx, key, v)
		}
		return v, nil
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return zero, r.Err
		}
		return r.Val.(T), nil
	}
}

// Forget drops key from the cache.
func (m *Memo[T]) Forget(ctx context.Context, key string) {
	m.group.Forget(key)
	if m.cache == nil {
		return
	}
	if err := m.cache.Delete(ctx, key); err != nil {
		m.log.Warn("cache delete failed", "key", key, "error", err)
	}
}

func (m *Memo[T]) lookup(ctx context.Context, key string) (T, bool) {
	var v T
	if m.cache == nil {
		return v, false
	}
	raw, ok, err := m.cache.Get(ctx, key)
	if err != nil {
		m.log.Warn("cache get failed", "key", key, "error", err)
		return v, false
	}
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		m.log.Warn("cache entry undecodable", "key", key, "error", err)
		return v, false
	}
	return v, true
}

func (m *Memo[T]) store(ctx context.Context, key string, v T) {
	if m.cache == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		m.log.Warn("cache entry unencodable", "key", key, "error", err)
		return
	}
	if err := m.cache.Set(ctx, key, raw, m.ttl); err != nil {
		m.log.Warn("cache set failed", "key", key, "error", err)
	}
}
