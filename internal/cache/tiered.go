package cache

import (
	"context"
	"errors"
	"time"

	"github.com/abhisek/tierloop/internal/logger"
)

// Tiered checks a fast local cache before a shared one and promotes shared
// hits into the local tier. Errors from the shared tier degrade to misses.
type Tiered struct {
	l1  Cache
	l2  Cache
	log *logger.Logger
}

func NewTiered(l1, l2 Cache, log *logger.Logger) *Tiered {
	return &Tiered{l1: l1, l2: l2, log: logger.OrNop(log)}
}

func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok, err := t.l1.Get(ctx, key); err == nil && ok {
		return v, true, nil
	}
	v, ok, err := t.l2.Get(ctx, key)
	if err != nil {
		t.log.Warn("shared cache get failed", "key", key, "error", err)
		return nil, false, nil
	}
	if ok {
		_ = t.l1.Set(ctx, key, v, 0)
	}
	return v, ok, nil
}

func (t *Tiered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_ = t.l1.Set(ctx, key, value, ttl)
	if err := t.l2.Set(ctx, key, value, ttl); err != nil {
		t.log.Warn("shared cache set failed", "key", key, "error", err)
	}
	return nil
}

func (t *Tiered) Delete(ctx context.Context, key string) error {
	return errors.Join(t.l1.Delete(ctx, key), t.l2.Delete(ctx, key))
}

func (t *Tiered) Close() error {
	return errors.Join(t.l1.Close(), t.l2.Close())
}
