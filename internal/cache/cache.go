// Package cache provides byte-valued caches used for memoization: an
// in-process LRU, Redis, and a tiered combination of the two.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/tierloop/internal/logger"
)

// Cache stores opaque values by key. A miss is (nil, false, nil).
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// DefaultMaxItems bounds the in-process LRU.
const DefaultMaxItems = 4096

// Open picks a backend from url. An empty url yields an in-process LRU; a
// redis:// or rediss:// url yields an LRU in front of Redis.
func Open(ctx context.Context, url string, ttl time.Duration, log *logger.Logger) (Cache, error) {
	l1 := NewLRU(DefaultMaxItems, ttl)
	if url == "" {
		return l1, nil
	}
	if !strings.HasPrefix(url, "redis://") && !strings.HasPrefix(url, "rediss://") {
		return nil, fmt.Errorf("unsupported cache URL scheme: %q", url)
	}
	l2, err := NewRedis(ctx, url, "tierloop:")
	if err != nil {
		return nil, err
	}
	logger.OrNop(log).Info("cache backend", "backend", "redis", "ttl", ttl.String())
	return NewTiered(l1, l2, log), nil
}
