package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LRU is an in-process cache with a cache-wide TTL.
type LRU struct {
	lru *expirable.LRU[string, []byte]
}

// NewLRU creates an LRU holding at most size entries, each expiring after
// ttl. A zero ttl disables expiry.
func NewLRU(size int, ttl time.Duration) *LRU {
	if size <= 0 {
		size = DefaultMaxItems
	}
	return &LRU{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (c *LRU) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.lru.Get(key)
	return v, ok, nil
}

// Set stores value. The per-call ttl is ignored in favor of the cache-wide TTL.
func (c *LRU) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.lru.Add(key, value)
	return nil
}

func (c *LRU) Delete(_ context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

func (c *LRU) Len() int {
	return c.lru.Len()
}

func (c *LRU) Close() error {
	c.lru.Purge()
	return nil
}
