// Package local implements the in-process cache tier.
package local

import (
	"context"
	"sync"
	"time"

	"github.com/Yiling-J/theine-go"

	"github.com/kgview/kgview/pkg/cache"
)

const (
	DefaultMaxEntries = 256
	DefaultTTL        = 5 * time.Minute
)

type Option func(c *Cache)

// WithMaxEntries bounds the number of values held. Least valuable entries
// are evicted first.
func WithMaxEntries(n int64) Option {
	return func(c *Cache) {
		c.maxEntries = n
	}
}

// WithTTL sets the TTL applied when Set is given none.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// Cache is a bounded in-memory [cache.Cache].
type Cache struct {
	maxEntries int64
	ttl        time.Duration
	entries    *theine.Cache[string, []byte]
	closeOnce  sync.Once
}

var _ cache.Cache = (*Cache)(nil)

func New(opts ...Option) (*Cache, error) {
	c := &Cache{
		maxEntries: DefaultMaxEntries,
		ttl:        DefaultTTL,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.ttl <= 0 {
		return nil, cache.ErrTTLMissing
	}

	entries, err := theine.NewBuilder[string, []byte](c.maxEntries).Build()
	if err != nil {
		return nil, err
	}
	c.entries = entries

	return c, nil
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	value, ok := c.entries.Get(key)
	if !ok {
		return nil, cache.ErrKeyNotFound
	}
	return value, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if ttl <= 0 {
		ttl = c.ttl
	}

	// Callers may reuse their buffer.
	stored := make([]byte, len(value))
	copy(stored, value)
	c.entries.SetWithTTL(key, stored, 1, ttl)
	return nil
}

func (c *Cache) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		c.entries.Delete(key)
	}
	return nil
}

func (c *Cache) Close() error {
	c.closeOnce.Do(func() {
		c.entries.Close()
	})
	return nil
}
