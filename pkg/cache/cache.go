//go:generate mockgen -source cache.go -destination ../../internal/mocks/mock_cache.go -package mocks Cache

// Package cache defines the byte cache tiers used to keep assembled graphs.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrKeyNotFound is returned by Get on a miss, including a key whose TTL
	// has elapsed.
	ErrKeyNotFound = errors.New("key not found")

	ErrTTLMissing = errors.New("TTL must be specified")
)

// Cache is a tier holding opaque values with a per entry TTL.
type Cache interface {
	// Get returns the value held by key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set key to hold value for ttl. A zero ttl means the tier default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del removes the specified keys. A key is ignored if it does not exist.
	Del(ctx context.Context, keys ...string) error

	Close() error
}
