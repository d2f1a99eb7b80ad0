// Package redis implements the distributed cache tier on top of a redis
// (standalone, sentinel or cluster) deployment.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kgview/kgview/pkg/cache"
)

type options func(s *Handle)

// Handle is a [cache.Cache] backed by redis.
type Handle struct {
	db             int
	ttl            time.Duration
	addrs          []string
	userCredential string
	passCredential string
	dialTimeout    time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	client         redis.UniversalClient
}

var _ cache.Cache = (*Handle)(nil)

var (
	ErrTTLMissing  = cache.ErrTTLMissing
	ErrAddrMissing = fmt.Errorf("redis addresses must be specified")
)

// WithTTL sets the TTL applied when Set is given none.
func WithTTL(ttl time.Duration) options {
	return func(h *Handle) {
		h.ttl = ttl
	}
}

// WithAddr takes a comma separated list of host:port addresses, or a single
// redis:// (or rediss://) url carrying credentials and database.
func WithAddr(addrs string) options {
	return func(h *Handle) {
		h.addrs = nil
		for _, addr := range strings.Split(addrs, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				h.addrs = append(h.addrs, addr)
			}
		}
	}
}

func WithUserCredential(credential string) options {
	return func(h *Handle) {
		h.userCredential = credential
	}
}

func WithPassCredential(credential string) options {
	return func(h *Handle) {
		h.passCredential = credential
	}
}

func WithDatabase(db int) options {
	return func(h *Handle) {
		h.db = db
	}
}

// WithDialTimeout bounds establishing new connections.
func WithDialTimeout(d time.Duration) options {
	return func(h *Handle) {
		h.dialTimeout = d
	}
}

// WithReadTimeout bounds socket reads; writes share the same bound.
func WithReadTimeout(d time.Duration) options {
	return func(h *Handle) {
		h.readTimeout = d
		h.writeTimeout = d
	}
}

// New create new instance cache
func New(opts ...options) (*Handle, error) {
	h := &Handle{}

	for _, opt := range opts {
		opt(h)
	}

	if err := h.validate(); err != nil {
		return nil, err
	}

	universal := &redis.UniversalOptions{
		Addrs:        h.addrs,
		DB:           h.db,
		Username:     h.userCredential,
		Password:     h.passCredential,
		DialTimeout:  h.dialTimeout,
		ReadTimeout:  h.readTimeout,
		WriteTimeout: h.writeTimeout,
	}

	if len(h.addrs) == 1 && isURL(h.addrs[0]) {
		parsed, err := redis.ParseURL(h.addrs[0])
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		universal.Addrs = []string{parsed.Addr}
		universal.DB = parsed.DB
		universal.TLSConfig = parsed.TLSConfig
		if universal.Username == "" {
			universal.Username = parsed.Username
		}
		if universal.Password == "" {
			universal.Password = parsed.Password
		}
	}

	h.client = redis.NewUniversalClient(universal)

	return h, nil
}

func isURL(addr string) bool {
	return strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://")
}

func (h *Handle) validate() error {
	if len(h.addrs) == 0 {
		return ErrAddrMissing
	}

	if h.ttl <= 0 {
		return ErrTTLMissing
	}

	return nil
}

// Ping returns the Redis server liveliness response
func (h *Handle) Ping(ctx context.Context) error {
	return h.client.Ping(ctx).Err()
}

// Close closes the server connection.
func (h *Handle) Close() error {
	return h.client.Close()
}

// Del Removes the specified keys. A key is ignored if it does not exist.
func (h *Handle) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return h.client.Del(ctx, keys...).Err()
}

// Get returns the value associated with the key, or cache.ErrKeyNotFound.
func (h *Handle) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := h.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, cache.ErrKeyNotFound
	case err != nil:
		return nil, err
	case len(val) == 0:
		return nil, cache.ErrKeyNotFound
	default:
		return val, nil
	}
}

// Set key to hold value. If key already holds a value, it is overwritten.
func (h *Handle) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = h.ttl
	}
	return h.client.Set(ctx, key, value, ttl).Err()
}
