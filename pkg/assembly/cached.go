package assembly

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kgview/kgview/internal/build"
	"github.com/kgview/kgview/pkg/cache"
	"github.com/kgview/kgview/pkg/graph"
	"github.com/kgview/kgview/pkg/logger"
	"github.com/kgview/kgview/pkg/request"
)

const (
	DefaultCacheTTL = 60 * time.Second

	cacheKeyPrefix = "kgview:graph:v1:"
)

var (
	graphCacheTotalCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "graph_cache_total_count",
		Help:      "The total number of graph cache lookups.",
	})

	graphCacheHitCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "graph_cache_hit_count",
		Help:      "The total number of graph cache hits.",
	})

	graphCacheBypassCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "graph_cache_bypass_count",
		Help:      "The total number of graph requests that skipped the cache.",
	})
)

// CacheEntry is the value stored under a fingerprint.
type CacheEntry struct {
	Fingerprint string       `json:"fingerprint"`
	Graph       *graph.Graph `json:"graph"`
	ComputedAt  time.Time    `json:"computedAt"`
	ExpiresAt   time.Time    `json:"expiresAt"`
}

// CacheKey returns the cache key of a fingerprint.
func CacheKey(fingerprint string) string {
	return cacheKeyPrefix + fingerprint
}

// CachedAssembler serves graphs recently computed for the same fingerprint
// before delegating. Every cache failure degrades to a miss.
type CachedAssembler struct {
	delegate Assembler
	cache    cache.Cache
	ttl      time.Duration
	now      func() time.Time
	logger   logger.Logger
}

var _ Assembler = (*CachedAssembler)(nil)

type CachedAssemblerOpt func(*CachedAssembler)

// WithCacheTTL sets how long an assembled graph is served from cache.
func WithCacheTTL(ttl time.Duration) CachedAssemblerOpt {
	return func(c *CachedAssembler) {
		c.ttl = ttl
	}
}

func WithCachedLogger(logger logger.Logger) CachedAssemblerOpt {
	return func(c *CachedAssembler) {
		c.logger = logger
	}
}

func withClock(now func() time.Time) CachedAssemblerOpt {
	return func(c *CachedAssembler) {
		c.now = now
	}
}

func NewCachedAssembler(delegate Assembler, c cache.Cache, opts ...CachedAssemblerOpt) *CachedAssembler {
	ca := &CachedAssembler{
		delegate: delegate,
		cache:    c,
		ttl:      DefaultCacheTTL,
		now:      time.Now,
		logger:   logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(ca)
	}

	return ca
}

// Close closes the delegate. The cache belongs to the caller.
func (c *CachedAssembler) Close() {
	c.delegate.Close()
}

func (c *CachedAssembler) Assemble(ctx context.Context, params request.Params) (*graph.Graph, error) {
	if params.BypassCache {
		graphCacheBypassCounter.Inc()
		return c.delegate.Assemble(ctx, params)
	}

	fingerprint := params.Fingerprint()
	key := CacheKey(fingerprint)

	graphCacheTotalCounter.Inc()
	if g, ok := c.lookup(ctx, key, fingerprint); ok {
		graphCacheHitCounter.Inc()
		trace.SpanFromContext(ctx).SetAttributes(attribute.Bool("cached", true))
		return g, nil
	}

	g, err := c.delegate.Assemble(ctx, params)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, fingerprint, g)
	return g, nil
}

func (c *CachedAssembler) lookup(ctx context.Context, key, fingerprint string) (*graph.Graph, bool) {
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrKeyNotFound) {
			c.logger.WarnWithContext(ctx, "graph cache unavailable, treating as miss", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.WarnWithContext(ctx, "discarding undecodable graph cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	if entry.Graph == nil || entry.Fingerprint != fingerprint {
		return nil, false
	}
	if !c.now().Before(entry.ExpiresAt) {
		return nil, false
	}

	return entry.Graph, true
}

func (c *CachedAssembler) store(ctx context.Context, key, fingerprint string, g *graph.Graph) {
	now := c.now()
	data, err := json.Marshal(CacheEntry{
		Fingerprint: fingerprint,
		Graph:       g,
		ComputedAt:  now.UTC(),
		ExpiresAt:   now.Add(c.ttl).UTC(),
	})
	if err != nil {
		c.logger.ErrorWithContext(ctx, "graph cache entry encoding failed", zap.String("key", key), zap.Error(err))
		return
	}

	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.WarnWithContext(ctx, "graph cache write failed", zap.String("key", key), zap.Error(err))
	}
}
