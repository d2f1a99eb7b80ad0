package cache

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/kgview/kgview/internal/build"
	"github.com/kgview/kgview/pkg/logger"
)

const (
	resultHit   = "hit"
	resultMiss  = "miss"
	resultError = "error"
)

var tierLookupCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: build.ProjectName,
	Name:      "cache_tier_lookup_count",
	Help:      "The total number of cache tier lookups by tier and result.",
}, []string{"tier", "result"})

type TieredOption func(t *Tiered)

func WithTieredLogger(l logger.Logger) TieredOption {
	return func(t *Tiered) {
		t.logger = l
	}
}

// WithTierNames labels the tiers in logs and metrics.
func WithTierNames(primary, fallback string) TieredOption {
	return func(t *Tiered) {
		t.primaryName = primary
		t.fallbackName = fallback
	}
}

// Tiered reads from the primary tier and only consults the fallback when the
// primary fails; a primary miss is authoritative. Writes go to both tiers
// concurrently and their failures are logged, never returned.
type Tiered struct {
	primary      Cache
	fallback     Cache
	primaryName  string
	fallbackName string
	logger       logger.Logger
}

var _ Cache = (*Tiered)(nil)

func NewTiered(primary, fallback Cache, opts ...TieredOption) *Tiered {
	t := &Tiered{
		primary:      primary,
		fallback:     fallback,
		primaryName:  "primary",
		fallbackName: "fallback",
		logger:       logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func (t *Tiered) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := t.primary.Get(ctx, key)
	switch {
	case err == nil:
		tierLookupCounter.WithLabelValues(t.primaryName, resultHit).Inc()
		return value, nil
	case errors.Is(err, ErrKeyNotFound):
		tierLookupCounter.WithLabelValues(t.primaryName, resultMiss).Inc()
		return nil, ErrKeyNotFound
	}

	tierLookupCounter.WithLabelValues(t.primaryName, resultError).Inc()
	t.logger.WarnWithContext(ctx, "cache tier unavailable, reading fallback",
		zap.String("tier", t.primaryName),
		zap.Error(err),
	)

	value, err = t.fallback.Get(ctx, key)
	switch {
	case err == nil:
		tierLookupCounter.WithLabelValues(t.fallbackName, resultHit).Inc()
		return value, nil
	case errors.Is(err, ErrKeyNotFound):
		tierLookupCounter.WithLabelValues(t.fallbackName, resultMiss).Inc()
		return nil, ErrKeyNotFound
	default:
		tierLookupCounter.WithLabelValues(t.fallbackName, resultError).Inc()
		return nil, err
	}
}

func (t *Tiered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var wg conc.WaitGroup
	wg.Go(func() {
		if err := t.primary.Set(ctx, key, value, ttl); err != nil {
			t.logger.WarnWithContext(ctx, "cache write failed", zap.String("tier", t.primaryName), zap.Error(err))
		}
	})
	wg.Go(func() {
		if err := t.fallback.Set(ctx, key, value, ttl); err != nil {
			t.logger.WarnWithContext(ctx, "cache write failed", zap.String("tier", t.fallbackName), zap.Error(err))
		}
	})
	wg.Wait()
	return nil
}

func (t *Tiered) Del(ctx context.Context, keys ...string) error {
	return errors.Join(t.primary.Del(ctx, keys...), t.fallback.Del(ctx, keys...))
}

func (t *Tiered) Close() error {
	return errors.Join(t.primary.Close(), t.fallback.Close())
}
