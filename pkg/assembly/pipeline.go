package assembly

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kgview/kgview/pkg/cache"
	"github.com/kgview/kgview/pkg/graph"
	"github.com/kgview/kgview/pkg/logger"
	"github.com/kgview/kgview/pkg/request"
	"github.com/kgview/kgview/pkg/storage"
)

// Pipeline is the entry point of graph requests: it validates and
// normalizes a RequestSpec and hands the params to the assembler chain
// (single-flight, then cache when one is configured, then local assembly).
type Pipeline struct {
	assembler Assembler
	defaults  request.Defaults
	sizing    graph.SizeParams
	cache     cache.Cache
	cacheTTL  time.Duration
	timeout   time.Duration
	logger    logger.Logger
}

type PipelineOpt func(*Pipeline)

// WithCache enables caching of assembled graphs in c.
func WithCache(c cache.Cache, ttl time.Duration) PipelineOpt {
	return func(p *Pipeline) {
		p.cache = c
		p.cacheTTL = ttl
	}
}

// WithDefaults sets the values of the request fields left unset.
func WithDefaults(d request.Defaults) PipelineOpt {
	return func(p *Pipeline) {
		p.defaults = d
	}
}

func WithSizing(params graph.SizeParams) PipelineOpt {
	return func(p *Pipeline) {
		p.sizing = params
	}
}

// WithTimeout bounds a single assembly, shared or not.
func WithTimeout(timeout time.Duration) PipelineOpt {
	return func(p *Pipeline) {
		p.timeout = timeout
	}
}

func WithLogger(logger logger.Logger) PipelineOpt {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewAssembler builds the assembler chain over reader. The reader and the
// cache stay owned by the caller.
func NewAssembler(reader storage.GraphReader, opts ...PipelineOpt) *Pipeline {
	p := &Pipeline{
		defaults: request.DefaultDefaults(),
		sizing:   graph.DefaultSizeParams(),
		cacheTTL: DefaultCacheTTL,
		timeout:  DefaultAssemblyTimeout,
		logger:   logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(p)
	}

	var a Assembler = NewLocalAssembler(reader,
		WithSizeParams(p.sizing),
		WithLocalLogger(p.logger),
	)
	if p.cache != nil {
		a = NewCachedAssembler(a, p.cache,
			WithCacheTTL(p.cacheTTL),
			WithCachedLogger(p.logger),
		)
	}
	p.assembler = NewSingleflightAssembler(a,
		WithAssemblyTimeout(p.timeout),
		WithSingleflightLogger(p.logger),
	)

	return p
}

// Assemble returns the graph described by spec. The error wraps
// ErrInvalidRequest for a spec out of range, ErrDataSourceUnavailable when
// the backing store failed; no graph is returned along with an error.
func (p *Pipeline) Assemble(ctx context.Context, spec *request.RequestSpec) (*graph.Graph, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	params := spec.Normalize(p.defaults)
	ctx = logger.WithFingerprint(ctx, params.Fingerprint())

	g, err := p.assembler.Assemble(ctx, params)
	if err != nil {
		p.logger.WarnWithContext(ctx, "graph assembly failed", zap.Bool("retryable", IsRetryable(err)), zap.Error(err))
		return nil, err
	}

	return g, nil
}

// CacheTTL is how long an assembled graph may be reused.
func (p *Pipeline) CacheTTL() time.Duration {
	if p.cache == nil {
		return 0
	}
	return p.cacheTTL
}

func (p *Pipeline) Close() {
	p.assembler.Close()
}
