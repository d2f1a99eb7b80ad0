package assembly

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kgview/kgview/internal/build"
	"github.com/kgview/kgview/pkg/graph"
	"github.com/kgview/kgview/pkg/logger"
	"github.com/kgview/kgview/pkg/request"
)

const DefaultAssemblyTimeout = 30 * time.Second

var (
	deduplicatedAssembliesCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "deduplicated_assemblies_count",
		Help:      "The total number of graph requests served by an assembly already in flight.",
	})

	detachedWaitersCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "detached_assembly_waiters_count",
		Help:      "The total number of callers that gave up waiting on an in-flight assembly.",
	})
)

// SingleflightAssembler runs at most one delegate call per fingerprint at a
// time and hands its outcome to every caller that asked meanwhile.
//
// The shared call is detached from the cancellation of whichever caller
// started it and is bounded by the assembly timeout instead, so a caller
// going away never fails the others.
type SingleflightAssembler struct {
	delegate Assembler
	group    singleflight.Group
	timeout  time.Duration
	logger   logger.Logger
}

var _ Assembler = (*SingleflightAssembler)(nil)

type SingleflightAssemblerOpt func(*SingleflightAssembler)

// WithAssemblyTimeout bounds a shared computation.
func WithAssemblyTimeout(timeout time.Duration) SingleflightAssemblerOpt {
	return func(s *SingleflightAssembler) {
		s.timeout = timeout
	}
}

func WithSingleflightLogger(logger logger.Logger) SingleflightAssemblerOpt {
	return func(s *SingleflightAssembler) {
		s.logger = logger
	}
}

func NewSingleflightAssembler(delegate Assembler, opts ...SingleflightAssemblerOpt) *SingleflightAssembler {
	s := &SingleflightAssembler{
		delegate: delegate,
		timeout:  DefaultAssemblyTimeout,
		logger:   logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *SingleflightAssembler) Close() {
	s.delegate.Close()
}

func (s *SingleflightAssembler) Assemble(ctx context.Context, params request.Params) (*graph.Graph, error) {
	key := params.Fingerprint()
	if params.BypassCache {
		// a bypassing call must not be answered from a cached computation
		key = "bypass/" + key
	}

	ch := s.group.DoChan(key, func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.delegate.Assemble(runCtx, params)
	})

	select {
	case <-ctx.Done():
		detachedWaitersCounter.Inc()
		s.logger.DebugWithContext(ctx, "caller detached from in-flight assembly", zap.Error(ctx.Err()))
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			deduplicatedAssembliesCounter.Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*graph.Graph), nil
	}
}
