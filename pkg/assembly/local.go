package assembly

import (
	"context"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kgview/kgview/internal/build"
	"github.com/kgview/kgview/pkg/graph"
	"github.com/kgview/kgview/pkg/logger"
	"github.com/kgview/kgview/pkg/request"
	"github.com/kgview/kgview/pkg/storage"
)

var (
	tracer = otel.Tracer("kgview/pkg/assembly")

	assemblyDurationHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace:                       build.ProjectName,
		Name:                            "graph_assembly_duration_ms",
		Help:                            "The time in milliseconds spent extracting and building a graph.",
		Buckets:                         []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 15000},
		NativeHistogramBucketFactor:     1.1,
		NativeHistogramMaxBucketNumber:  100,
		NativeHistogramMinResetDuration: time.Hour,
	})

	inferredPairsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "inferred_pairs_count",
		Help:      "The total number of co-occurrence edges inferred, by relation.",
	}, []string{"relation"})

	pairBudgetExhaustedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "inferred_pairs_budget_exhausted_count",
		Help:      "The total number of inferences that dropped candidate pairs past the budget, by relation.",
	}, []string{"relation"})

	truncatedGraphsCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "truncated_graphs_count",
		Help:      "The total number of assembled graphs that had nodes or edges cut to fit the request bounds.",
	})
)

// LocalAssembler runs the whole pipeline against the backing store on every
// call. Only the extraction blocks; every later stage is an in-memory transform.
type LocalAssembler struct {
	reader storage.GraphReader
	sizing graph.SizeParams
	logger logger.Logger
}

var _ Assembler = (*LocalAssembler)(nil)

type LocalAssemblerOpt func(*LocalAssembler)

func WithSizeParams(params graph.SizeParams) LocalAssemblerOpt {
	return func(l *LocalAssembler) {
		l.sizing = params
	}
}

func WithLocalLogger(logger logger.Logger) LocalAssemblerOpt {
	return func(l *LocalAssembler) {
		l.logger = logger
	}
}

func NewLocalAssembler(reader storage.GraphReader, opts ...LocalAssemblerOpt) *LocalAssembler {
	l := &LocalAssembler{
		reader: reader,
		sizing: graph.DefaultSizeParams(),
		logger: logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Close is a no-op, the reader belongs to the caller.
func (l *LocalAssembler) Close() {}

func (l *LocalAssembler) Assemble(ctx context.Context, params request.Params) (*graph.Graph, error) {
	filter := storage.FilterFromID(params.GroupID)

	ctx, span := tracer.Start(ctx, "LocalAssembler.Assemble", trace.WithAttributes(
		attribute.String("group", filter.String()),
		attribute.Bool("include_co", params.IncludeCoOccurrence),
		attribute.Int("max_nodes", params.MaxNodes),
		attribute.Int("max_edges", params.MaxEdges),
	))
	defer span.End()

	start := time.Now()

	raw, err := l.extract(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.logger.ErrorWithContext(ctx, "graph extraction failed", zap.String("group", filter.String()), zap.Error(err))
		return nil, err
	}

	nodes, edges, skipped := unify(raw)
	if skipped > 0 {
		l.logger.DebugWithContext(ctx, "dropped unclassified rows", zap.Int("skipped", skipped))
	}
	nodes, edges = graph.Dedupe(nodes, edges)

	if params.IncludeCoOccurrence {
		edges = l.infer(ctx, nodes, edges, params.MaxInferredPairs)
		nodes, edges = graph.Dedupe(nodes, edges)
	}

	for i := range nodes {
		nodes[i].Label = graph.DisplayLabel(nodes[i].Label, nodes[i].ID)
	}

	g := l.bound(ctx, nodes, edges, params)
	graph.Sort(g)

	span.SetAttributes(attribute.Int("nodes", len(g.Nodes)), attribute.Int("edges", len(g.Edges)))
	assemblyDurationHistogram.Observe(float64(time.Since(start).Milliseconds()))

	return g, nil
}

func (l *LocalAssembler) extract(ctx context.Context, filter storage.GroupFilter) (*storage.RawGraph, error) {
	ctx, span := tracer.Start(ctx, "extract")
	defer span.End()

	raw, err := l.reader.FetchDirectGraph(ctx, filter)
	if err != nil {
		return nil, storage.Unavailable("graph reader", err)
	}
	if raw == nil {
		raw = &storage.RawGraph{}
	}

	span.SetAttributes(attribute.Int("raw_nodes", len(raw.Nodes)), attribute.Int("raw_edges", len(raw.Edges)))
	return raw, nil
}

func (l *LocalAssembler) infer(ctx context.Context, nodes []graph.Node, edges []graph.Edge, maxPairs int) []graph.Edge {
	_, span := tracer.Start(ctx, "infer", trace.WithAttributes(attribute.Int("max_pairs", maxPairs)))
	defer span.End()

	res := graph.InferCoOccurrence(nodes, edges, maxPairs)

	inferredPairsCounter.WithLabelValues(graph.CoGroup.String()).Add(float64(res.CoGroupPairs))
	inferredPairsCounter.WithLabelValues(graph.CoRole.String()).Add(float64(res.CoRolePairs))
	if res.CoGroupExhausted {
		pairBudgetExhaustedCounter.WithLabelValues(graph.CoGroup.String()).Inc()
	}
	if res.CoRoleExhausted {
		pairBudgetExhaustedCounter.WithLabelValues(graph.CoRole.String()).Inc()
	}
	if res.CoGroupExhausted || res.CoRoleExhausted {
		l.logger.DebugWithContext(ctx, "co-occurrence pair budget exhausted",
			zap.Int("max_pairs", maxPairs),
			zap.Bool("co_group", res.CoGroupExhausted),
			zap.Bool("co_role", res.CoRoleExhausted),
		)
	}

	span.SetAttributes(attribute.Int("co_group", res.CoGroupPairs), attribute.Int("co_role", res.CoRolePairs))

	return append(edges, res.Edges...)
}

// bound sizes every node from its degree in the unified graph and then cuts
// the graph down to the requested limits.
func (l *LocalAssembler) bound(ctx context.Context, nodes []graph.Node, edges []graph.Edge, params request.Params) *graph.Graph {
	_, span := tracer.Start(ctx, "bound")
	defer span.End()

	meta := graph.Meta{SourceNodes: len(nodes), SourceEdges: len(edges)}

	degrees := graph.Annotate(nodes, edges, l.sizing)
	nodes, edges, meta.Truncated = graph.Truncate(nodes, edges, degrees, params.MaxNodes, params.MaxEdges)
	if meta.Truncated {
		truncatedGraphsCounter.Inc()
	}

	span.SetAttributes(attribute.Bool("truncated", meta.Truncated))

	return &graph.Graph{Nodes: nodes, Edges: edges, Meta: meta}
}

// unify namespaces the raw store keys into node ids and cleans labels. Rows
// with an unclassified kind or relation are dropped and counted.
func unify(raw *storage.RawGraph) ([]graph.Node, []graph.Edge, int) {
	skipped := 0

	nodes := make([]graph.Node, 0, len(raw.Nodes))
	for _, rn := range raw.Nodes {
		if rn.Kind == graph.KindUnspecified {
			skipped++
			continue
		}
		n := graph.Node{
			ID:    graph.NodeID(rn.Kind, rn.ID),
			Label: graph.SanitizeLabel(rn.Label),
			Kind:  rn.Kind,
		}
		if rn.Kind != graph.KindGroup {
			n.GroupID = rn.GroupID
		}
		if rn.Size != nil {
			n.Size = *rn.Size
			n.FixedSize = true
		}
		nodes = append(nodes, n)
	}

	edges := make([]graph.Edge, 0, len(raw.Edges))
	for _, re := range raw.Edges {
		sourceKind, targetKind := re.Relation.Endpoints()
		if sourceKind == graph.KindUnspecified || targetKind == graph.KindUnspecified {
			skipped++
			continue
		}
		weight := re.Weight
		if !(weight > 0) || math.IsInf(weight, 0) {
			weight = re.Relation.DefaultWeight()
		}
		edges = append(edges, graph.Edge{
			Source:   graph.NodeID(sourceKind, re.Source),
			Target:   graph.NodeID(targetKind, re.Target),
			Weight:   weight,
			Relation: re.Relation,
		})
	}

	return nodes, edges, skipped
}
