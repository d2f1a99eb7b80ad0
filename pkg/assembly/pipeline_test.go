package assembly

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kgview/kgview/pkg/cache/local"
	"github.com/kgview/kgview/pkg/graph"
	"github.com/kgview/kgview/pkg/request"
	"github.com/kgview/kgview/pkg/storage/memory"
)

func TestPipelineRejectsInvalidRequests(t *testing.T) {
	p := NewAssembler(memory.New())
	t.Cleanup(p.Close)

	tests := []struct {
		name string
		spec *request.RequestSpec
	}{
		{name: "zero_nodes", spec: &request.RequestSpec{MaxNodes: ptr(0)}},
		{name: "negative_edges", spec: &request.RequestSpec{MaxEdges: ptr(-1)}},
		{name: "group_zero", spec: &request.RequestSpec{GroupID: ptr(int64(0))}},
		{name: "too_many_pairs", spec: &request.RequestSpec{MaxInferredPairs: ptr(1000001)}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			g, err := p.Assemble(context.Background(), test.spec)
			require.Nil(t, g)
			require.ErrorIs(t, err, ErrInvalidRequest)
			require.False(t, IsRetryable(err))
		})
	}
}

func TestPipelineAppliesDefaults(t *testing.T) {
	backend := memory.New(memory.WithDataset(scenarioDataset()))
	p := NewAssembler(backend,
		WithDefaults(request.Defaults{IncludeCoOccurrence: false, MaxNodes: 3, MaxEdges: 2}),
		WithSizing(graph.SizeParams{Floor: 5, Scale: 1}),
	)
	t.Cleanup(p.Close)

	g, err := p.Assemble(context.Background(), nil)
	require.NoError(t, err)
	requireBounded(t, g, 3, 2)
	require.True(t, g.Meta.Truncated)
	for _, e := range g.Edges {
		require.False(t, e.Relation.IsInferred())
	}
	for _, n := range g.Nodes {
		require.GreaterOrEqual(t, n.Size, 5.0)
	}
	require.Zero(t, p.CacheTTL())
}

func TestPipelineBypassRecomputes(t *testing.T) {
	backend := memory.New(memory.WithDataset(scenarioDataset()))
	localCache, err := local.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, localCache.Close())
	})

	p := NewAssembler(backend, WithCache(localCache, time.Minute))
	t.Cleanup(p.Close)
	require.Equal(t, time.Minute, p.CacheTTL())

	spec := &request.RequestSpec{GroupID: ptr(int64(1))}
	cached, err := p.Assemble(context.Background(), spec)
	require.NoError(t, err)
	require.Len(t, cached.Nodes, 5)

	// a change in the store is invisible until the cache is bypassed
	backend.PutActor(memory.Actor{ID: 14, Name: "novo", GroupID: ptr(int64(1))})

	again, err := p.Assemble(context.Background(), spec)
	require.NoError(t, err)
	require.Len(t, again.Nodes, 5)

	fresh, err := p.Assemble(context.Background(), &request.RequestSpec{GroupID: ptr(int64(1)), BypassCache: true})
	require.NoError(t, err)
	require.Len(t, fresh.Nodes, 6)
}
