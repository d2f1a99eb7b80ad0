package graph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDedupe(t *testing.T) {
	nodes := []Node{
		{ID: "actor:1", Kind: KindActor},
		{ID: "group:1", Label: "G1", Kind: KindGroup},
		{ID: "actor:1", Label: "ze", Kind: KindActor, Size: 42, FixedSize: true},
		{ID: "", Label: "anonymous"},
		{ID: "group:1", Label: "other"},
	}
	edges := []Edge{
		{Source: "actor:1", Target: "group:1", Weight: 0.5, Relation: BelongsTo},
		{Source: "actor:1", Target: "group:1", Weight: 1, Relation: BelongsTo},
		{Source: "actor:1", Target: "group:1", Weight: 0.2, Relation: BelongsTo},
		{Source: "actor:1", Target: "group:9", Weight: 1, Relation: BelongsTo},
		{Source: "actor:1", Target: "group:1", Weight: 0, Relation: Holds},
		{Source: "actor:1", Target: "group:1", Weight: -1, Relation: RoleOf},
	}

	gotNodes, gotEdges := Dedupe(nodes, edges)

	require.Equal(t, []Node{
		{ID: "actor:1", Label: "ze", Kind: KindActor, Size: 42, FixedSize: true},
		{ID: "group:1", Label: "G1", Kind: KindGroup},
	}, gotNodes)
	require.Equal(t, []Edge{
		{Source: "actor:1", Target: "group:1", Weight: 1, Relation: BelongsTo},
	}, gotEdges)
}

func TestDedupeKeepsDistinctRelations(t *testing.T) {
	nodes := []Node{{ID: "actor:1"}, {ID: "actor:2"}}
	edges := []Edge{
		{Source: "actor:1", Target: "actor:2", Weight: CoGroupWeight, Relation: CoGroup},
		{Source: "actor:1", Target: "actor:2", Weight: CoRoleWeight, Relation: CoRole},
		{Source: "actor:2", Target: "actor:1", Weight: CoRoleWeight, Relation: CoRole},
	}

	_, got := Dedupe(nodes, edges)
	require.Len(t, got, 3)
}

func TestDedupeEmpty(t *testing.T) {
	nodes, edges := Dedupe(nil, nil)
	require.Empty(t, nodes)
	require.Empty(t, edges)
}
