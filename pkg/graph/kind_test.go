package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for raw, expected := range map[string]Kind{
		"actor":   KindActor,
		"Membro":  KindActor,
		"faccao":  KindGroup,
		"FACÇÃO":  KindGroup,
		"group":   KindGroup,
		"funcao":  KindRole,
		" role ":  KindRole,
		"função":  KindRole,
		"member":  KindActor,
		"faction": KindGroup,
	} {
		got, err := ParseKind(raw)
		require.NoError(t, err, raw)
		require.Equal(t, expected, got, raw)
	}

	_, err := ParseKind("vehicle")
	require.ErrorContains(t, err, "unknown node kind")
}

func TestParseRelation(t *testing.T) {
	for raw, expected := range map[string]Relation{
		"PERTENCE_A":       BelongsTo,
		"belongs_to":       BelongsTo,
		"EXERCE":           Holds,
		"FUNCAO_DA_FACCAO": RoleOf,
		"CO_FACCAO":        CoGroup,
		"co_funcao":        CoRole,
		"co_role":          CoRole,
	} {
		got, err := ParseRelation(raw)
		require.NoError(t, err, raw)
		require.Equal(t, expected, got, raw)
	}

	_, err := ParseRelation("KNOWS")
	require.Error(t, err)
}

func TestRelationProperties(t *testing.T) {
	tests := []struct {
		relation Relation
		inferred bool
		weight   float64
		source   Kind
		target   Kind
	}{
		{BelongsTo, false, DirectWeight, KindActor, KindGroup},
		{Holds, false, DirectWeight, KindActor, KindRole},
		{RoleOf, false, DirectWeight, KindRole, KindGroup},
		{CoGroup, true, CoGroupWeight, KindActor, KindActor},
		{CoRole, true, CoRoleWeight, KindActor, KindActor},
	}

	for _, test := range tests {
		t.Run(test.relation.String(), func(t *testing.T) {
			require.Equal(t, test.inferred, test.relation.IsInferred())
			require.InDelta(t, test.weight, test.relation.DefaultWeight(), 1e-9)
			source, target := test.relation.Endpoints()
			require.Equal(t, test.source, source)
			require.Equal(t, test.target, target)
		})
	}

	require.Greater(t, CoRoleWeight, CoGroupWeight)
	require.Greater(t, DirectWeight, CoRoleWeight)
}

func TestGraphJSON(t *testing.T) {
	g := Graph{
		Nodes: []Node{
			{ID: "actor:1", Label: "ze", Kind: KindActor, GroupID: 3, Size: 10, FixedSize: true},
			{ID: "group:3", Label: "G3", Kind: KindGroup, Size: 12.5},
		},
		Edges: []Edge{{Source: "actor:1", Target: "group:3", Weight: 1, Relation: BelongsTo}},
		Meta:  Meta{Truncated: true, SourceNodes: 5, SourceEdges: 4},
	}

	data, err := json.Marshal(g)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"nodes": [
			{"id": "actor:1", "label": "ze", "kind": "actor", "groupId": 3, "size": 10},
			{"id": "group:3", "label": "G3", "kind": "group", "groupId": 0, "size": 12.5}
		],
		"edges": [{"source": "actor:1", "target": "group:3", "weight": 1, "relation": "belongs_to"}],
		"meta": {"truncated": true, "sourceNodes": 5, "sourceEdges": 4}
	}`, string(data))

	var decoded Graph
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, KindGroup, decoded.Nodes[1].Kind)
	require.Equal(t, BelongsTo, decoded.Edges[0].Relation)
	require.False(t, decoded.Nodes[0].FixedSize)

	_, err = json.Marshal(Node{ID: "x"})
	require.Error(t, err, "unspecified kinds are never emitted")
}

func TestNodeID(t *testing.T) {
	require.Equal(t, "actor:7", NodeID(KindActor, "7"))
	require.Equal(t, "group:7", NodeID(KindGroup, "7"))
	require.NotEqual(t, NodeID(KindActor, "7"), NodeID(KindGroup, "7"))
	require.Equal(t, "role:abc", NodeID(KindRole, "abc"))
}
