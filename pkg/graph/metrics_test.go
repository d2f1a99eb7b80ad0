package graph

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSize(t *testing.T) {
	p := DefaultSizeParams()

	require.InDelta(t, DefaultSizeFloor, p.Size(0), 1e-9)
	require.InDelta(t, DefaultSizeFloor+DefaultSizeScale*math.Log(2), p.Size(1), 1e-9)

	prev := p.Size(0)
	for deg := 1; deg < 500; deg++ {
		s := p.Size(deg)
		require.Greater(t, s, prev, "size must grow with degree")
		prev = s
	}

	negative := SizeParams{Floor: 5, Scale: -1}
	require.InDelta(t, 5.0, negative.Size(100), 1e-9)
}

func TestDegrees(t *testing.T) {
	nodes := []Node{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	edges := []Edge{
		{Source: "a", Target: "b", Relation: CoGroup},
		{Source: "a", Target: "b", Relation: CoRole},
		{Source: "a", Target: "a", Relation: CoRole},
		{Source: "a", Target: "zz", Relation: CoRole},
	}

	require.Equal(t, map[string]int{"a": 4, "b": 2, "c": 0}, Degrees(nodes, edges))
}

func TestAnnotate(t *testing.T) {
	nodes := []Node{
		{ID: "a"},
		{ID: "b", Size: 3, FixedSize: true},
		{ID: "c", Size: 55, FixedSize: true},
		{ID: "d", Size: math.NaN(), FixedSize: true},
	}
	edges := []Edge{{Source: "a", Target: "b", Relation: CoGroup}}
	p := DefaultSizeParams()

	deg := Annotate(nodes, edges, p)

	require.Equal(t, 1, deg["a"])
	require.InDelta(t, p.Size(1), nodes[0].Size, 1e-9)
	require.InDelta(t, p.Floor, nodes[1].Size, 1e-9, "authoritative sizes are raised to the floor")
	require.InDelta(t, 55.0, nodes[2].Size, 1e-9)
	require.InDelta(t, p.Floor, nodes[3].Size, 1e-9)
	for _, n := range nodes {
		require.GreaterOrEqual(t, n.Size, p.Floor)
	}
}
