package graph

import "math"

const (
	DefaultSizeFloor = 10.0
	DefaultSizeScale = 8.0
)

// SizeParams controls the degree to size mapping.
type SizeParams struct {
	Floor float64
	Scale float64
}

// DefaultSizeParams returns the floor/scale pair used when none is configured.
func DefaultSizeParams() SizeParams {
	return SizeParams{Floor: DefaultSizeFloor, Scale: DefaultSizeScale}
}

// Size maps a degree to a visual size: floor + scale*ln(degree+1), never
// below floor. Isolated nodes get the floor and hubs are compressed.
func (p SizeParams) Size(degree int) float64 {
	return math.Max(p.Floor, p.Floor+p.Scale*math.Log(float64(degree)+1))
}

// Degrees counts, for each node, the distinct edges touching it. A self loop
// counts once. Edges are expected to be de-duplicated already.
func Degrees(nodes []Node, edges []Edge) map[string]int {
	deg := make(map[string]int, len(nodes))
	for _, n := range nodes {
		deg[n.ID] = 0
	}
	for _, e := range edges {
		if _, ok := deg[e.Source]; ok {
			deg[e.Source]++
		}
		if e.Target == e.Source {
			continue
		}
		if _, ok := deg[e.Target]; ok {
			deg[e.Target]++
		}
	}
	return deg
}

// Annotate sets the size of every node from its degree in edges and returns
// the degrees it computed. Nodes carrying an authoritative size keep it,
// raised to the floor if needed.
func Annotate(nodes []Node, edges []Edge, params SizeParams) map[string]int {
	deg := Degrees(nodes, edges)
	for i := range nodes {
		n := &nodes[i]
		if n.FixedSize && !math.IsNaN(n.Size) && !math.IsInf(n.Size, 0) {
			n.Size = math.Max(params.Floor, n.Size)
			continue
		}
		n.Size = params.Size(deg[n.ID])
	}
	return deg
}
