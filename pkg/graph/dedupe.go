package graph

// Dedupe returns nodes with unique ids and edges collapsed by (source, target,
// relation). The first occurrence of a node wins, borrowing the label and size
// of later duplicates when it has none. Colliding edges keep the highest weight.
// Edges with a missing endpoint or a non-positive weight are dropped. Input
// order is preserved otherwise.
func Dedupe(nodes []Node, edges []Edge) ([]Node, []Edge) {
	index := make(map[string]int, len(nodes))
	outNodes := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if n.ID == "" {
			continue
		}
		i, seen := index[n.ID]
		if !seen {
			index[n.ID] = len(outNodes)
			outNodes = append(outNodes, n)
			continue
		}
		kept := &outNodes[i]
		if kept.Label == "" {
			kept.Label = n.Label
		}
		if !kept.FixedSize && n.FixedSize {
			kept.Size, kept.FixedSize = n.Size, true
		}
	}

	edgeIndex := make(map[edgeKey]int, len(edges))
	outEdges := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if e.Weight <= 0 {
			continue
		}
		if _, ok := index[e.Source]; !ok {
			continue
		}
		if _, ok := index[e.Target]; !ok {
			continue
		}
		k := keyOf(e)
		if i, seen := edgeIndex[k]; seen {
			if e.Weight > outEdges[i].Weight {
				outEdges[i].Weight = e.Weight
			}
			continue
		}
		edgeIndex[k] = len(outEdges)
		outEdges = append(outEdges, e)
	}

	return outNodes, outEdges
}
