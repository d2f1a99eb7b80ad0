package graph

import (
	"cmp"

	"github.com/emirpasic/gods/trees/binaryheap"
)

// Truncate bounds a unified graph to at most maxNodes nodes and maxEdges edges:
//
//  1. nodes are ranked by descending degree, ties by ascending id;
//  2. the top maxNodes nodes are kept;
//  3. only edges with both endpoints kept survive;
//  4. if more than maxEdges remain, they are ranked by descending weight, ties
//     by ascending (source, target, relation), and the top maxEdges are kept.
//
// Nodes left without edges after step 4 stay in place: node membership only
// depends on steps 1-2. degrees must come from the untruncated edge set.
// The returned flag reports whether anything was removed.
func Truncate(nodes []Node, edges []Edge, degrees map[string]int, maxNodes, maxEdges int) ([]Node, []Edge, bool) {
	maxNodes = max(maxNodes, 0)
	maxEdges = max(maxEdges, 0)
	truncated := false

	if len(nodes) > maxNodes {
		truncated = true
		nodes = topK(nodes, maxNodes, func(a, b Node) int {
			if c := cmp.Compare(degrees[b.ID], degrees[a.ID]); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
	}

	kept := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		kept[n.ID] = struct{}{}
	}

	surviving := make([]Edge, 0, min(len(edges), maxEdges))
	for _, e := range edges {
		_, src := kept[e.Source]
		_, dst := kept[e.Target]
		if src && dst {
			surviving = append(surviving, e)
		} else {
			truncated = true
		}
	}

	if len(surviving) > maxEdges {
		truncated = true
		surviving = topK(surviving, maxEdges, func(a, b Edge) int {
			if c := cmp.Compare(b.Weight, a.Weight); c != 0 {
				return c
			}
			return compareEdges(a, b)
		})
	}

	return nodes, surviving, truncated
}

// topK returns the k best items according to rank (negative means a ranks
// before b). rank must be a total order for the selection to be deterministic.
// The result order is unspecified.
func topK[T any](items []T, k int, rank func(a, b T) int) []T {
	if k <= 0 {
		return []T{}
	}
	if len(items) <= k {
		return items
	}

	// Bounded heap with the worst kept item on top, so each push costs log k.
	heap := binaryheap.NewWith(func(a, b interface{}) int {
		return rank(b.(T), a.(T))
	})
	for _, item := range items {
		heap.Push(item)
		if heap.Size() > k {
			heap.Pop()
		}
	}

	out := make([]T, 0, k)
	for _, v := range heap.Values() {
		out = append(out, v.(T))
	}
	return out
}
