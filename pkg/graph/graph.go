// Package graph contains the node/edge model served to renderers and the pure
// transforms applied to it: label cleanup, de-duplication, co-occurrence
// inference, connectivity sizing and bounding.
package graph

import (
	"cmp"
	"slices"
)

// Node is a renderable entity. ID is unique across every kind.
type Node struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	Kind    Kind    `json:"kind"`
	GroupID int64   `json:"groupId"`
	Size    float64 `json:"size"`

	// FixedSize marks Size as authoritative (provided by the source), in which
	// case degree based sizing leaves it alone.
	FixedSize bool `json:"-"`
}

// Edge joins two node ids.
type Edge struct {
	Source   string   `json:"source"`
	Target   string   `json:"target"`
	Weight   float64  `json:"weight"`
	Relation Relation `json:"relation"`
}

// Meta describes how the served graph relates to what the source returned.
type Meta struct {
	// Truncated is set when the bounding step removed nodes or edges.
	Truncated bool `json:"truncated"`

	// SourceNodes and SourceEdges count the unified graph before bounding.
	SourceNodes int `json:"sourceNodes"`
	SourceEdges int `json:"sourceEdges"`
}

// Graph is the bounded graph handed to renderers. It is never mutated once emitted.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
	Meta  Meta   `json:"meta"`
}

// NodeID namespaces a store id by entity kind so that, e.g., actor 7 and group 7
// never collide.
func NodeID(kind Kind, nativeID string) string {
	return kind.String() + ":" + nativeID
}

type edgeKey struct {
	source   string
	target   string
	relation Relation
}

func keyOf(e Edge) edgeKey {
	return edgeKey{source: e.Source, target: e.Target, relation: e.Relation}
}

func compareEdges(a, b Edge) int {
	if c := cmp.Compare(a.Source, b.Source); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Target, b.Target); c != 0 {
		return c
	}
	return cmp.Compare(a.Relation, b.Relation)
}

// Sort puts nodes in id order and edges in (source, target, relation) order so
// that identical graphs serialize to identical bytes.
func Sort(g *Graph) {
	slices.SortFunc(g.Nodes, func(a, b Node) int {
		return cmp.Compare(a.ID, b.ID)
	})
	slices.SortFunc(g.Edges, compareEdges)
}
