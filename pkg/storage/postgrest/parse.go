package postgrest

import (
	"fmt"
	"math"

	"github.com/tidwall/gjson"

	"github.com/kgview/kgview/pkg/graph"
	"github.com/kgview/kgview/pkg/storage"
)

// Accepted spellings of each field, in order of preference. Functions
// written against the legacy schema answer with Portuguese names.
var (
	nodesKeys  = []string{"nodes", "nodos"}
	edgesKeys  = []string{"edges", "arestas"}
	idKeys     = []string{"id", "node_id"}
	labelKeys  = []string{"label", "nome", "name"}
	kindKeys   = []string{"kind", "type", "tipo"}
	groupKeys  = []string{"groupId", "group_id", "faccao_id", "group", "grupo"}
	sizeKeys   = []string{"size", "value"}
	sourceKeys = []string{"source", "from", "origem"}
	targetKeys = []string{"target", "to", "destino"}
	relKeys    = []string{"relation", "label", "tipo", "type"}
	weightKeys = []string{"weight", "peso"}
)

// ParseGraph decodes an rpc answer into a raw graph. The answer is either
// the graph object or a one element array holding it. Rows whose kind or
// relation is not recognised, and inferred edges, are skipped and counted.
func ParseGraph(payload []byte) (*storage.RawGraph, int, error) {
	if !gjson.ValidBytes(payload) {
		return nil, 0, fmt.Errorf("rpc answered with invalid json")
	}

	root := gjson.ParseBytes(payload)
	if root.IsArray() {
		items := root.Array()
		switch len(items) {
		case 0:
			return &storage.RawGraph{Nodes: []storage.RawNode{}, Edges: []storage.RawEdge{}}, 0, nil
		case 1:
			root = items[0]
		default:
			return nil, 0, fmt.Errorf("rpc answered with %d rows, expected a single graph", len(items))
		}
	}
	if root.Type == gjson.Null {
		return &storage.RawGraph{Nodes: []storage.RawNode{}, Edges: []storage.RawEdge{}}, 0, nil
	}
	if !root.IsObject() {
		return nil, 0, fmt.Errorf("rpc answered with %s, expected an object", root.Type)
	}

	out := &storage.RawGraph{Nodes: []storage.RawNode{}, Edges: []storage.RawEdge{}}
	skipped := 0

	for _, n := range firstOf(root, nodesKeys...).Array() {
		node, ok := parseNode(n)
		if !ok {
			skipped++
			continue
		}
		out.Nodes = append(out.Nodes, node)
	}

	for _, e := range firstOf(root, edgesKeys...).Array() {
		edge, ok := parseEdge(e)
		if !ok {
			skipped++
			continue
		}
		out.Edges = append(out.Edges, edge)
	}

	return out, skipped, nil
}

func parseNode(n gjson.Result) (storage.RawNode, bool) {
	id := firstOf(n, idKeys...).String()
	if id == "" {
		return storage.RawNode{}, false
	}
	kind, err := graph.ParseKind(firstOf(n, kindKeys...).String())
	if err != nil {
		return storage.RawNode{}, false
	}

	node := storage.RawNode{
		ID:    id,
		Label: firstOf(n, labelKeys...).String(),
		Kind:  kind,
	}
	if kind != graph.KindGroup {
		node.GroupID = firstOf(n, groupKeys...).Int()
	}
	if size := firstOf(n, sizeKeys...); size.Type == gjson.Number {
		if v := size.Float(); !math.IsInf(v, 0) {
			node.Size = &v
		}
	}
	return node, true
}

func parseEdge(e gjson.Result) (storage.RawEdge, bool) {
	source := firstOf(e, sourceKeys...).String()
	target := firstOf(e, targetKeys...).String()
	if source == "" || target == "" {
		return storage.RawEdge{}, false
	}
	rel, err := graph.ParseRelation(firstOf(e, relKeys...).String())
	if err != nil || rel.IsInferred() {
		return storage.RawEdge{}, false
	}

	weight := rel.DefaultWeight()
	// numbers past float64 range parse to Inf and are treated as absent
	if w := firstOf(e, weightKeys...); w.Type == gjson.Number {
		if v := w.Float(); v > 0 && !math.IsInf(v, 0) {
			weight = v
		}
	}

	return storage.RawEdge{Source: source, Target: target, Weight: weight, Relation: rel}, true
}

// firstOf returns the first of keys present and not null in r.
func firstOf(r gjson.Result, keys ...string) gjson.Result {
	for _, key := range keys {
		if v := r.Get(key); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}
