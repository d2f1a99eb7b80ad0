package graph

import "slices"

// InferenceResult holds the inferred edges and whether a class ran out of
// budget before every candidate pair was emitted.
type InferenceResult struct {
	Edges []Edge

	CoGroupPairs     int
	CoRolePairs      int
	CoGroupExhausted bool
	CoRoleExhausted  bool
}

// InferCoOccurrence derives actor-actor edges from shared membership:
// a CoGroup edge for each unordered pair of actors belonging to the same group
// and a CoRole edge for each unordered pair holding the same role. Membership
// is read from the BelongsTo and Holds edges whose source is a known actor.
//
// Each class may emit up to maxPairs edges. Past the budget, candidates are
// dropped without any importance ranking; which pairs survive is unspecified.
// Pairs are canonical (source < target), so (a,b) and (b,a) are one edge, and
// an actor is never paired with itself.
func InferCoOccurrence(nodes []Node, edges []Edge, maxPairs int) InferenceResult {
	var res InferenceResult
	if maxPairs <= 0 {
		return res
	}

	actors := make(map[string]struct{})
	for _, n := range nodes {
		if n.Kind == KindActor {
			actors[n.ID] = struct{}{}
		}
	}

	byGroup := make(map[string][]string)
	byRole := make(map[string][]string)
	for _, e := range edges {
		if _, ok := actors[e.Source]; !ok {
			continue
		}
		switch e.Relation {
		case BelongsTo:
			byGroup[e.Target] = append(byGroup[e.Target], e.Source)
		case Holds:
			byRole[e.Target] = append(byRole[e.Target], e.Source)
		case RoleOf, CoGroup, CoRole, RelationUnspecified:
		}
	}

	var groupEdges, roleEdges []Edge
	groupEdges, res.CoGroupExhausted = pairUp(byGroup, CoGroup, maxPairs)
	roleEdges, res.CoRoleExhausted = pairUp(byRole, CoRole, maxPairs)

	res.CoGroupPairs = len(groupEdges)
	res.CoRolePairs = len(roleEdges)
	res.Edges = append(groupEdges, roleEdges...)

	return res
}

// pairUp emits one edge per unordered pair of members sharing a container,
// stopping as soon as a pair beyond budget shows up, which it reports.
func pairUp(members map[string][]string, rel Relation, budget int) ([]Edge, bool) {
	containers := make([]string, 0, len(members))
	for c := range members {
		containers = append(containers, c)
	}
	slices.Sort(containers)

	seen := make(map[edgeKey]struct{})
	out := make([]Edge, 0, min(budget, 1024))

	for _, c := range containers {
		ids := slices.Clone(members[c])
		slices.Sort(ids)
		ids = slices.Compact(ids)

		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				// ids are sorted, so ids[i] < ids[j]
				k := edgeKey{source: ids[i], target: ids[j], relation: rel}
				if _, dup := seen[k]; dup {
					continue
				}
				if len(out) >= budget {
					return out, true
				}
				seen[k] = struct{}{}
				out = append(out, Edge{Source: k.source, Target: k.target, Weight: rel.DefaultWeight(), Relation: rel})
			}
		}
	}

	return out, false
}
