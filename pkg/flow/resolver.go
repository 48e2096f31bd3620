// Package flow derives facts about a workflow graph: which node types are
// wired in, whether the graph is structurally sound, and advisory analysis.
package flow

import (
	"sort"

	"github.com/flowzen/flowzen/pkg/models"
)

// TypeSet is a set of node types.
type TypeSet map[models.NodeType]struct{}

func (s TypeSet) Has(t models.NodeType) bool {
	_, ok := s[t]

	return ok
}

func (s TypeSet) Len() int { return len(s) }

// Sorted returns the members in a stable order for display and JSON.
func (s TypeSet) Sorted() []models.NodeType {
	out := make([]models.NodeType, 0, len(s))
	for t := range s {
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// ResolveReachableTypes returns the types of the nodes that are the target of
// at least one edge. Only edge targets count: a lone node or an edge source
// that nothing points to is not part of the flow. Edges whose target matches
// no node contribute nothing.
func ResolveReachableTypes(nodes []*models.Node, edges []*models.Edge) TypeSet {
	set := make(TypeSet)
	if len(edges) == 0 {
		return set
	}

	byID := make(map[string]models.NodeType, len(nodes))
	for _, node := range nodes {
		if node != nil {
			byID[node.ID] = node.Type
		}
	}

	for _, edge := range edges {
		if edge == nil {
			continue
		}

		if t, ok := byID[edge.Target]; ok {
			set[t] = struct{}{}
		}
	}

	return set
}

// Ready reports whether a flow with this reachable set may be saved or published.
func Ready(set TypeSet) bool {
	return set.Len() > 0
}
