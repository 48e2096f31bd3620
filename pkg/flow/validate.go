package flow

import (
	"errors"
	"fmt"

	"github.com/flowzen/flowzen/pkg/models"
)

var (
	ErrDuplicateNodeID = errors.New("duplicate node id")
	ErrDuplicateEdgeID = errors.New("duplicate edge id")
	ErrDanglingEdge    = errors.New("edge references unknown node")
	ErrSelfLoop        = errors.New("edge connects a node to itself")
	ErrUnknownNodeType = errors.New("unknown node type")
	ErrMissingID       = errors.New("missing id")
)

// GraphError lists every structural problem found in a graph.
type GraphError struct {
	Problems []error
}

func (e *GraphError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid graph: " + e.Problems[0].Error()
	}

	return fmt.Sprintf("invalid graph: %d problems, first: %v", len(e.Problems), e.Problems[0])
}

func (e *GraphError) Unwrap() []error {
	return e.Problems
}

// ValidateGraph checks the structural rules a stored graph must satisfy:
// unique non-empty ids, known node types, edges between existing nodes and no
// self loops. Cycles and trigger counts are not checked here; see Analyze.
func ValidateGraph(nodes []*models.Node, edges []*models.Edge) error {
	var problems []error

	nodeIDs := make(map[string]struct{}, len(nodes))

	for i, node := range nodes {
		if node == nil || node.ID == "" {
			problems = append(problems, fmt.Errorf("node #%d: %w", i, ErrMissingID))

			continue
		}

		if _, seen := nodeIDs[node.ID]; seen {
			problems = append(problems, fmt.Errorf("node %q: %w", node.ID, ErrDuplicateNodeID))
		}

		nodeIDs[node.ID] = struct{}{}

		if !node.Type.IsValid() {
			problems = append(problems, fmt.Errorf("node %q type %q: %w", node.ID, node.Type, ErrUnknownNodeType))
		}
	}

	edgeIDs := make(map[string]struct{}, len(edges))

	for i, edge := range edges {
		if edge == nil || edge.ID == "" {
			problems = append(problems, fmt.Errorf("edge #%d: %w", i, ErrMissingID))

			continue
		}

		if _, seen := edgeIDs[edge.ID]; seen {
			problems = append(problems, fmt.Errorf("edge %q: %w", edge.ID, ErrDuplicateEdgeID))
		}

		edgeIDs[edge.ID] = struct{}{}

		if _, ok := nodeIDs[edge.Source]; !ok {
			problems = append(problems, fmt.Errorf("edge %q source %q: %w", edge.ID, edge.Source, ErrDanglingEdge))
		}

		if _, ok := nodeIDs[edge.Target]; !ok {
			problems = append(problems, fmt.Errorf("edge %q target %q: %w", edge.ID, edge.Target, ErrDanglingEdge))
		}

		if edge.Source == edge.Target {
			problems = append(problems, fmt.Errorf("edge %q: %w", edge.ID, ErrSelfLoop))
		}
	}

	if len(problems) > 0 {
		return &GraphError{Problems: problems}
	}

	return nil
}
