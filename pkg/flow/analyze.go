package flow

import "github.com/flowzen/flowzen/pkg/models"

// Report is advisory. Nothing in it blocks a save.
type Report struct {
	ReachableTypes []models.NodeType `json:"reachable_types"`
	Ready          bool              `json:"ready"`
	TriggerCount   int               `json:"trigger_count"`
	HasCycle       bool              `json:"has_cycle"`
	OrphanNodes    []string          `json:"orphan_nodes"`
}

// Analyze summarizes a graph for the editor.
func Analyze(nodes []*models.Node, edges []*models.Edge) Report {
	reachable := ResolveReachableTypes(nodes, edges)

	report := Report{
		ReachableTypes: reachable.Sorted(),
		Ready:          Ready(reachable),
		OrphanNodes:    []string{},
	}

	linked := make(map[string]bool)
	adjacency := make(map[string][]string)

	for _, edge := range edges {
		if edge == nil {
			continue
		}

		linked[edge.Source] = true
		linked[edge.Target] = true
		adjacency[edge.Source] = append(adjacency[edge.Source], edge.Target)
	}

	for _, node := range nodes {
		if node == nil {
			continue
		}

		if node.Type == models.NodeTypeTrigger {
			report.TriggerCount++
		}

		if !linked[node.ID] {
			report.OrphanNodes = append(report.OrphanNodes, node.ID)
		}
	}

	report.HasCycle = hasCycle(adjacency)

	return report
}

func hasCycle(adjacency map[string][]string) bool {
	const (
		unvisited = iota
		visiting
		done
	)

	state := make(map[string]int)

	var visit func(id string) bool
	visit = func(id string) bool {
		switch state[id] {
		case visiting:
			return true
		case done:
			return false
		}

		state[id] = visiting

		for _, next := range adjacency[id] {
			if visit(next) {
				return true
			}
		}

		state[id] = done

		return false
	}

	for id := range adjacency {
		if state[id] == unvisited && visit(id) {
			return true
		}
	}

	return false
}
