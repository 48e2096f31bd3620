// Package editor holds the state of one in-progress edit of a workflow graph.
package editor

import (
	"context"
	"errors"

	"github.com/flowzen/flowzen/pkg/flow"
	"github.com/flowzen/flowzen/pkg/models"
)

const DefaultHistoryLimit = 50

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
	ErrNotReady      = errors.New("flow has no connected action nodes")
	ErrNodeNotFound  = errors.New("node not found")
)

// GraphSaver persists a full graph snapshot.
type GraphSaver interface {
	SaveGraph(ctx context.Context, workflowID string, nodes []*models.Node, edges []*models.Edge) error
}

type snapshot struct {
	nodes []*models.Node
	edges []*models.Edge
}

// Session is owned by a single caller and is not safe for concurrent use.
type Session struct {
	workflowID string
	current    snapshot
	history    []snapshot
	future     []snapshot
	limit      int
	selected   string
	reachable  flow.TypeSet
}

// NewSession starts an empty session for workflowID. A limit <= 0 uses
// DefaultHistoryLimit.
func NewSession(workflowID string, limit int) *Session {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	return &Session{
		workflowID: workflowID,
		limit:      limit,
		reachable:  flow.TypeSet{},
	}
}

// Load replaces the graph with stored data and clears history.
func (s *Session) Load(nodes []*models.Node, edges []*models.Edge) {
	s.current = snapshot{nodes: cloneNodes(nodes), edges: cloneEdges(edges)}
	s.history = nil
	s.future = nil
	s.selected = ""
	s.recompute()
}

// UpdateNodes replaces the node list, recording the previous state.
func (s *Session) UpdateNodes(nodes []*models.Node) {
	s.push()
	s.current.nodes = cloneNodes(nodes)
	s.recompute()
}

// SetEdges replaces the edge list, recording the previous state.
func (s *Session) SetEdges(edges []*models.Edge) {
	s.push()
	s.current.edges = cloneEdges(edges)
	s.recompute()
}

// Connect adds an edge between two existing nodes.
func (s *Session) Connect(edge *models.Edge) error {
	if s.node(edge.Source) == nil || s.node(edge.Target) == nil {
		return ErrNodeNotFound
	}

	s.push()

	edgeCopy := *edge
	s.current.edges = append(cloneEdges(s.current.edges), &edgeCopy)
	s.recompute()

	return nil
}

// Disconnect removes the edge with the given id. Unknown ids are ignored.
func (s *Session) Disconnect(edgeID string) {
	kept := make([]*models.Edge, 0, len(s.current.edges))

	for _, edge := range s.current.edges {
		if edge.ID != edgeID {
			kept = append(kept, edge)
		}
	}

	if len(kept) == len(s.current.edges) {
		return
	}

	s.push()
	s.current.edges = kept
	s.recompute()
}

// Select marks a node as the one being edited.
func (s *Session) Select(nodeID string) error {
	if nodeID != "" && s.node(nodeID) == nil {
		return ErrNodeNotFound
	}

	s.selected = nodeID

	return nil
}

// Selected returns the selected node, or nil.
func (s *Session) Selected() *models.Node {
	return s.node(s.selected)
}

func (s *Session) Undo() error {
	if len(s.history) == 0 {
		return ErrNothingToUndo
	}

	last := len(s.history) - 1
	s.future = append(s.future, s.current)
	s.current = s.history[last]
	s.history = s.history[:last]
	s.dropStaleSelection()
	s.recompute()

	return nil
}

func (s *Session) Redo() error {
	if len(s.future) == 0 {
		return ErrNothingToRedo
	}

	last := len(s.future) - 1
	s.history = append(s.history, s.current)
	s.current = s.future[last]
	s.future = s.future[:last]
	s.dropStaleSelection()
	s.recompute()

	return nil
}

func (s *Session) CanUndo() bool { return len(s.history) > 0 }
func (s *Session) CanRedo() bool { return len(s.future) > 0 }

// Nodes returns a copy of the current nodes.
func (s *Session) Nodes() []*models.Node { return cloneNodes(s.current.nodes) }

// Edges returns a copy of the current edges.
func (s *Session) Edges() []*models.Edge { return cloneEdges(s.current.edges) }

// ReachableTypes is recomputed after every graph change.
func (s *Session) ReachableTypes() flow.TypeSet { return s.reachable }

// CanSave gates both save and publish: at least one node must be an edge target.
func (s *Session) CanSave() bool { return flow.Ready(s.reachable) }

// CanPublish follows the same rule as CanSave.
func (s *Session) CanPublish() bool { return s.CanSave() }

// Save hands the current snapshot to saver. It refuses when CanSave is false.
func (s *Session) Save(ctx context.Context, saver GraphSaver) error {
	if !s.CanSave() {
		return ErrNotReady
	}

	return saver.SaveGraph(ctx, s.workflowID, s.Nodes(), s.Edges())
}

func (s *Session) push() {
	s.history = append(s.history, snapshot{nodes: s.current.nodes, edges: s.current.edges})
	if len(s.history) > s.limit {
		s.history = s.history[len(s.history)-s.limit:]
	}

	s.future = nil
}

func (s *Session) recompute() {
	s.reachable = flow.ResolveReachableTypes(s.current.nodes, s.current.edges)
}

func (s *Session) dropStaleSelection() {
	if s.node(s.selected) == nil {
		s.selected = ""
	}
}

func (s *Session) node(id string) *models.Node {
	if id == "" {
		return nil
	}

	for _, node := range s.current.nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

func cloneNodes(nodes []*models.Node) []*models.Node {
	out := make([]*models.Node, 0, len(nodes))

	for _, node := range nodes {
		if node == nil {
			continue
		}

		n := *node
		if node.Data.Metadata != nil {
			n.Data.Metadata = make(map[string]any, len(node.Data.Metadata))
			for k, v := range node.Data.Metadata {
				n.Data.Metadata[k] = v
			}
		}

		out = append(out, &n)
	}

	return out
}

func cloneEdges(edges []*models.Edge) []*models.Edge {
	out := make([]*models.Edge, 0, len(edges))

	for _, edge := range edges {
		if edge == nil {
			continue
		}

		e := *edge
		out = append(out, &e)
	}

	return out
}
