// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/flowzen/flowzen/pkg/models"
	"github.com/google/uuid"
)

// CreateTestNode creates a node of the given type with default values that can be overridden.
func CreateTestNode(nodeType models.NodeType, overrides ...func(*models.Node)) *models.Node {
	node := &models.Node{
		ID:       uuid.New().String(),
		Type:     nodeType,
		Position: models.Position{X: 100, Y: 200},
		Data: models.NodeData{
			Title:       string(nodeType),
			Description: "test node",
			Type:        nodeType,
		},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithID sets the node id.
func WithID(id string) func(*models.Node) {
	return func(n *models.Node) {
		n.ID = id
	}
}

// WithMetadata sets the node metadata, which the dispatcher reads as action configuration.
func WithMetadata(metadata map[string]any) func(*models.Node) {
	return func(n *models.Node) {
		n.Data.Metadata = metadata
	}
}

// WithPosition sets the node position.
func WithPosition(x, y float64) func(*models.Node) {
	return func(n *models.Node) {
		n.Position = models.Position{X: x, Y: y}
	}
}

// CreateTestEdge links source to target.
func CreateTestEdge(source, target string) *models.Edge {
	return &models.Edge{
		ID:     "e-" + source + "-" + target,
		Source: source,
		Target: target,
	}
}

// CreateTestWorkflow creates a workflow owned by userID with an empty graph.
func CreateTestWorkflow(userID string, overrides ...func(*models.Workflow)) *models.Workflow {
	now := time.Now().UTC()

	workflow := &models.Workflow{
		ID:            uuid.New().String(),
		UserID:        userID,
		Name:          "Test Workflow",
		Description:   "A workflow for testing",
		Nodes:         []*models.Node{},
		Edges:         []*models.Edge{},
		SlackChannels: []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// WithGraph sets nodes and edges on a test workflow.
func WithGraph(nodes []*models.Node, edges []*models.Edge) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Nodes = nodes
		w.Edges = edges
	}
}

// TriggerToAction returns a trigger wired to a node of actionType.
func TriggerToAction(actionType models.NodeType) ([]*models.Node, []*models.Edge) {
	trigger := CreateTestNode(models.NodeTypeTrigger, WithID("trigger"))
	action := CreateTestNode(actionType, WithID("action"))

	return []*models.Node{trigger, action}, []*models.Edge{CreateTestEdge(trigger.ID, action.ID)}
}
