package services

import (
	"context"
	"fmt"

	"github.com/flowzen/flowzen/pkg/docgen"
	"github.com/flowzen/flowzen/pkg/flow"
	"github.com/flowzen/flowzen/pkg/models"
	"github.com/flowzen/flowzen/pkg/persistence"
)

type Documentation struct {
	persistence persistence.Persistence
	generator   docgen.Generator
}

func NewDocumentation(persistence persistence.Persistence, generator docgen.Generator) *Documentation {
	return &Documentation{persistence: persistence, generator: generator}
}

// Generate documents the stored graph of a workflow. Like publishing, it needs
// at least one connected node.
func (d *Documentation) Generate(ctx context.Context, userID, workflowID string) (string, error) {
	workflow, err := fetchOwned(ctx, d.persistence, "GenerateDocumentation", userID, workflowID)
	if err != nil {
		return "", err
	}

	if !flow.Ready(flow.ResolveReachableTypes(workflow.Nodes, workflow.Edges)) {
		return "", newError("GenerateDocumentation", "FLOW_NOT_READY", "connect at least one node first", ErrFlowNotReady)
	}

	connections, err := d.persistence.ConnectionRepository().ListByUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to list connections: %w", err)
	}

	types := make([]models.ConnectionType, 0, len(connections))
	for _, connection := range connections {
		types = append(types, connection.Type)
	}

	doc, err := d.generator.Generate(ctx, docgen.Input{
		Name:        workflow.Name,
		Description: workflow.Description,
		Nodes:       workflow.Nodes,
		Edges:       workflow.Edges,
		Connections: types,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate documentation: %w", err)
	}

	return doc, nil
}
