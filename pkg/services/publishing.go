package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flowzen/flowzen/pkg/catalog"
	"github.com/flowzen/flowzen/pkg/eventbus"
	"github.com/flowzen/flowzen/pkg/events"
	"github.com/flowzen/flowzen/pkg/flow"
	"github.com/flowzen/flowzen/pkg/models"
	"github.com/flowzen/flowzen/pkg/persistence"
)

// Publishing toggles whether a workflow is live. It never saves the graph.
type Publishing struct {
	persistence persistence.Persistence
	catalog     *catalog.Catalog
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
}

// NewPublishing creates a new workflow publishing service. publisher may be nil.
func NewPublishing(
	persistence persistence.Persistence,
	c *catalog.Catalog,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
) *Publishing {
	return &Publishing{
		persistence: persistence,
		catalog:     c,
		publisher:   publisher,
		logger:      logger,
	}
}

// SetPublish publishes or unpublishes a workflow. Publishing requires a stored
// graph with at least one connected node and a connection for every reachable
// node type that needs one; unpublishing is always allowed.
func (p *Publishing) SetPublish(ctx context.Context, userID, workflowID string, live bool) (string, error) {
	workflow, err := fetchOwned(ctx, p.persistence, "SetPublish", userID, workflowID)
	if err != nil {
		return "", err
	}

	if live {
		if err := p.validateForPublishing(ctx, workflow); err != nil {
			return "", err
		}
	}

	if err := p.persistence.WorkflowRepository().SetPublish(ctx, workflowID, live); err != nil {
		return "", fmt.Errorf("failed to set publish: %w", err)
	}

	if live {
		p.logger.InfoContext(ctx, "workflow published", "workflow_id", workflowID)

		publish(ctx, p.publisher, p.logger, workflowID, events.WorkflowPublished{
			BaseEvent: events.NewBaseEvent(events.WorkflowPublishedEvent, userID, workflowID),
		})

		return "Workflow published", nil
	}

	p.logger.InfoContext(ctx, "workflow unpublished", "workflow_id", workflowID)

	publish(ctx, p.publisher, p.logger, workflowID, events.WorkflowUnpublished{
		BaseEvent: events.NewBaseEvent(events.WorkflowUnpublishedEvent, userID, workflowID),
	})

	return "Workflow unpublished", nil
}

// validateForPublishing ensures a workflow is ready to be published.
func (p *Publishing) validateForPublishing(ctx context.Context, workflow *models.Workflow) error {
	reachable := flow.ResolveReachableTypes(workflow.Nodes, workflow.Edges)
	if !flow.Ready(reachable) {
		return newError("SetPublish", "FLOW_NOT_READY", "connect at least one node before publishing", ErrFlowNotReady)
	}

	connections := p.persistence.ConnectionRepository()

	for _, nodeType := range reachable.Sorted() {
		required, ok := p.catalog.RequiredConnection(nodeType)
		if !ok || required == "" {
			continue
		}

		_, err := connections.GetByUserAndType(ctx, workflow.UserID, required)
		if err == nil {
			continue
		}

		if !persistence.IsConnectionNotFound(err) {
			return fmt.Errorf("failed to check %s connection: %w", required, err)
		}

		cause := fmt.Errorf("%w: %s is not connected", ErrPreconditionFailed, required)
		if required == models.ConnectionTypeEmail {
			cause = ErrNoEmailConnection
		}

		return newError("SetPublish", "CONNECTION_REQUIRED", fmt.Sprintf("%s is not connected", required), cause)
	}

	return nil
}
