package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/flowzen/flowzen/pkg/eventbus"
	"github.com/flowzen/flowzen/pkg/events"
	"github.com/flowzen/flowzen/pkg/flow"
	"github.com/flowzen/flowzen/pkg/locker"
	"github.com/flowzen/flowzen/pkg/models"
	"github.com/flowzen/flowzen/pkg/persistence"
)

type Workflow struct {
	persistence persistence.Persistence
	locker      locker.Locker
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
}

// NewWorkflow creates a new workflow service. publisher may be nil.
func NewWorkflow(
	persistence persistence.Persistence,
	locker locker.Locker,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
) *Workflow {
	return &Workflow{
		persistence: persistence,
		locker:      locker,
		publisher:   publisher,
		logger:      logger,
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// Create stores a new workflow with an empty graph, unpublished.
func (w *Workflow) Create(ctx context.Context, userID, name, description string) (*models.Workflow, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}

	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)

	if name == "" {
		return nil, NewValidationError("Create", "NAME_REQUIRED", "workflow name is required", nil)
	}

	if description == "" {
		return nil, NewValidationError("Create", "DESCRIPTION_REQUIRED", "workflow description is required", nil)
	}

	workflow := &models.Workflow{
		UserID:        userID,
		Name:          name,
		Description:   description,
		Nodes:         []*models.Node{},
		Edges:         []*models.Edge{},
		SlackChannels: []string{},
	}

	if err := w.persistence.WorkflowRepository().Create(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "workflow created", "workflow_id", workflow.ID, "user_id", userID)

	publish(ctx, w.publisher, w.logger, workflow.ID, events.WorkflowCreated{
		BaseEvent: events.NewBaseEvent(events.WorkflowCreatedEvent, userID, workflow.ID),
		Name:      workflow.Name,
	})

	return workflow, nil
}

// ListWorkflowsRequest contains options for listing a user's workflows.
type ListWorkflowsRequest struct {
	Limit     int
	Offset    int
	Published *bool
	SortBy    string
	SortOrder string
}

// List returns the user's workflows.
func (w *Workflow) List(ctx context.Context, userID string, req ListWorkflowsRequest) ([]*models.Workflow, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}

	opts := persistence.ListWorkflowsOptions{
		Published: req.Published,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
		Limit:     req.Limit,
		Offset:    req.Offset,
	}

	workflows, err := w.persistence.WorkflowRepository().ListByUser(ctx, userID, opts)
	if err != nil {
		if errors.Is(err, persistence.ErrInvalidSortField) || errors.Is(err, persistence.ErrInvalidSortOrder) {
			return nil, NewValidationError("List", "INVALID_SORT", err.Error(), err)
		}

		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

// FetchByID retrieves a workflow owned by userID.
func (w *Workflow) FetchByID(ctx context.Context, userID, id string) (*models.Workflow, error) {
	return fetchOwned(ctx, w.persistence, "FetchByID", userID, id)
}

// Graph is a snapshot of a stored graph and the facts derived from it.
type Graph struct {
	Nodes          []*models.Node    `json:"nodes"`
	Edges          []*models.Edge    `json:"edges"`
	ReachableTypes []models.NodeType `json:"reachable_types"`
	Ready          bool              `json:"ready"`
	Report         flow.Report       `json:"report"`
}

func newGraph(nodes []*models.Node, edges []*models.Edge) *Graph {
	if nodes == nil {
		nodes = []*models.Node{}
	}

	if edges == nil {
		edges = []*models.Edge{}
	}

	report := flow.Analyze(nodes, edges)

	return &Graph{
		Nodes:          nodes,
		Edges:          edges,
		ReachableTypes: report.ReachableTypes,
		Ready:          report.Ready,
		Report:         report,
	}
}

// Graph returns the stored nodes and edges of a workflow.
func (w *Workflow) Graph(ctx context.Context, userID, id string) (*Graph, error) {
	workflow, err := w.FetchByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	return newGraph(workflow.Nodes, workflow.Edges), nil
}

// SaveGraph replaces the graph of a workflow wholesale. Concurrent saves of the
// same workflow fail fast with ErrSaveInProgress.
func (w *Workflow) SaveGraph(
	ctx context.Context,
	userID, id string,
	nodes []*models.Node,
	edges []*models.Edge,
) (*Graph, error) {
	if _, err := w.FetchByID(ctx, userID, id); err != nil {
		return nil, err
	}

	if err := flow.ValidateGraph(nodes, edges); err != nil {
		return nil, NewValidationError("SaveGraph", "INVALID_GRAPH", err.Error(), errors.Join(ErrValidation, err))
	}

	release, err := w.locker.TryLock(ctx, "workflow:"+id)
	if err != nil {
		if errors.Is(err, locker.ErrLocked) {
			return nil, newError("SaveGraph", "SAVE_IN_PROGRESS", "another save of this workflow is in progress", ErrSaveInProgress)
		}

		return nil, fmt.Errorf("failed to acquire save lock: %w", err)
	}

	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			w.logger.ErrorContext(ctx, "failed to release save lock", "workflow_id", id, "error", err)
		}
	}()

	if err := w.persistence.WorkflowRepository().SaveGraph(ctx, id, nodes, edges); err != nil {
		return nil, fmt.Errorf("failed to save graph: %w", err)
	}

	graph := newGraph(nodes, edges)

	reachable := make([]string, 0, len(graph.ReachableTypes))
	for _, t := range graph.ReachableTypes {
		reachable = append(reachable, string(t))
	}

	w.logger.InfoContext(ctx, "workflow graph saved",
		"workflow_id", id,
		"nodes", len(graph.Nodes),
		"edges", len(graph.Edges),
	)

	publish(ctx, w.publisher, w.logger, id, events.WorkflowGraphSaved{
		BaseEvent:      events.NewBaseEvent(events.WorkflowGraphSavedEvent, userID, id),
		NodeCount:      len(graph.Nodes),
		EdgeCount:      len(graph.Edges),
		ReachableTypes: reachable,
	})

	return graph, nil
}

// fetchOwned loads a workflow and checks it belongs to userID.
func fetchOwned(ctx context.Context, p persistence.Persistence, op, userID, id string) (*models.Workflow, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}

	workflow, err := p.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}

	if workflow.UserID != userID {
		return nil, newError(op, "FORBIDDEN", "workflow belongs to another user", ErrForbidden)
	}

	return workflow, nil
}

func publish(ctx context.Context, publisher eventbus.EventPublisher, logger *slog.Logger, key string, event eventbus.Event) {
	if publisher == nil {
		return
	}

	if err := publisher.Publish(ctx, key, event); err != nil {
		logger.ErrorContext(ctx, "failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
