// Package persistence provides the storage abstraction for workflows and connections.
package persistence

import (
	"context"

	"github.com/flowzen/flowzen/pkg/models"
)

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ConnectionRepository() ConnectionRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// ListWorkflowsOptions filters and orders a user's workflows.
type ListWorkflowsOptions struct {
	Published *bool
	SortBy    string // created_at, updated_at or name
	SortOrder string // asc or desc
	Limit     int
	Offset    int
}

// AllowedSortFields guards SortBy, which some implementations interpolate into queries.
var AllowedSortFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"name":       true,
}

// Normalize fills defaults and rejects unknown sort fields or orders.
func (o *ListWorkflowsOptions) Normalize() error {
	if o.Limit <= 0 || o.Limit > 100 {
		o.Limit = 20
	}

	if o.Offset < 0 {
		o.Offset = 0
	}

	if o.SortBy == "" {
		o.SortBy = "created_at"
	}

	if o.SortOrder == "" {
		o.SortOrder = "desc"
	}

	if !AllowedSortFields[o.SortBy] {
		return ErrInvalidSortField
	}

	if o.SortOrder != "asc" && o.SortOrder != "desc" {
		return ErrInvalidSortOrder
	}

	return nil
}

type WorkflowRepository interface {
	Create(ctx context.Context, workflow *models.Workflow) error
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	ListByUser(ctx context.Context, userID string, opts ListWorkflowsOptions) ([]*models.Workflow, error)
	CountByUser(ctx context.Context, userID string) (total int, published int, err error)
	// SaveGraph replaces nodes and edges in a single atomic write.
	SaveGraph(ctx context.Context, id string, nodes []*models.Node, edges []*models.Edge) error
	// SaveTemplate writes only the fields set in patch.
	SaveTemplate(ctx context.Context, id string, patch models.TemplatePatch) error
	// AppendSlackChannel adds one channel; a channel already present is left as is.
	AppendSlackChannel(ctx context.Context, id string, channel string) error
	SetPublish(ctx context.Context, id string, publish bool) error
}

type ConnectionRepository interface {
	// Create fails with ErrConnectionAlreadyExists when the (user, type) or
	// (user, type, external id) key is taken.
	Create(ctx context.Context, connection *models.Connection) error
	GetByUserAndType(ctx context.Context, userID string, connectionType models.ConnectionType) (*models.Connection, error)
	GetByExternalID(ctx context.Context, userID string, connectionType models.ConnectionType, externalID string) (*models.Connection, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Connection, error)
}
