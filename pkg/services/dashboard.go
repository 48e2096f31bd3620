package services

import (
	"context"
	"fmt"

	"github.com/flowzen/flowzen/pkg/models"
	"github.com/flowzen/flowzen/pkg/persistence"
)

const (
	recentWorkflowLimit = 5

	StatusOperational   = "All Systems Operational"
	StatusSetupRequired = "Setup Required"
)

type Dashboard struct {
	persistence persistence.Persistence
}

func NewDashboard(persistence persistence.Persistence) *Dashboard {
	return &Dashboard{persistence: persistence}
}

// Summary aggregates workflow counts, the most recently updated workflows and
// connection status for userID.
func (d *Dashboard) Summary(ctx context.Context, userID string) (*models.DashboardSummary, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}

	workflows := d.persistence.WorkflowRepository()

	total, published, err := workflows.CountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count workflows: %w", err)
	}

	recent, err := workflows.ListByUser(ctx, userID, persistence.ListWorkflowsOptions{
		SortBy:    "updated_at",
		SortOrder: "desc",
		Limit:     recentWorkflowLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent workflows: %w", err)
	}

	connections, err := d.persistence.ConnectionRepository().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}

	summary := &models.DashboardSummary{
		ActiveWorkflows: published,
		TotalWorkflows:  total,
		RecentWorkflows: make([]models.WorkflowSummary, 0, len(recent)),
		ConnectionCount: len(connections),
		SystemStatus:    StatusSetupRequired,
	}

	if len(connections) > 0 {
		summary.SystemStatus = StatusOperational
	}

	for _, workflow := range recent {
		summary.RecentWorkflows = append(summary.RecentWorkflows, workflow.Summary())
	}

	return summary, nil
}
