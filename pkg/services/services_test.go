package services

import (
	"log/slog"
	"testing"

	"github.com/flowzen/flowzen/pkg/locker"
	"github.com/flowzen/flowzen/pkg/models"
	"github.com/flowzen/flowzen/pkg/persistence/file"
	"github.com/flowzen/flowzen/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newWorkflowService(t *testing.T) (*Workflow, *file.Persistence) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())

	return NewWorkflow(p, locker.NewMemory(), nil, discardLogger()), p
}

// storeWorkflow creates a workflow for userID holding a trigger wired to a
// node of actionType. An empty actionType stores an empty graph.
func storeWorkflow(t *testing.T, p *file.Persistence, userID string, actionType models.NodeType) *models.Workflow {
	t.Helper()

	workflow := testutil.CreateTestWorkflow(userID, func(w *models.Workflow) { w.ID = "" })

	if actionType != "" {
		nodes, edges := testutil.TriggerToAction(actionType)
		workflow.Nodes = nodes
		workflow.Edges = edges
	}

	require.NoError(t, p.WorkflowRepository().Create(t.Context(), workflow))

	return workflow
}
