package services

import (
	"context"
	"errors"
	"testing"

	"github.com/flowzen/flowzen/pkg/events"
	"github.com/flowzen/flowzen/pkg/flow"
	"github.com/flowzen/flowzen/pkg/locker"
	"github.com/flowzen/flowzen/pkg/mocks"
	"github.com/flowzen/flowzen/pkg/models"
	"github.com/flowzen/flowzen/pkg/persistence/file"
	"github.com/flowzen/flowzen/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestWorkflow_HealthCheck(t *testing.T) {
	service, _ := newWorkflowService(t)

	message, ok := service.HealthCheck(t.Context())
	assert.True(t, ok)
	assert.Equal(t, "Persistence layer is healthy", message)

	message, ok = NewWorkflow(nil, locker.NewMemory(), nil, discardLogger()).HealthCheck(t.Context())
	assert.False(t, ok)
	assert.Equal(t, "Persistence layer not initialized", message)
}

func TestWorkflow_Create(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	bus := &mocks.MockEventBus{}
	service := NewWorkflow(p, locker.NewMemory(), bus, discardLogger())

	bus.On("Publish", mock.Anything, mock.Anything, mock.MatchedBy(func(e events.WorkflowCreated) bool {
		return e.Name == "Daily digest" && e.UserID == "user-1"
	})).Return(nil).Once()

	created, err := service.Create(t.Context(), "user-1", "  Daily digest ", "Sends the digest")
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Daily digest", created.Name)
	assert.False(t, created.Publish)
	assert.Empty(t, created.Nodes)
	assert.Empty(t, created.Edges)
	assert.False(t, created.CreatedAt.IsZero())
	bus.AssertExpectations(t)

	stored, err := p.WorkflowRepository().GetByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", stored.UserID)
}

func TestWorkflow_CreateValidation(t *testing.T) {
	service, _ := newWorkflowService(t)

	tests := []struct {
		name        string
		userID      string
		title       string
		description string
		check       func(error) bool
	}{
		{"missing user", "", "n", "d", func(err error) bool { return errors.Is(err, ErrUnauthorized) }},
		{"missing name", "user-1", " ", "d", IsValidationError},
		{"missing description", "user-1", "n", "", IsValidationError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Create(t.Context(), tt.userID, tt.title, tt.description)
			require.Error(t, err)
			assert.True(t, tt.check(err), err.Error())
		})
	}
}

func TestWorkflow_FetchByID(t *testing.T) {
	service, p := newWorkflowService(t)
	workflow := storeWorkflow(t, p, "user-1", models.NodeTypeDiscord)

	got, err := service.FetchByID(t.Context(), "user-1", workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, got.Name)

	_, err = service.FetchByID(t.Context(), "user-2", workflow.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = service.FetchByID(t.Context(), "user-1", "missing")
	assert.ErrorIs(t, err, ErrWorkflowNotFound)
	assert.True(t, IsNotFoundError(err))
}

func TestWorkflow_List(t *testing.T) {
	service, p := newWorkflowService(t)

	storeWorkflow(t, p, "user-1", "")
	storeWorkflow(t, p, "user-1", "")
	storeWorkflow(t, p, "user-2", "")

	workflows, err := service.List(t.Context(), "user-1", ListWorkflowsRequest{})
	require.NoError(t, err)
	assert.Len(t, workflows, 2)

	_, err = service.List(t.Context(), "user-1", ListWorkflowsRequest{SortBy: "publish"})
	assert.True(t, IsValidationError(err))
}

func TestWorkflow_Graph(t *testing.T) {
	service, p := newWorkflowService(t)
	workflow := storeWorkflow(t, p, "user-1", models.NodeTypeSlack)

	graph, err := service.Graph(t.Context(), "user-1", workflow.ID)
	require.NoError(t, err)

	assert.Len(t, graph.Nodes, 2)
	assert.Len(t, graph.Edges, 1)
	assert.Equal(t, []models.NodeType{models.NodeTypeSlack}, graph.ReachableTypes)
	assert.True(t, graph.Ready)
}

func TestWorkflow_SaveGraphReplacesWholesale(t *testing.T) {
	service, p := newWorkflowService(t)
	workflow := storeWorkflow(t, p, "user-1", models.NodeTypeSlack)

	trigger := testutil.CreateTestNode(models.NodeTypeTrigger, testutil.WithID("a"))
	discord := testutil.CreateTestNode(models.NodeTypeDiscord, testutil.WithID("b"))
	email := testutil.CreateTestNode(models.NodeTypeEmail, testutil.WithID("c"))

	graph, err := service.SaveGraph(t.Context(), "user-1", workflow.ID,
		[]*models.Node{trigger, discord, email},
		[]*models.Edge{testutil.CreateTestEdge("a", "b"), testutil.CreateTestEdge("b", "c")},
	)
	require.NoError(t, err)
	assert.Equal(t, []models.NodeType{models.NodeTypeDiscord, models.NodeTypeEmail}, graph.ReachableTypes)

	stored, err := p.WorkflowRepository().GetByID(t.Context(), workflow.ID)
	require.NoError(t, err)
	require.Len(t, stored.Nodes, 3)
	assert.Nil(t, stored.NodeByID("action"))
	assert.Len(t, stored.Edges, 2)

	graph, err = service.SaveGraph(t.Context(), "user-1", workflow.ID, []*models.Node{trigger}, nil)
	require.NoError(t, err)
	assert.False(t, graph.Ready)
	assert.Empty(t, graph.ReachableTypes)
}

func TestWorkflow_SaveGraphRejectsInvalidGraph(t *testing.T) {
	service, p := newWorkflowService(t)
	workflow := storeWorkflow(t, p, "user-1", models.NodeTypeDiscord)

	node := testutil.CreateTestNode(models.NodeTypeDiscord, testutil.WithID("a"))

	_, err := service.SaveGraph(t.Context(), "user-1", workflow.ID,
		[]*models.Node{node},
		[]*models.Edge{testutil.CreateTestEdge("a", "a")},
	)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.ErrorIs(t, err, flow.ErrSelfLoop)

	stored, err := p.WorkflowRepository().GetByID(t.Context(), workflow.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.NodeByID("action"), "stored graph is untouched")
}

func TestWorkflow_SaveGraphWhileLocked(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	l := locker.NewMemory()
	service := NewWorkflow(p, l, nil, discardLogger())
	workflow := storeWorkflow(t, p, "user-1", models.NodeTypeDiscord)

	release, err := l.TryLock(t.Context(), "workflow:"+workflow.ID)
	require.NoError(t, err)

	nodes, edges := testutil.TriggerToAction(models.NodeTypeSlack)

	_, err = service.SaveGraph(t.Context(), "user-1", workflow.ID, nodes, edges)
	assert.ErrorIs(t, err, ErrSaveInProgress)
	assert.True(t, IsConflictError(err))

	require.NoError(t, release(context.Background()))

	_, err = service.SaveGraph(t.Context(), "user-1", workflow.ID, nodes, edges)
	assert.NoError(t, err)
}

func TestWorkflow_SaveGraphOwnership(t *testing.T) {
	service, p := newWorkflowService(t)
	workflow := storeWorkflow(t, p, "user-1", models.NodeTypeDiscord)

	_, err := service.SaveGraph(t.Context(), "user-2", workflow.ID, nil, nil)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestWorkflow_SaveGraphPublishesEvent(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	bus := &mocks.MockEventBus{}
	service := NewWorkflow(p, locker.NewMemory(), bus, discardLogger())
	workflow := storeWorkflow(t, p, "user-1", "")

	bus.On("Publish", mock.Anything, workflow.ID, mock.MatchedBy(func(e events.WorkflowGraphSaved) bool {
		return e.NodeCount == 2 && e.EdgeCount == 1 && len(e.ReachableTypes) == 1 && e.ReachableTypes[0] == "Notion"
	})).Return(errors.New("bus down")).Once()

	nodes, edges := testutil.TriggerToAction(models.NodeTypeNotion)

	_, err := service.SaveGraph(t.Context(), "user-1", workflow.ID, nodes, edges)
	require.NoError(t, err, "event delivery failures do not fail the save")
	bus.AssertExpectations(t)
}
