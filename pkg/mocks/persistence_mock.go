package mocks

import (
	"context"

	"github.com/flowzen/flowzen/pkg/models"
	"github.com/flowzen/flowzen/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	Workflows   *MockWorkflowRepository
	Connections *MockConnectionRepository
}

// NewMockPersistence wires fresh repository mocks.
func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		Workflows:   &MockWorkflowRepository{},
		Connections: &MockConnectionRepository{},
	}
}

func (m *MockPersistence) WorkflowRepository() persistence.WorkflowRepository {
	return m.Workflows
}

func (m *MockPersistence) ConnectionRepository() persistence.ConnectionRepository {
	return m.Connections
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

// MockWorkflowRepository is a mock implementation of persistence.WorkflowRepository interface.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) Create(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) ListByUser(ctx context.Context, userID string, opts persistence.ListWorkflowsOptions) ([]*models.Workflow, error) {
	args := m.Called(ctx, userID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) CountByUser(ctx context.Context, userID string) (int, int, error) {
	args := m.Called(ctx, userID)

	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *MockWorkflowRepository) SaveGraph(ctx context.Context, id string, nodes []*models.Node, edges []*models.Edge) error {
	args := m.Called(ctx, id, nodes, edges)

	return args.Error(0)
}

func (m *MockWorkflowRepository) SaveTemplate(ctx context.Context, id string, patch models.TemplatePatch) error {
	args := m.Called(ctx, id, patch)

	return args.Error(0)
}

func (m *MockWorkflowRepository) AppendSlackChannel(ctx context.Context, id string, channel string) error {
	args := m.Called(ctx, id, channel)

	return args.Error(0)
}

func (m *MockWorkflowRepository) SetPublish(ctx context.Context, id string, publish bool) error {
	args := m.Called(ctx, id, publish)

	return args.Error(0)
}

// MockConnectionRepository is a mock implementation of persistence.ConnectionRepository interface.
type MockConnectionRepository struct {
	mock.Mock
}

func (m *MockConnectionRepository) Create(ctx context.Context, connection *models.Connection) error {
	args := m.Called(ctx, connection)

	return args.Error(0)
}

func (m *MockConnectionRepository) GetByUserAndType(ctx context.Context, userID string, connectionType models.ConnectionType) (*models.Connection, error) {
	args := m.Called(ctx, userID, connectionType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Connection), args.Error(1)
}

func (m *MockConnectionRepository) GetByExternalID(ctx context.Context, userID string, connectionType models.ConnectionType, externalID string) (*models.Connection, error) {
	args := m.Called(ctx, userID, connectionType, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Connection), args.Error(1)
}

func (m *MockConnectionRepository) ListByUser(ctx context.Context, userID string) ([]*models.Connection, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Connection), args.Error(1)
}
