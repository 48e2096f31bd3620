package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/flowzen/flowzen/pkg/models"
	"github.com/flowzen/flowzen/pkg/persistence"
	"github.com/google/uuid"
)

// ConnectionRepository keeps all connections of a user in one document.
type ConnectionRepository struct {
	root string
	mu   sync.Mutex
}

func NewConnectionRepository(root string) *ConnectionRepository {
	return &ConnectionRepository{root: root}
}

func (cr *ConnectionRepository) path(userID string) string {
	return filepath.Join(cr.root, "connections", fileName(userID))
}

// Create enforces the (user, type) and (user, external id) keys before writing.
func (cr *ConnectionRepository) Create(_ context.Context, connection *models.Connection) error {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	existing, err := cr.load(connection.UserID)
	if err != nil {
		return err
	}

	externalID := connection.Credentials.ExternalID()

	for _, c := range existing {
		sameType := c.Type == connection.Type
		sameExternal := externalID != "" && c.Credentials.ExternalID() == externalID

		if sameType || sameExternal {
			return persistence.NewConnectionError("Create", connection.UserID, connection.Type, persistence.ErrConnectionAlreadyExists)
		}
	}

	if connection.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate connection ID: %w", err)
		}

		connection.ID = id.String()
	}

	if connection.CreatedAt.IsZero() {
		connection.CreatedAt = time.Now().UTC()
	}

	return writeJSONAtomic(cr.path(connection.UserID), append(existing, connection))
}

func (cr *ConnectionRepository) GetByUserAndType(_ context.Context, userID string, connectionType models.ConnectionType) (*models.Connection, error) {
	return cr.find("GetByUserAndType", userID, connectionType, func(*models.Connection) bool { return true })
}

func (cr *ConnectionRepository) GetByExternalID(_ context.Context, userID string, connectionType models.ConnectionType, externalID string) (*models.Connection, error) {
	return cr.find("GetByExternalID", userID, connectionType, func(c *models.Connection) bool {
		return c.Credentials.ExternalID() == externalID
	})
}

func (cr *ConnectionRepository) ListByUser(_ context.Context, userID string) ([]*models.Connection, error) {
	return cr.load(userID)
}

func (cr *ConnectionRepository) find(op, userID string, connectionType models.ConnectionType, match func(*models.Connection) bool) (*models.Connection, error) {
	connections, err := cr.load(userID)
	if err != nil {
		return nil, err
	}

	for _, c := range connections {
		if c.Type == connectionType && match(c) {
			return c, nil
		}
	}

	return nil, persistence.NewConnectionError(op, userID, connectionType, persistence.ErrConnectionNotFound)
}

func (cr *ConnectionRepository) load(userID string) ([]*models.Connection, error) {
	body, err := os.ReadFile(cr.path(userID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []*models.Connection{}, nil
		}

		return nil, fmt.Errorf("failed to read connections of user %s: %w", userID, err)
	}

	var connections []*models.Connection
	if err := json.Unmarshal(body, &connections); err != nil {
		return nil, fmt.Errorf("failed to unmarshal connections of user %s: %w", userID, err)
	}

	return connections, nil
}
