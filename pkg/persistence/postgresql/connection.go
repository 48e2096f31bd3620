package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowzen/flowzen/pkg/models"
	"github.com/flowzen/flowzen/pkg/persistence"
	"github.com/google/uuid"
)

const connectionColumns = `
			id
		  , user_id
		  , type
		  , credentials
		  , created_at`

// ConnectionRepository handles connection-related database operations.
// Uniqueness is enforced by the table's constraints, not by a prior lookup.
type ConnectionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewConnectionRepository creates a new connection repository.
func NewConnectionRepository(db *sql.DB, logger *slog.Logger) *ConnectionRepository {
	return &ConnectionRepository{db: db, logger: logger}
}

func (r *ConnectionRepository) Create(ctx context.Context, connection *models.Connection) error {
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

	credentials, err := json.Marshal(connection.Credentials)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	query := `
		INSERT INTO connections (id, user_id, type, external_id, credentials, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.ExecContext(ctx, query,
		connection.ID,
		connection.UserID,
		string(connection.Type),
		connection.Credentials.ExternalID(),
		credentials,
		connection.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.NewConnectionError("Create", connection.UserID, connection.Type, persistence.ErrConnectionAlreadyExists)
		}

		return fmt.Errorf("failed to insert connection: %w", err)
	}

	return nil
}

func (r *ConnectionRepository) GetByUserAndType(
	ctx context.Context,
	userID string,
	connectionType models.ConnectionType,
) (*models.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections WHERE user_id = $1 AND type = $2`

	connection, err := scanConnection(r.db.QueryRowContext(ctx, query, userID, string(connectionType)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewConnectionError("GetByUserAndType", userID, connectionType, persistence.ErrConnectionNotFound)
		}

		return nil, fmt.Errorf("failed to scan connection: %w", err)
	}

	return connection, nil
}

func (r *ConnectionRepository) GetByExternalID(
	ctx context.Context,
	userID string,
	connectionType models.ConnectionType,
	externalID string,
) (*models.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections WHERE user_id = $1 AND type = $2 AND external_id = $3`

	connection, err := scanConnection(r.db.QueryRowContext(ctx, query, userID, string(connectionType), externalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewConnectionError("GetByExternalID", userID, connectionType, persistence.ErrConnectionNotFound)
		}

		return nil, fmt.Errorf("failed to scan connection: %w", err)
	}

	return connection, nil
}

func (r *ConnectionRepository) ListByUser(ctx context.Context, userID string) ([]*models.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections WHERE user_id = $1 ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	connections := make([]*models.Connection, 0)

	for rows.Next() {
		connection, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}

		connections = append(connections, connection)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating connections: %w", err)
	}

	return connections, nil
}

func scanConnection(scanner rowScanner) (*models.Connection, error) {
	var (
		connection     models.Connection
		connectionType string
		credentials    []byte
	)

	err := scanner.Scan(
		&connection.ID,
		&connection.UserID,
		&connectionType,
		&credentials,
		&connection.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	connection.Type = models.ConnectionType(connectionType)

	connection.Credentials, err = models.DecodeCredentials(connection.Type, credentials)
	if err != nil {
		return nil, err
	}

	return &connection, nil
}
