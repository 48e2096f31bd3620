package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/flowzen/flowzen/pkg/models"
	"github.com/flowzen/flowzen/pkg/persistence"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const workflowColumns = `
			id
		  , user_id
		  , name
		  , description
		  , nodes
		  , edges
		  , publish
		  , discord_template
		  , slack_template
		  , slack_access_token
		  , slack_channels
		  , notion_template
		  , notion_access_token
		  , notion_db_id
		  , email_template
		  , email_config
		  , github_template
		  , github_config
		  , created_at
		  , updated_at`

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

// Create inserts a new workflow, assigning an id when it has none.
func (r *WorkflowRepository) Create(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	if workflow.Nodes == nil {
		workflow.Nodes = []*models.Node{}
	}

	if workflow.Edges == nil {
		workflow.Edges = []*models.Edge{}
	}

	if workflow.SlackChannels == nil {
		workflow.SlackChannels = []string{}
	}

	nodesJSON, edgesJSON, err := marshalGraph(workflow.Nodes, workflow.Edges)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflows (` + workflowColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.UserID,
		workflow.Name,
		workflow.Description,
		nodesJSON,
		edgesJSON,
		workflow.Publish,
		workflow.DiscordTemplate,
		workflow.SlackTemplate,
		workflow.SlackAccessToken,
		pq.Array(workflow.SlackChannels),
		workflow.NotionTemplate,
		workflow.NotionAccessToken,
		workflow.NotionDBID,
		workflow.EmailTemplate,
		nullableJSON(workflow.EmailConfig),
		workflow.GitHubTemplate,
		nullableJSON(workflow.GitHubConfig),
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.NewWorkflowError("Create", workflow.ID, persistence.ErrWorkflowAlreadyExists)
		}

		return fmt.Errorf("failed to insert workflow: %w", err)
	}

	return nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1`

	workflow, err := r.scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return workflow, nil
}

// ListByUser returns the user's workflows. SortBy and SortOrder are checked
// against an allowlist by Normalize before they reach the query.
func (r *WorkflowRepository) ListByUser(
	ctx context.Context,
	userID string,
	opts persistence.ListWorkflowsOptions,
) ([]*models.Workflow, error) {
	if err := opts.Normalize(); err != nil {
		return nil, err
	}

	args := []any{userID}
	where := "user_id = $1"

	if opts.Published != nil {
		args = append(args, *opts.Published)
		where += fmt.Sprintf(" AND publish = $%d", len(args))
	}

	args = append(args, opts.Limit, opts.Offset)

	query := fmt.Sprintf(
		`SELECT %s FROM workflows WHERE %s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
		workflowColumns,
		where,
		opts.SortBy,
		strings.ToUpper(opts.SortOrder),
		strings.ToUpper(opts.SortOrder),
		len(args)-1,
		len(args),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := r.scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func (r *WorkflowRepository) CountByUser(ctx context.Context, userID string) (int, int, error) {
	query := `
		SELECT
			COUNT(*)
		  , COUNT(*) FILTER (WHERE publish)
		FROM workflows
		WHERE user_id = $1
	`

	var total, published int

	err := r.db.QueryRowContext(ctx, query, userID).Scan(&total, &published)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count workflows: %w", err)
	}

	return total, published, nil
}

// SaveGraph replaces both graph columns in one statement.
func (r *WorkflowRepository) SaveGraph(ctx context.Context, id string, nodes []*models.Node, edges []*models.Edge) error {
	if nodes == nil {
		nodes = []*models.Node{}
	}

	if edges == nil {
		edges = []*models.Edge{}
	}

	nodesJSON, edgesJSON, err := marshalGraph(nodes, edges)
	if err != nil {
		return persistence.NewWorkflowError("SaveGraph", id, err)
	}

	return r.exec(ctx, "SaveGraph", id,
		`UPDATE workflows SET nodes = $2, edges = $3, updated_at = $4 WHERE id = $1`,
		nodesJSON, edgesJSON, time.Now().UTC(),
	)
}

func (r *WorkflowRepository) SaveTemplate(ctx context.Context, id string, patch models.TemplatePatch) error {
	if patch.IsEmpty() {
		// Still has to report a missing workflow.
		_, err := r.GetByID(ctx, id)

		return err
	}

	args := []any{id}
	sets := make([]string, 0, 11)

	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	setString := func(column string, value *string) {
		if value != nil {
			set(column, *value)
		}
	}

	setString("discord_template", patch.DiscordTemplate)
	setString("slack_template", patch.SlackTemplate)
	setString("slack_access_token", patch.SlackAccessToken)
	setString("notion_template", patch.NotionTemplate)
	setString("notion_access_token", patch.NotionAccessToken)
	setString("notion_db_id", patch.NotionDBID)
	setString("email_template", patch.EmailTemplate)
	setString("github_template", patch.GitHubTemplate)

	if patch.EmailConfig != nil {
		set("email_config", []byte(patch.EmailConfig))
	}

	if patch.GitHubConfig != nil {
		set("github_config", []byte(patch.GitHubConfig))
	}

	set("updated_at", time.Now().UTC())

	query := `UPDATE workflows SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`

	return r.exec(ctx, "SaveTemplate", id, query, args[1:]...)
}

// AppendSlackChannel appends in SQL so concurrent appends never drop each other.
func (r *WorkflowRepository) AppendSlackChannel(ctx context.Context, id string, channel string) error {
	if _, err := uuid.Parse(id); err != nil {
		return persistence.NewWorkflowError("AppendSlackChannel", id, persistence.ErrWorkflowNotFound)
	}

	query := `
		UPDATE workflows
		SET slack_channels = array_append(slack_channels, $2::TEXT), updated_at = $3
		WHERE id = $1 AND NOT ($2::TEXT = ANY(slack_channels))
	`

	result, err := r.db.ExecContext(ctx, query, id, channel, time.Now().UTC())
	if err != nil {
		return persistence.NewWorkflowError("AppendSlackChannel", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkflowError("AppendSlackChannel", id, err)
	}

	if affected == 0 {
		// Either the channel is already bound or the workflow is gone.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}

	return nil
}

func (r *WorkflowRepository) SetPublish(ctx context.Context, id string, publish bool) error {
	return r.exec(ctx, "SetPublish", id,
		`UPDATE workflows SET publish = $2, updated_at = $3 WHERE id = $1`,
		publish, time.Now().UTC(),
	)
}

// exec runs an update keyed by id ($1) and maps zero affected rows to not found.
func (r *WorkflowRepository) exec(ctx context.Context, op, id, query string, args ...any) error {
	if _, err := uuid.Parse(id); err != nil {
		return persistence.NewWorkflowError(op, id, persistence.ErrWorkflowNotFound)
	}

	result, err := r.db.ExecContext(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return persistence.NewWorkflowError(op, id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkflowError(op, id, err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError(op, id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *WorkflowRepository) scanWorkflow(scanner rowScanner) (*models.Workflow, error) {
	var (
		workflow     models.Workflow
		nodesJSON    []byte
		edgesJSON    []byte
		emailConfig  []byte
		githubConfig []byte
	)

	err := scanner.Scan(
		&workflow.ID,
		&workflow.UserID,
		&workflow.Name,
		&workflow.Description,
		&nodesJSON,
		&edgesJSON,
		&workflow.Publish,
		&workflow.DiscordTemplate,
		&workflow.SlackTemplate,
		&workflow.SlackAccessToken,
		pq.Array(&workflow.SlackChannels),
		&workflow.NotionTemplate,
		&workflow.NotionAccessToken,
		&workflow.NotionDBID,
		&workflow.EmailTemplate,
		&emailConfig,
		&workflow.GitHubTemplate,
		&githubConfig,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(nodesJSON, &workflow.Nodes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal nodes: %w", err)
	}

	if err := json.Unmarshal(edgesJSON, &workflow.Edges); err != nil {
		return nil, fmt.Errorf("failed to unmarshal edges: %w", err)
	}

	if len(emailConfig) > 0 {
		workflow.EmailConfig = json.RawMessage(emailConfig)
	}

	if len(githubConfig) > 0 {
		workflow.GitHubConfig = json.RawMessage(githubConfig)
	}

	if workflow.SlackChannels == nil {
		workflow.SlackChannels = []string{}
	}

	return &workflow, nil
}

func marshalGraph(nodes []*models.Node, edges []*models.Edge) ([]byte, []byte, error) {
	nodesJSON, err := json.Marshal(nodes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal nodes: %w", err)
	}

	edgesJSON, err := json.Marshal(edges)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal edges: %w", err)
	}

	return nodesJSON, edgesJSON, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}

	return []byte(raw)
}
