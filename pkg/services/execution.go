package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/flowzen/flowzen/pkg/catalog"
	"github.com/flowzen/flowzen/pkg/dispatcher"
	"github.com/flowzen/flowzen/pkg/models"
	"github.com/flowzen/flowzen/pkg/persistence"
)

type ActionDispatcher interface {
	Execute(ctx context.Context, req dispatcher.Request) models.ActionResult
}

// Execution runs single nodes of stored workflows.
type Execution struct {
	persistence persistence.Persistence
	catalog     *catalog.Catalog
	dispatcher  ActionDispatcher
	logger      *slog.Logger
}

func NewExecution(
	persistence persistence.Persistence,
	c *catalog.Catalog,
	d ActionDispatcher,
	logger *slog.Logger,
) *Execution {
	return &Execution{
		persistence: persistence,
		catalog:     c,
		dispatcher:  d,
		logger:      logger,
	}
}

// ExecuteNode dispatches one node. The configuration is the node's metadata
// when set, otherwise the template stored on the workflow for the node type.
// Action failures are reported in the result, not as an error.
func (e *Execution) ExecuteNode(ctx context.Context, userID, workflowID, nodeID string) (*models.ActionResult, error) {
	workflow, err := fetchOwned(ctx, e.persistence, "ExecuteNode", userID, workflowID)
	if err != nil {
		return nil, err
	}

	node := workflow.NodeByID(nodeID)
	if node == nil {
		return nil, NewValidationError("ExecuteNode", "NODE_NOT_FOUND",
			fmt.Sprintf("node %q is not part of workflow %s", nodeID, workflowID), nil)
	}

	config := node.Data.Metadata
	if len(config) == 0 {
		config, err = storedConfig(workflow, node.Type)
		if err != nil {
			return nil, err
		}
	}

	var connection *models.Connection

	if required, ok := e.catalog.RequiredConnection(node.Type); ok && required != "" {
		connection, err = e.persistence.ConnectionRepository().GetByUserAndType(ctx, userID, required)
		if err != nil && !persistence.IsConnectionNotFound(err) {
			return nil, fmt.Errorf("failed to load %s connection: %w", required, err)
		}
	}

	result := e.dispatcher.Execute(ctx, dispatcher.Request{
		UserID:     userID,
		WorkflowID: workflowID,
		Node:       node,
		Config:     config,
		Connection: connection,
	})

	return &result, nil
}

// storedConfig rebuilds an action configuration from the workflow templates.
func storedConfig(workflow *models.Workflow, nodeType models.NodeType) (map[string]any, error) {
	switch nodeType {
	case models.NodeTypeDiscord:
		return map[string]any{"content": workflow.DiscordTemplate}, nil
	case models.NodeTypeSlack:
		return map[string]any{"channels": workflow.SlackChannels, "content": workflow.SlackTemplate}, nil
	case models.NodeTypeNotion:
		return map[string]any{"database_id": workflow.NotionDBID, "content": workflow.NotionTemplate}, nil
	case models.NodeTypeEmail:
		config, err := decodeConfig(workflow.EmailConfig)
		if err != nil {
			return nil, err
		}

		if _, ok := config["body"]; !ok {
			config["body"] = workflow.EmailTemplate
		}

		return config, nil
	case models.NodeTypeGitHub:
		config, err := decodeConfig(workflow.GitHubConfig)
		if err != nil {
			return nil, err
		}

		field := "body"
		if config["action"] == models.GitHubActionCommitFile {
			field = "content"
		}

		if _, ok := config[field]; !ok {
			config[field] = workflow.GitHubTemplate
		}

		return config, nil
	default:
		return map[string]any{}, nil
	}
}

func decodeConfig(raw json.RawMessage) (map[string]any, error) {
	config := map[string]any{}
	if len(raw) == 0 {
		return config, nil
	}

	if err := json.Unmarshal(raw, &config); err != nil {
		return nil, fmt.Errorf("stored config is corrupt: %w", err)
	}

	if config == nil {
		config = map[string]any{}
	}

	return config, nil
}
