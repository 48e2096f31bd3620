package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/flowzen/flowzen/pkg/models"
	"github.com/flowzen/flowzen/pkg/persistence"
)

// TemplateInput is what the editor submits when an action node's form is saved.
// Only the fields relevant to the node type are read.
type TemplateInput struct {
	Content     string          `json:"content"`
	AccessToken string          `json:"access_token,omitempty"`
	Channels    []string        `json:"channels,omitempty"`
	DatabaseID  string          `json:"database_id,omitempty"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Templates stores per-integration templates on a workflow.
type Templates struct {
	persistence persistence.Persistence
	logger      *slog.Logger
}

func NewTemplates(persistence persistence.Persistence, logger *slog.Logger) *Templates {
	return &Templates{persistence: persistence, logger: logger}
}

// Save writes the template of nodeType and returns a confirmation message.
// Slack channels are appended one at a time in the order given, skipping
// blanks and repeats.
func (t *Templates) Save(
	ctx context.Context,
	userID, workflowID string,
	nodeType models.NodeType,
	input TemplateInput,
) (string, error) {
	if _, err := fetchOwned(ctx, t.persistence, "SaveTemplate", userID, workflowID); err != nil {
		return "", err
	}

	var (
		patch    models.TemplatePatch
		channels []string
	)

	switch nodeType {
	case models.NodeTypeDiscord:
		patch.DiscordTemplate = &input.Content
	case models.NodeTypeSlack:
		patch.SlackTemplate = &input.Content
		patch.SlackAccessToken = &input.AccessToken
		channels = uniqueChannels(input.Channels)
	case models.NodeTypeNotion:
		patch.NotionTemplate = &input.Content
		patch.NotionAccessToken = &input.AccessToken
		patch.NotionDBID = &input.DatabaseID
	case models.NodeTypeEmail:
		config, err := templateConfig(input.Config)
		if err != nil {
			return "", err
		}

		patch.EmailTemplate = &input.Content
		patch.EmailConfig = config
	case models.NodeTypeGitHub:
		config, err := templateConfig(input.Config)
		if err != nil {
			return "", err
		}

		patch.GitHubTemplate = &input.Content
		patch.GitHubConfig = config
	default:
		return "", NewValidationError("SaveTemplate", "UNSUPPORTED_TEMPLATE",
			fmt.Sprintf("%s nodes have no template", nodeType), nil)
	}

	repo := t.persistence.WorkflowRepository()

	if err := repo.SaveTemplate(ctx, workflowID, patch); err != nil {
		return "", fmt.Errorf("failed to save %s template: %w", nodeType, err)
	}

	for _, channel := range channels {
		if err := repo.AppendSlackChannel(ctx, workflowID, channel); err != nil {
			return "", fmt.Errorf("failed to add slack channel %s: %w", channel, err)
		}
	}

	t.logger.InfoContext(ctx, "template saved", "workflow_id", workflowID, "node_type", nodeType)

	return fmt.Sprintf("%s template saved", nodeType), nil
}

func uniqueChannels(channels []string) []string {
	seen := make(map[string]bool, len(channels))
	out := make([]string, 0, len(channels))

	for _, channel := range channels {
		channel = strings.TrimSpace(channel)
		if channel == "" || seen[channel] {
			continue
		}

		seen[channel] = true
		out = append(out, channel)
	}

	return out
}

// templateConfig accepts an absent config or a JSON object.
func templateConfig(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var object map[string]any
	if err := json.Unmarshal(raw, &object); err != nil {
		return nil, NewValidationError("SaveTemplate", "INVALID_CONFIG", "template config must be a JSON object", nil)
	}

	return raw, nil
}
