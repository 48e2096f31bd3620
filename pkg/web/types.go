// Package web provides HTTP request and response types for the workflow API.
package web

import (
	"time"

	"github.com/flowzen/flowzen/pkg/models"
)

// CreateWorkflowRequest represents the request body for creating a new workflow.
type CreateWorkflowRequest struct {
	Name        string `json:"name"        validate:"required,max=200"`
	Description string `json:"description" validate:"required"`
}

// SaveGraphRequest replaces the whole graph of a workflow.
type SaveGraphRequest struct {
	Nodes []*models.Node `json:"nodes" validate:"dive,required"`
	Edges []*models.Edge `json:"edges" validate:"dive,required"`
}

// PublishRequest toggles whether a workflow is live.
type PublishRequest struct {
	Publish *bool `json:"publish" validate:"required"`
}

// WorkflowResponse is a workflow without the provider tokens captured by
// template saves.
type WorkflowResponse struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	Nodes           []*models.Node `json:"nodes"`
	Edges           []*models.Edge `json:"edges"`
	Publish         bool           `json:"publish"`
	DiscordTemplate string         `json:"discord_template,omitempty"`
	SlackTemplate   string         `json:"slack_template,omitempty"`
	SlackChannels   []string       `json:"slack_channels"`
	NotionTemplate  string         `json:"notion_template,omitempty"`
	NotionDBID      string         `json:"notion_db_id,omitempty"`
	EmailTemplate   string         `json:"email_template,omitempty"`
	EmailConfig     any            `json:"email_config,omitempty"`
	GitHubTemplate  string         `json:"github_template,omitempty"`
	GitHubConfig    any            `json:"github_config,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func newWorkflowResponse(w *models.Workflow) WorkflowResponse {
	response := WorkflowResponse{
		ID:              w.ID,
		Name:            w.Name,
		Description:     w.Description,
		Nodes:           w.Nodes,
		Edges:           w.Edges,
		Publish:         w.Publish,
		DiscordTemplate: w.DiscordTemplate,
		SlackTemplate:   w.SlackTemplate,
		SlackChannels:   w.SlackChannels,
		NotionTemplate:  w.NotionTemplate,
		NotionDBID:      w.NotionDBID,
		EmailTemplate:   w.EmailTemplate,
		GitHubTemplate:  w.GitHubTemplate,
		CreatedAt:       w.CreatedAt,
		UpdatedAt:       w.UpdatedAt,
	}

	if response.Nodes == nil {
		response.Nodes = []*models.Node{}
	}

	if response.Edges == nil {
		response.Edges = []*models.Edge{}
	}

	if response.SlackChannels == nil {
		response.SlackChannels = []string{}
	}

	if len(w.EmailConfig) > 0 {
		response.EmailConfig = w.EmailConfig
	}

	if len(w.GitHubConfig) > 0 {
		response.GitHubConfig = w.GitHubConfig
	}

	return response
}

// ConnectionResponse describes a binding without its secrets.
type ConnectionResponse struct {
	ID         string                `json:"id"`
	Type       models.ConnectionType `json:"type"`
	ExternalID string                `json:"external_id,omitempty"`
	Account    string                `json:"account,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
}

func newConnectionResponse(c *models.Connection) ConnectionResponse {
	response := ConnectionResponse{
		ID:        c.ID,
		Type:      c.Type,
		CreatedAt: c.CreatedAt,
	}

	if c.Credentials == nil {
		return response
	}

	response.ExternalID = c.Credentials.ExternalID()

	switch credentials := c.Credentials.(type) {
	case *models.DiscordCredentials:
		response.Account = credentials.GuildName
	case *models.SlackCredentials:
		response.Account = credentials.TeamName
	case *models.NotionCredentials:
		response.Account = credentials.WorkspaceName
	case *models.EmailCredentials:
		response.Account = credentials.EmailAddress
	case *models.GitHubCredentials:
		response.Account = credentials.Username
	case *models.GoogleDriveCredentials:
		response.Account = credentials.ResourceID
	}

	return response
}

// ConnectResponse is returned by the connect and OAuth callback endpoints.
type ConnectResponse struct {
	Connection ConnectionResponse `json:"connection"`
	Created    bool               `json:"created"`
	Message    string             `json:"message"`
}
