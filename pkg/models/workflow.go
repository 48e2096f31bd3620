// Package models defines the core domain models for the flowzen workflow editor and dispatcher.
package models

import (
	"encoding/json"
	"time"
)

// Workflow is a user-owned graph of nodes and edges plus the per-integration
// templates captured while editing action nodes.
type Workflow struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"     validate:"required"`
	Name        string  `json:"name"        validate:"required"`
	Description string  `json:"description" validate:"required"`
	Nodes       []*Node `json:"nodes"`
	Edges       []*Edge `json:"edges"`
	Publish     bool    `json:"publish"`

	DiscordTemplate   string          `json:"discord_template,omitempty"`
	SlackTemplate     string          `json:"slack_template,omitempty"`
	SlackAccessToken  string          `json:"slack_access_token,omitempty"`
	SlackChannels     []string        `json:"slack_channels"`
	NotionTemplate    string          `json:"notion_template,omitempty"`
	NotionAccessToken string          `json:"notion_access_token,omitempty"`
	NotionDBID        string          `json:"notion_db_id,omitempty"`
	EmailTemplate     string          `json:"email_template,omitempty"`
	EmailConfig       json.RawMessage `json:"email_config,omitempty"`
	GitHubTemplate    string          `json:"github_template,omitempty"`
	GitHubConfig      json.RawMessage `json:"github_config,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NodeByID returns the node with the given id, or nil.
func (w *Workflow) NodeByID(id string) *Node {
	for _, node := range w.Nodes {
		if node != nil && node.ID == id {
			return node
		}
	}

	return nil
}

// HasSlackChannel reports whether channel is already bound to the workflow.
func (w *Workflow) HasSlackChannel(channel string) bool {
	for _, existing := range w.SlackChannels {
		if existing == channel {
			return true
		}
	}

	return false
}

// TemplatePatch carries the template fields a single save touches. Nil fields
// are left untouched by the store.
type TemplatePatch struct {
	DiscordTemplate   *string
	SlackTemplate     *string
	SlackAccessToken  *string
	NotionTemplate    *string
	NotionAccessToken *string
	NotionDBID        *string
	EmailTemplate     *string
	EmailConfig       json.RawMessage
	GitHubTemplate    *string
	GitHubConfig      json.RawMessage
}

// IsEmpty reports whether the patch writes nothing.
func (p TemplatePatch) IsEmpty() bool {
	return p.DiscordTemplate == nil &&
		p.SlackTemplate == nil &&
		p.SlackAccessToken == nil &&
		p.NotionTemplate == nil &&
		p.NotionAccessToken == nil &&
		p.NotionDBID == nil &&
		p.EmailTemplate == nil &&
		p.EmailConfig == nil &&
		p.GitHubTemplate == nil &&
		p.GitHubConfig == nil
}

// Apply copies the set fields of the patch onto the workflow.
func (p TemplatePatch) Apply(w *Workflow) {
	if p.DiscordTemplate != nil {
		w.DiscordTemplate = *p.DiscordTemplate
	}

	if p.SlackTemplate != nil {
		w.SlackTemplate = *p.SlackTemplate
	}

	if p.SlackAccessToken != nil {
		w.SlackAccessToken = *p.SlackAccessToken
	}

	if p.NotionTemplate != nil {
		w.NotionTemplate = *p.NotionTemplate
	}

	if p.NotionAccessToken != nil {
		w.NotionAccessToken = *p.NotionAccessToken
	}

	if p.NotionDBID != nil {
		w.NotionDBID = *p.NotionDBID
	}

	if p.EmailTemplate != nil {
		w.EmailTemplate = *p.EmailTemplate
	}

	if p.EmailConfig != nil {
		w.EmailConfig = p.EmailConfig
	}

	if p.GitHubTemplate != nil {
		w.GitHubTemplate = *p.GitHubTemplate
	}

	if p.GitHubConfig != nil {
		w.GitHubConfig = p.GitHubConfig
	}
}

// WorkflowSummary is the listing view of a workflow.
type WorkflowSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Publish     bool      `json:"publish"`
	NodeCount   int       `json:"node_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Summary returns the listing view of the workflow.
func (w *Workflow) Summary() WorkflowSummary {
	return WorkflowSummary{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		Publish:     w.Publish,
		NodeCount:   len(w.Nodes),
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
}

// DashboardSummary aggregates what the dashboard shows for one user.
type DashboardSummary struct {
	ActiveWorkflows int               `json:"active_workflows"`
	TotalWorkflows  int               `json:"total_workflows"`
	RecentWorkflows []WorkflowSummary `json:"recent_workflows"`
	ConnectionCount int               `json:"connection_count"`
	SystemStatus    string            `json:"system_status"`
}
