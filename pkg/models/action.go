package models

import "strings"

// GitHub actions.
const (
	GitHubActionCreateIssue = "create_issue"
	GitHubActionCommitFile  = "commit_file"
)

// GitHubActionConfig drives the GitHub handler. Repository is "owner/repo".
type GitHubActionConfig struct {
	Action     string `json:"action"     validate:"required,oneof=create_issue commit_file"`
	Repository string `json:"repository" validate:"required"`
	Title      string `json:"title,omitempty"   validate:"required_if=Action create_issue"`
	Body       string `json:"body,omitempty"    validate:"required_if=Action create_issue"`
	Path       string `json:"path,omitempty"    validate:"required_if=Action commit_file"`
	Content    string `json:"content,omitempty"`
	Message    string `json:"message,omitempty" validate:"required_if=Action commit_file"`
}

// OwnerRepo splits Repository. ok is false unless both parts are non-empty.
func (c GitHubActionConfig) OwnerRepo() (owner, repo string, ok bool) {
	owner, repo, found := strings.Cut(c.Repository, "/")
	if !found || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", false
	}

	return owner, repo, true
}

type EmailActionConfig struct {
	To      string `json:"to"      validate:"required,email"`
	Subject string `json:"subject" validate:"required"`
	Body    string `json:"body"    validate:"required"`
}

type SlackActionConfig struct {
	Channels []string `json:"channels" validate:"required,min=1,dive,required"`
	Content  string   `json:"content"  validate:"required"`
}

type NotionActionConfig struct {
	DatabaseID string `json:"database_id" validate:"required"`
	Content    string `json:"content"     validate:"required"`
}

// DiscordAttachment is rendered as an embed linking to the file.
type DiscordAttachment struct {
	Name string `json:"name" validate:"required"`
	Link string `json:"link" validate:"required,url"`
}

// DiscordActionConfig has no required tags: empty content is rejected by the
// handler itself so the rejection message stays stable.
type DiscordActionConfig struct {
	Content     string              `json:"content"`
	Attachments []DiscordAttachment `json:"attachments,omitempty" validate:"dive"`
}

// TriggerConfig optionally carries a cron schedule for the trigger node.
type TriggerConfig struct {
	Schedule string `json:"schedule,omitempty"`
}

// FailureKind classifies an unsuccessful ActionResult.
type FailureKind string

const (
	FailureValidation     FailureKind = "validation"
	FailurePrecondition   FailureKind = "precondition"
	FailureExternalAction FailureKind = "external_action"
	FailureUnsupported    FailureKind = "unsupported"
)

// ActionResult is the uniform outcome of dispatching one node.
type ActionResult struct {
	NodeID   string      `json:"node_id,omitempty"`
	NodeType NodeType    `json:"node_type"`
	Success  bool        `json:"success"`
	Skipped  bool        `json:"skipped,omitempty"`
	Message  string      `json:"message,omitempty"`
	Data     any         `json:"data,omitempty"`
	Error    string      `json:"error,omitempty"`
	Kind     FailureKind `json:"kind,omitempty"`

	Err error `json:"-"`
}
