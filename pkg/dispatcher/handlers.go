package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/flowzen/flowzen/pkg/integrations/discord"
	"github.com/flowzen/flowzen/pkg/integrations/email"
	"github.com/flowzen/flowzen/pkg/integrations/github"
	"github.com/flowzen/flowzen/pkg/integrations/notion"
	"github.com/flowzen/flowzen/pkg/integrations/slack"
	"github.com/flowzen/flowzen/pkg/models"
)

const defaultHTTPTimeout = 30 * time.Second

// DefaultHandlers wires every action node to its live service client.
func DefaultHandlers() []Handler {
	return []Handler{
		NewDiscordHandler(discord.NewClient(&http.Client{Timeout: defaultHTTPTimeout})),
		NewSlackHandler(func(token string) slack.Client { return slack.NewClient(token) }),
		NewNotionHandler(notion.NewClient),
		NewEmailHandler(email.NewSender()),
		NewGitHubHandler(github.NewClient),
	}
}

// credentials extracts the typed credentials bound to the call.
func credentials[T models.Credentials](call *Call) (T, error) {
	var zero T

	if call.Connection == nil {
		return zero, fmt.Errorf("%w: no connection", ErrPreconditionFailed)
	}

	typed, ok := call.Connection.Credentials.(T)
	if !ok {
		return zero, fmt.Errorf("%w: unexpected %s credentials", ErrPreconditionFailed, call.Connection.Type)
	}

	return typed, nil
}

type DiscordHandler struct {
	client discord.Client
}

func NewDiscordHandler(client discord.Client) *DiscordHandler {
	return &DiscordHandler{client: client}
}

func (h *DiscordHandler) NodeType() models.NodeType { return models.NodeTypeDiscord }

func (h *DiscordHandler) Execute(ctx context.Context, call *Call) (*Outcome, error) {
	var config models.DiscordActionConfig
	if err := call.Decode(&config); err != nil {
		return nil, err
	}

	account, err := credentials[*models.DiscordCredentials](call)
	if err != nil {
		return nil, err
	}

	message, err := discord.NewMessage(config.Content, config.Attachments)
	if err != nil {
		return nil, &Failure{Kind: models.FailureValidation, Message: err.Error(), Err: err}
	}

	if err := h.client.Post(ctx, account.WebhookURL, message); err != nil {
		return nil, &Failure{
			Kind:    models.FailureExternalAction,
			Message: "failed request",
			Err:     fmt.Errorf("%w: %w", ErrExternalAction, err),
		}
	}

	return &Outcome{Message: "success"}, nil
}

type SlackHandler struct {
	clients slack.Factory
}

func NewSlackHandler(clients slack.Factory) *SlackHandler {
	return &SlackHandler{clients: clients}
}

func (h *SlackHandler) NodeType() models.NodeType { return models.NodeTypeSlack }

func (h *SlackHandler) Execute(ctx context.Context, call *Call) (*Outcome, error) {
	var config models.SlackActionConfig
	if err := call.Decode(&config); err != nil {
		return nil, err
	}

	account, err := credentials[*models.SlackCredentials](call)
	if err != nil {
		return nil, err
	}

	posted, err := slack.PostToChannels(ctx, h.clients(account.AccessToken), config.Channels, config.Content)
	if err != nil {
		var postErr *slack.PostError
		if errors.As(err, &postErr) {
			return nil, &Failure{
				Kind:    models.FailureExternalAction,
				Message: fmt.Sprintf("failed to post to %s", postErr.Channel),
				Err:     fmt.Errorf("%w: %w", ErrExternalAction, err),
			}
		}

		return nil, err
	}

	return &Outcome{
		Message: fmt.Sprintf("posted to %d channel(s)", len(posted)),
		Data:    map[string]any{"channels": posted},
	}, nil
}

type NotionHandler struct {
	clients notion.Factory
}

func NewNotionHandler(clients notion.Factory) *NotionHandler {
	return &NotionHandler{clients: clients}
}

func (h *NotionHandler) NodeType() models.NodeType { return models.NodeTypeNotion }

func (h *NotionHandler) Execute(ctx context.Context, call *Call) (*Outcome, error) {
	var config models.NotionActionConfig
	if err := call.Decode(&config); err != nil {
		return nil, err
	}

	account, err := credentials[*models.NotionCredentials](call)
	if err != nil {
		return nil, err
	}

	page, err := h.clients(account.AccessToken).CreatePage(ctx, config.DatabaseID, config.Content)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		Message: "page created",
		Data:    map[string]any{"page_id": page.ID, "url": page.URL},
	}, nil
}

type EmailHandler struct {
	sender email.Sender
}

func NewEmailHandler(sender email.Sender) *EmailHandler {
	return &EmailHandler{sender: sender}
}

func (h *EmailHandler) NodeType() models.NodeType { return models.NodeTypeEmail }

func (h *EmailHandler) Execute(ctx context.Context, call *Call) (*Outcome, error) {
	var config models.EmailActionConfig
	if err := call.Decode(&config); err != nil {
		return nil, err
	}

	account, err := credentials[*models.EmailCredentials](call)
	if err != nil {
		return nil, &Failure{Kind: models.FailurePrecondition, Message: "Email is not connected", Err: ErrNoEmailConnection}
	}

	err = h.sender.Send(ctx, account, email.Message{
		To:      config.To,
		Subject: config.Subject,
		Body:    config.Body,
	})
	if err != nil {
		return nil, err
	}

	return &Outcome{Message: "email sent to " + config.To}, nil
}

type GitHubHandler struct {
	clients github.Factory
}

func NewGitHubHandler(clients github.Factory) *GitHubHandler {
	return &GitHubHandler{clients: clients}
}

func (h *GitHubHandler) NodeType() models.NodeType { return models.NodeTypeGitHub }

func (h *GitHubHandler) Execute(ctx context.Context, call *Call) (*Outcome, error) {
	var config models.GitHubActionConfig
	if err := call.Decode(&config); err != nil {
		return nil, err
	}

	owner, repo, ok := config.OwnerRepo()
	if !ok {
		return nil, &Failure{
			Kind:    models.FailureValidation,
			Message: fmt.Sprintf("repository %q must be owner/repo", config.Repository),
		}
	}

	account, err := credentials[*models.GitHubCredentials](call)
	if err != nil {
		return nil, err
	}

	client := h.clients(account.AccessToken)

	switch config.Action {
	case models.GitHubActionCreateIssue:
		issue, err := client.CreateIssue(ctx, owner, repo, config.Title, config.Body)
		if err != nil {
			return nil, err
		}

		return &Outcome{
			Message: fmt.Sprintf("issue #%d created", issue.Number),
			Data:    issue,
		}, nil
	case models.GitHubActionCommitFile:
		commit, err := github.CommitFile(ctx, client, owner, repo, config.Path, config.Message, config.Content)
		if err != nil {
			return nil, err
		}

		verb := "updated"
		if commit.Created {
			verb = "created"
		}

		return &Outcome{
			Message: fmt.Sprintf("%s %s", verb, commit.Path),
			Data:    commit,
		}, nil
	default:
		return nil, &Failure{Kind: models.FailureValidation, Message: fmt.Sprintf("unknown github action %q", config.Action)}
	}
}
