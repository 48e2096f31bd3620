// Package slack is the Slack integration: bot messages, channel listing and
// the OAuth v2 install flow.
package slack

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/flowzen/flowzen/pkg/models"
	"github.com/slack-go/slack"
)

// Identity is what auth.test reports for a token.
type Identity struct {
	TeamID string
	Team   string
	UserID string
	BotID  string
}

type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Client interface {
	PostMessage(ctx context.Context, channel, text string) error
	AuthTest(ctx context.Context) (*Identity, error)
	ListChannels(ctx context.Context) ([]Channel, error)
}

// Factory builds a Client for a bot token.
type Factory func(token string) Client

type APIClient struct {
	api *slack.Client
}

func NewClient(token string, options ...slack.Option) Client {
	return &APIClient{api: slack.New(token, options...)}
}

func (c *APIClient) PostMessage(ctx context.Context, channel, text string) error {
	_, _, err := c.api.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("failed to post to %s: %w", channel, err)
	}

	return nil
}

func (c *APIClient) AuthTest(ctx context.Context) (*Identity, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth.test failed: %w", err)
	}

	return &Identity{TeamID: resp.TeamID, Team: resp.Team, UserID: resp.UserID, BotID: resp.BotID}, nil
}

// ListChannels returns the public channels the bot can see.
func (c *APIClient) ListChannels(ctx context.Context) ([]Channel, error) {
	params := &slack.GetConversationsParameters{
		Types:           []string{"public_channel"},
		ExcludeArchived: true,
		Limit:           200,
	}

	result := make([]Channel, 0)

	for {
		channels, cursor, err := c.api.GetConversationsContext(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to list channels: %w", err)
		}

		for _, channel := range channels {
			result = append(result, Channel{ID: channel.ID, Name: channel.Name})
		}

		if cursor == "" {
			return result, nil
		}

		params.Cursor = cursor
	}
}

// PostError reports which channels were posted before a failure.
type PostError struct {
	Channel string
	Posted  []string
	Err     error
}

func (e *PostError) Error() string {
	return fmt.Sprintf("posting to %s failed after %d channel(s): %v", e.Channel, len(e.Posted), e.Err)
}

func (e *PostError) Unwrap() error {
	return e.Err
}

// PostToChannels posts text to each channel in order and stops at the first
// failure.
func PostToChannels(ctx context.Context, client Client, channels []string, text string) ([]string, error) {
	posted := make([]string, 0, len(channels))

	for _, channel := range channels {
		if err := client.PostMessage(ctx, channel, text); err != nil {
			return posted, &PostError{Channel: channel, Posted: posted, Err: err}
		}

		posted = append(posted, channel)
	}

	return posted, nil
}

var ErrOAuthNotConfigured = errors.New("slack oauth is not configured")

// OAuth exchanges an install code for bot credentials.
type OAuth struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	HTTPClient   *http.Client
}

func (o *OAuth) Exchange(ctx context.Context, code string) (*models.SlackCredentials, error) {
	if o == nil || o.ClientID == "" || o.ClientSecret == "" {
		return nil, ErrOAuthNotConfigured
	}

	httpClient := o.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := slack.GetOAuthV2ResponseContext(ctx, httpClient, o.ClientID, o.ClientSecret, code, o.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("slack oauth exchange failed: %w", err)
	}

	return &models.SlackCredentials{
		AccessToken:     resp.AccessToken,
		AppID:           resp.AppID,
		AuthedUserID:    resp.AuthedUser.ID,
		AuthedUserToken: resp.AuthedUser.AccessToken,
		BotUserID:       resp.BotUserID,
		TeamID:          resp.Team.ID,
		TeamName:        resp.Team.Name,
	}, nil
}
