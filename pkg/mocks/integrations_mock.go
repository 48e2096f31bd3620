package mocks

import (
	"context"

	"github.com/flowzen/flowzen/pkg/integrations/discord"
	"github.com/flowzen/flowzen/pkg/integrations/email"
	"github.com/flowzen/flowzen/pkg/integrations/github"
	"github.com/flowzen/flowzen/pkg/integrations/notion"
	"github.com/flowzen/flowzen/pkg/integrations/slack"
	"github.com/flowzen/flowzen/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockDiscordClient is a mock implementation of discord.Client interface.
type MockDiscordClient struct {
	mock.Mock
}

func (m *MockDiscordClient) Post(ctx context.Context, webhookURL string, message discord.Message) error {
	args := m.Called(ctx, webhookURL, message)

	return args.Error(0)
}

// MockSlackClient is a mock implementation of slack.Client interface.
type MockSlackClient struct {
	mock.Mock
}

func (m *MockSlackClient) PostMessage(ctx context.Context, channel, text string) error {
	args := m.Called(ctx, channel, text)

	return args.Error(0)
}

func (m *MockSlackClient) AuthTest(ctx context.Context) (*slack.Identity, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*slack.Identity), args.Error(1)
}

func (m *MockSlackClient) ListChannels(ctx context.Context) ([]slack.Channel, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]slack.Channel), args.Error(1)
}

// MockNotionClient is a mock implementation of notion.Client interface.
type MockNotionClient struct {
	mock.Mock
}

func (m *MockNotionClient) CreatePage(ctx context.Context, databaseID, title string) (*notion.Page, error) {
	args := m.Called(ctx, databaseID, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*notion.Page), args.Error(1)
}

func (m *MockNotionClient) GetDatabase(ctx context.Context, databaseID string) (*notion.Database, error) {
	args := m.Called(ctx, databaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*notion.Database), args.Error(1)
}

// MockEmailSender is a mock implementation of email.Sender interface.
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, account *models.EmailCredentials, message email.Message) error {
	args := m.Called(ctx, account, message)

	return args.Error(0)
}

// MockGitHubClient is a mock implementation of github.Client interface.
type MockGitHubClient struct {
	mock.Mock
}

func (m *MockGitHubClient) CreateIssue(ctx context.Context, owner, repo, title, body string) (*github.Issue, error) {
	args := m.Called(ctx, owner, repo, title, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*github.Issue), args.Error(1)
}

func (m *MockGitHubClient) FileSHA(ctx context.Context, owner, repo, path string) (string, bool, error) {
	args := m.Called(ctx, owner, repo, path)

	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockGitHubClient) PutFile(ctx context.Context, owner, repo, path, message string, content []byte, sha string) (string, error) {
	args := m.Called(ctx, owner, repo, path, message, content, sha)

	return args.String(0), args.Error(1)
}

func (m *MockGitHubClient) CurrentUser(ctx context.Context) (string, error) {
	args := m.Called(ctx)

	return args.String(0), args.Error(1)
}

func (m *MockGitHubClient) ListRepositories(ctx context.Context) ([]github.Repository, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]github.Repository), args.Error(1)
}
