package dispatcher

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/flowzen/flowzen/pkg/catalog"
	"github.com/flowzen/flowzen/pkg/events"
	"github.com/flowzen/flowzen/pkg/integrations/discord"
	"github.com/flowzen/flowzen/pkg/integrations/email"
	"github.com/flowzen/flowzen/pkg/integrations/github"
	"github.com/flowzen/flowzen/pkg/integrations/notion"
	"github.com/flowzen/flowzen/pkg/integrations/slack"
	"github.com/flowzen/flowzen/pkg/metrics"
	"github.com/flowzen/flowzen/pkg/mocks"
	"github.com/flowzen/flowzen/pkg/models"
	"github.com/flowzen/flowzen/pkg/testutil"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dispatcher *Dispatcher
	discord    *mocks.MockDiscordClient
	slack      *mocks.MockSlackClient
	notion     *mocks.MockNotionClient
	email      *mocks.MockEmailSender
	github     *mocks.MockGitHubClient
	tokens     []string
}

func newFixture(options ...Option) *fixture {
	f := &fixture{
		discord: &mocks.MockDiscordClient{},
		slack:   &mocks.MockSlackClient{},
		notion:  &mocks.MockNotionClient{},
		email:   &mocks.MockEmailSender{},
		github:  &mocks.MockGitHubClient{},
	}

	handlers := WithHandlers(
		NewDiscordHandler(f.discord),
		NewSlackHandler(func(token string) slack.Client {
			f.tokens = append(f.tokens, token)

			return f.slack
		}),
		NewNotionHandler(func(string) notion.Client { return f.notion }),
		NewEmailHandler(f.email),
		NewGitHubHandler(func(string) github.Client { return f.github }),
	)

	f.dispatcher = New(catalog.New(), slog.New(slog.DiscardHandler), append([]Option{handlers}, options...)...)

	return f
}

func (f *fixture) assertNoCalls(t *testing.T) {
	t.Helper()

	f.discord.AssertNotCalled(t, "Post", mock.Anything, mock.Anything, mock.Anything)
	f.slack.AssertNotCalled(t, "PostMessage", mock.Anything, mock.Anything, mock.Anything)
	f.notion.AssertNotCalled(t, "CreatePage", mock.Anything, mock.Anything, mock.Anything)
	f.email.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
	f.github.AssertNotCalled(t, "CreateIssue", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func discordConnection() *models.Connection {
	return &models.Connection{
		ID:     "conn-discord",
		UserID: "user-1",
		Type:   models.ConnectionTypeDiscord,
		Credentials: &models.DiscordCredentials{
			WebhookURL: "https://discord.test/api/webhooks/1/abc",
			ChannelID:  "chan-1",
		},
	}
}

func request(nodeType models.NodeType, config map[string]any, connection *models.Connection) Request {
	return Request{
		UserID:     "user-1",
		WorkflowID: "wf-1",
		Node:       testutil.CreateTestNode(nodeType, testutil.WithID("n1")),
		Config:     config,
		Connection: connection,
	}
}

func TestExecute_MissingConnectionMakesNoCalls(t *testing.T) {
	actions := map[models.NodeType]map[string]any{
		models.NodeTypeDiscord: {"content": "hi"},
		models.NodeTypeSlack:   {"channels": []any{"C1"}, "content": "hi"},
		models.NodeTypeNotion:  {"database_id": "db", "content": "hi"},
		models.NodeTypeGitHub:  {"action": "create_issue", "repository": "o/r", "title": "t", "body": "b"},
	}

	for nodeType, config := range actions {
		t.Run(string(nodeType), func(t *testing.T) {
			f := newFixture()

			result := f.dispatcher.Execute(t.Context(), request(nodeType, config, nil))

			assert.False(t, result.Success)
			assert.Equal(t, models.FailurePrecondition, result.Kind)
			assert.ErrorIs(t, result.Err, ErrPreconditionFailed)
			assert.Contains(t, result.Message, "is not connected")
			f.assertNoCalls(t)
		})
	}
}

func TestExecute_MismatchedConnection(t *testing.T) {
	f := newFixture()

	result := f.dispatcher.Execute(t.Context(), request(models.NodeTypeSlack,
		map[string]any{"channels": []any{"C1"}, "content": "hi"}, discordConnection()))

	assert.Equal(t, models.FailurePrecondition, result.Kind)
	f.assertNoCalls(t)
}

func TestExecute_EmailWithoutConnection(t *testing.T) {
	f := newFixture()

	result := f.dispatcher.Execute(t.Context(), request(models.NodeTypeEmail,
		map[string]any{"to": "a@b.co", "subject": "s", "body": "b"}, nil))

	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err, ErrNoEmailConnection)
	assert.ErrorIs(t, result.Err, ErrPreconditionFailed)
	f.assertNoCalls(t)
}

func TestExecute_NodesWithoutHandlerAreSkipped(t *testing.T) {
	for _, nodeType := range []models.NodeType{
		models.NodeTypeTrigger,
		models.NodeTypeAction,
		models.NodeTypeCondition,
		models.NodeTypeWait,
		models.NodeTypeAI,
		models.NodeTypeCustomWebhook,
		models.NodeTypeGoogleCalendar,
	} {
		t.Run(string(nodeType), func(t *testing.T) {
			f := newFixture()

			result := f.dispatcher.Execute(t.Context(), request(nodeType, nil, nil))

			assert.True(t, result.Success)
			assert.True(t, result.Skipped)
			assert.Empty(t, result.Kind)
			f.assertNoCalls(t)
		})
	}
}

func TestExecute_GoogleDriveStillRequiresConnection(t *testing.T) {
	f := newFixture()

	result := f.dispatcher.Execute(t.Context(), request(models.NodeTypeGoogleDrive, nil, nil))

	assert.False(t, result.Success)
	assert.Equal(t, models.FailurePrecondition, result.Kind)
}

func TestExecute_UnknownNodeType(t *testing.T) {
	f := newFixture()

	result := f.dispatcher.Execute(t.Context(), request("Teleport", nil, nil))

	assert.False(t, result.Success)
	assert.Equal(t, models.FailureUnsupported, result.Kind)
	assert.ErrorIs(t, result.Err, ErrUnsupportedNode)
}

func TestExecute_NilNode(t *testing.T) {
	f := newFixture()

	result := f.dispatcher.Execute(t.Context(), Request{UserID: "user-1"})

	assert.False(t, result.Success)
	assert.Equal(t, models.FailureValidation, result.Kind)
}

func TestExecute_InvalidConfig(t *testing.T) {
	f := newFixture()

	result := f.dispatcher.Execute(t.Context(), request(models.NodeTypeGitHub,
		map[string]any{"action": "delete_repo", "repository": "o/r"},
		&models.Connection{Type: models.ConnectionTypeGitHub, Credentials: &models.GitHubCredentials{AccessToken: "t"}}))

	assert.False(t, result.Success)
	assert.Equal(t, models.FailureValidation, result.Kind)
	assert.ErrorIs(t, result.Err, catalog.ErrInvalidConfig)
	f.assertNoCalls(t)
}

func TestDiscord_EmptyContent(t *testing.T) {
	f := newFixture()

	result := f.dispatcher.Execute(t.Context(), request(models.NodeTypeDiscord, map[string]any{"content": ""}, discordConnection()))

	assert.False(t, result.Success)
	assert.Equal(t, "String empty", result.Message)
	assert.Equal(t, models.FailureValidation, result.Kind)
	assert.ErrorIs(t, result.Err, discord.ErrEmptyContent)
	f.assertNoCalls(t)
}

func TestDiscord_PostsEmbedPerAttachment(t *testing.T) {
	f := newFixture()

	expected := discord.Message{
		Content: "report ready",
		Embeds: []discord.Embed{{
			Title:       "report.pdf",
			URL:         "https://drive.test/report.pdf",
			Description: "Click to view file in Google Drive",
			Color:       4886754,
		}},
	}
	f.discord.On("Post", mock.Anything, "https://discord.test/api/webhooks/1/abc", expected).Return(nil)

	result := f.dispatcher.Execute(t.Context(), request(models.NodeTypeDiscord, map[string]any{
		"content":     "report ready",
		"attachments": []any{map[string]any{"name": "report.pdf", "link": "https://drive.test/report.pdf"}},
	}, discordConnection()))

	assert.True(t, result.Success)
	assert.Equal(t, "success", result.Message)
	f.discord.AssertExpectations(t)
}

func TestDiscord_PostFailure(t *testing.T) {
	f := newFixture()

	f.discord.On("Post", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("status 500"))

	result := f.dispatcher.Execute(t.Context(), request(models.NodeTypeDiscord, map[string]any{"content": "hi"}, discordConnection()))

	assert.False(t, result.Success)
	assert.Equal(t, "failed request", result.Message)
	assert.Equal(t, models.FailureExternalAction, result.Kind)
	assert.ErrorIs(t, result.Err, ErrExternalAction)
}

func TestSlack_StopsAtFirstFailure(t *testing.T) {
	f := newFixture()

	connection := &models.Connection{
		Type:        models.ConnectionTypeSlack,
		Credentials: &models.SlackCredentials{AccessToken: "xoxb-1"},
	}

	f.slack.On("PostMessage", mock.Anything, "C1", "hello").Return(nil).Once()
	f.slack.On("PostMessage", mock.Anything, "C2", "hello").Return(errors.New("channel_not_found")).Once()

	result := f.dispatcher.Execute(t.Context(), request(models.NodeTypeSlack,
		map[string]any{"channels": []any{"C1", "C2", "C3"}, "content": "hello"}, connection))

	assert.False(t, result.Success)
	assert.Equal(t, models.FailureExternalAction, result.Kind)
	assert.Equal(t, "failed to post to C2", result.Message)
	assert.Equal(t, []string{"xoxb-1"}, f.tokens)
	f.slack.AssertNotCalled(t, "PostMessage", mock.Anything, "C3", mock.Anything)
	f.slack.AssertExpectations(t)
}

func TestSlack_PostsToEveryChannel(t *testing.T) {
	f := newFixture()

	connection := &models.Connection{
		Type:        models.ConnectionTypeSlack,
		Credentials: &models.SlackCredentials{AccessToken: "xoxb-1"},
	}

	f.slack.On("PostMessage", mock.Anything, mock.Anything, "hello").Return(nil)

	result := f.dispatcher.Execute(t.Context(), request(models.NodeTypeSlack,
		map[string]any{"channels": []any{"C1", "C2"}, "content": "hello"}, connection))

	require.True(t, result.Success)
	assert.Equal(t, map[string]any{"channels": []string{"C1", "C2"}}, result.Data)
	f.slack.AssertNumberOfCalls(t, "PostMessage", 2)
}

func TestNotion_CreatesPage(t *testing.T) {
	f := newFixture()

	connection := &models.Connection{
		Type:        models.ConnectionTypeNotion,
		Credentials: &models.NotionCredentials{AccessToken: "secret_1"},
	}

	f.notion.On("CreatePage", mock.Anything, "db-1", "note").
		Return(&notion.Page{ID: "page-1", URL: "https://notion.test/page-1"}, nil)

	result := f.dispatcher.Execute(t.Context(), request(models.NodeTypeNotion,
		map[string]any{"database_id": "db-1", "content": "note"}, connection))

	assert.True(t, result.Success)
	assert.Equal(t, "page created", result.Message)
	f.notion.AssertExpectations(t)
}

func TestEmail_Sends(t *testing.T) {
	f := newFixture()

	account := &models.EmailCredentials{
		EmailAddress: "me@example.com",
		SMTPHost:     "smtp.example.com",
		SMTPPort:     465,
		SMTPUser:     "me",
		SMTPPass:     "secret",
	}

	f.email.On("Send", mock.Anything, account, email.Message{To: "a@b.co", Subject: "Hi", Body: "Hello"}).Return(nil)

	result := f.dispatcher.Execute(t.Context(), request(models.NodeTypeEmail,
		map[string]any{"to": "a@b.co", "subject": "Hi", "body": "Hello"},
		&models.Connection{Type: models.ConnectionTypeEmail, Credentials: account}))

	assert.True(t, result.Success)
	f.email.AssertExpectations(t)
}

func githubConnection() *models.Connection {
	return &models.Connection{
		Type:        models.ConnectionTypeGitHub,
		Credentials: &models.GitHubCredentials{AccessToken: "gho_1", Username: "octo"},
	}
}

func TestGitHub_CreateIssue(t *testing.T) {
	f := newFixture()

	f.github.On("CreateIssue", mock.Anything, "octo", "hello", "Bug", "It broke").
		Return(&github.Issue{Number: 7, HTMLURL: "https://github.test/octo/hello/issues/7"}, nil)

	result := f.dispatcher.Execute(t.Context(), request(models.NodeTypeGitHub, map[string]any{
		"action":     "create_issue",
		"repository": "octo/hello",
		"title":      "Bug",
		"body":       "It broke",
	}, githubConnection()))

	assert.True(t, result.Success)
	assert.Equal(t, "issue #7 created", result.Message)
}

func TestGitHub_CommitFileCreatesOnMissingPath(t *testing.T) {
	f := newFixture()

	f.github.On("FileSHA", mock.Anything, "octo", "hello", "docs/a.md").Return("", false, nil)
	f.github.On("PutFile", mock.Anything, "octo", "hello", "docs/a.md", "add a", []byte("# A"), "").Return("c1", nil)

	result := f.dispatcher.Execute(t.Context(), request(models.NodeTypeGitHub, map[string]any{
		"action":     "commit_file",
		"repository": "octo/hello",
		"path":       "docs/a.md",
		"content":    "# A",
		"message":    "add a",
	}, githubConnection()))

	assert.True(t, result.Success)
	assert.Equal(t, "created docs/a.md", result.Message)
	f.github.AssertExpectations(t)
}

func TestGitHub_ProbeFailureAbortsWrite(t *testing.T) {
	f := newFixture()

	f.github.On("FileSHA", mock.Anything, "octo", "hello", "a.md").Return("", false, errors.New("forbidden"))

	result := f.dispatcher.Execute(t.Context(), request(models.NodeTypeGitHub, map[string]any{
		"action":     "commit_file",
		"repository": "octo/hello",
		"path":       "a.md",
		"message":    "m",
	}, githubConnection()))

	assert.False(t, result.Success)
	assert.Equal(t, models.FailureExternalAction, result.Kind)
	f.github.AssertNotCalled(t, "PutFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything)
}

type panicHandler struct{}

func (panicHandler) NodeType() models.NodeType { return models.NodeTypeNotion }

func (panicHandler) Execute(context.Context, *Call) (*Outcome, error) {
	panic("boom")
}

func TestExecute_RecoversHandlerPanic(t *testing.T) {
	f := newFixture(WithHandlers(panicHandler{}))

	result := f.dispatcher.Execute(t.Context(), request(models.NodeTypeNotion,
		map[string]any{"database_id": "db", "content": "x"},
		&models.Connection{Type: models.ConnectionTypeNotion, Credentials: &models.NotionCredentials{AccessToken: "t"}}))

	assert.False(t, result.Success)
	assert.Equal(t, models.FailureExternalAction, result.Kind)
}

func TestExecute_RecordsMetricsAndEvents(t *testing.T) {
	m := metrics.New()
	bus := &mocks.MockEventBus{}

	bus.On("Publish", mock.Anything, "wf-1", mock.MatchedBy(func(e events.ActionExecuted) bool {
		return e.NodeType == string(models.NodeTypeWait) && e.Skipped && e.Success
	})).Return(nil).Once()
	bus.On("Publish", mock.Anything, "wf-1", mock.MatchedBy(func(e events.ActionExecuted) bool {
		return e.Kind == string(models.FailurePrecondition) && !e.Success
	})).Return(errors.New("bus down")).Once()

	f := newFixture(WithMetrics(m), WithPublisher(bus))

	f.dispatcher.Execute(t.Context(), request(models.NodeTypeWait, nil, nil))
	f.dispatcher.Execute(t.Context(), request(models.NodeTypeDiscord, map[string]any{"content": "x"}, nil))

	assert.InDelta(t, 1, promtestutil.ToFloat64(m.Actions.WithLabelValues("Wait", metrics.OutcomeSkipped)), 0)
	assert.InDelta(t, 1, promtestutil.ToFloat64(m.Actions.WithLabelValues("Discord", metrics.OutcomeFailure)), 0)
	bus.AssertExpectations(t)
}
