package services

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flowzen/flowzen/pkg/integrations/github"
	"github.com/flowzen/flowzen/pkg/integrations/notion"
	"github.com/flowzen/flowzen/pkg/integrations/slack"
	"github.com/flowzen/flowzen/pkg/metrics"
	"github.com/flowzen/flowzen/pkg/mocks"
	"github.com/flowzen/flowzen/pkg/models"
	"github.com/flowzen/flowzen/pkg/persistence"
	"github.com/flowzen/flowzen/pkg/persistence/file"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type clientMocks struct {
	github *mocks.MockGitHubClient
	slack  *mocks.MockSlackClient
	notion *mocks.MockNotionClient
}

func newClientMocks() (*clientMocks, Clients) {
	m := &clientMocks{
		github: &mocks.MockGitHubClient{},
		slack:  &mocks.MockSlackClient{},
		notion: &mocks.MockNotionClient{},
	}

	return m, Clients{
		GitHub: func(string) github.Client { return m.github },
		Slack:  func(string) slack.Client { return m.slack },
		Notion: func(string) notion.Client { return m.notion },
	}
}

func newConnections(t *testing.T, options ...ConnectionsOption) (*Connections, *file.Persistence, *clientMocks) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	m, clients := newClientMocks()

	return NewConnections(p, discardLogger(), append([]ConnectionsOption{WithClients(clients)}, options...)...), p, m
}

func TestConnections_ValidatesBeforeStoreAccess(t *testing.T) {
	p := mocks.NewMockPersistence()
	_, clients := newClientMocks()
	service := NewConnections(p, discardLogger(), WithClients(clients))

	tests := []struct {
		name        string
		userID      string
		credentials models.Credentials
	}{
		{"no user", "", &models.NotionCredentials{AccessToken: "x"}},
		{"no credentials", "user-1", nil},
		{"discord without webhook", "user-1", &models.DiscordCredentials{ChannelID: "c1"}},
		{"slack without token", "user-1", &models.SlackCredentials{}},
		{"email without host", "user-1", &models.EmailCredentials{EmailAddress: "a@b.co", SMTPUser: "a", SMTPPass: "p"}},
		{"email with bad port", "user-1", &models.EmailCredentials{
			EmailAddress: "a@b.co", SMTPHost: "h", SMTPUser: "a", SMTPPass: "p", SMTPPort: 70000,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Connect(t.Context(), tt.userID, tt.credentials)
			require.Error(t, err)
			assert.True(t, IsValidationError(err), err.Error())
		})
	}

	p.Connections.AssertNotCalled(t, "GetByUserAndType", mock.Anything, mock.Anything, mock.Anything)
	p.Connections.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestConnections_ConnectCreatesThenNoOps(t *testing.T) {
	m := metrics.New()
	service, p, _ := newConnections(t, WithConnectionMetrics(m))

	credentials := &models.NotionCredentials{AccessToken: "secret_1", DatabaseID: "db-1"}

	first, err := service.Connect(t.Context(), "user-1", credentials)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "Notion connected", first.Message)
	assert.NotEmpty(t, first.Connection.ID)

	second, err := service.Connect(t.Context(), "user-1", &models.NotionCredentials{AccessToken: "secret_2"})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, "Notion is already connected", second.Message)
	assert.Equal(t, first.Connection.ID, second.Connection.ID)
	assert.Equal(t, "secret_1", second.Connection.Credentials.(*models.NotionCredentials).AccessToken)

	list, err := p.ConnectionRepository().ListByUser(t.Context(), "user-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.InDelta(t, 1, promtestutil.ToFloat64(m.Connections.WithLabelValues("Notion", "true")), 0)
	assert.InDelta(t, 1, promtestutil.ToFloat64(m.Connections.WithLabelValues("Notion", "false")), 0)
}

func TestConnections_DiscordSameChannelIsNoOp(t *testing.T) {
	service, _, _ := newConnections(t)

	credentials := func() *models.DiscordCredentials {
		return &models.DiscordCredentials{WebhookURL: "https://discord.test/hook", ChannelID: "chan-1"}
	}

	first, err := service.Connect(t.Context(), "user-1", credentials())
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := service.Connect(t.Context(), "user-1", credentials())
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, "Discord is already connected", second.Message)
}

func TestConnections_GitHubHandshake(t *testing.T) {
	service, p, clients := newConnections(t)

	clients.github.On("CurrentUser", mock.Anything).Return("octocat", nil).Once()

	result, err := service.Connect(t.Context(), "user-1", &models.GitHubCredentials{AccessToken: "gho_1"})
	require.NoError(t, err)
	assert.Equal(t, "octocat", result.Connection.Credentials.(*models.GitHubCredentials).Username)

	stored, err := p.ConnectionRepository().GetByUserAndType(t.Context(), "user-1", models.ConnectionTypeGitHub)
	require.NoError(t, err)
	assert.Equal(t, "octocat", stored.Credentials.(*models.GitHubCredentials).Username)
}

func TestConnections_HandshakeFailureLeavesRegistryUntouched(t *testing.T) {
	service, p, clients := newConnections(t)

	clients.slack.On("AuthTest", mock.Anything).Return(nil, errors.New("invalid_auth")).Once()

	_, err := service.Connect(t.Context(), "user-1", &models.SlackCredentials{AccessToken: "xoxb-bad"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExternalAuth)
	assert.True(t, IsUpstreamError(err))

	_, err = p.ConnectionRepository().GetByUserAndType(t.Context(), "user-1", models.ConnectionTypeSlack)
	assert.True(t, persistence.IsConnectionNotFound(err))
}

func TestConnections_SlackHandshakeFillsTeam(t *testing.T) {
	service, _, clients := newConnections(t)

	clients.slack.On("AuthTest", mock.Anything).
		Return(&slack.Identity{TeamID: "T1", Team: "Acme", UserID: "U-bot"}, nil).Once()

	result, err := service.Connect(t.Context(), "user-1", &models.SlackCredentials{AccessToken: "xoxb-1"})
	require.NoError(t, err)

	account := result.Connection.Credentials.(*models.SlackCredentials)
	assert.Equal(t, "T1", account.TeamID)
	assert.Equal(t, "Acme", account.TeamName)
	assert.Equal(t, "U-bot", account.BotUserID)
}

func TestConnections_ConcurrentCreateReturnsWinner(t *testing.T) {
	p := mocks.NewMockPersistence()
	_, clients := newClientMocks()
	service := NewConnections(p, discardLogger(), WithClients(clients))

	winner := models.NewConnection("conn-1", "user-1", &models.NotionCredentials{AccessToken: "first"}, time.Now())
	notFound := persistence.NewConnectionError("GetByUserAndType", "user-1", models.ConnectionTypeNotion, persistence.ErrConnectionNotFound)

	p.Connections.On("GetByUserAndType", mock.Anything, "user-1", models.ConnectionTypeNotion).Return(nil, notFound).Once()
	p.Connections.On("Create", mock.Anything, mock.Anything).
		Return(persistence.NewConnectionError("Create", "user-1", models.ConnectionTypeNotion, persistence.ErrConnectionAlreadyExists)).Once()
	p.Connections.On("GetByUserAndType", mock.Anything, "user-1", models.ConnectionTypeNotion).Return(winner, nil).Once()

	result, err := service.Connect(t.Context(), "user-1", &models.NotionCredentials{AccessToken: "second"})
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Equal(t, "conn-1", result.Connection.ID)
	p.Connections.AssertExpectations(t)
}

func TestConnections_GetAndList(t *testing.T) {
	service, _, _ := newConnections(t)

	_, err := service.Get(t.Context(), "user-1", models.ConnectionTypeEmail)
	assert.ErrorIs(t, err, ErrConnectionNotFound)

	_, err = service.Connect(t.Context(), "user-1", &models.EmailCredentials{
		EmailAddress: "me@example.com",
		SMTPHost:     "smtp.example.com",
		SMTPUser:     "me",
		SMTPPass:     "secret",
	})
	require.NoError(t, err)

	got, err := service.Get(t.Context(), "user-1", models.ConnectionTypeEmail)
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com", got.Credentials.(*models.EmailCredentials).SMTPHost)

	list, err := service.List(t.Context(), "user-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = service.List(t.Context(), "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestConnections_ExchangeGitHubCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())

		if r.Form.Get("code") != "good" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"bad_verification_code"}`))

			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"gho_new","token_type":"bearer","scope":"repo"}`))
	}))
	defer server.Close()

	config := &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{AuthURL: server.URL + "/authorize", TokenURL: server.URL + "/token"},
	}

	service, _, clients := newConnections(t, WithGitHubOAuth(config))
	clients.github.On("CurrentUser", mock.Anything).Return("octocat", nil)

	result, err := service.ExchangeGitHubCode(t.Context(), "user-1", "good")
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, "gho_new", result.Connection.Credentials.(*models.GitHubCredentials).AccessToken)

	_, err = service.ExchangeGitHubCode(t.Context(), "user-2", "bad")
	assert.ErrorIs(t, err, ErrExternalAuth)

	_, err = service.ExchangeGitHubCode(t.Context(), "user-2", "")
	assert.True(t, IsValidationError(err))
}

func TestConnections_ExchangeWithoutOAuthConfig(t *testing.T) {
	service, _, _ := newConnections(t)

	_, err := service.ExchangeGitHubCode(t.Context(), "user-1", "code")
	assert.ErrorIs(t, err, ErrExternalAuth)

	_, err = service.ExchangeSlackCode(t.Context(), "user-1", "code")
	assert.ErrorIs(t, err, ErrExternalAuth)
	assert.ErrorIs(t, err, slack.ErrOAuthNotConfigured)
}

func TestConnections_EditorLookups(t *testing.T) {
	service, _, clients := newConnections(t, WithVerifier(models.ConnectionTypeGitHub, nil), WithVerifier(models.ConnectionTypeSlack, nil))

	_, err := service.GitHubRepositories(t.Context(), "user-1")
	assert.ErrorIs(t, err, ErrConnectionNotFound)

	_, err = service.Connect(t.Context(), "user-1", &models.GitHubCredentials{AccessToken: "gho_1"})
	require.NoError(t, err)
	_, err = service.Connect(t.Context(), "user-1", &models.SlackCredentials{AccessToken: "xoxb-1"})
	require.NoError(t, err)
	_, err = service.Connect(t.Context(), "user-1", &models.NotionCredentials{AccessToken: "secret_1", DatabaseID: "db-1"})
	require.NoError(t, err)

	clients.github.On("ListRepositories", mock.Anything).Return([]github.Repository{{FullName: "octo/hello"}}, nil)
	clients.slack.On("ListChannels", mock.Anything).Return(nil, errors.New("missing_scope"))
	clients.notion.On("GetDatabase", mock.Anything, "db-1").Return(&notion.Database{ID: "db-1", Title: "Tasks"}, nil)

	repositories, err := service.GitHubRepositories(t.Context(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "octo/hello", repositories[0].FullName)

	_, err = service.SlackChannels(t.Context(), "user-1")
	assert.ErrorIs(t, err, ErrExternalAction)

	database, err := service.NotionDatabase(t.Context(), "user-1", "")
	require.NoError(t, err)
	assert.Equal(t, "Tasks", database.Title)
}
