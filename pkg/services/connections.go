package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowzen/flowzen/pkg/eventbus"
	"github.com/flowzen/flowzen/pkg/events"
	"github.com/flowzen/flowzen/pkg/integrations/github"
	"github.com/flowzen/flowzen/pkg/integrations/notion"
	"github.com/flowzen/flowzen/pkg/integrations/slack"
	"github.com/flowzen/flowzen/pkg/metrics"
	"github.com/flowzen/flowzen/pkg/models"
	"github.com/flowzen/flowzen/pkg/persistence"
	"golang.org/x/oauth2"
)

// Verifier checks credentials against the provider before they are stored and
// may fill in provider-side identity fields.
type Verifier func(ctx context.Context, credentials models.Credentials) error

// Clients builds the per-token service clients used for handshakes and editor
// lookups.
type Clients struct {
	GitHub github.Factory
	Slack  slack.Factory
	Notion notion.Factory
}

// DefaultClients returns SDK-backed clients.
func DefaultClients() Clients {
	return Clients{
		GitHub: github.NewClient,
		Slack:  func(token string) slack.Client { return slack.NewClient(token) },
		Notion: notion.NewClient,
	}
}

// GitHubVerifier resolves the username behind the access token.
func GitHubVerifier(clients github.Factory) Verifier {
	return func(ctx context.Context, credentials models.Credentials) error {
		account, ok := credentials.(*models.GitHubCredentials)
		if !ok {
			return fmt.Errorf("unexpected %s credentials", credentials.ConnectionType())
		}

		login, err := github.Verify(ctx, clients(account.AccessToken))
		if err != nil {
			return err
		}

		account.Username = login

		return nil
	}
}

// SlackVerifier runs auth.test and records the team and bot user.
func SlackVerifier(clients slack.Factory) Verifier {
	return func(ctx context.Context, credentials models.Credentials) error {
		account, ok := credentials.(*models.SlackCredentials)
		if !ok {
			return fmt.Errorf("unexpected %s credentials", credentials.ConnectionType())
		}

		identity, err := clients(account.AccessToken).AuthTest(ctx)
		if err != nil {
			return err
		}

		account.TeamID = identity.TeamID
		account.TeamName = identity.Team

		if account.BotUserID == "" {
			account.BotUserID = identity.UserID
		}

		return nil
	}
}

// ConnectResult reports the outcome of Connect. Created is false when the user
// already had a binding, in which case Connection is the existing record.
type ConnectResult struct {
	Connection *models.Connection `json:"connection"`
	Created    bool               `json:"created"`
	Message    string             `json:"message"`
}

// Connections is the registry of user-to-service bindings.
type Connections struct {
	persistence persistence.Persistence
	clients     Clients
	verifiers   map[models.ConnectionType]Verifier
	githubOAuth *oauth2.Config
	slackOAuth  *slack.OAuth
	metrics     *metrics.Metrics
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
}

type ConnectionsOption func(*Connections)

// WithClients replaces the service clients and the GitHub and Slack verifiers
// built from them.
func WithClients(clients Clients) ConnectionsOption {
	return func(c *Connections) {
		c.clients = clients
		c.verifiers[models.ConnectionTypeGitHub] = GitHubVerifier(clients.GitHub)
		c.verifiers[models.ConnectionTypeSlack] = SlackVerifier(clients.Slack)
	}
}

// WithVerifier sets the handshake of one connection type. A nil verifier disables it.
func WithVerifier(connectionType models.ConnectionType, verifier Verifier) ConnectionsOption {
	return func(c *Connections) {
		if verifier == nil {
			delete(c.verifiers, connectionType)

			return
		}

		c.verifiers[connectionType] = verifier
	}
}

func WithGitHubOAuth(config *oauth2.Config) ConnectionsOption {
	return func(c *Connections) {
		c.githubOAuth = config
	}
}

func WithSlackOAuth(config *slack.OAuth) ConnectionsOption {
	return func(c *Connections) {
		c.slackOAuth = config
	}
}

func WithConnectionMetrics(m *metrics.Metrics) ConnectionsOption {
	return func(c *Connections) {
		c.metrics = m
	}
}

func WithConnectionPublisher(publisher eventbus.EventPublisher) ConnectionsOption {
	return func(c *Connections) {
		c.publisher = publisher
	}
}

// NewConnections creates the registry with SDK-backed clients unless
// WithClients says otherwise.
func NewConnections(persistence persistence.Persistence, logger *slog.Logger, options ...ConnectionsOption) *Connections {
	c := &Connections{
		persistence: persistence,
		verifiers:   make(map[models.ConnectionType]Verifier),
		logger:      logger,
	}

	WithClients(DefaultClients())(c)

	for _, option := range options {
		option(c)
	}

	return c
}

// Connect binds credentials to userID. Binding a type the user already has is
// a no-op that returns the existing record.
func (c *Connections) Connect(ctx context.Context, userID string, credentials models.Credentials) (*ConnectResult, error) {
	if userID == "" {
		return nil, NewValidationError("Connect", "USER_REQUIRED", "user id is required", nil)
	}

	if credentials == nil {
		return nil, NewValidationError("Connect", "CREDENTIALS_REQUIRED", "credentials are required", nil)
	}

	connectionType := credentials.ConnectionType()

	if err := credentials.Validate(); err != nil {
		return nil, NewValidationError("Connect", "INVALID_CREDENTIALS",
			fmt.Sprintf("invalid %s credentials: %v", connectionType, err), errors.Join(ErrValidation, err))
	}

	if verify, ok := c.verifiers[connectionType]; ok {
		if err := verify(ctx, credentials); err != nil {
			c.logger.WarnContext(ctx, "connection handshake failed", "type", connectionType, "error", err)

			return nil, newError("Connect", "EXTERNAL_AUTH",
				fmt.Sprintf("could not verify %s credentials", connectionType), errors.Join(ErrExternalAuth, err))
		}
	}

	repo := c.persistence.ConnectionRepository()

	existing, err := c.existing(ctx, userID, credentials)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		return c.alreadyConnected(existing), nil
	}

	connection := models.NewConnection("", userID, credentials, time.Time{})

	if err := repo.Create(ctx, connection); err != nil {
		if !persistence.IsConnectionAlreadyExists(err) {
			return nil, fmt.Errorf("failed to create connection: %w", err)
		}

		winner, lookupErr := c.existing(ctx, userID, credentials)
		if lookupErr != nil || winner == nil {
			return nil, fmt.Errorf("failed to resolve concurrent connect: %w", err)
		}

		return c.alreadyConnected(winner), nil
	}

	c.logger.InfoContext(ctx, "connection created", "user_id", userID, "type", connectionType, "connection_id", connection.ID)

	if c.metrics != nil {
		c.metrics.ObserveConnect(string(connectionType), true)
	}

	publish(ctx, c.publisher, c.logger, userID, events.ConnectionCreated{
		BaseEvent:      events.NewBaseEvent(events.ConnectionCreatedEvent, userID, ""),
		ConnectionID:   connection.ID,
		ConnectionType: string(connectionType),
	})

	return &ConnectResult{
		Connection: connection,
		Created:    true,
		Message:    fmt.Sprintf("%s connected", connectionType),
	}, nil
}

// existing looks the binding up by type, then by provider resource id.
func (c *Connections) existing(ctx context.Context, userID string, credentials models.Credentials) (*models.Connection, error) {
	repo := c.persistence.ConnectionRepository()
	connectionType := credentials.ConnectionType()

	found, err := repo.GetByUserAndType(ctx, userID, connectionType)
	if err == nil {
		return found, nil
	}

	if !persistence.IsConnectionNotFound(err) {
		return nil, fmt.Errorf("failed to look up connection: %w", err)
	}

	externalID := credentials.ExternalID()
	if externalID == "" {
		return nil, nil
	}

	found, err = repo.GetByExternalID(ctx, userID, connectionType, externalID)
	if err == nil {
		return found, nil
	}

	if !persistence.IsConnectionNotFound(err) {
		return nil, fmt.Errorf("failed to look up connection: %w", err)
	}

	return nil, nil
}

func (c *Connections) alreadyConnected(connection *models.Connection) *ConnectResult {
	if c.metrics != nil {
		c.metrics.ObserveConnect(string(connection.Type), false)
	}

	return &ConnectResult{
		Connection: connection,
		Created:    false,
		Message:    fmt.Sprintf("%s is already connected", connection.Type),
	}
}

// Get returns the user's connection of connectionType.
func (c *Connections) Get(ctx context.Context, userID string, connectionType models.ConnectionType) (*models.Connection, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}

	return c.persistence.ConnectionRepository().GetByUserAndType(ctx, userID, connectionType)
}

// List returns every connection of the user, oldest first.
func (c *Connections) List(ctx context.Context, userID string) ([]*models.Connection, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}

	connections, err := c.persistence.ConnectionRepository().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}

	return connections, nil
}

// ExchangeGitHubCode completes the GitHub OAuth flow and connects the account.
func (c *Connections) ExchangeGitHubCode(ctx context.Context, userID, code string) (*ConnectResult, error) {
	if code == "" {
		return nil, NewValidationError("ExchangeGitHubCode", "CODE_REQUIRED", "authorization code is required", nil)
	}

	if c.githubOAuth == nil || c.githubOAuth.ClientID == "" {
		return nil, newError("ExchangeGitHubCode", "OAUTH_NOT_CONFIGURED", "github oauth is not configured", ErrExternalAuth)
	}

	token, err := c.githubOAuth.Exchange(ctx, code)
	if err != nil {
		return nil, newError("ExchangeGitHubCode", "EXTERNAL_AUTH", "github rejected the authorization code",
			errors.Join(ErrExternalAuth, err))
	}

	return c.Connect(ctx, userID, &models.GitHubCredentials{AccessToken: token.AccessToken})
}

// ExchangeSlackCode completes the Slack OAuth v2 install and connects the workspace.
func (c *Connections) ExchangeSlackCode(ctx context.Context, userID, code string) (*ConnectResult, error) {
	if code == "" {
		return nil, NewValidationError("ExchangeSlackCode", "CODE_REQUIRED", "authorization code is required", nil)
	}

	credentials, err := c.slackOAuth.Exchange(ctx, code)
	if err != nil {
		return nil, newError("ExchangeSlackCode", "EXTERNAL_AUTH", "slack rejected the authorization code",
			errors.Join(ErrExternalAuth, err))
	}

	return c.Connect(ctx, userID, credentials)
}

// NotionDatabase describes the database bound to the user's Notion connection,
// or databaseID when given.
func (c *Connections) NotionDatabase(ctx context.Context, userID, databaseID string) (*notion.Database, error) {
	connection, err := c.Get(ctx, userID, models.ConnectionTypeNotion)
	if err != nil {
		return nil, err
	}

	account := connection.Credentials.(*models.NotionCredentials)

	if databaseID == "" {
		databaseID = account.DatabaseID
	}

	if databaseID == "" {
		return nil, NewValidationError("NotionDatabase", "DATABASE_REQUIRED", "no notion database selected", nil)
	}

	database, err := c.clients.Notion(account.AccessToken).GetDatabase(ctx, databaseID)
	if err != nil {
		return nil, newError("NotionDatabase", "EXTERNAL_ACTION", "failed to load notion database",
			errors.Join(ErrExternalAction, err))
	}

	return database, nil
}

// GitHubRepositories lists the repositories the connected account can access.
func (c *Connections) GitHubRepositories(ctx context.Context, userID string) ([]github.Repository, error) {
	connection, err := c.Get(ctx, userID, models.ConnectionTypeGitHub)
	if err != nil {
		return nil, err
	}

	account := connection.Credentials.(*models.GitHubCredentials)

	repositories, err := c.clients.GitHub(account.AccessToken).ListRepositories(ctx)
	if err != nil {
		return nil, newError("GitHubRepositories", "EXTERNAL_ACTION", "failed to list github repositories",
			errors.Join(ErrExternalAction, err))
	}

	return repositories, nil
}

// SlackChannels lists the channels visible to the connected bot.
func (c *Connections) SlackChannels(ctx context.Context, userID string) ([]slack.Channel, error) {
	connection, err := c.Get(ctx, userID, models.ConnectionTypeSlack)
	if err != nil {
		return nil, err
	}

	account := connection.Credentials.(*models.SlackCredentials)

	channels, err := c.clients.Slack(account.AccessToken).ListChannels(ctx)
	if err != nil {
		return nil, newError("SlackChannels", "EXTERNAL_ACTION", "failed to list slack channels",
			errors.Join(ErrExternalAction, err))
	}

	return channels, nil
}
