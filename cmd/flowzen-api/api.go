// Package main provides the Flowzen API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/flowzen/flowzen/pkg/catalog"
	"github.com/flowzen/flowzen/pkg/dispatcher"
	"github.com/flowzen/flowzen/pkg/docgen"
	"github.com/flowzen/flowzen/pkg/eventbus"
	"github.com/flowzen/flowzen/pkg/events"
	"github.com/flowzen/flowzen/pkg/identity"
	"github.com/flowzen/flowzen/pkg/integrations/slack"
	"github.com/flowzen/flowzen/pkg/locker"
	"github.com/flowzen/flowzen/pkg/metrics"
	"github.com/flowzen/flowzen/pkg/otelhelper"
	"github.com/flowzen/flowzen/pkg/persistence"
	"github.com/flowzen/flowzen/pkg/services"
	"github.com/flowzen/flowzen/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// OAuthConfig holds the app credentials of the OAuth connect flows. Empty
// client ids leave the matching callback answering 502.
type OAuthConfig struct {
	GitHubClientID     string
	GitHubClientSecret string
	SlackClientID      string
	SlackClientSecret  string
	SlackRedirectURL   string
}

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	locker      locker.Locker
	tracer      trace.Tracer
	metrics     *metrics.Metrics
	identity    identity.Provider
	oauth       OAuthConfig
	validate    *validator.Validate
}

type Option func(*API)

func WithTracer(tracer trace.Tracer) Option {
	return func(a *API) { a.tracer = tracer }
}

func WithOAuth(config OAuthConfig) Option {
	return func(a *API) { a.oauth = config }
}

func WithIdentity(provider identity.Provider) Option {
	return func(a *API) { a.identity = provider }
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	locker locker.Locker,
	options ...Option,
) *API {
	a := &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		locker:      locker,
		tracer:      otelhelper.NewNoopTracer(),
		metrics:     metrics.New(),
		identity:    identity.NewHeaderProvider(identity.DefaultHeader),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}

	for _, option := range options {
		option(a)
	}

	return a
}

// Subscribe counts every event seen on the bus in the events metric.
func (a *API) Subscribe(ctx context.Context) error {
	for _, eventType := range events.AllEventTypes() {
		if err := a.eventBus.Handle(eventType, a.metrics.RecordEvent); err != nil {
			return err
		}
	}

	return a.eventBus.Subscribe(ctx)
}

func (a *API) services() web.Services {
	nodeCatalog := catalog.New()

	actionDispatcher := dispatcher.New(nodeCatalog, a.logger.With("component", "dispatcher"),
		dispatcher.WithHandlers(dispatcher.DefaultHandlers()...),
		dispatcher.WithTracer(a.tracer),
		dispatcher.WithMetrics(a.metrics),
		dispatcher.WithPublisher(a.eventBus),
	)

	connections := services.NewConnections(a.persistence, a.logger,
		services.WithGitHubOAuth(&oauth2.Config{
			ClientID:     a.oauth.GitHubClientID,
			ClientSecret: a.oauth.GitHubClientSecret,
			Endpoint:     github.Endpoint,
			Scopes:       []string{"repo", "read:user"},
		}),
		services.WithSlackOAuth(&slack.OAuth{
			ClientID:     a.oauth.SlackClientID,
			ClientSecret: a.oauth.SlackClientSecret,
			RedirectURL:  a.oauth.SlackRedirectURL,
		}),
		services.WithConnectionMetrics(a.metrics),
		services.WithConnectionPublisher(a.eventBus),
	)

	return web.Services{
		Workflow:      services.NewWorkflow(a.persistence, a.locker, a.eventBus, a.logger),
		Templates:     services.NewTemplates(a.persistence, a.logger),
		Publishing:    services.NewPublishing(a.persistence, nodeCatalog, a.eventBus, a.logger),
		Execution:     services.NewExecution(a.persistence, nodeCatalog, actionDispatcher, a.logger),
		Documentation: services.NewDocumentation(a.persistence, docgen.NewMarkdown()),
		Dashboard:     services.NewDashboard(a.persistence),
		Connections:   connections,
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.services(), catalog.New(), a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Flowzen API")
	})

	app.Get("/metrics", adaptor.HTTPHandler(a.metrics.Handler()))

	handlers.Register(app.Group("/api"), a.identity)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
