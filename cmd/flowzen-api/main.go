package main

import (
	"context"
	"os"
	"time"

	"github.com/flowzen/flowzen/pkg/cmd"
	"github.com/flowzen/flowzen/pkg/log"
	"github.com/joho/godotenv"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultPort    = 9091
	defaultLockTTL = 30 * time.Second
)

func main() {
	_ = godotenv.Load()

	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "flowzen-api",
		Usage:                 "Edit, connect and run workflows over HTTP",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Persistence URL (postgres://... or file://<dir>)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (memory, kafka)",
				Value:   "memory",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers for the kafka event bus",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the shared save lock; empty keeps the lock in process",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:    "otel-enabled",
				Usage:   "Export dispatcher traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "github-client-id",
				Sources: cli.EnvVars("GITHUB_CLIENT_ID"),
			},
			&cli.StringFlag{
				Name:    "github-client-secret",
				Sources: cli.EnvVars("GITHUB_CLIENT_SECRET"),
			},
			&cli.StringFlag{
				Name:    "slack-client-id",
				Sources: cli.EnvVars("SLACK_CLIENT_ID"),
			},
			&cli.StringFlag{
				Name:    "slack-client-secret",
				Sources: cli.EnvVars("SLACK_CLIENT_SECRET"),
			},
			&cli.StringFlag{
				Name:    "slack-redirect-url",
				Sources: cli.EnvVars("SLACK_REDIRECT_URL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Flowzen API")

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			saveLocker, closeLocker, err := cmd.NewLocker(command.String("redis-url"), defaultLockTTL)
			if err != nil {
				return err
			}

			defer func() {
				if err := closeLocker(); err != nil {
					logger.ErrorContext(ctx, "Failed to close locker", "error", err)
				}
			}()

			tracer, shutdown, err := cmd.NewTracer(ctx, command.Bool("otel-enabled"))
			if err != nil {
				return err
			}

			defer func() {
				if err := shutdown(context.WithoutCancel(ctx)); err != nil {
					logger.ErrorContext(ctx, "Failed to shutdown tracer", "error", err)
				}
			}()

			api := NewAPI(logger, persistence, eventBus, saveLocker,
				WithTracer(tracer),
				WithOAuth(OAuthConfig{
					GitHubClientID:     command.String("github-client-id"),
					GitHubClientSecret: command.String("github-client-secret"),
					SlackClientID:      command.String("slack-client-id"),
					SlackClientSecret:  command.String("slack-client-secret"),
					SlackRedirectURL:   command.String("slack-redirect-url"),
				}),
			)

			if err := api.Subscribe(ctx); err != nil {
				return err
			}

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API", "error", err)

				return err
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		logger.Error("flowzen-api stopped", "error", err)
		os.Exit(1)
	}
}
