// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/flowzen/flowzen/pkg/persistence"
	"github.com/flowzen/flowzen/pkg/persistence/file"
	"github.com/flowzen/flowzen/pkg/persistence/postgresql"
)

// NewPersistence selects the store from the URL scheme. A bare path is a
// file store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	provider, location := parsePersistenceProvider(databaseURL)

	switch provider {
	case "postgres":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres persistence: %w", err)
		}

		return p, nil
	case "file":
		if location == "" {
			return nil, fmt.Errorf("file persistence needs a directory, got %q", databaseURL)
		}

		return file.NewPersistence(location), nil
	default:
		return nil, fmt.Errorf("unsupported persistence provider %q", provider)
	}
}

func parsePersistenceProvider(databaseURL string) (provider, location string) {
	scheme, rest, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file", databaseURL
	}

	switch scheme {
	case "postgres", "postgresql":
		return "postgres", databaseURL
	case "file":
		return "file", rest
	default:
		return scheme, rest
	}
}
