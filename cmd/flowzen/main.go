// Package main is the offline flowzen CLI.
package main

import (
	"context"
	"os"

	"github.com/flowzen/flowzen/pkg/catalog"
	"github.com/flowzen/flowzen/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func main() {
	logger := log.WithModule("cli")
	nodeCatalog := catalog.New()

	command := &cli.Command{
		Name:                  "flowzen",
		Usage:                 "Inspect workflow graphs without a server",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			{
				Name:      "check",
				Aliases:   []string{"c"},
				Usage:     "Validate graph files (YAML or JSON) and report what the editor would",
				ArgsUsage: "<file>...",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "strict",
						Usage: "Also fail when a graph has no connected action node",
					},
				},
				Action: func(_ context.Context, command *cli.Command) error {
					return runCheck(command.Root().Writer, nodeCatalog, command.Args().Slice(), command.Bool("strict"))
				},
			},
			{
				Name:  "catalog",
				Usage: "List the node types",
				Action: func(_ context.Context, command *cli.Command) error {
					return printCatalog(command.Root().Writer, nodeCatalog)
				},
			},
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		logger.Error("flowzen failed", "error", err)
		os.Exit(1)
	}
}
