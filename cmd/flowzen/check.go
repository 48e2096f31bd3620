package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/flowzen/flowzen/pkg/catalog"
	"github.com/flowzen/flowzen/pkg/config"
	"github.com/flowzen/flowzen/pkg/editor"
	"github.com/flowzen/flowzen/pkg/flow"
	"github.com/flowzen/flowzen/pkg/models"
)

var (
	errNoFiles       = errors.New("no graph files given")
	errCheckFailed   = errors.New("one or more graphs failed the check")
	errGraphNotReady = errors.New("graph has no connected action node")
)

func runCheck(w io.Writer, c *catalog.Catalog, paths []string, strict bool) error {
	if len(paths) == 0 {
		return errNoFiles
	}

	failed := false

	for _, path := range paths {
		if err := checkFile(w, c, path, strict); err != nil {
			fmt.Fprintf(w, "%s: FAIL %v\n", path, err)

			failed = true

			continue
		}

		fmt.Fprintf(w, "%s: ok\n", path)
	}

	if failed {
		return errCheckFailed
	}

	return nil
}

func checkFile(w io.Writer, c *catalog.Catalog, path string, strict bool) error {
	graph, err := config.LoadGraphFile(path)
	if err != nil {
		return err
	}

	if err := flow.ValidateGraph(graph.Nodes, graph.Edges); err != nil {
		var graphErr *flow.GraphError
		if errors.As(err, &graphErr) {
			for _, problem := range graphErr.Problems {
				fmt.Fprintf(w, "  error: %v\n", problem)
			}
		}

		return err
	}

	report := flow.Analyze(graph.Nodes, graph.Edges)

	fmt.Fprintf(w, "  nodes: %d, edges: %d, triggers: %d\n", len(graph.Nodes), len(graph.Edges), report.TriggerCount)
	fmt.Fprintf(w, "  reachable: %s\n", joinTypes(report.ReachableTypes))

	if report.HasCycle {
		fmt.Fprintln(w, "  warning: graph has a cycle")
	}

	if report.TriggerCount != 1 {
		fmt.Fprintf(w, "  warning: expected one trigger, found %d\n", report.TriggerCount)
	}

	if len(report.OrphanNodes) > 0 {
		fmt.Fprintf(w, "  warning: unlinked nodes %s\n", strings.Join(report.OrphanNodes, ", "))
	}

	var configErrs []error

	for _, node := range graph.Nodes {
		if len(node.Data.Metadata) == 0 {
			continue
		}

		if err := c.ValidateConfig(node.Type, node.Data.Metadata); err != nil {
			fmt.Fprintf(w, "  error: node %q: %v\n", node.ID, err)

			configErrs = append(configErrs, err)
		}
	}

	if len(configErrs) > 0 {
		return errors.Join(configErrs...)
	}

	session := editor.NewSession(path, 0)
	session.Load(graph.Nodes, graph.Edges)

	if strict && !session.CanPublish() {
		return errGraphNotReady
	}

	return nil
}

func joinTypes(types []models.NodeType) string {
	if len(types) == 0 {
		return "(none)"
	}

	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}

	return strings.Join(names, ", ")
}

func printCatalog(w io.Writer, c *catalog.Catalog) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "TYPE\tCATEGORY\tCONNECTION\tDESCRIPTION")

	for _, entry := range c.Entries() {
		connection := string(entry.RequiredConnection)
		if connection == "" {
			connection = "-"
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", entry.Type, entry.Category, connection, entry.Description)
	}

	return tw.Flush()
}
