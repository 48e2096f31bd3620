// Package docgen renders markdown documentation for a workflow graph.
package docgen

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/flowzen/flowzen/pkg/flow"
	"github.com/flowzen/flowzen/pkg/models"
)

// Input is everything a generator may describe.
type Input struct {
	Name        string
	Description string
	Nodes       []*models.Node
	Edges       []*models.Edge
	Connections []models.ConnectionType
}

type Generator interface {
	Generate(ctx context.Context, input Input) (string, error)
}

const markdown = `# {{ .Name }}

{{ with .Description }}{{ . }}

{{ end }}## Steps

{{ range $i, $step := .Steps }}{{ inc $i }}. **{{ $step.Title }}** ({{ $step.Type }}){{ with $step.Description }}: {{ . }}{{ end }}
{{ else }}This workflow has no steps yet.
{{ end }}
## Flow

{{ range .Links }}- {{ .From }} → {{ .To }}
{{ else }}No steps are connected.
{{ end }}
## Connections

{{ range .Connections }}- {{ . }}
{{ else }}No connected services are used.
{{ end }}{{ with .Missing }}
**Not connected:** {{ join . ", " }}
{{ end }}`

type step struct {
	Title       string
	Type        models.NodeType
	Description string
}

type link struct {
	From string
	To   string
}

type view struct {
	Name        string
	Description string
	Steps       []step
	Links       []link
	Connections []models.ConnectionType
	Missing     []string
}

// Markdown renders deterministic markdown with text/template.
type Markdown struct {
	tmpl *template.Template
}

func NewMarkdown() *Markdown {
	return &Markdown{
		tmpl: template.Must(template.New("documentation").Funcs(template.FuncMap{
			"inc":  func(i int) int { return i + 1 },
			"join": strings.Join,
		}).Parse(markdown)),
	}
}

// Generate lists steps in node order, the edges by step title and the
// connections the reachable nodes need. The output only depends on input.
func (m *Markdown) Generate(ctx context.Context, input Input) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	v := view{
		Name:        input.Name,
		Description: input.Description,
		Connections: input.Connections,
	}

	titles := make(map[string]string, len(input.Nodes))

	for _, node := range input.Nodes {
		if node == nil {
			continue
		}

		title := node.Data.Title
		if title == "" {
			title = string(node.Type)
		}

		titles[node.ID] = title
		v.Steps = append(v.Steps, step{Title: title, Type: node.Type, Description: node.Data.Description})
	}

	for _, edge := range input.Edges {
		if edge == nil {
			continue
		}

		v.Links = append(v.Links, link{From: titles[edge.Source], To: titles[edge.Target]})
	}

	connected := make(map[models.ConnectionType]bool, len(input.Connections))
	for _, c := range input.Connections {
		connected[c] = true
	}

	for _, nodeType := range flow.ResolveReachableTypes(input.Nodes, input.Edges).Sorted() {
		c := models.ConnectionType(nodeType)
		if isConnectionType(c) && !connected[c] {
			v.Missing = append(v.Missing, string(c))
		}
	}

	sort.Strings(v.Missing)

	var buf strings.Builder
	if err := m.tmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("failed to render documentation: %w", err)
	}

	return buf.String(), nil
}

func isConnectionType(c models.ConnectionType) bool {
	for _, known := range models.AllConnectionTypes() {
		if c == known {
			return true
		}
	}

	return false
}
