package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/flowzen/flowzen/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGraph(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestRunCheck(t *testing.T) {
	ready := writeGraph(t, "ready.yaml", `
nodes:
  - {id: t, type: Trigger}
  - {id: d, type: Discord, data: {metadata: {content: hello}}}
edges:
  - {id: e1, source: t, target: d}
`)

	empty := writeGraph(t, "empty.json", `{"nodes": [{"id": "t", "type": "Trigger"}], "edges": []}`)

	dangling := writeGraph(t, "dangling.yaml", `
nodes:
  - {id: t, type: Trigger}
edges:
  - {id: e1, source: t, target: ghost}
  - {id: e2, source: t, target: t}
`)

	badConfig := writeGraph(t, "bad-config.yaml", `
nodes:
  - {id: t, type: Trigger}
  - {id: s, type: Slack, data: {metadata: {content: hi}}}
edges:
  - {id: e1, source: t, target: s}
`)

	tests := []struct {
		name     string
		paths    []string
		strict   bool
		wantErr  bool
		contains []string
	}{
		{
			name:     "ready graph",
			paths:    []string{ready},
			contains: []string{"reachable: Discord", "ready.yaml: ok"},
		},
		{
			name:     "empty graph passes when not strict",
			paths:    []string{empty},
			contains: []string{"reachable: (none)", "unlinked nodes t"},
		},
		{
			name:     "empty graph fails when strict",
			paths:    []string{empty},
			strict:   true,
			wantErr:  true,
			contains: []string{"FAIL graph has no connected action node"},
		},
		{
			name:     "structural problems",
			paths:    []string{dangling, ready},
			wantErr:  true,
			contains: []string{"edge references unknown node", "connects a node to itself", "ready.yaml: ok"},
		},
		{
			name:     "invalid node configuration",
			paths:    []string{badConfig},
			wantErr:  true,
			contains: []string{`node "s"`},
		},
		{
			name:    "missing file",
			paths:   []string{filepath.Join(t.TempDir(), "nope.yaml")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer

			err := runCheck(&out, catalog.New(), tt.paths, tt.strict)
			if tt.wantErr {
				assert.ErrorIs(t, err, errCheckFailed)
			} else {
				assert.NoError(t, err)
			}

			for _, want := range tt.contains {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}

func TestRunCheck_NoFiles(t *testing.T) {
	assert.ErrorIs(t, runCheck(&bytes.Buffer{}, catalog.New(), nil, false), errNoFiles)
}

func TestPrintCatalog(t *testing.T) {
	var out bytes.Buffer

	require.NoError(t, printCatalog(&out, catalog.New()))
	assert.Contains(t, out.String(), "Discord")
	assert.Contains(t, out.String(), "TYPE")
}
