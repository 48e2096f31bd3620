// Package config loads workflow graphs kept as files, for checking them
// outside the API.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/flowzen/flowzen/pkg/models"
	"gopkg.in/yaml.v3"
)

var ErrEmptyGraphFile = errors.New("graph file is empty")

// GraphFile is a workflow graph as exported by the editor. JSON documents are
// read as YAML, so both formats share the JSON field names.
type GraphFile struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Nodes       []*models.Node `json:"nodes"`
	Edges       []*models.Edge `json:"edges"`
}

// LoadGraphFile reads a YAML or JSON graph file.
func LoadGraphFile(path string) (*GraphFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file %s: %w", path, err)
	}

	graph, err := ParseGraph(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return graph, nil
}

// ParseGraph decodes a YAML or JSON graph document.
func ParseGraph(data []byte) (*GraphFile, error) {
	var document any
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("failed to parse graph: %w", err)
	}

	if document == nil {
		return nil, ErrEmptyGraphFile
	}

	// Round-trip through JSON so the model's json tags apply to YAML input.
	normalized, err := json.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize graph: %w", err)
	}

	var graph GraphFile
	if err := json.Unmarshal(normalized, &graph); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}

	return &graph, nil
}
