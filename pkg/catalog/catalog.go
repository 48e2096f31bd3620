// Package catalog maps every node type to its category, required connection
// and configuration schema.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/flowzen/flowzen/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/xeipuuv/gojsonschema"
)

var (
	ErrUnknownNodeType = errors.New("unknown node type")
	ErrInvalidConfig   = errors.New("invalid node configuration")
)

type Category string

const (
	CategoryTrigger Category = "trigger"
	CategoryAction  Category = "action"
	CategoryLogic   Category = "logic"
)

// Entry describes one node type.
type Entry struct {
	Type               models.NodeType       `json:"type"`
	Category           Category              `json:"category"`
	Name               string                `json:"name"`
	Description        string                `json:"description"`
	RequiredConnection models.ConnectionType `json:"required_connection,omitempty"`
	Schema             *models.JSONSchema    `json:"schema"`
}

// RequiresConnection reports whether executing the node needs a bound account.
func (e Entry) RequiresConnection() bool {
	return e.RequiredConnection != ""
}

// Catalog is immutable once built and safe for concurrent use.
type Catalog struct {
	entries  map[models.NodeType]Entry
	validate *validator.Validate
	cron     cron.Parser
}

// New returns the catalog of all built-in node types.
func New() *Catalog {
	c := &Catalog{
		entries:  make(map[models.NodeType]Entry),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		cron:     cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}

	for _, entry := range builtinEntries() {
		c.entries[entry.Type] = entry
	}

	return c
}

// Lookup returns the entry for nodeType.
func (c *Catalog) Lookup(nodeType models.NodeType) (Entry, bool) {
	entry, ok := c.entries[nodeType]

	return entry, ok
}

// RequiredConnection returns the connection type nodeType needs. ok is false
// for unknown types; an empty type with ok true means no connection is needed.
func (c *Catalog) RequiredConnection(nodeType models.NodeType) (models.ConnectionType, bool) {
	entry, ok := c.entries[nodeType]
	if !ok {
		return "", false
	}

	return entry.RequiredConnection, true
}

// Types lists the node types the catalog knows, in canvas order.
func (c *Catalog) Types() []models.NodeType {
	types := make([]models.NodeType, 0, len(c.entries))

	for _, nodeType := range models.AllNodeTypes() {
		if _, ok := c.entries[nodeType]; ok {
			types = append(types, nodeType)
		}
	}

	return types
}

// Entries returns all entries in canvas order.
func (c *Catalog) Entries() []Entry {
	entries := make([]Entry, 0, len(c.entries))

	for _, nodeType := range models.AllNodeTypes() {
		if entry, ok := c.entries[nodeType]; ok {
			entries = append(entries, entry)
		}
	}

	return entries
}

// ValidateConfig checks config against the schema of nodeType.
func (c *Catalog) ValidateConfig(nodeType models.NodeType, config map[string]any) error {
	entry, ok := c.entries[nodeType]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNodeType, nodeType)
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(entry.Schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("failed to validate %s config: %w", nodeType, err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(messages, "; "))
	}

	if nodeType == models.NodeTypeTrigger {
		if schedule, _ := config["schedule"].(string); schedule != "" {
			if _, err := c.cron.Parse(schedule); err != nil {
				return fmt.Errorf("%w: schedule: %w", ErrInvalidConfig, err)
			}
		}
	}

	return nil
}

// Decode converts config into out and runs its struct validation rules.
func (c *Catalog) Decode(config map[string]any, out any) error {
	raw, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := c.validate.Struct(out); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}
