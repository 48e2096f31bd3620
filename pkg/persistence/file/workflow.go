package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/flowzen/flowzen/pkg/models"
	"github.com/flowzen/flowzen/pkg/persistence"
	"github.com/google/uuid"
)

// WorkflowRepository stores one JSON document per workflow. Every mutation is
// a read-modify-write under mu followed by an atomic rename.
type WorkflowRepository struct {
	root string
	mu   sync.Mutex
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: root}
}

func (wr *WorkflowRepository) dir() string {
	return filepath.Join(wr.root, "workflows")
}

func (wr *WorkflowRepository) path(id string) string {
	return filepath.Join(wr.dir(), fileName(id))
}

// Create stores a new workflow, assigning an id when it has none.
func (wr *WorkflowRepository) Create(_ context.Context, workflow *models.Workflow) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	if _, err := os.Stat(wr.path(workflow.ID)); err == nil {
		return persistence.NewWorkflowError("Create", workflow.ID, persistence.ErrWorkflowAlreadyExists)
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.Nodes == nil {
		workflow.Nodes = []*models.Node{}
	}

	if workflow.Edges == nil {
		workflow.Edges = []*models.Edge{}
	}

	if workflow.SlackChannels == nil {
		workflow.SlackChannels = []string{}
	}

	return wr.write(workflow)
}

// GetByID retrieves a workflow by its ID from the file system.
func (wr *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	return wr.read(id)
}

// ListByUser returns the user's workflows, filtered, sorted and paginated in memory.
func (wr *WorkflowRepository) ListByUser(_ context.Context, userID string, opts persistence.ListWorkflowsOptions) ([]*models.Workflow, error) {
	if err := opts.Normalize(); err != nil {
		return nil, err
	}

	all, err := wr.readAll()
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.Workflow, 0, len(all))

	for _, workflow := range all {
		if workflow.UserID != userID {
			continue
		}

		if opts.Published != nil && workflow.Publish != *opts.Published {
			continue
		}

		filtered = append(filtered, workflow)
	}

	sortWorkflows(filtered, opts.SortBy, opts.SortOrder)

	if opts.Offset >= len(filtered) {
		return []*models.Workflow{}, nil
	}

	end := min(opts.Offset+opts.Limit, len(filtered))

	return filtered[opts.Offset:end], nil
}

func (wr *WorkflowRepository) CountByUser(_ context.Context, userID string) (int, int, error) {
	all, err := wr.readAll()
	if err != nil {
		return 0, 0, err
	}

	var total, published int

	for _, workflow := range all {
		if workflow.UserID != userID {
			continue
		}

		total++

		if workflow.Publish {
			published++
		}
	}

	return total, published, nil
}

func (wr *WorkflowRepository) SaveGraph(_ context.Context, id string, nodes []*models.Node, edges []*models.Edge) error {
	return wr.update("SaveGraph", id, func(w *models.Workflow) {
		w.Nodes = nodes
		w.Edges = edges
	})
}

func (wr *WorkflowRepository) SaveTemplate(_ context.Context, id string, patch models.TemplatePatch) error {
	return wr.update("SaveTemplate", id, patch.Apply)
}

func (wr *WorkflowRepository) AppendSlackChannel(_ context.Context, id string, channel string) error {
	return wr.update("AppendSlackChannel", id, func(w *models.Workflow) {
		if !w.HasSlackChannel(channel) {
			w.SlackChannels = append(w.SlackChannels, channel)
		}
	})
}

func (wr *WorkflowRepository) SetPublish(_ context.Context, id string, publish bool) error {
	return wr.update("SetPublish", id, func(w *models.Workflow) {
		w.Publish = publish
	})
}

func (wr *WorkflowRepository) update(op, id string, mutate func(*models.Workflow)) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	workflow, err := wr.read(id)
	if err != nil {
		return persistence.NewWorkflowError(op, id, err)
	}

	mutate(workflow)
	workflow.UpdatedAt = time.Now().UTC()

	if err := wr.write(workflow); err != nil {
		return persistence.NewWorkflowError(op, id, err)
	}

	return nil
}

func (wr *WorkflowRepository) read(id string) (*models.Workflow, error) {
	body, err := os.ReadFile(wr.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to fetch workflow %s: %w", id, err)
	}

	var workflow models.Workflow

	if err := json.Unmarshal(body, &workflow); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %s: %w", id, err)
	}

	return &workflow, nil
}

func (wr *WorkflowRepository) readAll() ([]*models.Workflow, error) {
	root := os.DirFS(wr.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(jsonFiles))

	for _, name := range jsonFiles {
		body, err := fs.ReadFile(root, name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}

			return nil, fmt.Errorf("failed to read workflow file %s: %w", name, err)
		}

		var workflow models.Workflow
		if err := json.Unmarshal(body, &workflow); err != nil {
			return nil, fmt.Errorf("failed to unmarshal workflow file %s: %w", name, err)
		}

		workflows = append(workflows, &workflow)
	}

	return workflows, nil
}

func (wr *WorkflowRepository) write(workflow *models.Workflow) error {
	return writeJSONAtomic(wr.path(workflow.ID), workflow)
}

// sortWorkflows sorts workflows in place. Ties fall back to id for a stable order.
func sortWorkflows(workflows []*models.Workflow, sortBy, sortOrder string) {
	sort.SliceStable(workflows, func(i, j int) bool {
		a, b := workflows[i], workflows[j]
		if sortOrder == "desc" {
			a, b = b, a
		}

		switch sortBy {
		case "updated_at":
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.Before(b.UpdatedAt)
			}
		case "name":
			if a.Name != b.Name {
				return strings.ToLower(a.Name) < strings.ToLower(b.Name)
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		}

		return a.ID < b.ID
	})
}
