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

	"github.com/talentflow/automation/pkg/models"
	"github.com/talentflow/automation/pkg/persistence"
)

// WorkflowRepository stores one JSON document per workflow under
// <root>/workflows. A repository-level mutex serializes writes so
// SaveVersioned gives real compare-and-swap semantics within a process.
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
	return filepath.Join(wr.dir(), id+".json")
}

// GetAll returns every stored workflow.
func (wr *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	root := os.DirFS(wr.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		workflowID := strings.TrimSuffix(file, ".json")

		workflow, err := wr.GetByID(ctx, workflowID)
		if err != nil {
			if persistence.IsWorkflowNotFound(err) {
				continue
			}

			return nil, fmt.Errorf("failed to load workflow %s: %w", workflowID, err)
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}

// GetByID loads a single workflow, ErrWorkflowNotFound when absent.
func (wr *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	data, err := os.ReadFile(wr.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	var workflow models.Workflow

	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return &workflow, nil
}

// List returns a filtered, sorted and paginated page of workflows with the
// unpaginated total count.
func (wr *WorkflowRepository) List(ctx context.Context, opts persistence.ListWorkflowsOptions) (*persistence.WorkflowListResult, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}

	if opts.SortBy == "" {
		opts.SortBy = "created_at"
	}

	if opts.SortOrder == "" {
		opts.SortOrder = "desc"
	}

	if !allowedSortFields[opts.SortBy] {
		return nil, fmt.Errorf("%w: %s", persistence.ErrInvalidSortField, opts.SortBy)
	}

	all, err := wr.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.Workflow, 0, len(all))

	for _, workflow := range all {
		if matchesOptions(workflow, opts) {
			filtered = append(filtered, workflow)
		}
	}

	sortWorkflows(filtered, opts.SortBy, opts.SortOrder)

	totalCount := int64(len(filtered))

	startIdx := opts.Offset
	if startIdx < 0 {
		startIdx = 0
	}

	if startIdx >= len(filtered) {
		return &persistence.WorkflowListResult{
			Workflows:  make([]*models.Workflow, 0),
			TotalCount: totalCount,
		}, nil
	}

	endIdx := startIdx + opts.Limit
	if endIdx > len(filtered) {
		endIdx = len(filtered)
	}

	return &persistence.WorkflowListResult{
		Workflows:   filtered[startIdx:endIdx],
		TotalCount:  totalCount,
		HasNextPage: endIdx < len(filtered),
	}, nil
}

var allowedSortFields = map[string]bool{
	"created_at":       true,
	"updated_at":       true,
	"name":             true,
	"priority":         true,
	"last_executed_at": true,
}

func matchesOptions(workflow *models.Workflow, opts persistence.ListWorkflowsOptions) bool {
	if opts.Search != "" {
		needle := strings.ToLower(opts.Search)
		if !strings.Contains(strings.ToLower(workflow.Name), needle) &&
			!strings.Contains(strings.ToLower(workflow.Description), needle) {
			return false
		}
	}

	if opts.Type != "" && workflow.Type != opts.Type {
		return false
	}

	if opts.Status != nil && workflow.Status != *opts.Status {
		return false
	}

	if opts.TriggerType != "" && workflow.TriggerType != opts.TriggerType {
		return false
	}

	if opts.IsTemplate != nil && workflow.IsTemplate != *opts.IsTemplate {
		return false
	}

	if opts.IsActive != nil && workflow.IsActive != *opts.IsActive {
		return false
	}

	if opts.CreatedFrom != nil && workflow.CreatedAt.Before(*opts.CreatedFrom) {
		return false
	}

	if opts.CreatedTo != nil && workflow.CreatedAt.After(*opts.CreatedTo) {
		return false
	}

	for _, tag := range opts.Tags {
		if !hasTag(workflow, tag) {
			return false
		}
	}

	return true
}

func hasTag(workflow *models.Workflow, tag string) bool {
	for _, t := range workflow.Tags {
		if t == tag {
			return true
		}
	}

	return false
}

func sortWorkflows(workflows []*models.Workflow, sortBy, sortOrder string) {
	sort.SliceStable(workflows, func(i, j int) bool {
		var less bool

		switch sortBy {
		case "updated_at":
			less = workflows[i].UpdatedAt.Before(workflows[j].UpdatedAt)
		case "name":
			less = workflows[i].Name < workflows[j].Name
		case "priority":
			less = workflows[i].Priority < workflows[j].Priority
		case "last_executed_at":
			switch {
			case workflows[i].LastExecutedAt == nil:
				less = true
			case workflows[j].LastExecutedAt == nil:
				less = false
			default:
				less = workflows[i].LastExecutedAt.Before(*workflows[j].LastExecutedAt)
			}
		default:
			less = workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
		}

		if sortOrder == "desc" {
			return !less
		}

		return less
	})
}

// Save writes the workflow unconditionally (insert or replace).
func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	return wr.write(workflow)
}

// SaveVersioned writes the workflow only when the stored version still equals
// workflow.Version, then increments the version. Returns ErrVersionConflict
// when another writer got there first.
func (wr *WorkflowRepository) SaveVersioned(ctx context.Context, workflow *models.Workflow) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	stored, err := wr.GetByID(ctx, workflow.ID)
	if err != nil {
		return err
	}

	if stored.Version != workflow.Version {
		return persistence.NewWorkflowError("SaveVersioned", workflow.ID, persistence.ErrVersionConflict)
	}

	workflow.Version++

	return wr.write(workflow)
}

func (wr *WorkflowRepository) write(workflow *models.Workflow) error {
	if err := os.MkdirAll(wr.dir(), 0o755); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	if err := os.WriteFile(wr.path(workflow.ID), data, 0o600); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

// Delete removes the workflow file, ErrWorkflowNotFound when absent.
func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	err := os.Remove(wr.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
		}

		return persistence.NewWorkflowError("Delete", id, err)
	}

	return nil
}
