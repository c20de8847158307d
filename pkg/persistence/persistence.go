// Package persistence provides the data storage abstraction for workflow
// definitions and run audit records.
package persistence

import (
	"context"
	"time"

	"github.com/talentflow/automation/pkg/models"
)

// Persistence is the storage backend contract. Concrete backends (file,
// PostgreSQL) expose repositories for workflows and runs.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	RunRepository() RunRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// ListWorkflowsOptions carries the filters and pagination for workflow
// queries. Search is a case-insensitive substring match on name/description;
// the remaining filters are exact matches.
type ListWorkflowsOptions struct {
	Search      string
	Type        models.WorkflowType
	Status      *models.WorkflowStatus
	TriggerType models.TriggerType
	IsTemplate  *bool
	IsActive    *bool
	Tags        []string
	CreatedFrom *time.Time
	CreatedTo   *time.Time

	Limit  int
	Offset int

	SortBy    string
	SortOrder string
}

// WorkflowListResult is one page of workflows plus the unpaginated total.
type WorkflowListResult struct {
	Workflows   []*models.Workflow `json:"workflows"`
	TotalCount  int64              `json:"total_count"`
	HasNextPage bool               `json:"has_next_page"`
}

// WorkflowRepository stores workflow definitions.
//
// Save is an unconditional upsert used on create. SaveVersioned implements
// optimistic concurrency: it succeeds only when the stored version equals
// workflow.Version, increments the version on success and returns
// ErrVersionConflict otherwise. Both administrator edits and engine counter
// settlement go through SaveVersioned.
type WorkflowRepository interface {
	GetAll(ctx context.Context) ([]*models.Workflow, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	List(ctx context.Context, opts ListWorkflowsOptions) (*WorkflowListResult, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	SaveVersioned(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
}

// RunRepository stores run audit records.
type RunRepository interface {
	Save(ctx context.Context, run *models.Run) error
	GetByID(ctx context.Context, id string) (*models.Run, error)
	ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.Run, error)
}
