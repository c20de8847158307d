package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/talentflow/automation/pkg/models"
	"github.com/talentflow/automation/pkg/persistence"
	"github.com/talentflow/automation/pkg/workflow"
)

const defaultPriority = 5

// Workflow is the definition store service: CRUD, queries and lifecycle
// toggling over workflow definitions. Activation is gated on static
// validation.
type Workflow struct {
	persistence persistence.Persistence
	validator   *workflow.Validator
}

func NewWorkflow(persistence persistence.Persistence, validator *workflow.Validator) *Workflow {
	return &Workflow{
		persistence: persistence,
		validator:   validator,
	}
}

// HealthCheck reports the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if err := w.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// CreateWorkflowRequest carries the definition fields accepted on create.
type CreateWorkflowRequest struct {
	Name          string               `validate:"required,min=3"`
	Description   string
	Type          models.WorkflowType  `validate:"required"`
	TriggerType   models.TriggerType   `validate:"required"`
	TriggerConfig map[string]any
	Actions       []*models.ActionSpec
	Conditions    map[string]any
	Tags          []string
	Priority      int
	TimeoutMs     int64
	MaxRetries    int
	ErrorHandling models.ErrorHandling
	IsTemplate    bool
	CreatedBy     string
	Notes         string
}

// Create stores a new definition as a draft. Definitions may be saved in any
// state of completeness; validation gates activation, not creation.
func (w *Workflow) Create(ctx context.Context, req CreateWorkflowRequest) (*models.Workflow, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrNameRequired
	}

	now := time.Now().UTC()

	wf := &models.Workflow{
		ID:            uuid.NewString(),
		Name:          req.Name,
		Description:   req.Description,
		Type:          req.Type,
		TriggerType:   req.TriggerType,
		TriggerConfig: req.TriggerConfig,
		Actions:       req.Actions,
		Conditions:    req.Conditions,
		Tags:          req.Tags,
		Priority:      req.Priority,
		TimeoutMs:     req.TimeoutMs,
		MaxRetries:    req.MaxRetries,
		ErrorHandling: req.ErrorHandling,
		IsTemplate:    req.IsTemplate,
		CreatedBy:     req.CreatedBy,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	wf.SetStatus(models.WorkflowStatusDraft)

	if wf.Priority == 0 {
		wf.Priority = defaultPriority
	}

	if err := w.persistence.WorkflowRepository().Save(ctx, wf); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	return wf, nil
}

// UpdateWorkflowRequest is a partial update: only non-nil fields are applied.
// Execution counters and version are never client-writable.
type UpdateWorkflowRequest struct {
	Name          *string               `validate:"omitempty,min=3"`
	Description   *string
	Type          *models.WorkflowType
	TriggerType   *models.TriggerType
	TriggerConfig *map[string]any
	Actions       *[]*models.ActionSpec
	Conditions    *map[string]any
	Tags          *[]string
	Priority      *int
	TimeoutMs     *int64
	MaxRetries    *int
	ErrorHandling *models.ErrorHandling
	Notes         *string
}

// Update applies a partial update through the optimistic save; a concurrent
// edit or engine settlement surfaces as ErrVersionConflict.
func (w *Workflow) Update(ctx context.Context, workflowID string, req UpdateWorkflowRequest) (*models.Workflow, error) {
	existing, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	applyUpdate(existing, req)
	existing.UpdatedAt = time.Now().UTC()

	if err := w.persistence.WorkflowRepository().SaveVersioned(ctx, existing); err != nil {
		return nil, err
	}

	return existing, nil
}

func applyUpdate(wf *models.Workflow, req UpdateWorkflowRequest) {
	if req.Name != nil {
		wf.Name = *req.Name
	}

	if req.Description != nil {
		wf.Description = *req.Description
	}

	if req.Type != nil {
		wf.Type = *req.Type
	}

	if req.TriggerType != nil {
		wf.TriggerType = *req.TriggerType
	}

	if req.TriggerConfig != nil {
		wf.TriggerConfig = *req.TriggerConfig
	}

	if req.Actions != nil {
		wf.Actions = *req.Actions
	}

	if req.Conditions != nil {
		wf.Conditions = *req.Conditions
	}

	if req.Tags != nil {
		wf.Tags = *req.Tags
	}

	if req.Priority != nil {
		wf.Priority = *req.Priority
	}

	if req.TimeoutMs != nil {
		wf.TimeoutMs = *req.TimeoutMs
	}

	if req.MaxRetries != nil {
		wf.MaxRetries = *req.MaxRetries
	}

	if req.ErrorHandling != nil {
		wf.ErrorHandling = *req.ErrorHandling
	}

	if req.Notes != nil {
		wf.Notes = *req.Notes
	}
}

// Delete removes a workflow definition. Run audit records are kept.
func (w *Workflow) Delete(ctx context.Context, workflowID string) error {
	return w.persistence.WorkflowRepository().Delete(ctx, workflowID)
}

// FetchByID retrieves one workflow.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	return w.persistence.WorkflowRepository().GetByID(ctx, id)
}

// ListWorkflowsRequest carries query filters, sorting and pagination.
type ListWorkflowsRequest struct {
	Search      string
	Type        models.WorkflowType
	Status      *models.WorkflowStatus
	TriggerType models.TriggerType
	IsTemplate  *bool
	IsActive    *bool
	Tags        []string
	CreatedFrom *time.Time
	CreatedTo   *time.Time

	Limit  int `validate:"min=0,max=100"`
	Offset int `validate:"min=0"`

	SortBy    string
	SortOrder string
}

// List retrieves workflows with filtering, sorting and pagination.
func (w *Workflow) List(ctx context.Context, req ListWorkflowsRequest) (*persistence.WorkflowListResult, error) {
	if err := w.validateListRequest(&req); err != nil {
		return nil, err
	}

	opts := persistence.ListWorkflowsOptions{
		Search:      req.Search,
		Type:        req.Type,
		Status:      req.Status,
		TriggerType: req.TriggerType,
		IsTemplate:  req.IsTemplate,
		IsActive:    req.IsActive,
		Tags:        req.Tags,
		CreatedFrom: req.CreatedFrom,
		CreatedTo:   req.CreatedTo,
		Limit:       req.Limit,
		Offset:      req.Offset,
		SortBy:      req.SortBy,
		SortOrder:   req.SortOrder,
	}

	result, err := w.persistence.WorkflowRepository().List(ctx, opts)
	if err != nil {
		if persistence.IsInvalidSortField(err) {
			return nil, ErrInvalidSortField
		}

		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return result, nil
}

func (w *Workflow) validateListRequest(req *ListWorkflowsRequest) error {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	if req.Limit > 100 {
		req.Limit = 100
	}

	if req.Offset < 0 {
		req.Offset = 0
	}

	if req.SortBy == "" {
		req.SortBy = "created_at"
	}

	if req.SortOrder == "" {
		req.SortOrder = "desc"
	}

	allowedSorts := []string{"created_at", "updated_at", "name", "priority", "last_executed_at"}
	if !slices.Contains(allowedSorts, req.SortBy) {
		return NewValidationError("List", "INVALID_SORT_FIELD",
			fmt.Sprintf("invalid sort field %q, allowed: %s", req.SortBy, strings.Join(allowedSorts, ", ")),
			ErrInvalidSortField)
	}

	if req.SortOrder != "asc" && req.SortOrder != "desc" {
		return NewValidationError("List", "INVALID_SORT_ORDER",
			fmt.Sprintf("invalid sort order %q, allowed: asc, desc", req.SortOrder),
			ErrInvalidSortOrder)
	}

	if req.CreatedFrom != nil && req.CreatedTo != nil && req.CreatedFrom.After(*req.CreatedTo) {
		return NewValidationError("List", "INVALID_DATE_RANGE",
			"created_from must not be after created_to", ErrInvalidDateRange)
	}

	if req.Status != nil {
		allowedStatuses := []models.WorkflowStatus{
			models.WorkflowStatusDraft,
			models.WorkflowStatusActive,
			models.WorkflowStatusInactive,
		}
		if !slices.Contains(allowedStatuses, *req.Status) {
			return NewValidationError("List", "INVALID_STATUS",
				fmt.Sprintf("invalid status %q", *req.Status), ErrInvalidStatus)
		}
	}

	return nil
}

// Search is a convenience wrapper for substring search over name/description.
func (w *Workflow) Search(ctx context.Context, query string, limit, offset int) (*persistence.WorkflowListResult, error) {
	return w.List(ctx, ListWorkflowsRequest{Search: query, Limit: limit, Offset: offset})
}

// ListByType retrieves workflows of one HR domain category.
func (w *Workflow) ListByType(ctx context.Context, workflowType models.WorkflowType, limit, offset int) (*persistence.WorkflowListResult, error) {
	return w.List(ctx, ListWorkflowsRequest{Type: workflowType, Limit: limit, Offset: offset})
}

// ListTemplates retrieves template definitions.
func (w *Workflow) ListTemplates(ctx context.Context, limit, offset int) (*persistence.WorkflowListResult, error) {
	isTemplate := true

	return w.List(ctx, ListWorkflowsRequest{IsTemplate: &isTemplate, Limit: limit, Offset: offset})
}

// Duplicate copies a definition (template or not) into a fresh draft with
// zeroed counters. The copy never inherits active status or template-ness.
func (w *Workflow) Duplicate(ctx context.Context, workflowID, newName string) (*models.Workflow, error) {
	source, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(newName) == "" {
		newName = source.Name + " (copy)"
	}

	now := time.Now().UTC()
	clone := &models.Workflow{
		ID:            uuid.NewString(),
		Name:          newName,
		Description:   source.Description,
		Type:          source.Type,
		TriggerType:   source.TriggerType,
		TriggerConfig: source.TriggerConfig,
		Actions:       source.Actions,
		Conditions:    source.Conditions,
		Tags:          slices.Clone(source.Tags),
		Priority:      source.Priority,
		TimeoutMs:     source.TimeoutMs,
		MaxRetries:    source.MaxRetries,
		ErrorHandling: source.ErrorHandling,
		CreatedBy:     source.CreatedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	clone.SetStatus(models.WorkflowStatusDraft)

	if err := w.persistence.WorkflowRepository().Save(ctx, clone); err != nil {
		return nil, fmt.Errorf("failed to duplicate workflow: %w", err)
	}

	return clone, nil
}

// Toggle activates or deactivates a workflow. Activation requires the
// definition to pass static validation; the failing messages are carried on
// the returned error. An optional note is appended to the audit notes.
func (w *Workflow) Toggle(ctx context.Context, workflowID string, activate bool, note string) (*models.Workflow, error) {
	wf, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if activate {
		result := w.validator.Validate(wf)
		if !result.Valid {
			return nil, NewValidationError("Toggle", "DEFINITION_INVALID",
				strings.Join(result.Errors, "; "), ErrDefinitionInvalid)
		}

		wf.SetStatus(models.WorkflowStatusActive)
	} else {
		wf.SetStatus(models.WorkflowStatusInactive)
	}

	if note != "" {
		stamp := time.Now().UTC().Format(time.RFC3339)
		if wf.Notes != "" {
			wf.Notes += "\n"
		}

		wf.Notes += fmt.Sprintf("[%s] %s", stamp, note)
	}

	wf.UpdatedAt = time.Now().UTC()

	if err := w.persistence.WorkflowRepository().SaveVersioned(ctx, wf); err != nil {
		return nil, err
	}

	return wf, nil
}

// ValidateWorkflow runs static validation without changing any state.
func (w *Workflow) ValidateWorkflow(ctx context.Context, workflowID string) (*workflow.ValidationResult, error) {
	wf, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	result := w.validator.Validate(wf)

	return &result, nil
}

// ListRuns retrieves the most recent run audit records for a workflow.
func (w *Workflow) ListRuns(ctx context.Context, workflowID string, limit int) ([]*models.Run, error) {
	if limit <= 0 {
		limit = 20
	}

	return w.persistence.RunRepository().ListByWorkflow(ctx, workflowID, limit)
}

// FetchRun retrieves one run audit record.
func (w *Workflow) FetchRun(ctx context.Context, runID string) (*models.Run, error) {
	return w.persistence.RunRepository().GetByID(ctx, runID)
}
